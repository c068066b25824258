package referral

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/account"
	"github.com/aurumcart/aurum-backend/internal/domain/settings"
)

// CodeInfo is the public view of a referral code check.
type CodeInfo struct {
	Code         string
	ReferrerName string
	Valid        bool
}

// Service runs the referral program: code issuance, linking, and payout.
type Service struct {
	referrals Repository
	accounts  account.Repository
	settings  settings.Store
	now       func() time.Time
}

// NewService creates a referral Service.
func NewService(referrals Repository, accounts account.Repository, st settings.Store) *Service {
	return &Service{
		referrals: referrals,
		accounts:  accounts,
		settings:  st,
		now:       time.Now,
	}
}

// MyCode returns the account's referral code, minting one on first use.
func (s *Service) MyCode(ctx context.Context, accountID string) (string, error) {
	acc, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return "", errors.Wrap(err, "load account")
	}
	if acc.ReferralCode != "" {
		return acc.ReferralCode, nil
	}
	code, err := s.accounts.EnsureReferralCode(ctx, accountID, account.DeriveReferralCode(accountID))
	if err != nil {
		return "", errors.Wrap(err, "persist referral code")
	}
	return code, nil
}

// ValidateCode checks a code without linking anything.
func (s *Service) ValidateCode(ctx context.Context, code string) (*CodeInfo, error) {
	referrer, err := s.accounts.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, errors.Wrap(err, "lookup referral code")
	}
	return &CodeInfo{Code: code, ReferrerName: referrer.Name, Valid: true}, nil
}

// ApplyCode links refereeID to the code's owner. An account can be referred at
// most once, and never by itself. The pending referral row is created here;
// the payout waits for the referee's first completed payment.
func (s *Service) ApplyCode(ctx context.Context, refereeID, code string) (*Referral, error) {
	referee, err := s.accounts.Get(ctx, refereeID)
	if err != nil {
		return nil, errors.Wrap(err, "load referee")
	}
	if referee.ReferredBy != "" {
		return nil, ErrAlreadyReferred
	}

	referrer, err := s.accounts.FindByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, errors.Wrap(err, "lookup referral code")
	}
	if referrer.ID == refereeID {
		return nil, ErrSelfReferral
	}

	if err := s.accounts.SetReferredBy(ctx, refereeID, referrer.ID, code); err != nil {
		return nil, errors.Wrap(err, "stamp referrer")
	}
	ref, err := s.referrals.FindOrCreatePending(ctx, referrer.ID, refereeID, code)
	if err != nil {
		return nil, errors.Wrap(err, "create referral")
	}
	return ref, nil
}

// Settle pays the referrer after the referee's payment completes. It is
// idempotent per referee: once any referral is rewarded for this account, all
// later payments are a no-op. A payment landing after the qualification
// window marks the referral expired. The reward is
// round(amountPaid * percent / 100) points, credited to the referrer inside
// the MarkRewarded transaction.
func (s *Service) Settle(ctx context.Context, refereeID, orderID string, amountPaid decimal.Decimal) (*Referral, error) {
	if _, err := s.referrals.FindRewardedByReferee(ctx, refereeID); err == nil {
		return nil, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, errors.Wrap(err, "check prior reward")
	}

	referee, err := s.accounts.Get(ctx, refereeID)
	if err != nil {
		return nil, errors.Wrap(err, "load referee")
	}
	if referee.ReferredBy == "" {
		return nil, nil
	}

	ref, err := s.referrals.FindOrCreatePending(ctx, referee.ReferredBy, refereeID, referee.ReferredByCode)
	if err != nil {
		return nil, errors.Wrap(err, "load referral")
	}
	if ref.Status != StatusPending {
		return nil, nil
	}

	windowDays, err := s.settings.GetInt(ctx, settings.KeyReferralWindowDays, 30)
	if err != nil {
		return nil, errors.Wrap(err, "resolve referral window")
	}
	if windowDays > 0 && s.now().After(ref.CreatedAt.AddDate(0, 0, windowDays)) {
		if err := s.referrals.MarkExpired(ctx, ref.ID); err != nil {
			return nil, errors.Wrap(err, "expire referral")
		}
		return nil, nil
	}

	percent, err := s.settings.GetDecimal(ctx, settings.KeyReferralPercent, decimal.NewFromInt(50))
	if err != nil {
		return nil, errors.Wrap(err, "resolve reward percent")
	}
	points := RewardPoints(amountPaid, percent)
	if points <= 0 {
		return nil, nil
	}

	rewarded, err := s.referrals.MarkRewarded(ctx, ref.ID, points, orderID)
	if err != nil {
		if errors.Is(err, ErrAlreadyRewarded) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "mark rewarded")
	}
	return rewarded, nil
}

// History lists a referrer's referrals.
func (s *Service) History(ctx context.Context, f HistoryFilter) ([]Referral, int, error) {
	return s.referrals.ListByReferrer(ctx, f)
}

// Stats summarizes a referrer's program activity.
func (s *Service) Stats(ctx context.Context, referrerID string) (Stats, error) {
	return s.referrals.StatsByReferrer(ctx, referrerID)
}
