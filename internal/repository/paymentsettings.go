package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurumcart/aurum-backend/internal/domain/account"
	"github.com/aurumcart/aurum-backend/internal/domain/payment"
)

const (
	getPaymentSettingsSQL = `SELECT payment_settings FROM accounts WHERE id = $1`

	// FOR UPDATE serializes concurrent patches of the same account.
	lockPaymentSettingsSQL = `SELECT payment_settings FROM accounts WHERE id = $1 FOR UPDATE`

	setPaymentSettingsSQL = `UPDATE accounts
		SET payment_settings = $2, updated_at = now() WHERE id = $1`
)

var _ payment.SettingsStore = (*PaymentSettingsRepository)(nil)

// PaymentSettingsRepository stores per-account payment settings in the
// accounts.payment_settings JSONB column.
type PaymentSettingsRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentSettingsRepository returns a PaymentSettingsRepository that uses
// the given pool.
func NewPaymentSettingsRepository(pool *pgxpool.Pool) *PaymentSettingsRepository {
	return &PaymentSettingsRepository{pool: pool}
}

// GetSettings returns the account's payment settings.
func (r *PaymentSettingsRepository) GetSettings(ctx context.Context, accountID string) (payment.AccountSettings, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, getPaymentSettingsSQL, accountID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payment.AccountSettings{}, account.ErrNotFound
		}
		return payment.AccountSettings{}, fmt.Errorf("reading payment settings for %q: %w", accountID, err)
	}

	var settings payment.AccountSettings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return payment.AccountSettings{}, fmt.Errorf("decoding payment settings for %q: %w", accountID, err)
	}
	return settings, nil
}

// UpdateSettings applies the patch under a row lock and returns the merged
// result.
func (r *PaymentSettingsRepository) UpdateSettings(ctx context.Context, accountID string, patch payment.SettingsPatch) (payment.AccountSettings, error) {
	var merged payment.AccountSettings
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var raw []byte
		err := tx.QueryRow(ctx, lockPaymentSettingsSQL, accountID).Scan(&raw)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return account.ErrNotFound
			}
			return fmt.Errorf("locking payment settings: %w", err)
		}

		var current payment.AccountSettings
		if err := json.Unmarshal(raw, &current); err != nil {
			return fmt.Errorf("decoding payment settings: %w", err)
		}
		merged = current.Merge(patch)

		out, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("encoding payment settings: %w", err)
		}
		if _, err := tx.Exec(ctx, setPaymentSettingsSQL, accountID, out); err != nil {
			return fmt.Errorf("writing payment settings: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return payment.AccountSettings{}, account.ErrNotFound
		}
		return payment.AccountSettings{}, fmt.Errorf("updating payment settings for %q: %w", accountID, err)
	}
	return merged, nil
}
