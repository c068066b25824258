package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountSettings are per-customer payment permissions, adjustable by admins.
type AccountSettings struct {
	EMIEnabled               bool             `json:"emiEnabled"`
	PartialPaymentEnabled    bool             `json:"partialPaymentEnabled"`
	AllowedEMITenures        []int            `json:"allowedEmiTenures,omitempty"`
	MinPartialPaymentPercent *decimal.Decimal `json:"minPartialPaymentPercent,omitempty"`
	MaxPartialPaymentPercent *decimal.Decimal `json:"maxPartialPaymentPercent,omitempty"`
	CanConvertPartialToEMI   bool             `json:"canConvertPartialToEmi"`
	CreditLimit              *decimal.Decimal `json:"creditLimit,omitempty"`
	TrustScore               *int             `json:"trustScore,omitempty"`
	Notes                    string           `json:"notes,omitempty"`
}

// SettingsPatch is a partial update of AccountSettings. Nil fields are left
// untouched; explicit optionality replaces presence-checking on loose maps.
type SettingsPatch struct {
	EMIEnabled               *bool            `json:"emiEnabled,omitempty"`
	PartialPaymentEnabled    *bool            `json:"partialPaymentEnabled,omitempty"`
	AllowedEMITenures        []int            `json:"allowedEmiTenures,omitempty"`
	MinPartialPaymentPercent *decimal.Decimal `json:"minPartialPaymentPercent,omitempty"`
	MaxPartialPaymentPercent *decimal.Decimal `json:"maxPartialPaymentPercent,omitempty"`
	CanConvertPartialToEMI   *bool            `json:"canConvertPartialToEmi,omitempty"`
	CreditLimit              *decimal.Decimal `json:"creditLimit,omitempty"`
	TrustScore               *int             `json:"trustScore,omitempty"`
	Notes                    *string          `json:"notes,omitempty"`
}

// SettingsStore persists per-account payment settings. Update applies the
// patch atomically against the stored value.
type SettingsStore interface {
	GetSettings(ctx context.Context, accountID string) (AccountSettings, error)
	UpdateSettings(ctx context.Context, accountID string, patch SettingsPatch) (AccountSettings, error)
}

// Merge applies the patch field-by-field onto s.
func (s AccountSettings) Merge(p SettingsPatch) AccountSettings {
	if p.EMIEnabled != nil {
		s.EMIEnabled = *p.EMIEnabled
	}
	if p.PartialPaymentEnabled != nil {
		s.PartialPaymentEnabled = *p.PartialPaymentEnabled
	}
	if p.AllowedEMITenures != nil {
		s.AllowedEMITenures = p.AllowedEMITenures
	}
	if p.MinPartialPaymentPercent != nil {
		s.MinPartialPaymentPercent = p.MinPartialPaymentPercent
	}
	if p.MaxPartialPaymentPercent != nil {
		s.MaxPartialPaymentPercent = p.MaxPartialPaymentPercent
	}
	if p.CanConvertPartialToEMI != nil {
		s.CanConvertPartialToEMI = *p.CanConvertPartialToEMI
	}
	if p.CreditLimit != nil {
		s.CreditLimit = p.CreditLimit
	}
	if p.TrustScore != nil {
		s.TrustScore = p.TrustScore
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	return s
}
