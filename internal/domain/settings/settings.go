// Package settings defines the runtime-tunable configuration store.
//
// Business tunables (tax rates, loyalty percentages, referral percentages)
// live in the database rather than process config so that admin changes take
// effect on the next request without a restart.
package settings

import (
	"context"

	"github.com/shopspring/decimal"
)

// Well-known setting keys.
const (
	KeyBusinessName       = "business_name"
	KeyBusinessAddress    = "business_address"
	KeyBusinessPhone      = "business_phone"
	KeyBusinessEmail      = "business_email"
	KeyBusinessGSTIN      = "business_gstin"
	KeyCGSTRate           = "cgst_rate"
	KeySGSTRate           = "sgst_rate"
	KeyTaxPercent         = "tax_percent"
	KeyFreeShippingAbove  = "free_shipping_above"
	KeyShippingFee        = "shipping_fee"
	KeyPointValue         = "loyalty_point_value"
	KeyMinRedemption      = "min_loyalty_redemption"
	KeyMaxUsagePercent    = "max_loyalty_usage_percent"
	KeyReferralPercent    = "referral_reward_percent"
	KeyReferralWindowDays = "referral_validity_days"
)

// Store reads and writes individual settings. Implementations must return the
// provided default when the key is absent, never an error.
type Store interface {
	GetString(ctx context.Context, key, def string) (string, error)
	GetInt(ctx context.Context, key string, def int) (int, error)
	GetDecimal(ctx context.Context, key string, def decimal.Decimal) (decimal.Decimal, error)
	Set(ctx context.Context, key string, value any, description, category string) error
}

// PricingConfig is the snapshot of pricing tunables for a single quote.
type PricingConfig struct {
	TaxPercent        decimal.Decimal
	FreeShippingAbove decimal.Decimal
	ShippingFee       decimal.Decimal
}

// LoyaltyConfig is the snapshot of loyalty tunables for a single operation.
type LoyaltyConfig struct {
	PointValue      decimal.Decimal
	MinRedemption   int64
	MaxUsagePercent decimal.Decimal
}

// Pricing resolves the pricing tunables with their documented defaults.
func Pricing(ctx context.Context, s Store) (PricingConfig, error) {
	tax, err := s.GetDecimal(ctx, KeyTaxPercent, decimal.NewFromInt(18))
	if err != nil {
		return PricingConfig{}, err
	}
	threshold, err := s.GetDecimal(ctx, KeyFreeShippingAbove, decimal.NewFromInt(50))
	if err != nil {
		return PricingConfig{}, err
	}
	fee, err := s.GetDecimal(ctx, KeyShippingFee, decimal.NewFromInt(5))
	if err != nil {
		return PricingConfig{}, err
	}
	return PricingConfig{TaxPercent: tax, FreeShippingAbove: threshold, ShippingFee: fee}, nil
}

// Loyalty resolves the loyalty tunables with their documented defaults.
func Loyalty(ctx context.Context, s Store) (LoyaltyConfig, error) {
	pointValue, err := s.GetDecimal(ctx, KeyPointValue, decimal.NewFromInt(1))
	if err != nil {
		return LoyaltyConfig{}, err
	}
	minRedemption, err := s.GetInt(ctx, KeyMinRedemption, 100)
	if err != nil {
		return LoyaltyConfig{}, err
	}
	maxUsage, err := s.GetDecimal(ctx, KeyMaxUsagePercent, decimal.NewFromInt(50))
	if err != nil {
		return LoyaltyConfig{}, err
	}
	return LoyaltyConfig{
		PointValue:      pointValue,
		MinRedemption:   int64(minRedemption),
		MaxUsagePercent: maxUsage,
	}, nil
}
