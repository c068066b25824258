package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "Rupees Zero Only"},
		{"1", "Rupees One Only"},
		{"19", "Rupees Nineteen Only"},
		{"42", "Rupees Forty Two Only"},
		{"100", "Rupees One Hundred Only"},
		{"105", "Rupees One Hundred Five Only"},
		{"999", "Rupees Nine Hundred Ninety Nine Only"},
		{"1000", "Rupees One Thousand Only"},
		{"12980", "Rupees Twelve Thousand Nine Hundred Eighty Only"},
		{"100000", "Rupees One Lakh Only"},
		{"132000", "Rupees One Lakh Thirty Two Thousand Only"},
		{"1234567", "Rupees Twelve Lakh Thirty Four Thousand Five Hundred Sixty Seven Only"},
		{"10000000", "Rupees One Crore Only"},
		{"23456789", "Rupees Two Crore Thirty Four Lakh Fifty Six Thousand Seven Hundred Eighty Nine Only"},
		{"0.50", "Rupees Zero and Fifty Paise Only"},
		{"1234567.50", "Rupees Twelve Lakh Thirty Four Thousand Five Hundred Sixty Seven and Fifty Paise Only"},
		{"99.05", "Rupees Ninety Nine and Five Paise Only"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got := AmountInWords(decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "INV-2026-00001", Number(2026, 1))
	assert.Equal(t, "INV-2026-00042", Number(2026, 42))
	assert.Equal(t, "INV-2026-123456", Number(2026, 123456))
}
