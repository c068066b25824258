// Package pricing computes order totals. Quote is a pure function over a
// catalog snapshot; every tunable arrives in the Config so admin changes are
// picked up per call.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/aurumcart/aurum-backend/internal/domain/settings"
)

var hundred = decimal.NewFromInt(100)

// LineItem is one cart line with its resolved unit price and making-charge
// percent (see catalog.ResolveMakingChargePercent).
type LineItem struct {
	ProductID           string
	Quantity            int
	UnitPrice           decimal.Decimal
	MakingChargePercent decimal.Decimal
	Size                string
}

// Line is the priced form of a LineItem.
type Line struct {
	ProductID    string
	Quantity     int
	UnitPrice    decimal.Decimal
	MakingCharge decimal.Decimal // per unit, rounded to 2dp
	Subtotal     decimal.Decimal // UnitPrice * Quantity
	MakingTotal  decimal.Decimal // MakingCharge * Quantity
	LineTotal    decimal.Decimal // Subtotal + MakingTotal
	Size         string
}

// Breakdown is the order-level pricing result.
type Breakdown struct {
	Lines         []Line
	Subtotal      decimal.Decimal
	MakingCharges decimal.Decimal
	TaxableAmount decimal.Decimal // Subtotal + MakingCharges
	Tax           decimal.Decimal
	ShippingFee   decimal.Decimal
	Discount      decimal.Decimal
	GrandTotal    decimal.Decimal
}

// Quote prices the given items. Per-line making charges are rounded to 2
// decimal places at the line boundary; aggregates are summed unrounded and
// rounded once at the end to avoid compounding rounding error.
func Quote(items []LineItem, cfg settings.PricingConfig) Breakdown {
	lines := make([]Line, len(items))
	subtotal := decimal.Zero
	making := decimal.Zero

	for i, item := range items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		unitMaking := item.UnitPrice.Mul(item.MakingChargePercent).Div(hundred).Round(2)

		lineSubtotal := item.UnitPrice.Mul(qty)
		lineMaking := unitMaking.Mul(qty)

		lines[i] = Line{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			MakingCharge: unitMaking,
			Subtotal:     lineSubtotal,
			MakingTotal:  lineMaking,
			LineTotal:    lineSubtotal.Add(lineMaking),
			Size:         item.Size,
		}

		subtotal = subtotal.Add(lineSubtotal)
		making = making.Add(lineMaking)
	}

	taxable := subtotal.Add(making)
	tax := taxable.Mul(cfg.TaxPercent).Div(hundred)

	shipping := cfg.ShippingFee
	if taxable.GreaterThan(cfg.FreeShippingAbove) {
		shipping = decimal.Zero
	}

	total := taxable.Add(tax).Add(shipping)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Breakdown{
		Lines:         lines,
		Subtotal:      subtotal.Round(2),
		MakingCharges: making.Round(2),
		TaxableAmount: taxable.Round(2),
		Tax:           tax.Round(2),
		ShippingFee:   shipping.Round(2),
		Discount:      decimal.Zero,
		GrandTotal:    total.Round(2),
	}
}

// ApplyDiscount subtracts a discount from an existing breakdown, flooring the
// grand total at zero.
func (b Breakdown) ApplyDiscount(discount decimal.Decimal) Breakdown {
	b.Discount = b.Discount.Add(discount).Round(2)
	total := b.TaxableAmount.Add(b.Tax).Add(b.ShippingFee).Sub(b.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	b.GrandTotal = total.Round(2)
	return b
}
