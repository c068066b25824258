package invoice

import (
	"strings"

	"github.com/shopspring/decimal"
)

var ones = []string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tens = []string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

// AmountInWords spells an amount in the Indian numbering system, e.g.
// 1234567.50 becomes "Rupees Twelve Lakh Thirty Four Thousand Five Hundred
// Sixty Seven and Fifty Paise Only".
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Abs().Round(2)
	rupees := amount.IntPart()
	paise := amount.Sub(decimal.NewFromInt(rupees)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	var b strings.Builder
	b.WriteString("Rupees ")
	if rupees == 0 {
		b.WriteString("Zero")
	} else {
		b.WriteString(numberWords(rupees))
	}
	if paise > 0 {
		b.WriteString(" and ")
		b.WriteString(numberWords(paise))
		b.WriteString(" Paise")
	}
	b.WriteString(" Only")
	return b.String()
}

// numberWords spells n > 0 using crore/lakh/thousand grouping.
func numberWords(n int64) string {
	switch {
	case n < 20:
		return ones[n]
	case n < 100:
		return join(tens[n/10], ones[n%10])
	case n < 1_000:
		return join(ones[n/100]+" Hundred", numberWordsBelow(n%100))
	case n < 100_000:
		return join(numberWords(n/1_000)+" Thousand", numberWordsBelow(n%1_000))
	case n < 10_000_000:
		return join(numberWords(n/100_000)+" Lakh", numberWordsBelow(n%100_000))
	default:
		return join(numberWords(n/10_000_000)+" Crore", numberWordsBelow(n%10_000_000))
	}
}

func numberWordsBelow(n int64) string {
	if n == 0 {
		return ""
	}
	return numberWords(n)
}

func join(head, tail string) string {
	if tail == "" {
		return head
	}
	return head + " " + tail
}
