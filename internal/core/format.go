package core

import "github.com/shopspring/decimal"

// DefaultCurrencySymbol is used when no symbol is configured.
const DefaultCurrencySymbol = "₹"

var (
	crore    = decimal.NewFromInt(10_000_000)
	lakh     = decimal.NewFromInt(100_000)
	thousand = decimal.NewFromInt(1_000)
)

// Formatter renders amounts in the Indian short scale (Cr, L, K).
// Rounding is half away from zero and happens only here, never on stored values.
type Formatter struct {
	Symbol string
}

func NewFormatter(symbol string) Formatter {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	return Formatter{Symbol: symbol}
}

// Amount formats outstanding and rollup totals: Cr, L, or the plain rounded amount.
// The band is chosen on the magnitude; the signed value is rendered.
// Unlike Sales there is no K band.
func (f Formatter) Amount(d decimal.Decimal) string {
	abs := d.Abs()
	switch {
	case abs.GreaterThanOrEqual(crore):
		return f.Symbol + d.Div(crore).Round(2).String() + " Cr"
	case abs.GreaterThanOrEqual(lakh):
		return f.Symbol + d.Div(lakh).Round(2).String() + " L"
	default:
		return f.Symbol + d.Round(0).String()
	}
}

// Sales formats a customer's sales value, which also has a K band.
func (f Formatter) Sales(d decimal.Decimal) string {
	switch {
	case d.GreaterThanOrEqual(crore):
		return f.Symbol + d.Div(crore).Round(2).String() + " Cr"
	case d.GreaterThanOrEqual(lakh):
		return f.Symbol + d.Div(lakh).Round(2).String() + " L"
	case d.GreaterThanOrEqual(thousand):
		return f.Symbol + d.Div(thousand).Round(1).String() + " K"
	default:
		return f.Symbol + d.Round(0).String()
	}
}

// ZeroIfInvalid returns the value of a nullable total, or zero when it is null.
func ZeroIfInvalid(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
