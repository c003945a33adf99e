// ABOUTME: Currency formatting for profile amounts
// ABOUTME: Renders whole units with grouping and the profile's currency symbol

package money

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency is used when a profile has no currency
const DefaultCurrency = "USD"

var printer = message.NewPrinter(language.English)

// Symbol returns the narrow symbol for an ISO 4217 code, falling back to
// the default currency for empty or unknown codes
func Symbol(code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = currency.USD
	}
	return printer.Sprint(currency.NarrowSymbol(unit))
}

// Format renders amount rounded to whole units, e.g. "$1,250" or "-€40".
// A non-empty symbol overrides the one derived from code.
func Format(amount decimal.Decimal, code, symbol string) string {
	if symbol == "" {
		symbol = Symbol(code)
	}

	rounded := amount.Round(0)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	return sign + symbol + printer.Sprintf("%d", rounded.IntPart())
}

// FormatPtr formats an optional amount, returning fallback when it is nil
func FormatPtr(amount *decimal.Decimal, code, symbol, fallback string) string {
	if amount == nil {
		return fallback
	}
	return Format(*amount, code, symbol)
}
