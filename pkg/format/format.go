// Package format renders amounts and rates for display.
package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	DefaultCurrency = "NGN"
	DefaultLocale   = "en-NG"
)

var groupingPrinter = message.NewPrinter(language.English)

// NumberWithCommas groups the integer digits in thousands and keeps the fraction as given.
func NumberWithCommas(d decimal.Decimal) string {
	return groupingPrinter.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(scaleOf(d))))
}

// Currency formats value in the currency's standard scale, prefixed with its symbol in the given locale.
// Empty currency and locale fall back to NGN and en-NG.
func Currency(value decimal.Decimal, code, locale string) (string, error) {
	if strings.TrimSpace(code) == "" {
		code = DefaultCurrency
	}
	if strings.TrimSpace(locale) == "" {
		locale = DefaultLocale
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", fmt.Errorf("unknown currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return "", fmt.Errorf("unknown locale %q: %w", locale, err)
	}

	p := message.NewPrinter(tag)
	scale, _ := currency.Standard.Rounding(unit)
	symbol := p.Sprint(currency.NarrowSymbol(unit))
	amount := p.Sprint(number.Decimal(value.Abs().InexactFloat64(), number.Scale(scale)))
	if value.IsNegative() {
		return "-" + symbol + amount, nil
	}
	return symbol + amount, nil
}

// RateSummary renders "1 USDC ~ 1,500.5 NGN", or "..." while a rate request is in flight.
// It returns an empty string when there is nothing to show.
func RateSummary(token, currencyCode string, rate decimal.Decimal, fetching bool) string {
	if fetching {
		return "..."
	}
	if !rate.IsPositive() || token == "" || currencyCode == "" {
		return ""
	}
	return fmt.Sprintf("1 %s ~ %s %s", token, NumberWithCommas(rate), currencyCode)
}

func scaleOf(d decimal.Decimal) int {
	if exp := d.Exponent(); exp < 0 {
		return int(-exp)
	}
	return 0
}
