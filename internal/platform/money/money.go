// Package money formats reward amounts in a tenant's currency.
package money

import (
	"fmt"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ValidCurrency reports whether code is a known ISO 4217 currency.
func ValidCurrency(code string) bool {
	_, err := currency.ParseISO(strings.TrimSpace(code))
	return err == nil
}

// Format renders amount with the ISO code and the currency's standard
// precision, e.g. "USD 12.50".
func Format(amount float64, code string) string {
	return FormatIn(language.English, amount, code)
}

func FormatIn(tag language.Tag, amount float64, code string) string {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return fmt.Sprintf("%.2f %s", amount, code)
	}
	return message.NewPrinter(tag).Sprint(currency.ISO(unit.Amount(amount)))
}
