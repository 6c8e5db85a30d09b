package money

import (
	"strings"
	"testing"
)

func TestValidCurrency(t *testing.T) {
	for _, code := range []string{"USD", "EUR", "JPY", " gbp "} {
		if !ValidCurrency(code) {
			t.Fatalf("expected %q to be valid", code)
		}
	}
	for _, code := range []string{"", "US", "DOLLAR", "XYZ1"} {
		if ValidCurrency(code) {
			t.Fatalf("expected %q to be invalid", code)
		}
	}
}

func TestFormat(t *testing.T) {
	got := Format(12.5, "USD")
	if !strings.Contains(got, "USD") || !strings.Contains(got, "12.50") {
		t.Fatalf("unexpected format %q", got)
	}
}

func TestFormatUnknownCurrencyFallsBack(t *testing.T) {
	if got := Format(3, "ZZZ1"); got != "3.00 ZZZ1" {
		t.Fatalf("unexpected fallback %q", got)
	}
}
