package extract

import (
	"strings"

	"github.com/shopspring/decimal"
)

var invalidPrice = PriceValue{}

// ParsePrice parses a raw price string under the given locale. A leading
// or trailing currency marker is accepted and recorded but not required.
// The numeric remainder must hold at least one digit and at most two
// fraction digits. Malformed input yields Valid=false, never an error.
func ParsePrice(raw string, loc Locale) PriceValue {
	s := Normalize(raw)
	if s == "" {
		return invalidPrice
	}

	symbol := ""
	if _, sym := ExtractCurrencySymbol(s); sym != "" {
		trimmed, edge := trimMarker(s, sym)
		if !edge {
			return invalidPrice
		}
		s = trimmed
		symbol = sym
	}
	if s == "" {
		return invalidPrice
	}

	intPart, fracPart, ok := splitNumber(s, loc)
	if !ok {
		return invalidPrice
	}

	num := intPart
	if fracPart != "" {
		num += "." + fracPart
	}
	amount, err := decimal.NewFromString(num)
	if err != nil || !amount.IsPositive() {
		return invalidPrice
	}
	return PriceValue{Amount: amount, CurrencySymbol: symbol, Valid: true}
}

// trimMarker removes a currency marker from the start or end of s. The
// second return is false when the marker sits mid-string, which is not a
// price shape this parser accepts.
func trimMarker(s, sym string) (string, bool) {
	if rest, ok := strings.CutPrefix(s, sym); ok {
		return strings.TrimSpace(rest), true
	}
	if rest, ok := strings.CutSuffix(s, sym); ok {
		return strings.TrimSpace(rest), true
	}
	return s, false
}

// splitNumber interprets group and decimal separators per the locale and
// returns the integer and fraction digit runs.
func splitNumber(s string, loc Locale) (intPart, fracPart string, ok bool) {
	var intB, fracB strings.Builder
	inFraction := false
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
			if inFraction {
				fracB.WriteRune(r)
			} else {
				intB.WriteRune(r)
			}
		case r == loc.DecimalSep:
			if inFraction {
				return "", "", false // second decimal point
			}
			inFraction = true
		case r == loc.GroupSep || r == ' ' || r == ' ':
			if inFraction {
				return "", "", false
			}
		default:
			return "", "", false
		}
	}
	if digits == 0 {
		return "", "", false
	}
	if inFraction && (fracB.Len() == 0 || fracB.Len() > 2) {
		return "", "", false
	}
	if intB.Len() == 0 {
		intB.WriteByte('0')
	}
	return intB.String(), fracB.String(), true
}

// FormatPrice renders an amount under the locale's separators, always with
// two fraction digits. The inverse of ParsePrice's numeric handling.
func FormatPrice(amount decimal.Decimal, loc Locale) string {
	fixed := amount.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteRune(loc.GroupSep)
		}
		b.WriteRune(r)
	}
	b.WriteRune(loc.DecimalSep)
	b.WriteString(fracPart)
	return b.String()
}
