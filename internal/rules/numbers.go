package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reAmountJunk   = regexp.MustCompile(`[^0-9,.\-]`)
	reThousandOnly = regexp.MustCompile(`^\d{1,3}(\.\d{3})+$`)
	reDate         = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{2}|\d{4})\b`)
)

// ParseImporte parses a locale-formatted amount ("." thousands separator,
// "," decimal separator) into a float64. Malformed or negative input
// normalizes to 0, never NaN and never an error.
func ParseImporte(s string) float64 {
	s = reAmountJunk.ReplaceAllString(s, "")
	s = strings.Trim(s, ".,")
	if s == "" || s == "-" {
		return 0
	}

	if i := strings.LastIndex(s, ","); i >= 0 {
		// Comma decimal: every "." is a grouping separator.
		intPart := strings.NewReplacer(".", "", ",", "").Replace(s[:i])
		s = intPart + "." + s[i+1:]
	} else if reThousandOnly.MatchString(s) {
		s = strings.ReplaceAll(s, ".", "")
	}
	// A remaining "." that is not a x.yyy group is already a decimal point.

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	v := d.InexactFloat64()
	if v < 0 {
		return 0
	}
	return v
}

// PadComprobante left-pads a comprobante number to 8 digits.
func PadComprobante(s string) string {
	return padLeft(s, 8)
}

// PadPuntoVenta left-pads a point-of-sale code to 4 digits.
func PadPuntoVenta(s string) string {
	return padLeft(s, 4)
}

func padLeft(s string, width int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// NormalizeDate converts dd/mm/yyyy-like forms (also "-" separated, 2 or 4
// digit years) to yyyy-mm-dd. Inputs with no recognizable date yield
// ("", false) rather than an error.
func NormalizeDate(s string) (string, bool) {
	m := reDate.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	if day < 1 || day > 31 || month < 1 || month > 12 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}
