package util

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnparsablePrice is returned when a price string has no usable numeric value
var ErrUnparsablePrice = errors.New("unparsable price string")

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParseIntParam parses a string to an integer, returning an error if parsing fails
func ParseIntParam(s string) (int, error) {
	return strconv.Atoi(s)
}

// ParseFloat parses a string to a float64, returning defaultValue if parsing fails
func ParseFloat(s string, defaultValue float64) float64 {
	if val, err := strconv.ParseFloat(s, 64); err == nil {
		return val
	}
	return defaultValue
}

// ParsePrice extracts a numeric value from a price string as stored in Price rows.
// External feeds send prices as strings in shapes like "12.99", "$1,299.00",
// "USD 5.49" or "3,49". Currency symbols and letters are stripped; a comma is
// treated as a decimal separator only when no period is present.
func ParsePrice(s string) (float64, error) {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0, ErrUnparsablePrice
	}

	if strings.Contains(cleaned, ".") {
		// Period is the decimal separator, commas are thousands separators
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	} else if strings.Count(cleaned, ",") == 1 {
		// European style decimal comma
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, ErrUnparsablePrice
	}
	if val < 0 {
		return 0, ErrUnparsablePrice
	}
	return val, nil
}

// NormalizeBarcode trims whitespace and leading zeros are preserved -
// a barcode is an identifier, not a number.
func NormalizeBarcode(s string) string {
	return strings.TrimSpace(s)
}

// IsValidBarcode reports whether s looks like a UPC/EAN barcode:
// 8 to 14 digits.
func IsValidBarcode(s string) bool {
	if len(s) < 8 || len(s) > 14 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
