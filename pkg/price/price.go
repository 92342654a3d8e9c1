// Package price converts between free-text rupee strings and numeric values.
package price

import (
	"math"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	Symbol       = "₹"
	NotAvailable = "Price not available"
)

// Mis-decoded variants of the rupee glyph show up when a page is read as latin-1.
var markers = strings.NewReplacer(
	"â‚¹", "",
	"â\u0082¹", "",
	"â¹", "",
	Symbol, "",
	"Rs.", "",
	"Rs", "",
	"INR", "",
	",", "",
	"\u00a0", "",
)

var numberRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ParseNumeric returns 0 for anything it cannot read.
func ParseNumeric(text string) float64 {
	cleaned := markers.Replace(strings.TrimSpace(text))
	match := numberRe.FindString(cleaned)
	if match == "" {
		return 0
	}
	d, err := decimal.NewFromString(match)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func FormatDisplay(v float64) string {
	if v == math.Trunc(v) {
		return Symbol + humanize.Comma(int64(v))
	}
	return Symbol + humanize.CommafWithDigits(v, 2)
}

// Display is FormatDisplay with the "unknown" convention for zero.
func Display(v float64) string {
	if v <= 0 {
		return NotAvailable
	}
	return FormatDisplay(v)
}

// Canonical re-renders a scraped price string. Unparsable input yields "".
func Canonical(text string) (string, float64) {
	v := ParseNumeric(text)
	if v <= 0 {
		return "", 0
	}
	return FormatDisplay(v), v
}
