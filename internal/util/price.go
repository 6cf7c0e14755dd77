// Package util provides rounding and number formatting for displayed prices.
package util

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// RoundToTick rounds x to the nearest tick increment.
// For example, with tick=0.01, 1.2345 becomes 1.23 or 1.24 depending on rounding.
func RoundToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	return math.Round(x/tick) * tick
}

// FormatCount renders a contract count with thousands separators (12,345).
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatDollars renders x rounded to tick with the given number of decimals
// and thousands separators ($1,234.50).
func FormatDollars(x, tick float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	format := fmt.Sprintf("$%%.%df", decimals)
	v := RoundToTick(x, tick)
	if v < 0 {
		return "-" + printer.Sprintf(format, -v)
	}
	return printer.Sprintf(format, v)
}
