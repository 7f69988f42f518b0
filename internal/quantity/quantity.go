// Package quantity holds the numeric ground rules shared by the pantry and
// planning code: unit kinds, the per-kind "effectively zero" thresholds, money
// rounding, and input normalization for amounts and barcodes.
package quantity

import (
	"math"
	"strconv"
	"strings"
)

// Normalized unit identifiers. Anything else is treated as a custom unit.
const (
	UnitPiece      = "pcs"
	UnitGram       = "g"
	UnitMilliliter = "ml"
)

// Kind classifies a unit for epsilon and display purposes.
type Kind int

const (
	KindPiece Kind = iota
	KindWeight
	KindVolume
	KindCustom
)

// Epsilon thresholds below which a remaining amount counts as zero.
// Weight/volume amounts accumulate more floating-point residue than piece
// counts, hence the coarser threshold.
const (
	EpsilonPiece  = 0.01
	EpsilonMetric = 0.5
)

// KindOf maps a unit string to its Kind. Unknown units count pieces.
func KindOf(unit string) Kind {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case UnitPiece, "piece", "pieces", "stk":
		return KindPiece
	case UnitGram, "gram", "grams", "kg":
		return KindWeight
	case UnitMilliliter, "l", "liter", "litre":
		return KindVolume
	case "":
		return KindPiece
	default:
		return KindCustom
	}
}

// Epsilon returns the zero threshold for amounts measured in the given unit.
func Epsilon(unit string) float64 {
	switch KindOf(unit) {
	case KindWeight, KindVolume:
		return EpsilonMetric
	default:
		return EpsilonPiece
	}
}

// NearZero reports whether amount is at or below the unit's zero threshold.
func NearZero(amount float64, unit string) bool {
	return amount <= Epsilon(unit)
}

// RoundMoney rounds a monetary value to two decimals, halves away from zero.
// Exact half cents are not representable in binary (1.005 is stored just
// below 1.005), so the cent value gets a tiny signed nudge before rounding.
func RoundMoney(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	cents := v * 100
	cents += math.Copysign(1e-9, cents)
	return math.Round(cents) / 100
}

// FormatMoney renders a monetary value with two decimals and a currency
// symbol, e.g. "3.00 €".
func FormatMoney(v float64, symbol string) string {
	return strconv.FormatFloat(RoundMoney(v), 'f', 2, 64) + " " + symbol
}

// ParseAmount parses a user-entered quantity. It accepts a decimal comma and
// surrounding whitespace. Negative, NaN and unparsable inputs yield 0 and
// ok=false; callers treat that as "no quantity entered".
func ParseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// NormalizeBarcode strips everything but digits and validates the usual
// EAN/UPC lengths (8-14 digits). ok=false means "no usable barcode".
func NormalizeBarcode(s string) (string, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 8 || len(digits) > 14 {
		return "", false
	}
	return digits, true
}

// UnitPrice computes price per unit from a pack price and pack size.
// ok=false when the pack size is unusable (zero, negative, NaN).
func UnitPrice(packPrice, packSize float64) (float64, bool) {
	if packSize <= 0 || math.IsNaN(packSize) || math.IsNaN(packPrice) {
		return 0, false
	}
	return packPrice / packSize, true
}
