package asset

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Decimals is the precision of the base asset and of AMM amounts.
const Decimals = 8

var (
	// SmallestUnit is 10^8: smallest units per whole unit.
	SmallestUnit = decimal.New(1, Decimals)

	// scaleThreshold: amounts above it are assumed to be expressed in smallest units.
	scaleThreshold = decimal.New(1, 6)
)

// ScaleHint tells InferScale what the upstream declared about an amount.
type ScaleHint int

const (
	// HintUnknown lets the magnitude heuristic decide.
	HintUnknown ScaleHint = iota
	// HintDecimal means the amount is already in whole units.
	HintDecimal
	// HintSmallestUnit means the amount is an integer count of smallest units.
	HintSmallestUnit
)

// InferScale converts an upstream amount to whole units.
//
// With HintUnknown it falls back to a magnitude heuristic: anything above 10^6 is
// treated as smallest units and divided by 10^8. This misreads a genuine holding of
// more than a million whole units, and should go away once upstreams declare units.
func InferScale(amount decimal.Decimal, hint ScaleHint) decimal.Decimal {
	switch hint {
	case HintDecimal:
		return amount
	case HintSmallestUnit:
		return amount.Div(SmallestUnit)
	}
	if amount.GreaterThan(scaleThreshold) {
		return amount.Div(SmallestUnit)
	}
	return amount
}

// FromSmallestUnit converts an integer amount of smallest units (e.g. sats) to whole units.
func FromSmallestUnit(v int64) decimal.Decimal {
	return decimal.New(v, -Decimals)
}

// FromSmallestUnitBig is FromSmallestUnit for big integers.
func FromSmallestUnitBig(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -Decimals)
}

// ToSmallestUnit scales a whole-unit amount to smallest units, truncating extra precision.
func ToSmallestUnit(d decimal.Decimal) *big.Int {
	return d.Shift(Decimals).BigInt()
}
