package asset

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeTicker(t *testing.T) {
	cases := map[string]string{
		"sFB___000":  "SFB",
		"SFB":        "SFB",
		" fennec ":   "FENNEC",
		"sBTC___000": "SBTC",
		"ordi":       "ORDI",
		"X__1__2":    "X",
		"a_b":        "A_B",
		"":           "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTicker(in), in)
	}
}

func TestNormalizeTicker_Idempotent(t *testing.T) {
	for _, in := range []string{"sFB___000", "SFB", "pizza", "X__1__2", "a_b", "  dog___ "} {
		once := NormalizeTicker(in)
		assert.Equal(t, once, NormalizeTicker(once), in)
	}
	assert.True(t, SameTicker("sFB___000", "SFB"))
	assert.False(t, SameTicker("SFB", "SBTC"))
}

func TestInferScale(t *testing.T) {
	// heuristic: large integers are smallest units
	assert.True(t, decimal.NewFromFloat(1.5).Equal(InferScale(decimal.NewFromInt(150_000_000), HintUnknown)))
	// small values are already decimal
	assert.True(t, decimal.NewFromFloat(12.5).Equal(InferScale(decimal.NewFromFloat(12.5), HintUnknown)))
	// exactly at the threshold stays decimal
	assert.True(t, decimal.NewFromInt(1_000_000).Equal(InferScale(decimal.NewFromInt(1_000_000), HintUnknown)))

	// explicit hints override the heuristic
	assert.True(t, decimal.NewFromInt(150_000_000).Equal(InferScale(decimal.NewFromInt(150_000_000), HintDecimal)))
	assert.True(t, decimal.NewFromFloat(0.00000005).Equal(InferScale(decimal.NewFromInt(5), HintSmallestUnit)))
}

func TestSmallestUnitConversions(t *testing.T) {
	assert.True(t, decimal.NewFromFloat(1.5).Equal(FromSmallestUnit(150_000_000)))
	assert.Equal(t, big.NewInt(150_000_000), ToSmallestUnit(decimal.NewFromFloat(1.5)))
	assert.Equal(t, big.NewInt(1), ToSmallestUnit(decimal.RequireFromString("0.000000019")))
	assert.True(t, decimal.NewFromFloat(2.5).Equal(FromSmallestUnitBig(big.NewInt(250_000_000))))
	assert.True(t, decimal.Zero.Equal(FromSmallestUnitBig(nil)))
}
