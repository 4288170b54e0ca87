// Package amm implements constant-product swap math over smallest-unit integers.
package amm

import (
	"errors"
	"math/big"

	"github.com/fractal-terminal/terminalx/pkg/asset"
	"github.com/shopspring/decimal"
)

// Protocol fee: 98.5% of the input is swapped, the rest stays in the pool.
const (
	FeeNumerator   = 985
	FeeDenominator = 1000
)

var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	feeNum = big.NewInt(FeeNumerator)
	feeDen = big.NewInt(FeeDenominator)
	one    = big.NewInt(1)
)

// QuoteExactIn returns the output for swapping amountIn into a pool with the given reserves:
// out = (in*fee * rOut) / (rIn + in*fee), rounded down.
func QuoteExactIn(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if !positive(amountIn) {
		return nil, ErrInvalidAmount
	}
	if !positive(reserveIn) || !positive(reserveOut) {
		return nil, ErrInsufficientLiquidity
	}
	afterFee := afterFee(amountIn)
	num := new(big.Int).Mul(afterFee, reserveOut)
	den := new(big.Int).Add(reserveIn, afterFee)
	return num.Quo(num, den), nil
}

// QuoteExactOut returns the input needed to receive amountOut. Every division rounds up,
// so feeding the result back through QuoteExactIn yields at least amountOut.
func QuoteExactOut(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if !positive(amountOut) {
		return nil, ErrInvalidAmount
	}
	if !positive(reserveIn) || !positive(reserveOut) || amountOut.Cmp(reserveOut) >= 0 {
		return nil, ErrInsufficientLiquidity
	}
	// in*fee >= out*rIn / (rOut - out)
	num := new(big.Int).Mul(amountOut, reserveIn)
	den := new(big.Int).Sub(reserveOut, amountOut)
	needed := ceilDiv(num, den)
	// in >= needed / fee
	return ceilDiv(new(big.Int).Mul(needed, feeDen), feeNum), nil
}

// SpotPrice is the marginal price of the token in quote units: reserveQuote / reserveToken.
// Zero when either reserve is empty.
func SpotPrice(reserveToken, reserveQuote decimal.Decimal) decimal.Decimal {
	if !reserveToken.IsPositive() || !reserveQuote.IsPositive() {
		return decimal.Zero
	}
	return reserveQuote.DivRound(reserveToken, 18)
}

// Quote is a swap quote in whole units.
type Quote struct {
	AmountIn  decimal.Decimal `json:"amountIn"`
	AmountOut decimal.Decimal `json:"amountOut"`
	ExactOut  bool            `json:"exactOut"`
	// PriceImpact is 1 - executionPrice/spotPrice, in [0,1).
	PriceImpact decimal.Decimal `json:"priceImpact"`
}

// QuoteDecimal scales whole-unit amounts to smallest units, quotes, and scales back.
// With exactOut the amount is the desired output, otherwise the input.
func QuoteDecimal(amount, reserveIn, reserveOut decimal.Decimal, exactOut bool) (Quote, error) {
	amt := asset.ToSmallestUnit(amount)
	rIn := asset.ToSmallestUnit(reserveIn)
	rOut := asset.ToSmallestUnit(reserveOut)

	q := Quote{ExactOut: exactOut}
	if exactOut {
		in, err := QuoteExactOut(amt, rIn, rOut)
		if err != nil {
			return Quote{}, err
		}
		q.AmountIn = asset.FromSmallestUnitBig(in)
		q.AmountOut = asset.FromSmallestUnitBig(amt)
	} else {
		out, err := QuoteExactIn(amt, rIn, rOut)
		if err != nil {
			return Quote{}, err
		}
		q.AmountIn = asset.FromSmallestUnitBig(amt)
		q.AmountOut = asset.FromSmallestUnitBig(out)
	}

	spot := SpotPrice(reserveIn, reserveOut)
	if spot.IsPositive() && q.AmountIn.IsPositive() {
		exec := q.AmountOut.DivRound(q.AmountIn, 18)
		impact := decimal.NewFromInt(1).Sub(exec.DivRound(spot, 18))
		if impact.IsNegative() {
			impact = decimal.Zero
		}
		q.PriceImpact = impact.Round(6)
	}
	return q, nil
}

func afterFee(amountIn *big.Int) *big.Int {
	v := new(big.Int).Mul(amountIn, feeNum)
	return v.Quo(v, feeDen)
}

func ceilDiv(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, one)
	}
	return q
}

func positive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
