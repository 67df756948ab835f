// Package service contains the orchestrator's business logic: price
// normalization, the market aggregator, lifecycle operations, and the
// schedule reconciler.
package service

import (
	"math/big"
)

// PricePercentages normalizes a raw yes/no price pair into percentages that
// sum to exactly 100. A nil or zero-mass pair yields an even 50/50 split so
// callers always have a renderable value.
func PricePercentages(yes, no *big.Int) (yesPct, noPct float64) {
	if yes == nil || no == nil {
		return 50, 50
	}

	sum := new(big.Int).Add(yes, no)
	if sum.Sign() <= 0 {
		return 50, 50
	}

	yesF := new(big.Float).SetInt(yes)
	sumF := new(big.Float).SetInt(sum)
	ratio, _ := new(big.Float).Quo(yesF, sumF).Float64()

	yesPct = ratio * 100
	noPct = 100 - yesPct
	return yesPct, noPct
}
