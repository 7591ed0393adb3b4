// Package pricing computes stage amounts for an enrollment. Pure functions,
// integer naira, round-half-up.
package pricing

import (
	"fmt"

	"github.com/web3nova/academy-payments/internal/domain"
)

// Base course prices in naira.
var basePrices = map[string]int64{
	"frontend-development":   150_000,
	"backend-development":    150_000,
	"blockchain-development": 250_000,
	"product-design":         120_000,
	"data-analytics":         100_000,
}

// Discount percentage per scholarship tier.
var scholarshipDiscounts = map[string]int64{
	"none":    0,
	"partial": 25,
	"half":    50,
	"full":    100,
}

// stagePercentages must sum to 100.
var stagePercentages = [3]int64{40, 40, 20}

// StageCount is the number of installments every plan is split into.
const StageCount = len(stagePercentages)

// Tolerance is the acceptable gap, in naira, between a client-supplied amount
// and the computed stage amount. Stage rounding can shift a stage by at most
// one unit.
const Tolerance = int64(StageCount - 1)

// BasePrice returns the undiscounted price for a skill.
func BasePrice(skill string) (int64, error) {
	base, ok := basePrices[skill]
	if !ok {
		return 0, domain.NewValidationError("skill", fmt.Sprintf("unknown skill %q", skill))
	}
	return base, nil
}

// TotalAmount is the single-shot discounted price for a (skill, tier) pair.
func TotalAmount(skill, tier string) (int64, error) {
	base, err := BasePrice(skill)
	if err != nil {
		return 0, err
	}
	discount, ok := scholarshipDiscounts[tier]
	if !ok {
		return 0, domain.NewValidationError("scholarshipTier", fmt.Sprintf("unknown scholarship tier %q", tier))
	}
	return roundHalfUp(base*(100-discount), 100), nil
}

// StageAmount computes one installment:
//
//	round(base × (1 − discount/100) × pct(stage)/100)
func StageAmount(skill, tier string, stage int) (int64, error) {
	if stage < 1 || stage > StageCount {
		return 0, domain.NewValidationError("stage", fmt.Sprintf("stage must be between 1 and %d", StageCount))
	}
	base, err := BasePrice(skill)
	if err != nil {
		return 0, err
	}
	discount, ok := scholarshipDiscounts[tier]
	if !ok {
		return 0, domain.NewValidationError("scholarshipTier", fmt.Sprintf("unknown scholarship tier %q", tier))
	}
	pct := stagePercentages[stage-1]
	return roundHalfUp(base*(100-discount)*pct, 100*100), nil
}

// WithinTolerance reports whether a client-supplied amount matches the
// computed stage amount closely enough to accept.
func WithinTolerance(supplied, computed int64) bool {
	diff := supplied - computed
	if diff < 0 {
		diff = -diff
	}
	return diff <= Tolerance
}

func roundHalfUp(numerator, denominator int64) int64 {
	return (numerator + denominator/2) / denominator
}
