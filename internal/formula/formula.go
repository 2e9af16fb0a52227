package formula

import (
	"math"

	"production-budget-service/internal/models"
)

// Input carries everything a line item stores that feeds its estimated
// total. Optional numeric fields are pointers; nil follows the fallback
// rules below rather than being an error.
type Input struct {
	RateAmount          float64
	Quantity            float64
	Days                *float64
	Weeks               *float64
	Episodes            *float64
	CalcMode            string
	UseManualTotal      bool
	ManualTotalOverride *float64
}

// Evaluate maps a line item's stored fields to its estimated amount.
//
// The manual override, when armed, is returned verbatim; it is the only
// escape hatch from formula-driven computation. The percent_of_* modes
// need sibling or whole-budget context the evaluator does not have, so
// they resolve through EvaluatePercent with a base supplied by the
// aggregate recomputer. Evaluate never fails: missing numerics fall back
// per mode so data entry is never blocked.
func Evaluate(in Input) float64 {
	if in.UseManualTotal && in.ManualTotalOverride != nil {
		return *in.ManualTotalOverride
	}

	var multiplier float64
	switch in.CalcMode {
	case models.CalcModeRateXDays:
		multiplier = fallback(in.Days, in.Quantity)
	case models.CalcModeRateXWeeks:
		multiplier = fallback(in.Weeks, in.Quantity)
	case models.CalcModeRateXUnits, models.CalcModeRateXHours:
		multiplier = in.Quantity
	case models.CalcModeRateXEpisodes:
		if in.Episodes != nil {
			multiplier = *in.Episodes
		} else {
			multiplier = 1
		}
	case models.CalcModePercentOfTotal, models.CalcModePercentOfSubtotal:
		// Resolved by the caller against its base; standalone evaluation
		// contributes nothing.
		return 0
	default: // flat
		multiplier = 1
	}

	return in.RateAmount * multiplier
}

// EvaluatePercent resolves a percent_of_total / percent_of_subtotal item:
// the rate amount is the percentage, base is supplied by the recomputer.
func EvaluatePercent(in Input, base float64) float64 {
	if in.UseManualTotal && in.ManualTotalOverride != nil {
		return *in.ManualTotalOverride
	}
	return base * in.RateAmount / 100
}

// Fringe derives a fringe item's estimate from its base item's estimated
// total and the fringe percentage.
func Fringe(baseEstimated, fringePercent float64) float64 {
	return baseEstimated * fringePercent / 100
}

// Contingency computes the contingency buffer for a top sheet subtotal.
func Contingency(subtotal, contingencyPercent float64) float64 {
	return subtotal * contingencyPercent / 100
}

// RoundCents rounds to two decimal places. Derived totals are rounded at
// the persistence boundary so repeated recomputes store identical values.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// fallback picks the unit count for a rate_x_* mode: an absent field
// falls back to quantity, an absent quantity to one. Only a missing field
// triggers the fallback; a stored zero is respected, so a zero-day item
// costs nothing.
func fallback(primary *float64, quantity float64) float64 {
	if primary != nil {
		return *primary
	}
	if quantity != 0 {
		return quantity
	}
	return 1
}

// FromLineItem builds an evaluator Input from a stored line item row.
func FromLineItem(li *models.LineItem) Input {
	in := Input{
		RateAmount:     li.RateAmount,
		Quantity:       li.Quantity,
		CalcMode:       li.CalcMode,
		UseManualTotal: li.UseManualTotal,
	}
	if li.Days.Valid {
		v := li.Days.Float64
		in.Days = &v
	}
	if li.Weeks.Valid {
		v := li.Weeks.Float64
		in.Weeks = &v
	}
	if li.Episodes.Valid {
		v := li.Episodes.Float64
		in.Episodes = &v
	}
	if li.ManualTotalOverride.Valid {
		v := li.ManualTotalOverride.Float64
		in.ManualTotalOverride = &v
	}
	return in
}
