// Package decimal wraps shopspring/decimal with the exact-rounding
// helpers the pipeline needs for duration and weight arithmetic. It is a
// repointed version of the teacher's price/quantity wrapper: the same
// "don't let binary floats drift a rounding decision" idea, applied to
// minutes instead of money.
package decimal

import (
	"github.com/shopspring/decimal"
)

// ApplySpeedFactor computes round(rawMinutes / speedFactor), rounding
// half away from zero rather than relying on float64 rounding, which can
// drift at the halfway point. speedFactor must be >= 1.
func ApplySpeedFactor(rawMinutes int, speedFactor float64) int {
	raw := decimal.NewFromInt(int64(rawMinutes))
	factor := decimal.NewFromFloat(speedFactor)
	return int(raw.DivRound(factor, 0).IntPart())
}

// CeilSecondsToMinutes converts a duration given in seconds to whole
// minutes, rounding up and flooring at one minute. Kept alongside
// ApplySpeedFactor so every duration conversion in the pipeline goes
// through the same decimal-backed helper rather than ad hoc float math.
func CeilSecondsToMinutes(seconds float64) int {
	s := decimal.NewFromFloat(seconds)
	sixty := decimal.NewFromInt(60)
	minutes := s.Div(sixty).Ceil().IntPart()
	if minutes < 1 {
		minutes = 1
	}
	return int(minutes)
}
