package trading

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"perp-trader/internal/models"
)

// Property: the trailing stop is a monotone ratchet. For any tick sequence,
// a LONG stop never decreases and a SHORT stop never increases, and the
// stop never crosses to the losing side of the extreme price reached.
func TestTrailingStopMonotoneProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("long stop never decreases", prop.ForAll(
		func(entry float64, riskPct float64, ticks []float64) bool {
			risk := entry * riskPct
			pos := longPosition(entry, entry-risk)
			settings := testSettings()

			prev := pos.CurrentStopLoss
			for _, tick := range ticks {
				price := entry * tick
				applyTrailing(pos, price, settings)
				if pos.Side == models.SideLong && pos.CurrentStopLoss < prev {
					return false
				}
				prev = pos.CurrentStopLoss
			}
			return pos.CurrentStopLoss <= pos.HighestPriceSoFar
		},
		gen.Float64Range(10, 100000),
		gen.Float64Range(0.005, 0.05),
		gen.SliceOfN(50, gen.Float64Range(0.90, 1.30)),
	))

	properties.Property("short stop never increases", prop.ForAll(
		func(entry float64, riskPct float64, ticks []float64) bool {
			risk := entry * riskPct
			pos := shortPosition(entry, entry+risk)
			settings := testSettings()

			prev := pos.CurrentStopLoss
			for _, tick := range ticks {
				price := entry * tick
				applyTrailing(pos, price, settings)
				if pos.CurrentStopLoss > prev {
					return false
				}
				prev = pos.CurrentStopLoss
			}
			return pos.CurrentStopLoss >= pos.LowestPriceSoFar
		},
		gen.Float64Range(10, 100000),
		gen.Float64Range(0.005, 0.05),
		gen.SliceOfN(50, gen.Float64Range(0.70, 1.10)),
	))

	properties.Property("activation is one-way", prop.ForAll(
		func(entry float64, ticks []float64) bool {
			pos := longPosition(entry, entry*0.98)
			settings := testSettings()

			activated := false
			for _, tick := range ticks {
				applyTrailing(pos, entry*tick, settings)
				if activated && !pos.TrailingStopActivated {
					return false
				}
				activated = pos.TrailingStopActivated
			}
			return true
		},
		gen.Float64Range(10, 100000),
		gen.SliceOfN(50, gen.Float64Range(0.90, 1.20)),
	))

	properties.TestingRun(t)
}
