// Package allocator splits a fixed green-time budget across the four
// directions of an intersection in proportion to their waiting demand.
//
// The allocation is a pure function of a `signal.DemandSnapshot`:
//  1. With nothing waiting anywhere, the default split is returned.
//  2. Each direction is weighted by sqrt(count+1), so long queues see
//     diminishing returns and an empty approach never starves to zero.
//  3. Directions with a waiting emergency vehicle have their weight multiplied.
//  4. Shares are rounded and clamped to [MinGreen, MaxGreen].
//  5. The rounding/clamping residual ("drift") goes entirely to the direction
//     with the largest raw count, so the budget is conserved exactly. The
//     recipient is not re-clamped and may exceed MaxGreen.
package allocator

import (
	"math"

	"github.com/samber/lo"

	"github.com/anggasct/trafficflow/pkg/signal"
)

// Allocator computes per-direction green times. It holds only immutable tunables
// and is safe for concurrent use.
type Allocator struct {
	config Config
}

// New creates an Allocator from a validated Config.
func New(config *Config) *Allocator {
	return &Allocator{config: *config}
}

// NewDefault creates an Allocator with the default tunables.
func NewDefault() *Allocator {
	cfg, _ := NewConfig()
	return New(cfg)
}

// Budget returns the total green time distributed by every call to Allocate.
func (a *Allocator) Budget() int {
	return a.config.Budget()
}

// Defaults returns the split used when no vehicle is waiting.
func (a *Allocator) Defaults() [signal.NumDirections]int {
	return a.config.DefaultGreen
}

// Allocate returns the green time of each direction for the given demand.
// The snapshot is expected to have been validated by the caller.
func (a *Allocator) Allocate(demand signal.DemandSnapshot) [signal.NumDirections]int {
	if demand.TotalWaiting() == 0 {
		return a.config.DefaultGreen
	}

	budget := a.config.Budget()
	weights := lo.Map(demand.WaitingCounts[:], func(count int, i int) float64 {
		w := math.Sqrt(float64(count) + 1)
		if demand.EmergencyWaiting[i] {
			w *= a.config.EmergencyWeightMultiplier
		}
		return w
	})
	totalWeight := lo.Sum(weights)

	var green [signal.NumDirections]int
	for i, w := range weights {
		share := int(math.Round(w / totalWeight * float64(budget)))
		green[i] = clamp(share, a.config.MinGreen, a.config.MaxGreen)
	}

	drift := budget - lo.Sum(green[:])
	if drift != 0 {
		recipient := busiest(demand.WaitingCounts)
		green[recipient] += drift
		if green[recipient] < a.config.MinGreen {
			a.coverDeficit(&green, recipient)
		}
	}
	return green
}

// coverDeficit lifts the drift recipient back to MinGreen, taking the
// difference from the largest other shares without pushing them below
// MinGreen. The config guarantees MinGreen fits the budget.
func (a *Allocator) coverDeficit(green *[signal.NumDirections]int, recipient signal.Direction) {
	deficit := a.config.MinGreen - green[recipient]
	green[recipient] = a.config.MinGreen
	for deficit > 0 {
		donor := signal.NoDirection
		for i, g := range green {
			if signal.Direction(i) == recipient || g <= a.config.MinGreen {
				continue
			}
			if donor == signal.NoDirection || g > green[donor] {
				donor = signal.Direction(i)
			}
		}
		if donor == signal.NoDirection {
			return
		}
		take := min(deficit, green[donor]-a.config.MinGreen)
		green[donor] -= take
		deficit -= take
	}
}

// busiest returns the direction with the largest raw count, lowest index on ties.
func busiest(counts [signal.NumDirections]int) signal.Direction {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return signal.Direction(best)
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
