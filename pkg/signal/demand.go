package signal

import "github.com/samber/lo"

// DemandSnapshot is a momentary read of the vehicle subsystem: how many
// vehicles wait on each approach and whether an emergency vehicle is among them.
type DemandSnapshot struct {
	WaitingCounts    [NumDirections]int  `json:"waiting_counts"`
	EmergencyWaiting [NumDirections]bool `json:"emergency_waiting"`
}

// Validate rejects snapshots with negative counts
func (d DemandSnapshot) Validate() error {
	for i, c := range d.WaitingCounts {
		if c < 0 {
			return NewNegativeCountError(Direction(i), c)
		}
	}
	return nil
}

// TotalWaiting returns the number of waiting vehicles across all approaches
func (d DemandSnapshot) TotalWaiting() int {
	return lo.Sum(d.WaitingCounts[:])
}

// FirstEmergency returns the lowest-indexed direction with a waiting emergency vehicle
func (d DemandSnapshot) FirstEmergency() (Direction, bool) {
	_, idx, ok := lo.FindIndexOf(d.EmergencyWaiting[:], func(waiting bool) bool {
		return waiting
	})
	if !ok {
		return NoDirection, false
	}
	return Direction(idx), true
}

// HasEmergency reports whether direction d has a waiting emergency vehicle
func (d DemandSnapshot) HasEmergency(dir Direction) bool {
	return dir.Valid() && d.EmergencyWaiting[dir]
}
