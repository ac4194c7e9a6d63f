// Package demand holds the live demand feed written by the vehicle subsystem
// and read by the signal scheduler.
package demand

import (
	"sync"

	"github.com/samber/lo"

	"github.com/anggasct/trafficflow/pkg/signal"
)

// Board is an in-memory demand feed. Writers are the vehicle counters and the
// emergency detector; the scheduler pulls snapshots from it. Malformed input is
// rejected here so the allocator never sees it.
type Board struct {
	mu       sync.RWMutex
	snapshot signal.DemandSnapshot
	changed  chan struct{}
}

// NewBoard creates an empty board: nothing waiting, no emergency.
func NewBoard() *Board {
	return &Board{
		changed: make(chan struct{}, 1),
	}
}

// Snapshot returns a copy of the current demand. It never blocks on writers
// for longer than a field copy.
func (b *Board) Snapshot() signal.DemandSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

// Changed returns a channel that receives a value whenever the set of
// emergency flags changes. Waiting-count updates do not signal it; the
// scheduler reads counts at the start of each green.
func (b *Board) Changed() <-chan struct{} {
	return b.changed
}

// Update replaces the whole snapshot.
func (b *Board) Update(s signal.DemandSnapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	flagsChanged := b.snapshot.EmergencyWaiting != s.EmergencyWaiting
	b.snapshot = s
	b.mu.Unlock()

	if flagsChanged {
		b.notify()
	}
	return nil
}

// SetWaiting sets the number of vehicles waiting on one approach.
func (b *Board) SetWaiting(dir signal.Direction, count int) error {
	if !dir.Valid() {
		return signal.NewInvalidDirectionError(int(dir))
	}
	if count < 0 {
		return signal.NewNegativeCountError(dir, count)
	}

	b.mu.Lock()
	b.snapshot.WaitingCounts[dir] = count
	b.mu.Unlock()
	return nil
}

// SetEmergency raises or lowers the emergency flag of one approach.
func (b *Board) SetEmergency(dir signal.Direction, waiting bool) error {
	if !dir.Valid() {
		return signal.NewInvalidDirectionError(int(dir))
	}

	b.mu.Lock()
	flagChanged := b.snapshot.EmergencyWaiting[dir] != waiting
	b.snapshot.EmergencyWaiting[dir] = waiting
	b.mu.Unlock()

	if flagChanged {
		b.notify()
	}
	return nil
}

// Emergencies returns the approaches that currently have an emergency vehicle waiting.
func (b *Board) Emergencies() []signal.Direction {
	snap := b.Snapshot()
	return lo.Filter(signal.Directions(), func(dir signal.Direction, _ int) bool {
		return snap.EmergencyWaiting[dir]
	})
}

// Reset clears all counts and flags.
func (b *Board) Reset() {
	_ = b.Update(signal.DemandSnapshot{})
}

func (b *Board) notify() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}
