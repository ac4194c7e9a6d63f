// Package signal defines the data model shared by the allocator, the
// scheduler and the collaborators that feed or render an intersection.
package signal

import (
	"fmt"
	"strconv"
	"strings"
)

// NumDirections is the number of approaches at the intersection
const NumDirections = 4

// Direction identifies one intersection approach
type Direction int

const (
	// NoDirection marks an empty override slot
	NoDirection Direction = -1
	Right       Direction = 0
	Down        Direction = 1
	Left        Direction = 2
	Up          Direction = 3
)

var directionNames = [NumDirections]string{"right", "down", "left", "up"}

// String returns the direction name
func (d Direction) String() string {
	if !d.Valid() {
		return "none"
	}
	return directionNames[d]
}

// Valid reports whether d is one of the four approaches
func (d Direction) Valid() bool {
	return d >= 0 && d < NumDirections
}

// Next returns the direction that follows d in the rotation
func (d Direction) Next() Direction {
	return (d + 1) % NumDirections
}

// Directions returns all approaches in rotation order
func Directions() []Direction {
	return []Direction{Right, Down, Left, Up}
}

// ParseDirection accepts a direction name ("right", "down", ...) or index ("0".."3")
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range directionNames {
		if s == name {
			return Direction(i), nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return NoDirection, NewDirectionError(-1, fmt.Sprintf("unknown direction %q", s))
	}
	if !Direction(n).Valid() {
		return NoDirection, NewInvalidDirectionError(n)
	}
	return Direction(n), nil
}

// Phase is the signal shown to a single direction
type Phase int

const (
	Red Phase = iota
	Yellow
	Green
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	case Green:
		return "green"
	default:
		return "unknown"
	}
}

// Mode is the scheduler-wide operating state
type Mode int

const (
	// ModeNormal rotates through all directions
	ModeNormal Mode = iota
	// ModeEmergencyPreempt holds green for a direction with a waiting emergency vehicle
	ModeEmergencyPreempt
	// ModeManualOverride holds green for an operator-selected direction
	ModeManualOverride
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeEmergencyPreempt:
		return "emergency_preempt"
	case ModeManualOverride:
		return "manual_override"
	default:
		return "unknown"
	}
}

// SignalState holds the live countdowns of one direction, in whole time units.
// AllocatedGreen is the green time the direction receives the next time it
// becomes active.
type SignalState struct {
	Direction       Direction `json:"direction"`
	RemainingRed    int       `json:"remaining_red"`
	RemainingYellow int       `json:"remaining_yellow"`
	RemainingGreen  int       `json:"remaining_green"`
	AllocatedGreen  int       `json:"allocated_green"`
}
