package signal

import (
	"time"

	"github.com/google/uuid"
	"github.com/sugawarayuuta/sonnet"
)

// PhaseEvent announces a phase change of one direction. StopLine is the
// coordinate at which waiting vehicles of that direction must halt; the motion
// subsystem applies it when the phase turns yellow or red.
type PhaseEvent struct {
	ID        string    `json:"id"`
	Direction Direction `json:"direction"`
	Phase     Phase     `json:"phase"`
	StopLine  float64   `json:"stop_line"`
	Mode      Mode      `json:"mode"`
	Tick      uint64    `json:"tick"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPhaseEvent creates a phase event with a fresh ID
func NewPhaseEvent(dir Direction, phase Phase, stopLine float64, mode Mode, tick uint64, at time.Time) PhaseEvent {
	return PhaseEvent{
		ID:        uuid.New().String(),
		Direction: dir,
		Phase:     phase,
		StopLine:  stopLine,
		Mode:      mode,
		Tick:      tick,
		Timestamp: at,
	}
}

// BindsStopLine reports whether vehicles must treat the stop line as binding
func (e PhaseEvent) BindsStopLine() bool {
	return e.Phase != Green
}

// DisplayState is the read-only view handed to renderers, refreshed every tick.
type DisplayState struct {
	CurrentDirection Direction            `json:"current_direction"`
	Phase            Phase                `json:"phase"`
	Mode             Mode                 `json:"mode"`
	Countdown        [NumDirections]int   `json:"countdown"`
	Phases           [NumDirections]Phase `json:"phases"`
	AllocatedGreen   [NumDirections]int   `json:"allocated_green"`
	Tick             uint64               `json:"tick"`
}

// JSON encodes the display state as a single JSON object
func (s DisplayState) JSON() ([]byte, error) {
	return sonnet.Marshal(s)
}

// MarshalText implements encoding.TextMarshaler
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalText implements encoding.TextMarshaler
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// MarshalText implements encoding.TextMarshaler
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
