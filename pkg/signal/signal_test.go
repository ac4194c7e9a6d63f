package signal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirection_NextWrapsAround(t *testing.T) {
	assert.Equal(t, Down, Right.Next())
	assert.Equal(t, Left, Down.Next())
	assert.Equal(t, Up, Left.Next())
	assert.Equal(t, Right, Up.Next())
}

func TestDirection_String(t *testing.T) {
	assert.Equal(t, "right", Right.String())
	assert.Equal(t, "up", Up.String())
	assert.Equal(t, "none", NoDirection.String())
	assert.Equal(t, "none", Direction(7).String())
}

func TestParseDirection(t *testing.T) {
	testCases := []struct {
		input     string
		expected  Direction
		expectErr bool
	}{
		{input: "right", expected: Right},
		{input: " LEFT ", expected: Left},
		{input: "3", expected: Up},
		{input: "0", expected: Right},
		{input: "4", expected: NoDirection, expectErr: true},
		{input: "-1", expected: NoDirection, expectErr: true},
		{input: "north", expected: NoDirection, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			dir, err := ParseDirection(tc.input)
			if tc.expectErr {
				require.Error(t, err)
				assert.True(t, IsDirectionError(err))
				assert.Equal(t, ErrCodeInvalidDirection, GetErrorCode(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, dir)
		})
	}
}

func TestDemandSnapshot_Validate(t *testing.T) {
	ok := DemandSnapshot{WaitingCounts: [NumDirections]int{0, 3, 0, 9}}
	assert.NoError(t, ok.Validate())

	bad := DemandSnapshot{WaitingCounts: [NumDirections]int{0, 3, -2, 9}}
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, IsDemandError(err))

	demandErr := err.(*DemandError)
	assert.Equal(t, Left, demandErr.Direction)
	assert.Equal(t, -2, demandErr.Count)
	assert.Contains(t, err.Error(), "left")
}

func TestDemandSnapshot_FirstEmergency(t *testing.T) {
	none := DemandSnapshot{}
	dir, ok := none.FirstEmergency()
	assert.False(t, ok)
	assert.Equal(t, NoDirection, dir)

	two := DemandSnapshot{EmergencyWaiting: [NumDirections]bool{false, true, false, true}}
	dir, ok = two.FirstEmergency()
	assert.True(t, ok)
	assert.Equal(t, Down, dir)
	assert.True(t, two.HasEmergency(Up))
	assert.False(t, two.HasEmergency(Left))
	assert.False(t, two.HasEmergency(NoDirection))
}

func TestDemandSnapshot_TotalWaiting(t *testing.T) {
	d := DemandSnapshot{WaitingCounts: [NumDirections]int{1, 2, 3, 4}}
	assert.Equal(t, 10, d.TotalWaiting())
}

func TestPhaseEvent_StopLineBinding(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	green := NewPhaseEvent(Right, Green, 580, ModeNormal, 1, at)
	yellow := NewPhaseEvent(Right, Yellow, 580, ModeNormal, 11, at)
	red := NewPhaseEvent(Right, Red, 580, ModeNormal, 16, at)

	assert.False(t, green.BindsStopLine())
	assert.True(t, yellow.BindsStopLine())
	assert.True(t, red.BindsStopLine())
	assert.NotEmpty(t, green.ID)
	assert.NotEqual(t, green.ID, yellow.ID)
	assert.Equal(t, at, red.Timestamp)
}

func TestDisplayState_JSON(t *testing.T) {
	state := DisplayState{
		CurrentDirection: Left,
		Phase:            Yellow,
		Mode:             ModeEmergencyPreempt,
		Countdown:        [NumDirections]int{150, 150, 3, 150},
		Phases:           [NumDirections]Phase{Red, Red, Yellow, Red},
		Tick:             42,
	}

	data, err := state.JSON()
	require.NoError(t, err)

	out := string(data)
	assert.True(t, strings.Contains(out, `"current_direction":"left"`), out)
	assert.True(t, strings.Contains(out, `"mode":"emergency_preempt"`), out)
	assert.True(t, strings.Contains(out, `"phases":["red","red","yellow","red"]`), out)
	assert.True(t, strings.Contains(out, `"tick":42`), out)
}

func TestErrors_GetErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeInvalidConfiguration, GetErrorCode(NewConfigurationError("scheduler", "bad")))
	assert.Equal(t, ErrCodeAlreadyRunning, GetErrorCode(NewSchedulerError(ErrCodeAlreadyRunning, "Run", "running")))
	assert.Equal(t, ErrCodeNone, GetErrorCode(assert.AnError))
	assert.True(t, IsSchedulerError(NewSchedulerError(ErrCodeNotStarted, "Step", "x")))
	assert.True(t, IsConfigurationError(NewConfigurationError("allocator", "x")))
}
