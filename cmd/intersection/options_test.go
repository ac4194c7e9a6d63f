package main

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/anggasct/trafficflow/pkg/signal"
)

func parseOptions(t *testing.T, args ...string) (*Options, error) {
	t.Helper()
	opts := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)
	require.NoError(t, fs.Parse(args))
	if err := opts.Complete(); err != nil {
		return opts, err
	}
	return opts, opts.Validate()
}

func TestOptions_Defaults(t *testing.T) {
	opts, err := parseOptions(t)
	require.NoError(t, err)

	schedCfg, err := opts.SchedulerConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Second, schedCfg.TickInterval)
	assert.Equal(t, 5, schedCfg.DefaultYellow)
	assert.Equal(t, 150, schedCfg.DefaultRed)

	allocCfg, err := opts.AllocatorConfig()
	require.NoError(t, err)
	assert.Equal(t, 40, allocCfg.Budget())
	assert.Equal(t, signal.DemandSnapshot{}, opts.InitialDemand())
}

func TestOptions_Flags(t *testing.T) {
	opts, err := parseOptions(t,
		"--tick-interval=200ms",
		"--default-green=12,8,12,8",
		"--waiting=3,0,7,1",
		"--max-green=25",
		"--status-format=json",
		"-v=4",
	)
	require.NoError(t, err)

	schedCfg, err := opts.SchedulerConfig()
	require.NoError(t, err)
	assert.Equal(t, 200*time.Millisecond, schedCfg.TickInterval)
	assert.Equal(t, [signal.NumDirections]int{12, 8, 12, 8}, schedCfg.DefaultGreen)

	allocCfg, err := opts.AllocatorConfig()
	require.NoError(t, err)
	assert.Equal(t, 25, allocCfg.MaxGreen)
	assert.Equal(t, [signal.NumDirections]int{3, 0, 7, 1}, opts.InitialDemand().WaitingCounts)
	assert.Equal(t, 4, opts.LogVerbosity)
}

func TestOptions_Invalid(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		errCount int
	}{
		{name: "WrongGreenCount", args: []string{"--default-green=10,10"}, errCount: 1},
		{name: "WrongWaitingCount", args: []string{"--waiting=1,2,3,4,5"}, errCount: 1},
		{name: "BadFormat", args: []string{"--status-format=xml"}, errCount: 1},
		{name: "NegativeWaiting", args: []string{"--waiting=0,-1,0,0"}, errCount: 1},
		{name: "MinGreenExceedsBudget", args: []string{"--min-green=15"}, errCount: 1},
		{name: "SeveralProblems", args: []string{"--status-every=-1", "--yellow=0", "-v=-2"}, errCount: 3},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseOptions(t, tc.args...)
			require.Error(t, err)
			assert.Len(t, multierr.Errors(err), tc.errCount)
		})
	}
}
