package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/anggasct/trafficflow/pkg/demand"
	"github.com/anggasct/trafficflow/pkg/scheduler"
	"github.com/anggasct/trafficflow/pkg/signal"
	"github.com/anggasct/trafficflow/visualization"
)

// errQuit is returned by the console when the operator asks to stop.
var errQuit = errors.New("quit requested")

const helpText = `commands:
  override <dir>             hold <dir> green until cleared
  clear                      release the manual override
  wait <dir> <n>             set the number of vehicles waiting on <dir>
  emergency <dir> on|off     flag an emergency vehicle waiting on <dir>
  status                     print the current state
  dot                        print the controller graph in Graphviz DOT
  help                       show this help
  quit                       stop the controller
directions: right, down, left, up (or 0-3)
`

// console is the operator surface: it parses commands and writes results to out.
type console struct {
	scheduler *scheduler.Scheduler
	board     *demand.Board
	format    string

	mu  sync.Mutex
	out io.Writer
}

func newConsole(s *scheduler.Scheduler, board *demand.Board, out io.Writer, format string) *console {
	return &console{scheduler: s, board: board, out: out, format: format}
}

// Run reads commands from in until ctx is cancelled, in is exhausted or the
// operator quits. Reaching the end of in is not an error.
func (c *console) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := c.Execute(line); err != nil {
				if errors.Is(err, errQuit) {
					return err
				}
				c.printf("error: %v\n", err)
			}
		}
	}
}

// Execute runs a single command line.
func (c *console) Execute(line string) error {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil
	}

	switch cmd, args := fields[0], fields[1:]; cmd {
	case "override":
		if len(args) != 1 {
			return fmt.Errorf("usage: override <dir>")
		}
		dir, err := signal.ParseDirection(args[0])
		if err != nil {
			return err
		}
		return c.scheduler.SetManualOverride(dir)
	case "clear":
		c.scheduler.ClearManualOverride()
		return nil
	case "wait":
		if len(args) != 2 {
			return fmt.Errorf("usage: wait <dir> <n>")
		}
		dir, err := signal.ParseDirection(args[0])
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid vehicle count %q: %w", args[1], err)
		}
		return c.board.SetWaiting(dir, n)
	case "emergency":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			return fmt.Errorf("usage: emergency <dir> on|off")
		}
		dir, err := signal.ParseDirection(args[0])
		if err != nil {
			return err
		}
		return c.board.SetEmergency(dir, args[1] == "on")
	case "status":
		return c.printStatus(c.scheduler.DisplayState())
	case "dot":
		content, err := visualization.NewDOTGenerator(c.scheduler).Generate()
		if err != nil {
			return err
		}
		c.printf("%s", content)
		return nil
	case "help":
		c.printf("%s", helpText)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (c *console) printStatus(state signal.DisplayState) error {
	line, err := formatStatus(state, c.format)
	if err != nil {
		return err
	}
	c.printf("%s\n", line)
	return nil
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// formatStatus renders a display state as a single line.
func formatStatus(state signal.DisplayState, format string) (string, error) {
	if format == statusFormatJSON {
		data, err := state.JSON()
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	parts := make([]string, 0, signal.NumDirections)
	for _, dir := range signal.Directions() {
		parts = append(parts, fmt.Sprintf("%s:%s/%d", dir, state.Phases[dir], state.Countdown[dir]))
	}
	return fmt.Sprintf("tick=%d mode=%s active=%s/%s [%s]",
		state.Tick, state.Mode, state.CurrentDirection, state.Phase, strings.Join(parts, " ")), nil
}

// statusPrinter prints a status line every `every` ticks.
type statusPrinter struct {
	scheduler.BaseObserver
	console *console
	every   uint64
}

func (p *statusPrinter) OnTick(state signal.DisplayState) {
	if p.every == 0 || state.Tick%p.every != 0 {
		return
	}
	_ = p.console.printStatus(state)
}
