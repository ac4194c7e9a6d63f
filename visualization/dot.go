// Package visualization renders the signal controller as a Graphviz graph.
package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anggasct/trafficflow/pkg/signal"
)

// StateSource supplies the live state to highlight. *scheduler.Scheduler implements it.
type StateSource interface {
	DisplayState() signal.DisplayState
}

// DOTGenerator generates Graphviz DOT format representations of the controller
type DOTGenerator struct {
	source  StateSource
	options DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowDirections  bool
	ShowLabels      bool
	RankDirection   string // "TB", "LR", "BT", "RL"
	NodeShape       string
	ActiveFillColor string
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowDirections:  true,
		ShowLabels:      true,
		RankDirection:   "LR",
		NodeShape:       "box",
		ActiveFillColor: "gold",
	}
}

type node struct {
	mode  signal.Mode
	phase signal.Phase
}

func (n node) id() string {
	return n.mode.String() + "/" + n.phase.String()
}

type edge struct {
	from, to node
	label    string
}

var (
	normalGreen     = node{signal.ModeNormal, signal.Green}
	normalYellow    = node{signal.ModeNormal, signal.Yellow}
	emergencyGreen  = node{signal.ModeEmergencyPreempt, signal.Green}
	emergencyYellow = node{signal.ModeEmergencyPreempt, signal.Yellow}
	manualGreen     = node{signal.ModeManualOverride, signal.Green}
	manualYellow    = node{signal.ModeManualOverride, signal.Yellow}

	controllerNodes = []node{normalGreen, normalYellow, emergencyGreen, emergencyYellow, manualGreen, manualYellow}

	controllerEdges = []edge{
		{normalGreen, normalYellow, "green expired"},
		{normalYellow, normalGreen, "next direction"},
		{normalGreen, emergencyGreen, "emergency waiting"},
		{normalYellow, emergencyGreen, "emergency waiting"},
		{emergencyGreen, emergencyYellow, "emergency cleared"},
		{emergencyYellow, normalGreen, "reset, resume at right"},
		{normalGreen, manualGreen, "override set"},
		{normalYellow, manualGreen, "override set"},
		{emergencyGreen, manualGreen, "override set"},
		{emergencyYellow, manualGreen, "override set"},
		{manualGreen, manualYellow, "override released"},
		{manualYellow, normalGreen, "reset, resume at right"},
	}

	phaseColors = map[signal.Phase]string{
		signal.Red:    "lightcoral",
		signal.Yellow: "lightyellow",
		signal.Green:  "lightgreen",
	}
)

// NewDOTGenerator creates a new DOT generator. A nil source renders the
// controller graph without highlighting.
func NewDOTGenerator(source StateSource, options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		source:  source,
		options: opts,
	}
}

// Generate creates a DOT representation of the controller
func (g *DOTGenerator) Generate() (string, error) {
	var state *signal.DisplayState
	if g.source != nil {
		ds := g.source.DisplayState()
		state = &ds
	}

	var dot strings.Builder

	dot.WriteString("digraph SignalController {\n")
	dot.WriteString(fmt.Sprintf("  rankdir=%s;\n", g.options.RankDirection))
	dot.WriteString(fmt.Sprintf("  node [shape=%s];\n", g.options.NodeShape))
	dot.WriteString("  edge [fontsize=10];\n\n")

	g.generateModes(&dot, state)
	g.generateEdges(&dot)
	if g.options.ShowDirections && state != nil {
		g.generateDirections(&dot, *state)
	}

	dot.WriteString("}\n")
	return dot.String(), nil
}

// generateModes generates one node per mode and active phase
func (g *DOTGenerator) generateModes(dot *strings.Builder, state *signal.DisplayState) {
	dot.WriteString("  // Modes\n")
	for _, n := range controllerNodes {
		fillColor := phaseColors[n.phase]
		label := fmt.Sprintf("%s\\n%s", n.mode, n.phase)
		if state != nil && state.Mode == n.mode && state.Phase == n.phase {
			fillColor = g.options.ActiveFillColor
			label += fmt.Sprintf("\\n(%s, tick %d)", state.CurrentDirection, state.Tick)
		}
		dot.WriteString(fmt.Sprintf("  \"%s\" [style=\"filled\" fillcolor=%s label=\"%s\"];\n",
			n.id(), fillColor, label))
	}
	dot.WriteString("\n")
}

// generateEdges generates DOT edges for all controller transitions
func (g *DOTGenerator) generateEdges(dot *strings.Builder) {
	dot.WriteString("  // Transitions\n")
	for _, e := range controllerEdges {
		if g.options.ShowLabels {
			dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [label=\"%s\"];\n", e.from.id(), e.to.id(), e.label))
			continue
		}
		dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\";\n", e.from.id(), e.to.id()))
	}
}

// generateDirections renders the four approaches with their phase and countdown
func (g *DOTGenerator) generateDirections(dot *strings.Builder, state signal.DisplayState) {
	dot.WriteString("\n  subgraph cluster_directions {\n")
	dot.WriteString("    label=\"directions\";\n")
	for _, dir := range signal.Directions() {
		phase := state.Phases[dir]
		dot.WriteString(fmt.Sprintf("    \"dir_%s\" [shape=circle style=\"filled\" fillcolor=%s label=\"%s\\n%s %d\"];\n",
			dir, phaseColors[phase], dir, phase, state.Countdown[dir]))
	}
	dot.WriteString("  }\n")
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// SVGGenerator generates SVG representations by calling Graphviz
type SVGGenerator struct {
	dotGenerator *DOTGenerator
}

// NewSVGGenerator creates a new SVG generator
func NewSVGGenerator(source StateSource, options ...DOTOptions) *SVGGenerator {
	return &SVGGenerator{
		dotGenerator: NewDOTGenerator(source, options...),
	}
}

// Generate creates an SVG representation of the controller
func (g *SVGGenerator) Generate() (string, error) {
	dotContent, err := g.dotGenerator.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}
