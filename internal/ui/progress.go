package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Phase is a stage of a generation run
type Phase string

const (
	PhaseReading       Phase = "Reading"
	PhaseValidating    Phase = "Validating"
	PhaseExternalizing Phase = "Externalizing"
	PhaseCompiling     Phase = "Compiling"
	PhaseAligning      Phase = "Aligning"
	PhaseGenerating    Phase = "Generating"
)

// Phases lists the stages of a run in execution order
var Phases = []Phase{
	PhaseReading,
	PhaseValidating,
	PhaseExternalizing,
	PhaseCompiling,
	PhaseAligning,
	PhaseGenerating,
}

// ProgressBar is the bar of a single phase
type ProgressBar struct {
	bar   *progressbar.ProgressBar
	phase Phase
}

func newProgressBar(phase Phase, index, count, total int, output io.Writer) *ProgressBar {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(output),
		progressbar.OptionSetDescription(fmt.Sprintf("[%d/%d %s]", index, count, phase)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(true),
	)
	return &ProgressBar{bar: bar, phase: phase}
}

// Step advances the bar by one unit of work
func (pb *ProgressBar) Step(description string) {
	if description != "" {
		pb.bar.Describe(fmt.Sprintf("[%s] %s", pb.phase, description))
	}
	_ = pb.bar.Add(1)
}

// Finish completes the bar
func (pb *ProgressBar) Finish() {
	_ = pb.bar.Finish()
}

// Pipeline reports progress through the phases of a run. Phases that a run
// skips are simply never started.
type Pipeline struct {
	phases  []Phase
	current *ProgressBar
	output  io.Writer
}

// NewPipeline creates a tracker writing to stderr
func NewPipeline(phases []Phase) *Pipeline {
	return NewPipelineWithOutput(phases, os.Stderr)
}

// NewPipelineWithOutput creates a tracker with a custom output
func NewPipelineWithOutput(phases []Phase, output io.Writer) *Pipeline {
	return &Pipeline{phases: phases, output: output}
}

// Disable discards all further output
func (p *Pipeline) Disable() {
	p.output = io.Discard
}

// Begin finishes the running phase and starts a bar for the given one
func (p *Pipeline) Begin(phase Phase, total int) *ProgressBar {
	p.Finish()

	index := len(p.phases)
	for i, ph := range p.phases {
		if ph == phase {
			index = i + 1
			break
		}
	}
	p.current = newProgressBar(phase, index, len(p.phases), total, p.output)
	return p.current
}

// Finish completes the running phase, if any
func (p *Pipeline) Finish() {
	if p.current != nil {
		p.current.Finish()
		p.current = nil
	}
}

// PrintSummary writes a closing line below the bars
func (p *Pipeline) PrintSummary(format string, args ...interface{}) {
	fmt.Fprintf(p.output, format+"\n", args...)
}
