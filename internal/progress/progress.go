// Package progress renders pipeline step progress to a terminal. It
// follows the teacher's Neon Pink/Cyan palette (internal/ui/styles)
// but, since narrata's orchestrator drives a non-interactive batch job
// rather than a navigable TUI, renders with a single redrawing line
// per step instead of a full bubbletea.Program event loop.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/narrata-av/narrata/internal/core/orchestrator"
	"github.com/narrata-av/narrata/internal/core/store"
)

// Neon Design System colors, matching the teacher's palette.
var (
	NeonPink = lipgloss.Color("#F700FF")
	Cyan     = lipgloss.Color("#00FFFF")
	Yellow   = lipgloss.Color("#FFFF00")
	Red      = lipgloss.Color("#FF0040")
	Gray     = lipgloss.Color("#808080")
)

var (
	stepStyle = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	doneStyle = lipgloss.NewStyle().Foreground(NeonPink)
	failStyle = lipgloss.NewStyle().Foreground(Red).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(Gray)
)

// Printer renders one redrawing progress line per pipeline step. It is
// safe for concurrent use: the orchestrator's worker pools call its
// Handle method from multiple goroutines as units complete.
type Printer struct {
	mu        sync.Mutex
	out       io.Writer
	bar       progress.Model
	lastStep  string
	lineWidth int
}

// NewPrinter builds a Printer writing to out. A nil out defaults to
// os.Stdout.
func NewPrinter(out io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	bar := progress.New(
		progress.WithGradient(string(NeonPink), string(Cyan)),
		progress.WithoutPercentage(),
	)
	bar.Width = 32
	return &Printer{out: out, bar: bar}
}

// Handle implements the orchestrator.ProgressFunc signature and can be
// assigned directly to Orchestrator.ProgressFunc.
func (p *Printer) Handle(ev orchestrator.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frac := 0.0
	if ev.Total > 0 {
		frac = float64(ev.Done) / float64(ev.Total)
		if frac > 1 {
			frac = 1
		}
	}

	var statusLabel string
	switch ev.Status {
	case store.StepComplete:
		statusLabel = doneStyle.Render("done")
	case store.StepFailed:
		statusLabel = failStyle.Render("failed")
	case store.StepRunning:
		statusLabel = dimStyle.Render("running")
	default:
		statusLabel = dimStyle.Render(string(ev.Status))
	}

	line := fmt.Sprintf("%s %s %s %d/%d",
		stepStyle.Render(padStep(ev.Step)),
		p.bar.ViewAs(frac),
		statusLabel,
		ev.Done, ev.Total,
	)

	p.redraw(line)
	if ev.Status == store.StepComplete || ev.Status == store.StepFailed {
		fmt.Fprintln(p.out)
		p.lastStep = ""
	} else {
		p.lastStep = ev.Step
	}
}

// redraw clears the previous line (if any) and writes the new one in
// place, the way a long-running CLI job reports progress without
// scrolling the terminal for every worker completion.
func (p *Printer) redraw(line string) {
	if p.lastStep != "" {
		fmt.Fprint(p.out, "\r"+strings.Repeat(" ", p.lineWidth)+"\r")
	}
	fmt.Fprint(p.out, line)
	p.lineWidth = visibleLen(line)
}

// Log prints a plain informational line, flushing any in-progress bar
// first so it doesn't get overwritten.
func (p *Printer) Log(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastStep != "" {
		fmt.Fprintln(p.out)
		p.lastStep = ""
	}
	fmt.Fprintln(p.out, msg)
}

func padStep(step string) string {
	const width = 24
	if len(step) >= width {
		return step
	}
	return step + strings.Repeat(" ", width-len(step))
}

// visibleLen approximates the rendered width of a styled line by
// stripping ANSI escape sequences, so the redraw clear covers the
// whole previous line even with color codes in it.
func visibleLen(s string) int {
	return lipgloss.Width(s)
}
