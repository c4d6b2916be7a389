package utils

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	Version = "v1.0.0"
	RepoURL = "https://github.com/narrata-av/narrata"
)

var (
	crashStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0000AA")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

// RecoverPanic is the top-level panic handler for the CLI entrypoint. It
// prints a crash report to stdout and exits non-zero; unlike a GUI crash
// screen it never blocks on stdin, since a pipeline run may be unattended.
func RecoverPanic() {
	if r := recover(); r != nil {
		renderCrashReport(r)
		os.Exit(1)
	}
}

func renderCrashReport(panicValue interface{}) {
	width := 80

	var b strings.Builder

	b.WriteString(strings.Repeat("═", width))
	b.WriteString("\n")

	title := "PIPELINE CRASHED"
	padding := (width - len(title)) / 2
	b.WriteString(strings.Repeat(" ", padding))
	b.WriteString(errorStyle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(centerText("narrata hit an unrecoverable error and stopped.", width))
	b.WriteString("\n\n")

	panicMsg := fmt.Sprintf("%v", panicValue)
	b.WriteString(errorStyle.Render("Error Details:"))
	b.WriteString("\n")
	b.WriteString(wrapText(panicMsg, width-4, "  "))
	b.WriteString("\n\n")

	stack := string(debug.Stack())
	b.WriteString(errorStyle.Render("Stack Trace:"))
	b.WriteString("\n")
	stackLines := strings.Split(stack, "\n")

	displayLines := 10
	if len(stackLines) < displayLines {
		displayLines = len(stackLines)
	}

	for i := 0; i < displayLines; i++ {
		if len(stackLines[i]) > width-4 {
			b.WriteString("  " + stackLines[i][:width-7] + "...")
		} else {
			b.WriteString("  " + stackLines[i])
		}
		b.WriteString("\n")
	}

	if len(stackLines) > displayLines {
		b.WriteString(fmt.Sprintf("  ... and %d more lines\n", len(stackLines)-displayLines))
	}

	b.WriteString("\n")
	b.WriteString(centerText("The project remains resumable; rerun `narrata resume <slug>`.", width))
	b.WriteString("\n\n")
	b.WriteString(centerText("Please report this issue:", width))
	b.WriteString("\n")
	b.WriteString(centerText(RepoURL+"/issues/new", width))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("═", width))

	fmt.Println(crashStyle.Render(b.String()))
}

func centerText(text string, width int) string {
	if len(text) >= width {
		return text
	}
	padding := (width - len(text)) / 2
	return strings.Repeat(" ", padding) + text
}

func wrapText(text string, width int, indent string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	var currentLine string

	for _, word := range words {
		if len(currentLine)+len(word)+1 > width {
			lines = append(lines, indent+currentLine)
			currentLine = word
		} else {
			if currentLine != "" {
				currentLine += " "
			}
			currentLine += word
		}
	}

	if currentLine != "" {
		lines = append(lines, indent+currentLine)
	}

	return strings.Join(lines, "\n")
}

// SafeRun wraps a function with panic recovery so a provider/adapter bug
// surfaces as a crash report instead of a raw Go panic trace.
func SafeRun(fn func()) {
	defer RecoverPanic()
	fn()
}
