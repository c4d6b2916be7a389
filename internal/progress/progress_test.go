package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/narrata-av/narrata/internal/core/orchestrator"
	"github.com/narrata-av/narrata/internal/core/store"
)

func TestNewPrinterDefaultsToStdout(t *testing.T) {
	p := NewPrinter(nil)
	if p.out == nil {
		t.Error("expected a non-nil default writer")
	}
}

func TestHandleWritesStepAndCounts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Handle(orchestrator.ProgressEvent{Step: "translations", Done: 3, Total: 10, Status: store.StepRunning})

	out := buf.String()
	if !strings.Contains(out, "translations") {
		t.Errorf("expected step name in output, got %q", out)
	}
	if !strings.Contains(out, "3/10") {
		t.Errorf("expected progress counts in output, got %q", out)
	}
}

func TestHandleCompleteEmitsNewline(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Handle(orchestrator.ProgressEvent{Step: "sentences", Done: 5, Total: 5, Status: store.StepComplete})

	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("expected a completed step to end the line with a newline")
	}
	if p.lastStep != "" {
		t.Error("expected lastStep to be cleared after a completed step")
	}
}

func TestHandleFailedTracksFailure(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Handle(orchestrator.ProgressEvent{Step: "tts_source", Done: 2, Total: 5, Status: store.StepFailed})

	if !strings.Contains(buf.String(), "failed") {
		t.Errorf("expected 'failed' label in output, got %q", buf.String())
	}
}

func TestHandleZeroTotalDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Handle(orchestrator.ProgressEvent{Step: "video", Done: 0, Total: 0, Status: store.StepRunning})
}

func TestLogFlushesInProgressLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Handle(orchestrator.ProgressEvent{Step: "tts_target", Done: 1, Total: 4, Status: store.StepRunning})
	p.Log("resuming from checkpoint")

	out := buf.String()
	if !strings.Contains(out, "resuming from checkpoint") {
		t.Errorf("expected log message in output, got %q", out)
	}
	if p.lastStep != "" {
		t.Error("expected Log to clear lastStep")
	}
}

func TestPadStep(t *testing.T) {
	padded := padStep("sentences")
	if len(padded) < len("sentences") {
		t.Errorf("padStep should not shrink the string, got %q", padded)
	}

	long := strings.Repeat("x", 30)
	if padStep(long) != long {
		t.Errorf("padStep should not truncate a step name longer than the pad width")
	}
}
