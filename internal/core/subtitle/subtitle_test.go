package subtitle

import (
	"context"
	"strings"
	"testing"

	"github.com/narrata-av/narrata/internal/core/orchestrator"
	"github.com/narrata-av/narrata/internal/core/store"
)

func TestBuildEmitsFiveEventsPerSentence(t *testing.T) {
	b := NewBuilder()
	out, err := b.Build(context.Background(), orchestrator.SubtitleBuildInput{
		Timeline: []orchestrator.TimelineEntry{
			{SentenceIdx: 0, StartMs: 0, SrcDurMs: 2000, PauseBetweenMs: 500, TgtDurMs: 2500, EndMs: 5000},
		},
		SourceSentences: []string{"Hello world"},
		TargetSentences: []string{"Ola mundo"},
		RareWords: []store.RareWordRecord{
			{SentenceIdx: 0, Surface: "mundo", Translation: "world"},
		},
		SourceLang: "en",
		TargetLang: "pt-br",
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !strings.Contains(out, "[Script Info]") {
		t.Error("expected a Script Info header")
	}
	if !strings.Contains(out, "[V4+ Styles]") {
		t.Error("expected a styles block")
	}
	for _, style := range []string{"source", "source-dim", "source-highlight", "target", "target-highlight", "word-card"} {
		if !strings.Contains(out, "Style: "+style+",") {
			t.Errorf("expected style definition for %q", style)
		}
	}

	dialogueCount := strings.Count(out, "Dialogue:")
	if dialogueCount != 5 {
		t.Errorf("expected 5 dialogue events for one sentence (word-card, target preview, source karaoke, source highlight, target karaoke), got %d", dialogueCount)
	}

	if !strings.Contains(out, "mundo (world)") {
		t.Error("expected the word-card event to show the rare word and its gloss")
	}
}

func TestBuildSkipsWordCardWhenNoRareWords(t *testing.T) {
	b := NewBuilder()
	out, err := b.Build(context.Background(), orchestrator.SubtitleBuildInput{
		Timeline: []orchestrator.TimelineEntry{
			{SentenceIdx: 0, StartMs: 0, SrcDurMs: 1000, PauseBetweenMs: 200, TgtDurMs: 1200, EndMs: 2400},
		},
		SourceSentences: []string{"Hi"},
		TargetSentences: []string{"Oi"},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Count(out, "Dialogue:") != 4 {
		t.Errorf("expected 4 dialogue events with no rare words, got %d", strings.Count(out, "Dialogue:"))
	}
}

func TestBuildSkipsSentenceWithMissingText(t *testing.T) {
	b := NewBuilder()
	out, err := b.Build(context.Background(), orchestrator.SubtitleBuildInput{
		Timeline: []orchestrator.TimelineEntry{
			{SentenceIdx: 5, StartMs: 0, SrcDurMs: 1000, EndMs: 1000},
		},
		SourceSentences: []string{"only one sentence"},
		TargetSentences: []string{"apenas uma frase"},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if strings.Count(out, "Dialogue:") != 0 {
		t.Error("expected the out-of-range sentence to be skipped")
	}
}

func TestKaraokeLineAssignsProportionalDurations(t *testing.T) {
	line := karaokeLine(0, 1000, "source", "a bb")
	if !strings.Contains(line.Text, `\k`) {
		t.Fatalf("expected karaoke tags in %q", line.Text)
	}
	// "a" (1 char) and "bb" (2 chars) should split roughly 1:2 of 1000ms == 100cs total.
	if !strings.Contains(line.Text, `{\k33}a`) && !strings.Contains(line.Text, `{\k34}a`) {
		t.Errorf("unexpected karaoke split for short word: %q", line.Text)
	}
}

func TestFormatDialogueInsertsLineBreakBeforeEmDash(t *testing.T) {
	out := formatDialogue("Hello — who is there?")
	if !strings.Contains(out, `\N—`) {
		t.Errorf("expected a hard line break before the em-dash, got %q", out)
	}
}

func TestAssTimeFormatting(t *testing.T) {
	cases := map[int64]string{
		0:        "0:00:00.00",
		1500:     "0:00:01.50",
		61000:    "0:01:01.00",
		3661000:  "1:01:01.00",
	}
	for ms, want := range cases {
		if got := assTime(ms); got != want {
			t.Errorf("assTime(%d) = %q, want %q", ms, got, want)
		}
	}
}
