// Package subtitle renders the karaoke-timed Advanced SubStation Alpha
// file the video step ships, per spec.md §4.8. It reuses the teacher's
// ASS plumbing from internal/core/parser (SubtitleLine, ReassembleASS)
// but builds dialogue events from a finished timeline instead of
// translating and reassembling an existing track.
package subtitle

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/narrata-av/narrata/internal/core/orchestrator"
	"github.com/narrata-av/narrata/internal/core/parser"
	"github.com/narrata-av/narrata/internal/core/store"
)

// PlayResX/PlayResY set the reference resolution named in the script
// header; dialogue margins in the style block are relative to this.
const (
	playResX = 1920
	playResY = 1080
)

var lineBreakMarker = regexp.MustCompile(` (—|-\s)`)

// Builder renders subtitles from a finished audio timeline. It
// implements orchestrator.SubtitleBuilder.
type Builder struct{}

// NewBuilder returns a Builder with the default six-style header.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build satisfies orchestrator.SubtitleBuilder.
func (b *Builder) Build(ctx context.Context, in orchestrator.SubtitleBuildInput) (string, error) {
	wordsBySentence := make(map[int][]store.RareWordRecord)
	for _, w := range in.RareWords {
		wordsBySentence[w.SentenceIdx] = append(wordsBySentence[w.SentenceIdx], w)
	}

	var lines []parser.SubtitleLine
	var warnings []string

	for _, entry := range in.Timeline {
		i := entry.SentenceIdx
		if i < 0 || i >= len(in.SourceSentences) || i >= len(in.TargetSentences) {
			warnings = append(warnings, fmt.Sprintf("sentence %d: missing source/target text, skipped", i))
			continue
		}

		srcText := formatDialogue(in.SourceSentences[i])
		tgtText := formatDialogue(in.TargetSentences[i])
		words := wordsBySentence[i]

		pauseEnd := entry.StartMs + entry.SrcDurMs + entry.PauseBetweenMs

		if len(words) > 0 {
			lines = append(lines, wordCardLine(i, entry.StartMs, entry.EndMs, words))
		}

		lines = append(lines, parser.SubtitleLine{
			StartTime: assTime(entry.StartMs),
			EndTime:   assTime(pauseEnd),
			Style:     "target",
			Text:      tgtText,
			MarginV:   20,
		})

		lines = append(lines, karaokeLine(entry.StartMs, entry.StartMs+entry.SrcDurMs, "source-dim", srcText))

		lines = append(lines, parser.SubtitleLine{
			StartTime: assTime(entry.StartMs + entry.SrcDurMs),
			EndTime:   assTime(pauseEnd),
			Style:     "source-highlight",
			Text:      srcText,
			MarginV:   20,
		})

		targetEnd := entry.EndMs
		if entry.WordcardDurMs > 0 {
			targetEnd = entry.EndMs - entry.WordcardDurMs
		}
		if targetEnd < pauseEnd {
			targetEnd = pauseEnd
		}
		lines = append(lines, karaokeLine(pauseEnd, targetEnd, "target-highlight", tgtText))
	}

	for _, w := range warnings {
		_ = w // not fatal, and not reported: Build returns only the ASS text
	}

	return parser.ReassembleASS(header(), lines), nil
}

// karaokeLine splits text into words and assigns each a \k duration
// (in centiseconds) proportional to its character count, summing to
// the event's total span.
func karaokeLine(startMs, endMs int64, style, text string) parser.SubtitleLine {
	words := strings.Fields(text)
	totalCs := endMs/10 - startMs/10
	if totalCs < 0 {
		totalCs = 0
	}
	if len(words) == 0 {
		return parser.SubtitleLine{
			StartTime: assTime(startMs),
			EndTime:   assTime(endMs),
			Style:     style,
			MarginV:   20,
		}
	}

	totalChars := 0
	for _, w := range words {
		totalChars += len([]rune(w))
	}
	if totalChars == 0 {
		totalChars = len(words)
	}

	var sb strings.Builder
	var assigned int64
	for idx, w := range words {
		var cs int64
		if idx == len(words)-1 {
			cs = totalCs - assigned
		} else {
			cs = totalCs * int64(len([]rune(w))) / int64(totalChars)
			assigned += cs
		}
		sb.WriteString(fmt.Sprintf(`{\k%d}%s `, cs, w))
	}

	return parser.SubtitleLine{
		StartTime: assTime(startMs),
		EndTime:   assTime(endMs),
		Style:     style,
		Text:      strings.TrimSpace(sb.String()),
		MarginV:   20,
	}
}

// wordCardLine joins a sentence's rare words, each with its gloss, one
// per line via ASS hard line breaks.
func wordCardLine(idx int, startMs, endMs int64, words []store.RareWordRecord) parser.SubtitleLine {
	parts := make([]string, len(words))
	for i, w := range words {
		if w.Translation != "" {
			parts[i] = fmt.Sprintf("%s (%s)", w.Surface, w.Translation)
		} else {
			parts[i] = w.Surface
		}
	}
	return parser.SubtitleLine{
		StartTime: assTime(startMs),
		EndTime:   assTime(endMs),
		Style:     "word-card",
		Text:      strings.Join(parts, `\N`),
		MarginV:   260,
	}
}

// formatDialogue inserts a hard line break before em-dash and
// hyphen-space dialogue markers so two-speaker lines wrap cleanly.
func formatDialogue(text string) string {
	return lineBreakMarker.ReplaceAllString(text, `\N$1`)
}

// assTime formats milliseconds as an ASS timestamp: H:MM:SS.cc.
func assTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 10 // centiseconds
	cs := total % 100
	totalSec := total / 100
	s := totalSec % 60
	totalMin := totalSec / 60
	m := totalMin % 60
	h := totalMin / 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

// header returns the Script Info + Styles block declaring the six
// named styles: source, source-dim, source-highlight, target,
// target-highlight, word-card.
func header() string {
	return fmt.Sprintf(`[Script Info]
Title: narrata
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
WrapStyle: 0
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: source,Arial,56,&H00FFFFFF,&H000000FF,&H00000000,&H80000000,0,0,0,0,100,100,0,0,1,2,1,2,40,40,160,1
Style: source-dim,Arial,56,&H80C0C0C0,&H000000FF,&H00000000,&H80000000,0,0,0,0,100,100,0,0,1,2,1,2,40,40,160,1
Style: source-highlight,Arial,56,&H0000D7FF,&H000000FF,&H00000000,&H80000000,1,0,0,0,100,100,0,0,1,2,1,2,40,40,160,1
Style: target,Arial,56,&H0000FFFF,&H000000FF,&H00000000,&H80000000,0,0,0,0,100,100,0,0,1,2,1,2,40,40,60,1
Style: target-highlight,Arial,56,&H0000FFFF,&H000000FF,&H00000000,&H80000000,1,0,0,0,100,100,0,0,1,2,1,2,40,40,60,1
Style: word-card,Arial,40,&H00FFFFFF,&H000000FF,&H00000000,&HA0000000,0,1,0,0,100,100,0,0,3,1,0,8,40,40,40,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`, playResX, playResY)
}
