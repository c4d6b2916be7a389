// Package audio assembles per-sentence source/target/word-card clips
// into one combined track and the timeline the SubtitleBuilder syncs
// against, per spec.md §4.7. It shells out to ffmpeg/ffprobe the same
// way the teacher shelled out to mkvmerge/mkvextract: locate the binary
// via internal/core/toolchain, run it, parse its output.
package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/narrata-av/narrata/internal/core/orchestrator"
	"github.com/narrata-av/narrata/internal/core/toolchain"
)

// tool is the external-binary collaborator the Assembler drives.
// Factored out of Assembler so tests can swap in a fake without
// shelling out to a real ffmpeg/ffprobe install.
type tool interface {
	probeDurationMs(path string) (int64, error)
	silence(outPath string, ms int64) error
	tempo(inPath, outPath string, factor float64) error
	concat(listPath, outPath string) error
}

// ffmpegTool is the real tool, invoking ffmpeg/ffprobe located via
// internal/core/toolchain's BinDir-then-PATH lookup.
type ffmpegTool struct{}

func (ffmpegTool) probeDurationMs(path string) (int64, error) {
	ffprobe := toolchain.GetBinaryPath("ffprobe")
	cmd := exec.Command(ffprobe, "-v", "error", "-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.Output()
	if err != nil {
		if !toolchain.CheckSystemPath("ffprobe") {
			return 0, fmt.Errorf("ffprobe not found: %w", err)
		}
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", out, err)
	}
	return int64(seconds * 1000), nil
}

func (ffmpegTool) silence(outPath string, ms int64) error {
	ffmpeg := toolchain.GetBinaryPath("ffmpeg")
	seconds := float64(ms) / 1000.0
	cmd := exec.Command(ffmpeg, "-y", "-f", "lavfi", "-i", "anullsrc=r=44100:cl=mono",
		"-t", strconv.FormatFloat(seconds, 'f', 3, 64), "-q:a", "9", outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg silence generation failed: %s: %w", out, err)
	}
	return nil
}

// tempo applies a pitch-preserving tempo change. ffmpeg's atempo
// filter only accepts factors in [0.5, 2.0], so factors outside that
// range are reached by chaining multiple atempo stages.
func (ffmpegTool) tempo(inPath, outPath string, factor float64) error {
	ffmpeg := toolchain.GetBinaryPath("ffmpeg")
	filter := tempoFilterChain(factor)
	cmd := exec.Command(ffmpeg, "-y", "-i", inPath, "-filter:a", filter, outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg tempo filter failed: %s: %w", out, err)
	}
	return nil
}

func (ffmpegTool) concat(listPath, outPath string) error {
	ffmpeg := toolchain.GetBinaryPath("ffmpeg")
	cmd := exec.Command(ffmpeg, "-y", "-f", "concat", "-safe", "0", "-i", listPath,
		"-c:a", "libmp3lame", outPath)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat failed: %s: %w", out, err)
	}
	return nil
}

// tempoFilterChain builds an ffmpeg `atempo` filter string reaching
// factor by chaining stages each capped at ±2x, per spec.md §6's
// "fallback chain of tempo filters that each cap at ×2".
func tempoFilterChain(factor float64) string {
	if factor <= 0 {
		factor = 1
	}
	var stages []string
	remaining := factor
	for remaining > 2.0 {
		stages = append(stages, "atempo=2.0")
		remaining /= 2.0
	}
	for remaining < 0.5 {
		stages = append(stages, "atempo=0.5")
		remaining /= 0.5
	}
	stages = append(stages, fmt.Sprintf("atempo=%.4f", remaining))
	return strings.Join(stages, ",")
}

// Assembler implements orchestrator.AudioAssembler.
type Assembler struct {
	tool        tool
	scratchRoot string
}

// NewAssembler constructs an Assembler. scratchRoot defaults to the
// system temp directory when empty.
func NewAssembler(scratchRoot string) *Assembler {
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &Assembler{tool: ffmpegTool{}, scratchRoot: scratchRoot}
}

// concatEntry is one clip in the per-sentence concat list, in order.
type concatEntry struct {
	path string
	kind string // "src", "lang_pause", "tgt", "wordcard_pause", "wordcard", "word_pause", "sentence_pause"
}

// Assemble builds the combined track and its timeline in a single
// pass, per spec.md §4.7's five-step algorithm.
func (a *Assembler) Assemble(ctx context.Context, in orchestrator.AudioAssembleInput) (orchestrator.AudioAssembleResult, error) {
	scratchDir := filepath.Join(a.scratchRoot, "narrata-assemble-"+uuid.NewString())
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return orchestrator.AudioAssembleResult{}, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	langPausePath := filepath.Join(scratchDir, "lang_pause.mp3")
	sentPausePath := filepath.Join(scratchDir, "sentence_pause.mp3")
	wcPausePath := filepath.Join(scratchDir, "wordcard_pause.mp3")
	wordPausePath := filepath.Join(scratchDir, "word_pause.mp3")

	if err := a.tool.silence(langPausePath, int64(in.InterLanguagePauseMs)); err != nil {
		return orchestrator.AudioAssembleResult{}, fmt.Errorf("generate lang pause: %w", err)
	}
	if err := a.tool.silence(sentPausePath, int64(in.InterSentencePauseMs)); err != nil {
		return orchestrator.AudioAssembleResult{}, fmt.Errorf("generate sentence pause: %w", err)
	}
	if in.PreWordcardPauseMs > 0 {
		if err := a.tool.silence(wcPausePath, int64(in.PreWordcardPauseMs)); err != nil {
			return orchestrator.AudioAssembleResult{}, fmt.Errorf("generate wordcard pause: %w", err)
		}
	}
	if in.InterWordPauseMs > 0 {
		if err := a.tool.silence(wordPausePath, int64(in.InterWordPauseMs)); err != nil {
			return orchestrator.AudioAssembleResult{}, fmt.Errorf("generate word pause: %w", err)
		}
	}

	var (
		entries      []concatEntry
		timeline     []orchestrator.TimelineEntry
		current      int64
		expectedTot  int64
	)

	for si, sentence := range in.Sentences {
		srcPath, err := a.maybeTempo(scratchDir, fmt.Sprintf("src_%d", sentence.Idx), sentence.SourcePath, in.SourceTempo)
		if err != nil {
			return orchestrator.AudioAssembleResult{}, fmt.Errorf("tempo source %d: %w", sentence.Idx, err)
		}
		tgtPath, err := a.maybeTempo(scratchDir, fmt.Sprintf("tgt_%d", sentence.Idx), sentence.TargetPath, in.TargetTempo)
		if err != nil {
			return orchestrator.AudioAssembleResult{}, fmt.Errorf("tempo target %d: %w", sentence.Idx, err)
		}

		srcDur, err := a.tool.probeDurationMs(srcPath)
		if err != nil {
			return orchestrator.AudioAssembleResult{}, fmt.Errorf("probe source %d: %w", sentence.Idx, err)
		}
		tgtDur, err := a.tool.probeDurationMs(tgtPath)
		if err != nil {
			return orchestrator.AudioAssembleResult{}, fmt.Errorf("probe target %d: %w", sentence.Idx, err)
		}
		if srcDur <= 0 || tgtDur <= 0 {
			return orchestrator.AudioAssembleResult{}, fmt.Errorf("sentence %d: zero-duration audio clip", sentence.Idx)
		}

		entry := orchestrator.TimelineEntry{SentenceIdx: sentence.Idx, StartMs: current}
		entry.SrcDurMs = srcDur
		entry.PauseBetweenMs = int64(in.InterLanguagePauseMs)
		entry.TgtDurMs = tgtDur

		entries = append(entries,
			concatEntry{path: srcPath, kind: "src"},
			concatEntry{path: langPausePath, kind: "lang_pause"},
			concatEntry{path: tgtPath, kind: "tgt"},
		)
		current += srcDur + entry.PauseBetweenMs + tgtDur

		if len(sentence.WordCardPaths) > 0 {
			entry.WordcardStartMs = current
			if in.PreWordcardPauseMs > 0 {
				entries = append(entries, concatEntry{path: wcPausePath, kind: "wordcard_pause"})
				current += int64(in.PreWordcardPauseMs)
				entry.WordcardStartMs = current
			}
			var wcTotal int64
			for wi, wcPath := range sentence.WordCardPaths {
				dur, err := a.tool.probeDurationMs(wcPath)
				if err != nil {
					return orchestrator.AudioAssembleResult{}, fmt.Errorf("probe wordcard %d/%d: %w", sentence.Idx, wi, err)
				}
				entries = append(entries, concatEntry{path: wcPath, kind: "wordcard"})
				current += dur
				wcTotal += dur
				if wi < len(sentence.WordCardPaths)-1 && in.InterWordPauseMs > 0 {
					entries = append(entries, concatEntry{path: wordPausePath, kind: "word_pause"})
					current += int64(in.InterWordPauseMs)
					wcTotal += int64(in.InterWordPauseMs)
				}
			}
			entry.WordcardDurMs = wcTotal
		}

		entry.EndMs = current
		timeline = append(timeline, entry)

		if si < len(in.Sentences)-1 {
			entries = append(entries, concatEntry{path: sentPausePath, kind: "sentence_pause"})
			current += int64(in.InterSentencePauseMs)
		}
	}
	expectedTot = current

	listPath := filepath.Join(scratchDir, "concat.txt")
	if err := writeConcatList(listPath, entries); err != nil {
		return orchestrator.AudioAssembleResult{}, fmt.Errorf("write concat list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(in.OutputPath), 0755); err != nil {
		return orchestrator.AudioAssembleResult{}, fmt.Errorf("create output dir: %w", err)
	}
	if err := a.tool.concat(listPath, in.OutputPath); err != nil {
		return orchestrator.AudioAssembleResult{}, fmt.Errorf("concat final track: %w", err)
	}

	actualTot, err := a.tool.probeDurationMs(in.OutputPath)
	if err != nil {
		return orchestrator.AudioAssembleResult{}, fmt.Errorf("probe final output: %w", err)
	}
	if actualTot <= 0 {
		return orchestrator.AudioAssembleResult{}, fmt.Errorf("final audio file is empty")
	}

	if expectedTot > 0 && absInt64(actualTot-expectedTot) > 1000 {
		scale := float64(actualTot) / float64(expectedTot)
		for i := range timeline {
			timeline[i] = scaleTimelineEntry(timeline[i], scale)
		}
	}

	return orchestrator.AudioAssembleResult{
		OutputPath: in.OutputPath,
		DurationMs: actualTot,
		Timeline:   timeline,
	}, nil
}

// maybeTempo applies the tempo filter when factor != 1, returning the
// original path unchanged otherwise (no redundant re-encode).
func (a *Assembler) maybeTempo(scratchDir, label, inPath string, factor float64) (string, error) {
	if factor == 0 || factor == 1 {
		return inPath, nil
	}
	outPath := filepath.Join(scratchDir, label+"_tempo.mp3")
	if err := a.tool.tempo(inPath, outPath, factor); err != nil {
		return "", err
	}
	return outPath, nil
}

func writeConcatList(listPath string, entries []concatEntry) error {
	var b strings.Builder
	for _, e := range entries {
		abs, err := filepath.Abs(e.path)
		if err != nil {
			return fmt.Errorf("resolve path %q: %w", e.path, err)
		}
		b.WriteString(fmt.Sprintf("file '%s'\n", abs))
	}
	return os.WriteFile(listPath, []byte(b.String()), 0644)
}

// scaleTimelineEntry multiplies every duration/position field by
// scale, the cumulative tempo/encoder drift correction from spec.md
// §4.7 step 5.
func scaleTimelineEntry(e orchestrator.TimelineEntry, scale float64) orchestrator.TimelineEntry {
	e.StartMs = int64(float64(e.StartMs) * scale)
	e.SrcDurMs = int64(float64(e.SrcDurMs) * scale)
	e.PauseBetweenMs = int64(float64(e.PauseBetweenMs) * scale)
	e.TgtDurMs = int64(float64(e.TgtDurMs) * scale)
	e.WordcardStartMs = int64(float64(e.WordcardStartMs) * scale)
	e.WordcardDurMs = int64(float64(e.WordcardDurMs) * scale)
	e.EndMs = int64(float64(e.EndMs) * scale)
	return e
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
