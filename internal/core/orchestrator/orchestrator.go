// Package orchestrator drives the fixed-step, checkpointed pipeline:
// sentences, translation, rare-word extraction/translation, TTS, audio
// assembly and subtitle rendering. Every step reads its progress row
// before doing any work, computes the pending unit set by subtracting
// what the store already has from the full set, dispatches pending
// units to a bounded worker pool, and persists each unit's result
// before incrementing its counter — so a crash mid-step resumes by
// recomputing the same pending set, never redoing completed work.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sourcegraph/conc/pool"

	"github.com/narrata-av/narrata/internal/core/linter"
	"github.com/narrata-av/narrata/internal/core/parser"
	"github.com/narrata-av/narrata/internal/core/provider"
	"github.com/narrata-av/narrata/internal/core/rareword"
	"github.com/narrata-av/narrata/internal/core/splitter"
	"github.com/narrata-av/narrata/internal/core/store"
)

// maxSplitDepth bounds the self-healing batch-split recursion: a batch
// that still desyncs after being halved three times (50 -> 25 -> 12 -> 6)
// fails rather than splitting down to single lines one at a time.
const maxSplitDepth = 3

// Config tunes the orchestrator's worker-pool sizes and the components
// it drives. It is populated from internal/config.Config by the CLI
// rather than imported directly, so this package has no dependency on
// the application's configuration format.
type Config struct {
	TranslationParallel int
	TTSParallel         int
	CombineWorkers      int
	VideoWorkers        int
	BatchSize           int
	SentenceMaxLen      int
	WordCardsEnabled    bool

	RareWords rareword.Options

	SourceTempo          float64
	TargetTempo          float64
	InterLanguagePauseMs int
	InterSentencePauseMs int
	PreWordcardPauseMs   int
	InterWordPauseMs     int

	// ProjectsDir is the root directory under which each project's
	// derived audio/subtitle artifacts are written; the SQLite store
	// itself lives elsewhere and is opened by the caller.
	ProjectsDir string
}

// ProgressEvent is emitted after every progress-row write so a single
// consumer (internal/progress's printer) can render current state
// without polling the store.
type ProgressEvent struct {
	Step   string
	Done   int
	Total  int
	Status store.StepStatus
}

// SentenceAudio is one sentence's resolved audio inputs, handed to the
// AudioAssembler.
type SentenceAudio struct {
	Idx           int
	SourcePath    string
	TargetPath    string
	WordCardPaths []string
}

// AudioAssembleInput is everything the AudioAssembler needs to produce
// one combined track and its timeline.
type AudioAssembleInput struct {
	Sentences            []SentenceAudio
	SourceTempo          float64
	TargetTempo          float64
	InterLanguagePauseMs int
	InterSentencePauseMs int
	PreWordcardPauseMs   int
	InterWordPauseMs     int
	OutputPath           string
}

// TimelineEntry is one sentence's position in the combined track, in
// milliseconds, matching spec's seconds-based fields scaled to ints.
type TimelineEntry struct {
	SentenceIdx     int
	StartMs         int64
	SrcDurMs        int64
	PauseBetweenMs  int64
	TgtDurMs        int64
	WordcardStartMs int64
	WordcardDurMs   int64
	EndMs           int64
}

// AudioAssembleResult is the AudioAssembler's output: the combined
// file's path and duration, plus the per-sentence timeline.
type AudioAssembleResult struct {
	OutputPath string
	DurationMs int64
	Timeline   []TimelineEntry
}

// AudioAssembler is the audio_combined step's collaborator. Defined
// here (the consumer) rather than in internal/core/audio, so this
// package never imports a component it only calls through an interface.
type AudioAssembler interface {
	Assemble(ctx context.Context, in AudioAssembleInput) (AudioAssembleResult, error)
}

// SubtitleBuildInput is everything the SubtitleBuilder needs to render
// karaoke-timed subtitle events from a finished timeline.
type SubtitleBuildInput struct {
	Timeline        []TimelineEntry
	SourceSentences []string
	TargetSentences []string
	RareWords       []store.RareWordRecord
	SourceLang      string
	TargetLang      string
}

// SubtitleBuilder is the video step's collaborator, producing the
// rendered subtitle file's contents.
type SubtitleBuilder interface {
	Build(ctx context.Context, in SubtitleBuildInput) (string, error)
}

// Orchestrator wires together the store, the provider adapters and the
// two downstream assemblers, and drives them through the fixed step
// order.
type Orchestrator struct {
	Store       *store.Store
	Translator  provider.Translator
	Synthesizer provider.Synthesizer
	Audio       AudioAssembler
	Subtitle    SubtitleBuilder

	Config Config

	LogFunc      func(string)
	ProgressFunc func(ProgressEvent)
}

// New constructs an Orchestrator with sane pool-size defaults filled
// in where the caller left them at zero.
func New(st *store.Store, translator provider.Translator, synthesizer provider.Synthesizer, cfg Config) *Orchestrator {
	if cfg.TranslationParallel == 0 {
		cfg.TranslationParallel = 4
	}
	if cfg.TTSParallel == 0 {
		cfg.TTSParallel = 4
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 50
	}
	if cfg.SentenceMaxLen == 0 {
		cfg.SentenceMaxLen = 200
	}
	if cfg.ProjectsDir == "" {
		cfg.ProjectsDir = "./projects"
	}
	return &Orchestrator{
		Store:       st,
		Translator:  translator,
		Synthesizer: synthesizer,
		Config:      cfg,
	}
}

// RunOptions parameterizes one Run call.
type RunOptions struct {
	Slug       string
	SourceLang string
	TargetLang string
	SourceText string

	// StopAfter halts the run right after the named step completes,
	// implementing --only-sentences / --stop-after-rare-words, etc.
	// Empty means run to completion.
	StopAfter string

	// Force resets the named steps to pending before running, without
	// touching upstream content-addressed artifacts (store.ResetStep).
	Force []string
}

// Run drives the project through the fixed step order, skipping any
// step already marked complete and resuming any step left running or
// failed by a prior crash.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) error {
	proj, err := o.Store.CreateOrOpen(opts.Slug, opts.SourceLang, opts.TargetLang)
	if err != nil {
		return fmt.Errorf("create or open project: %w", err)
	}
	if err := o.Store.SetOriginalText(proj.Slug, opts.SourceText); err != nil {
		return fmt.Errorf("set original text: %w", err)
	}

	for _, step := range opts.Force {
		if err := o.Store.ResetStep(proj.Slug, step); err != nil {
			return fmt.Errorf("reset step %s: %w", step, err)
		}
	}

	for _, step := range store.StepOrder {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := o.runStep(ctx, proj, step, opts); err != nil {
			o.fail(proj.Slug, step)
			return fmt.Errorf("step %s: %w", step, err)
		}

		if opts.StopAfter == step {
			o.log(fmt.Sprintf("stopping after %q as requested", step))
			return nil
		}
	}

	o.log("pipeline complete")
	return nil
}

func (o *Orchestrator) runStep(ctx context.Context, proj *store.Project, step string, opts RunOptions) error {
	already, err := o.isComplete(proj.Slug, step)
	if err != nil {
		return err
	}
	if already {
		o.log(fmt.Sprintf("%s: already complete, skipping", step))
		return nil
	}

	o.log(fmt.Sprintf("%s: starting", step))

	switch step {
	case "sentences":
		return o.runSentencesStep(proj, opts.SourceText)
	case "translations":
		return o.runTranslationsStep(ctx, proj)
	case "rare_words_extract":
		return o.runRareWordsExtractStep(proj)
	case "rare_words_translate":
		return o.runRareWordsTranslateStep(ctx, proj)
	case "tts_source":
		return o.runTTSStep(ctx, proj, "tts_source", proj.SourceLang)
	case "tts_target":
		return o.runTTSStep(ctx, proj, "tts_target", proj.TargetLang)
	case "tts_wordcards":
		return o.runTTSWordcardsStep(ctx, proj)
	case "audio_combined":
		return o.runAudioCombinedStep(ctx, proj)
	case "video":
		return o.runVideoStep(ctx, proj)
	default:
		return fmt.Errorf("unknown step %q", step)
	}
}

func (o *Orchestrator) isComplete(slug, step string) (bool, error) {
	p, err := o.Store.Progress(slug, step)
	if err != nil {
		return false, err
	}
	return p.Status == store.StepComplete, nil
}

func (o *Orchestrator) complete(slug, step string, done, total int) error {
	if err := o.Store.SetProgress(slug, step, done, total, store.StepComplete); err != nil {
		return err
	}
	o.emitProgress(slug, step)
	return nil
}

func (o *Orchestrator) fail(slug, step string) {
	p, err := o.Store.Progress(slug, step)
	if err != nil {
		return
	}
	_ = o.Store.SetProgress(slug, step, p.Done, p.Total, store.StepFailed)
	o.emitProgress(slug, step)
}

func (o *Orchestrator) emitProgress(slug, step string) {
	if o.ProgressFunc == nil {
		return
	}
	p, err := o.Store.Progress(slug, step)
	if err != nil {
		return
	}
	o.ProgressFunc(ProgressEvent{Step: step, Done: p.Done, Total: p.Total, Status: p.Status})
}

func (o *Orchestrator) log(msg string) {
	if o.LogFunc != nil {
		o.LogFunc(msg)
	}
}

// translateBatchWithRetry wraps one TranslateBatch call with the
// self-healing split strategy: on error or a line-count desync, the
// batch is halved and each half retried independently, to maxSplitDepth.
func (o *Orchestrator) translateBatchWithRetry(ctx context.Context, lines []provider.Line, sourceLang, targetLang string, depth int) ([]provider.Line, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	result, err := o.Translator.TranslateBatch(ctx, lines, sourceLang, targetLang)
	if err == nil && len(result) == len(lines) {
		return result, nil
	}

	if depth < maxSplitDepth && len(lines) > 1 {
		if err != nil {
			o.log(fmt.Sprintf("  batch error at depth %d: %v, splitting %d lines", depth, err, len(lines)))
		} else {
			o.log(fmt.Sprintf("  desync at depth %d: expected %d got %d, splitting", depth, len(lines), len(result)))
		}

		mid := len(lines) / 2
		a, errA := o.translateBatchWithRetry(ctx, lines[:mid], sourceLang, targetLang, depth+1)
		if errA != nil {
			return nil, fmt.Errorf("split half a: %w", errA)
		}
		b, errB := o.translateBatchWithRetry(ctx, lines[mid:], sourceLang, targetLang, depth+1)
		if errB != nil {
			return nil, fmt.Errorf("split half b: %w", errB)
		}
		return append(a, b...), nil
	}

	if err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("translation desync: expected %d lines, got %d after %d splits", len(lines), len(result), depth)
}

func (o *Orchestrator) runSentencesStep(proj *store.Project, text string) error {
	text = parser.RemoveHearingImpairedTags(text)
	sentences, err := splitter.Split(text, proj.SourceLang, o.Config.SentenceMaxLen)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	if err := o.Store.PutSentences(proj.Slug, proj.SourceLang, sentences); err != nil {
		return fmt.Errorf("put sentences: %w", err)
	}
	return o.complete(proj.Slug, "sentences", len(sentences), len(sentences))
}

func (o *Orchestrator) runTranslationsStep(ctx context.Context, proj *store.Project) error {
	sentences, err := o.Store.GetSentences(proj.Slug, proj.SourceLang)
	if err != nil {
		return fmt.Errorf("get sentences: %w", err)
	}
	total := len(sentences)

	var pending []int
	for i := range sentences {
		_, found, err := o.Store.GetTranslation(proj.Slug, i)
		if err != nil {
			return fmt.Errorf("get translation %d: %w", i, err)
		}
		if !found {
			pending = append(pending, i)
		}
	}

	if err := o.Store.SetProgress(proj.Slug, "translations", total-len(pending), total, store.StepRunning); err != nil {
		return err
	}
	o.emitProgress(proj.Slug, "translations")

	if len(pending) == 0 {
		return o.complete(proj.Slug, "translations", total, total)
	}

	p := pool.New().WithMaxGoroutines(o.Config.TranslationParallel).WithErrors().WithContext(ctx)
	for _, batch := range chunkInts(pending, o.Config.BatchSize) {
		batch := batch
		p.Go(func(ctx context.Context) error {
			lines := make([]provider.Line, len(batch))
			for i, idx := range batch {
				lines[i] = provider.Line{ID: idx, Text: sentences[idx]}
			}
			translated, err := o.translateBatchWithRetry(ctx, lines, proj.SourceLang, proj.TargetLang, 0)
			if err != nil {
				return fmt.Errorf("translate batch: %w", err)
			}
			translated = autoFixTranslations(translated)
			for _, l := range translated {
				if err := o.Store.PutTranslation(proj.Slug, l.ID, l.Text); err != nil {
					return fmt.Errorf("put translation %d: %w", l.ID, err)
				}
				if err := o.Store.IncrementDone(proj.Slug, "translations"); err != nil {
					return err
				}
				o.emitProgress(proj.Slug, "translations")
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	return o.complete(proj.Slug, "translations", total, total)
}

// autoFixTranslations runs the ASS-tag/bracket/punctuation hygiene pass
// over a freshly translated batch and applies the auto-fixable
// corrections in place; unclosed braces or stray brackets in a
// translated line would otherwise corrupt the karaoke tags the
// SubtitleBuilder later wraps around these words.
func autoFixTranslations(lines []provider.Line) []provider.Line {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}
	result := linter.Check(texts, linter.CheckOptions{})
	if result.PassedAll {
		return lines
	}
	fixed := linter.AutoFix(texts, result.Issues)
	out := make([]provider.Line, len(lines))
	for i, l := range lines {
		out[i] = provider.Line{ID: l.ID, Text: fixed[i]}
	}
	return out
}

// chunkInts splits ids into consecutive runs of at most size, used to
// rebuild translation batches from a pending-index list that may have
// gaps (already-translated indices removed on resume).
func chunkInts(ids []int, size int) [][]int {
	if size <= 0 {
		size = 50
	}
	var out [][]int
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		out = append(out, ids[:n])
		ids = ids[n:]
	}
	return out
}

func (o *Orchestrator) storeTimeline(slug string, timeline []TimelineEntry) error {
	data, err := json.Marshal(timeline)
	if err != nil {
		return fmt.Errorf("marshal timeline: %w", err)
	}
	path := filepath.Join(o.Config.ProjectsDir, slug, "timeline.json")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write timeline: %w", err)
	}
	return o.Store.PutArtifact(slug, "timeline", "final", path, 0)
}

func (o *Orchestrator) loadTimeline(slug string) ([]TimelineEntry, error) {
	artifact, found, err := o.Store.GetArtifact(slug, "timeline", "final")
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no timeline artifact for project %s", slug)
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("read timeline: %w", err)
	}
	var timeline []TimelineEntry
	if err := json.Unmarshal(data, &timeline); err != nil {
		return nil, fmt.Errorf("parse timeline: %w", err)
	}
	return timeline, nil
}
