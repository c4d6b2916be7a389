package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sourcegraph/conc/pool"

	"github.com/narrata-av/narrata/internal/core/store"
)

// ttsOutputPath returns the content-addressed path for one synthesized
// clip: the filesystem is the cache, so identical (text, lang, voice)
// inputs always resolve to the same file.
func (o *Orchestrator) ttsOutputPath(slug, key string) string {
	return filepath.Join(o.Config.ProjectsDir, slug, "tts", "tts_"+key+".mp3")
}

// runTTSStep synthesizes one language's sentence audio. kind is the
// store step name ("tts_source" or "tts_target"); lang picks which
// sentence table to read from.
func (o *Orchestrator) runTTSStep(ctx context.Context, proj *store.Project, kind, lang string) error {
	var (
		sentences []string
		err       error
	)
	if lang == proj.SourceLang {
		sentences, err = o.Store.GetSentences(proj.Slug, proj.SourceLang)
	} else {
		sentences, err = o.translatedSentences(proj)
	}
	if err != nil {
		return fmt.Errorf("get sentences for %s: %w", kind, err)
	}
	total := len(sentences)

	voiceKey := o.Synthesizer.Name()

	type unit struct {
		idx int
		key string
	}
	var pending []unit
	for i, text := range sentences {
		key := store.ArtifactKey(text, lang, voiceKey)
		_, found, err := o.Store.GetArtifact(proj.Slug, kind, key)
		if err != nil {
			return fmt.Errorf("get artifact %d: %w", i, err)
		}
		if !found {
			pending = append(pending, unit{idx: i, key: key})
		}
	}

	if err := o.Store.SetProgress(proj.Slug, kind, total-len(pending), total, store.StepRunning); err != nil {
		return err
	}
	o.emitProgress(proj.Slug, kind)

	p := pool.New().WithMaxGoroutines(o.Config.TTSParallel).WithErrors().WithContext(ctx)
	for _, u := range pending {
		u := u
		text := sentences[u.idx]
		p.Go(func(ctx context.Context) error {
			outPath := o.ttsOutputPath(proj.Slug, u.key)
			durationMs, err := o.Synthesizer.Synthesize(ctx, text, lang, outPath)
			if err != nil {
				return fmt.Errorf("synthesize sentence %d: %w", u.idx, err)
			}
			if durationMs <= 0 {
				return fmt.Errorf("synthesize sentence %d: zero-duration audio", u.idx)
			}
			if err := o.Store.PutArtifact(proj.Slug, kind, u.key, outPath, durationMs); err != nil {
				return fmt.Errorf("put artifact %d: %w", u.idx, err)
			}
			if err := o.Store.IncrementDone(proj.Slug, kind); err != nil {
				return err
			}
			o.emitProgress(proj.Slug, kind)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	return o.complete(proj.Slug, kind, total, total)
}

// runTTSWordcardsStep synthesizes one clip per rare word, skipped
// entirely when word cards are disabled so the step order still
// advances cleanly (an empty-but-complete step, not a missing one).
func (o *Orchestrator) runTTSWordcardsStep(ctx context.Context, proj *store.Project) error {
	if !o.Config.WordCardsEnabled {
		return o.complete(proj.Slug, "tts_wordcards", 0, 0)
	}

	words, err := o.Store.GetRareWords(proj.Slug)
	if err != nil {
		return fmt.Errorf("get rare words: %w", err)
	}
	total := len(words)
	voiceKey := o.Synthesizer.Name()

	type unit struct {
		word store.RareWordRecord
		key  string
	}
	var pending []unit
	for _, w := range words {
		key := store.ArtifactKey(w.Surface, proj.TargetLang, voiceKey)
		_, found, err := o.Store.GetArtifact(proj.Slug, "tts_wordcards", key)
		if err != nil {
			return fmt.Errorf("get wordcard artifact: %w", err)
		}
		if !found {
			pending = append(pending, unit{word: w, key: key})
		}
	}

	if err := o.Store.SetProgress(proj.Slug, "tts_wordcards", total-len(pending), total, store.StepRunning); err != nil {
		return err
	}
	o.emitProgress(proj.Slug, "tts_wordcards")

	p := pool.New().WithMaxGoroutines(o.Config.TTSParallel).WithErrors().WithContext(ctx)
	for _, u := range pending {
		u := u
		p.Go(func(ctx context.Context) error {
			outPath := o.ttsOutputPath(proj.Slug, u.key)
			durationMs, err := o.Synthesizer.Synthesize(ctx, u.word.Surface, proj.TargetLang, outPath)
			if err != nil {
				return fmt.Errorf("synthesize wordcard %q: %w", u.word.Surface, err)
			}
			if durationMs <= 0 {
				return fmt.Errorf("synthesize wordcard %q: zero-duration audio", u.word.Surface)
			}
			if err := o.Store.PutArtifact(proj.Slug, "tts_wordcards", u.key, outPath, durationMs); err != nil {
				return fmt.Errorf("put wordcard artifact: %w", err)
			}
			if err := o.Store.IncrementDone(proj.Slug, "tts_wordcards"); err != nil {
				return err
			}
			o.emitProgress(proj.Slug, "tts_wordcards")
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return err
	}

	return o.complete(proj.Slug, "tts_wordcards", total, total)
}
