package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/narrata-av/narrata/internal/core/store"
)

// runAudioCombinedStep resolves every per-sentence clip's artifact path
// and hands the ordered set to the AudioAssembler, which owns the
// concat-list construction and timeline bookkeeping; the Orchestrator's
// job here is purely to reassemble the per-sentence inputs from the
// content-addressed artifact set, since worker completion order during
// the TTS steps was never guaranteed to match sentence order.
func (o *Orchestrator) runAudioCombinedStep(ctx context.Context, proj *store.Project) error {
	sourceSentences, err := o.Store.GetSentences(proj.Slug, proj.SourceLang)
	if err != nil {
		return fmt.Errorf("get source sentences: %w", err)
	}
	targetSentences, err := o.translatedSentences(proj)
	if err != nil {
		return fmt.Errorf("get target sentences: %w", err)
	}
	if len(sourceSentences) != len(targetSentences) {
		return fmt.Errorf("sentence count mismatch: %d source vs %d target", len(sourceSentences), len(targetSentences))
	}
	total := len(sourceSentences)

	rareWords, err := o.Store.GetRareWords(proj.Slug)
	if err != nil {
		return fmt.Errorf("get rare words: %w", err)
	}
	wordsBySentence := make(map[int][]store.RareWordRecord)
	for _, w := range rareWords {
		wordsBySentence[w.SentenceIdx] = append(wordsBySentence[w.SentenceIdx], w)
	}

	voiceKey := o.Synthesizer.Name()
	sentences := make([]SentenceAudio, total)
	for i := range sourceSentences {
		srcArt, found, err := o.Store.GetArtifact(proj.Slug, "tts_source", store.ArtifactKey(sourceSentences[i], proj.SourceLang, voiceKey))
		if err != nil {
			return fmt.Errorf("get source audio %d: %w", i, err)
		}
		if !found {
			return fmt.Errorf("missing source audio for sentence %d", i)
		}
		tgtArt, found, err := o.Store.GetArtifact(proj.Slug, "tts_target", store.ArtifactKey(targetSentences[i], proj.TargetLang, voiceKey))
		if err != nil {
			return fmt.Errorf("get target audio %d: %w", i, err)
		}
		if !found {
			return fmt.Errorf("missing target audio for sentence %d", i)
		}

		var wordcardPaths []string
		if o.Config.WordCardsEnabled {
			for _, w := range wordsBySentence[i] {
				wcArt, found, err := o.Store.GetArtifact(proj.Slug, "tts_wordcards", store.ArtifactKey(w.Surface, proj.TargetLang, voiceKey))
				if err != nil {
					return fmt.Errorf("get wordcard audio for sentence %d: %w", i, err)
				}
				if !found {
					return fmt.Errorf("missing wordcard audio %q for sentence %d", w.Surface, i)
				}
				wordcardPaths = append(wordcardPaths, wcArt.Path)
			}
		}

		sentences[i] = SentenceAudio{
			Idx:           i,
			SourcePath:    srcArt.Path,
			TargetPath:    tgtArt.Path,
			WordCardPaths: wordcardPaths,
		}
	}

	outPath := filepath.Join(o.Config.ProjectsDir, proj.Slug, "audio", "combined.mp3")
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	result, err := o.Audio.Assemble(ctx, AudioAssembleInput{
		Sentences:            sentences,
		SourceTempo:          o.Config.SourceTempo,
		TargetTempo:          o.Config.TargetTempo,
		InterLanguagePauseMs: o.Config.InterLanguagePauseMs,
		InterSentencePauseMs: o.Config.InterSentencePauseMs,
		PreWordcardPauseMs:   o.Config.PreWordcardPauseMs,
		InterWordPauseMs:     o.Config.InterWordPauseMs,
		OutputPath:           outPath,
	})
	if err != nil {
		return fmt.Errorf("assemble audio: %w", err)
	}

	if err := o.Store.PutArtifact(proj.Slug, "audio_combined", "final", result.OutputPath, result.DurationMs); err != nil {
		return fmt.Errorf("put combined audio artifact: %w", err)
	}
	if err := o.storeTimeline(proj.Slug, result.Timeline); err != nil {
		return fmt.Errorf("store timeline: %w", err)
	}

	return o.complete(proj.Slug, "audio_combined", total, total)
}

// runVideoStep renders the synced subtitle file from the finished
// timeline. Background-image/video generation is explicitly out of
// scope, so this step's deliverable is the subtitle track alone.
func (o *Orchestrator) runVideoStep(ctx context.Context, proj *store.Project) error {
	timeline, err := o.loadTimeline(proj.Slug)
	if err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}
	rareWords, err := o.Store.GetRareWords(proj.Slug)
	if err != nil {
		return fmt.Errorf("get rare words: %w", err)
	}
	sourceSentences, err := o.Store.GetSentences(proj.Slug, proj.SourceLang)
	if err != nil {
		return fmt.Errorf("get source sentences: %w", err)
	}
	targetSentences, err := o.translatedSentences(proj)
	if err != nil {
		return fmt.Errorf("get target sentences: %w", err)
	}

	contents, err := o.Subtitle.Build(ctx, SubtitleBuildInput{
		Timeline:        timeline,
		SourceSentences: sourceSentences,
		TargetSentences: targetSentences,
		RareWords:       rareWords,
		SourceLang:      proj.SourceLang,
		TargetLang:      proj.TargetLang,
	})
	if err != nil {
		return fmt.Errorf("build subtitles: %w", err)
	}

	outPath := filepath.Join(o.Config.ProjectsDir, proj.Slug, "video", "subtitles.ass")
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("create video dir: %w", err)
	}
	if err := os.WriteFile(outPath, []byte(contents), 0644); err != nil {
		return fmt.Errorf("write subtitles: %w", err)
	}

	if err := o.Store.PutArtifact(proj.Slug, "video", "final", outPath, 0); err != nil {
		return fmt.Errorf("put subtitle artifact: %w", err)
	}

	return o.complete(proj.Slug, "video", len(timeline), len(timeline))
}
