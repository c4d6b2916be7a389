package orchestrator

import (
	"context"
	"fmt"

	"github.com/narrata-av/narrata/internal/core/rareword"
	"github.com/narrata-av/narrata/internal/core/store"
)

// runRareWordsExtractStep builds the target-language rare-word pool
// (spec.md §4.2's input is the ordered target-language sentences) and
// assigns each sentence its rare words, one PutRareWords call per
// sentence. Selection is global across all sentences, so a re-run
// recomputes and rewrites every sentence's list from the start.
func (o *Orchestrator) runRareWordsExtractStep(proj *store.Project) error {
	targetSentences, err := o.Store.GetSentences(proj.Slug, proj.TargetLang)
	if err != nil {
		return fmt.Errorf("get target sentences: %w", err)
	}
	if len(targetSentences) == 0 {
		targetSentences, err = o.translatedSentences(proj)
		if err != nil {
			return err
		}
	}
	total := len(targetSentences)

	ix, err := rareword.New(proj.TargetLang, o.Config.RareWords)
	if err != nil {
		return fmt.Errorf("new rare word index: %w", err)
	}

	global := ix.ExtractGlobalRareWords(targetSentences)
	perSentence := ix.GetRareWordsForSentences(targetSentences, global)

	for i, words := range perSentence {
		records := make([]store.RareWordRecord, len(words))
		for j, w := range words {
			records[j] = store.RareWordRecord{
				SentenceIdx:  i,
				WordPosition: j,
				Surface:      w.Word,
				Lemma:        w.Word,
				Zipf:         w.Zipf,
			}
		}
		if err := o.Store.PutRareWords(proj.Slug, i, records); err != nil {
			return fmt.Errorf("put rare words for sentence %d: %w", i, err)
		}
		if err := o.Store.IncrementDone(proj.Slug, "rare_words_extract"); err != nil {
			return err
		}
		o.emitProgress(proj.Slug, "rare_words_extract")
	}

	return o.complete(proj.Slug, "rare_words_extract", total, total)
}

// translatedSentences rebuilds the ordered target-language sentence
// list from the translations table, for when GetSentences(targetLang)
// has nothing stored directly (translations are keyed by source index,
// not re-split into the store's per-language sentence table).
func (o *Orchestrator) translatedSentences(proj *store.Project) ([]string, error) {
	sourceSentences, err := o.Store.GetSentences(proj.Slug, proj.SourceLang)
	if err != nil {
		return nil, fmt.Errorf("get source sentences: %w", err)
	}
	out := make([]string, len(sourceSentences))
	for i := range sourceSentences {
		text, found, err := o.Store.GetTranslation(proj.Slug, i)
		if err != nil {
			return nil, fmt.Errorf("get translation %d: %w", i, err)
		}
		if !found {
			return nil, fmt.Errorf("no translation stored for sentence %d", i)
		}
		out[i] = text
	}
	return out, nil
}

// runRareWordsTranslateStep glosses each target-language rare word back
// into the source language, so the learner sees a vocabulary hint in
// their own tongue rather than a same-language definition.
func (o *Orchestrator) runRareWordsTranslateStep(ctx context.Context, proj *store.Project) error {
	words, err := o.Store.GetRareWords(proj.Slug)
	if err != nil {
		return fmt.Errorf("get rare words: %w", err)
	}
	total := len(words)
	if total == 0 {
		return o.complete(proj.Slug, "rare_words_translate", 0, 0)
	}

	bySentence := make(map[int][]store.RareWordRecord)
	for _, w := range words {
		bySentence[w.SentenceIdx] = append(bySentence[w.SentenceIdx], w)
	}

	done := 0
	for idx, group := range bySentence {
		for i, w := range group {
			gloss, err := o.Translator.Translate(ctx, w.Surface, proj.TargetLang, proj.SourceLang)
			if err != nil {
				return fmt.Errorf("gloss rare word %q: %w", w.Surface, err)
			}
			group[i].Translation = gloss
			done++
		}
		if err := o.Store.PutRareWords(proj.Slug, idx, group); err != nil {
			return fmt.Errorf("put glossed rare words for sentence %d: %w", idx, err)
		}
		if err := o.Store.SetProgress(proj.Slug, "rare_words_translate", done, total, store.StepRunning); err != nil {
			return err
		}
		o.emitProgress(proj.Slug, "rare_words_translate")
	}

	return o.complete(proj.Slug, "rare_words_translate", total, total)
}
