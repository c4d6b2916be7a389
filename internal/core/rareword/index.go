// Package rareword extracts a globally-ranked pool of uncommon
// vocabulary from a text and distributes it across sentences, so a
// learner sees each rare word introduced once, at its first occurrence.
package rareword

import (
	"sort"
	"strings"
	"unicode"

	"github.com/narrata-av/narrata/internal/langreg"
)

// WordStat describes one word's standing in the global rare-word pool.
type WordStat struct {
	Word      string
	Zipf      float64
	Rank      int // 0 = rarest
	Count     int
	Sentences []int // sentence indices where the word occurs, ascending
}

// RareWord is a word assigned to one specific sentence.
type RareWord struct {
	Word string
	Zipf float64
}

// Options tunes both extraction and the per-sentence budget.
type Options struct {
	MinZipf        float64 // words scoring below this are excluded (treated as noise/unknown)
	ZipfThreshold  float64 // words at or above this are too common to be "rare"
	MaxWords       int     // 0 = derive from corpus size: max(50, min(500, len(sentences)*5))
	MinPerSentence int
	MaxPerSentence int
	TargetAvg      float64 // target average rare words per sentence, scaled by sentence length
}

// DefaultOptions mirrors the source analyzer's defaults.
func DefaultOptions() Options {
	return Options{
		MinZipf:        0.5,
		ZipfThreshold:  4.5,
		MaxPerSentence: 6,
		TargetAvg:      5.0,
	}
}

// FrequencyScorer scores a lowercase word on a 1-7 Zipf-like scale
// (higher = more common). ok is false when the word has no frequency
// data, the same outcome an out-of-vocabulary corpus lookup gives.
type FrequencyScorer interface {
	Zipf(word string) (score float64, ok bool)
}

// Index builds and holds the rare-word pool for one language.
type Index struct {
	lang      string
	stopwords map[string]bool
	scorer    FrequencyScorer
	opts      Options
}

// New constructs an Index. Returns an UnsupportedLanguageError via
// internal/langreg for an unregistered language code.
func New(lang string, opts Options) (*Index, error) {
	l, err := langreg.Require(lang, "rareword.New")
	if err != nil {
		return nil, err
	}
	base := langreg.BaseCode(l.Code)
	return &Index{
		lang:      l.Code,
		stopwords: stopwordSet(base),
		scorer:    builtinScorer{base: base},
		opts:      opts,
	}, nil
}

// WithScorer overrides the default built-in frequency scorer, e.g. with
// one backed by a real corpus.
func (ix *Index) WithScorer(s FrequencyScorer) {
	ix.scorer = s
}

// ExtractWords lowercases text and returns its word tokens (runs of
// letters/digits), matching \b\w+\b over the text.
func (ix *Index) ExtractWords(text string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return words
}

func (ix *Index) isStopword(word string) bool {
	return ix.stopwords[word]
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}

// ExtractGlobalRareWords builds the corpus-wide rare-word pool: collect
// candidate words (len>=3, not a stopword, not numeric), score each,
// keep those in [MinZipf, ZipfThreshold), sort ascending by rarity, and
// cap at MaxWords (or a corpus-size-derived default).
func (ix *Index) ExtractGlobalRareWords(sentences []string) map[string]WordStat {
	wordSentences := make(map[string][]int)
	wordCounts := make(map[string]int)

	for idx, sentence := range sentences {
		for _, word := range ix.ExtractWords(sentence) {
			if len(word) < 3 || ix.isStopword(word) || isAllDigits(word) {
				continue
			}
			if sents := wordSentences[word]; len(sents) == 0 || sents[len(sents)-1] != idx {
				wordSentences[word] = append(wordSentences[word], idx)
			}
			wordCounts[word]++
		}
	}

	minZipf := ix.opts.MinZipf
	threshold := ix.opts.ZipfThreshold
	if threshold == 0 {
		threshold = DefaultOptions().ZipfThreshold
	}

	type scored struct {
		word  string
		score float64
	}
	var candidates []scored
	for word := range wordSentences {
		score, ok := ix.scorer.Zipf(word)
		if !ok {
			continue
		}
		if score >= minZipf && score < threshold {
			candidates = append(candidates, scored{word, score})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })

	maxWords := ix.opts.MaxWords
	if maxWords == 0 {
		target := len(sentences) * 5
		maxWords = target
		if maxWords < 50 {
			maxWords = 50
		}
		if maxWords > 500 {
			maxWords = 500
		}
	}
	if maxWords > len(candidates) {
		maxWords = len(candidates)
	}

	result := make(map[string]WordStat, maxWords)
	for rank, c := range candidates[:maxWords] {
		result[c.word] = WordStat{
			Word:      c.word,
			Zipf:      c.score,
			Rank:      rank,
			Count:     wordCounts[c.word],
			Sentences: wordSentences[c.word],
		}
	}
	return result
}

// GetRareWordsForSentences distributes the global pool across sentences:
// each word is assigned once, preferring its first occurrence, sized to
// a per-sentence budget proportional to sentence length. A second pass
// places words whose first-occurrence sentence was already full into a
// later occurrence with room. Within a sentence, words are ordered
// rarest-first.
func (ix *Index) GetRareWordsForSentences(sentences []string, global map[string]WordStat) [][]RareWord {
	minPer := ix.opts.MinPerSentence
	maxPer := ix.opts.MaxPerSentence
	if maxPer == 0 {
		maxPer = DefaultOptions().MaxPerSentence
	}
	targetAvg := ix.opts.TargetAvg
	if targetAvg == 0 {
		targetAvg = DefaultOptions().TargetAvg
	}

	lengths := make([]int, len(sentences))
	var totalLen int
	for i, sentence := range sentences {
		n := 0
		for _, w := range ix.ExtractWords(sentence) {
			if len(w) >= 3 && !ix.isStopword(w) {
				n++
			}
		}
		lengths[i] = n
		totalLen += n
	}
	avgLen := 1.0
	if len(lengths) > 0 {
		avgLen = float64(totalLen) / float64(len(lengths))
		if avgLen == 0 {
			avgLen = 1
		}
	}

	targets := make([]int, len(sentences))
	for i, length := range lengths {
		if length == 0 {
			targets[i] = 0
			continue
		}
		ratio := float64(length) / avgLen
		target := roundHalfAwayFromZero(targetAvg * ratio)
		if target < minPer {
			target = minPer
		}
		if target > maxPer {
			target = maxPer
		}
		targets[i] = target
	}

	sortedWords := make([]WordStat, 0, len(global))
	for _, stat := range global {
		sortedWords = append(sortedWords, stat)
	}
	sort.Slice(sortedWords, func(i, j int) bool { return sortedWords[i].Zipf < sortedWords[j].Zipf })

	result := make([][]RareWord, len(sentences))
	used := make(map[string]bool, len(sortedWords))

	for _, stat := range sortedWords {
		if len(stat.Sentences) == 0 {
			continue
		}
		first := stat.Sentences[0]
		if len(result[first]) < targets[first] {
			result[first] = append(result[first], RareWord{Word: stat.Word, Zipf: stat.Zipf})
			used[stat.Word] = true
		}
	}

	for _, stat := range sortedWords {
		if used[stat.Word] {
			continue
		}
		for _, idx := range stat.Sentences {
			if len(result[idx]) < targets[idx] {
				result[idx] = append(result[idx], RareWord{Word: stat.Word, Zipf: stat.Zipf})
				used[stat.Word] = true
				break
			}
		}
	}

	for i := range result {
		sort.Slice(result[i], func(a, b int) bool { return result[i][a].Zipf < result[i][b].Zipf })
	}
	return result
}

func roundHalfAwayFromZero(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return -int(-f + 0.5)
}
