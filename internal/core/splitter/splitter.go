// Package splitter turns source text into an ordered sentence list,
// protecting abbreviations/initials/ellipses from false sentence breaks
// and recursively re-splitting sentences that exceed a length cap.
package splitter

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/narrata-av/narrata/internal/langreg"
)

// DefaultMaxSentenceLength is a sentence-length cap callers may pass to
// New. New does not substitute it: a maxLen of 0 disables the cap.
const DefaultMaxSentenceLength = 95

// abbreviations that must not be treated as sentence-enders, by base
// language code. Grounded on the original text splitter's per-language
// lists.
var abbreviations = map[string][]string{
	"en": {
		"Mr.", "Mrs.", "Ms.", "Dr.", "Prof.", "Jr.", "Sr.", "vs.", "etc.",
		"i.e.", "e.g.", "Inc.", "Ltd.", "Co.", "Corp.", "Ave.", "St.", "Rd.",
		"Mt.", "ft.", "oz.", "lb.", "Jan.", "Feb.", "Mar.", "Apr.", "Jun.",
		"Jul.", "Aug.", "Sep.", "Oct.", "Nov.", "Dec.", "Rev.", "Gen.", "Col.",
		"Lt.", "Sgt.", "Capt.", "Cmdr.", "Adm.", "Ph.D.", "M.D.", "B.A.", "M.A.",
	},
	"ru": {
		"г.", "гг.", "т.д.", "т.п.", "т.е.", "др.", "пр.", "ул.", "д.", "кв.",
		"им.", "проф.", "доц.", "канд.", "акад.", "чл.", "корр.", "ред.", "изд.",
		"см.", "ср.", "напр.", "п.", "пп.", "ч.", "с.", "стр.", "рис.", "табл.",
		"млн.", "млрд.", "тыс.", "руб.", "коп.", "м.", "км.", "кг.", "гр.",
	},
	"es": {
		"Sr.", "Sra.", "Srta.", "Dr.", "Dra.", "Prof.", "Ud.", "Uds.", "etc.",
		"Lic.", "Ing.", "Arq.", "Abog.", "Mtro.", "Mtra.", "Pbro.", "Mons.",
		"Gral.", "Cnel.", "Cap.", "Tte.", "Sgt.", "pág.", "págs.", "vol.",
		"núm.", "tel.", "fax.", "aprox.", "máx.", "mín.", "prom.",
	},
}

// conjunctionSplits are comma+conjunction phrases to prefer when
// re-splitting a long sentence, by base language code.
var conjunctionSplits = map[string][]string{
	"ru": {", и ", ", а ", ", но ", ", однако ", ", хотя "},
	"en": {", or ", ", and ", ", but ", ", yet ", ", so "},
	"es": {", y ", ", o ", ", pero ", ", aunque "},
}

var (
	acronymRun       = regexp.MustCompile(`\b([A-ZА-ЯЁ]\.){2,}`)
	ellipsisPattern  = regexp.MustCompile(`\.{2,}|…`)
	decimalPattern   = regexp.MustCompile(`(\d+)\.(\d+)`)
	domainPattern    = regexp.MustCompile(`(?i)(\w+)\.(com|org|net|ru|io|dev|co|edu|gov|info|me|tv|uk|de|fr|es|it|nl|pl|ua|by|kz)\b`)
	numberedListItem = regexp.MustCompile(`(^|\s)(\d{1,3})\.`)
	fileExtPattern   = regexp.MustCompile(`(?i)(\w+)\.(json|xml|txt|md|py|js|ts|html|css|yml|yaml|csv|pdf|doc|docx|xls|xlsx|mp3|mp4|wav|jpg|png|gif|zip|tar|gz)\b`)
	sentenceBoundary = regexp.MustCompile(`([.!?]+)\s+(?:[A-ZА-ЯЁ])`)
	dialogueBreak    = regexp.MustCompile(`\n\s*(?:[—–-]\s)`)
	blankLine        = regexp.MustCompile(`\n\s*\n`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
)

// Splitter splits text into sentences for one language.
type Splitter struct {
	lang          string
	maxLen        int
	abbreviations []string
}

// New constructs a Splitter. maxLen of 0 disables the length cap. Returns
// UnsupportedLanguageError for an unregistered language code.
func New(lang string, maxLen int) (*Splitter, error) {
	l, err := langreg.Require(lang, "splitter.New")
	if err != nil {
		return nil, err
	}
	if maxLen <= 0 {
		maxLen = 0
	}
	base := langreg.BaseCode(l.Code)
	return &Splitter{
		lang:          l.Code,
		maxLen:        maxLen,
		abbreviations: abbreviations[base],
	}, nil
}

// Split returns text split into sentences. It never fails on malformed
// text; worst case it returns the whole (cleaned) text as one sentence.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var all []string
	for _, para := range splitDialogues(text) {
		para = cleanText(para)
		if para == "" {
			continue
		}
		all = append(all, s.splitRegex(para)...)
	}

	result := make([]string, 0, len(all))
	for _, sent := range all {
		if trimmed := strings.TrimSpace(sent); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if s.maxLen > 0 {
		result = s.splitLongSentences(result)
	}
	return result
}

func splitDialogues(text string) []string {
	parts := dialogueBreak.Split(text, -1)
	var result []string
	for _, part := range parts {
		for _, sub := range blankLine.Split(part, -1) {
			if trimmed := strings.TrimSpace(sub); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}

func cleanText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// splitRegex is the sentence tokenizer: protect non-ending periods, split
// on sentence boundaries, restore placeholders.
func (s *Splitter) splitRegex(text string) []string {
	protected := s.protect(text)

	var sentences []string
	last := 0
	for _, loc := range sentenceBoundary.FindAllStringSubmatchIndex(protected, -1) {
		// loc[2:4] is the punctuation run's span; the boundary ends right
		// after it (the lookahead capital letter is not consumed).
		end := loc[3]
		sentences = append(sentences, protected[last:end])
		last = end
	}
	if last < len(protected) {
		sentences = append(sentences, protected[last:])
	}

	out := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		sent = strings.TrimSpace(sent)
		if sent == "" {
			continue
		}
		out = append(out, s.restore(sent))
	}
	return out
}

// protect substitutes placeholders for periods that must not end a
// sentence: ellipses, file extensions, domains, decimals, numbered-list
// markers, acronym runs, single-letter initials, known abbreviations.
func (s *Splitter) protect(text string) string {
	protected := ellipsisPattern.ReplaceAllString(text, "_ELLIPSIS_")

	protected = fileExtPattern.ReplaceAllString(protected, "${1}_FEXT_${2}")
	protected = domainPattern.ReplaceAllString(protected, "${1}_DOM_${2}")
	protected = decimalPattern.ReplaceAllString(protected, "${1}_DECIMAL_${2}")
	protected = numberedListItem.ReplaceAllString(protected, "${1}${2}_NUM_")

	protected = acronymRun.ReplaceAllStringFunc(protected, func(m string) string {
		return strings.ReplaceAll(m, ".", "_ACRO_")
	})
	protected = protectInitials(protected)

	for _, abbr := range s.abbreviations {
		placeholder := "_ABBR_" + strings.ReplaceAll(abbr, ".", "_DOT_") + "_"
		protected = strings.ReplaceAll(protected, abbr, placeholder)
	}

	return protected
}

// protectInitials replaces the period after a single-letter initial (J.,
// А.) with a placeholder, without touching the surrounding context. A
// letter only counts as an initial if it isn't itself preceded by a
// letter, and is followed by either a non-letter (space, punctuation,
// end of string) or another initial (an uppercase letter + period, as in
// a run like "J.R.R."). Checking the context instead of consuming it
// (unlike a regexp.ReplaceAllStringFunc match) is what lets consecutive
// initials in a run each match in turn, since the period left behind by
// one initial is still there for the next initial's lookahead to see.
func protectInitials(text string) string {
	runes := []rune(text)
	var sb strings.Builder
	i := 0
	for i < len(runes) {
		r := runes[i]
		if isUpperLetter(r) && i+1 < len(runes) && runes[i+1] == '.' {
			prevOK := i == 0 || !unicode.IsLetter(runes[i-1])
			nextOK := i+2 >= len(runes) || !unicode.IsLetter(runes[i+2]) ||
				(isUpperLetter(runes[i+2]) && i+3 < len(runes) && runes[i+3] == '.')
			if prevOK && nextOK {
				sb.WriteRune(r)
				sb.WriteString("_INIT_")
				i += 2
				continue
			}
		}
		sb.WriteRune(r)
		i++
	}
	return sb.String()
}

func isUpperLetter(r rune) bool {
	return unicode.IsUpper(r) && unicode.IsLetter(r)
}

// restore reverses protect, in the reverse order protections were applied.
func (s *Splitter) restore(text string) string {
	restored := text
	for _, abbr := range s.abbreviations {
		placeholder := "_ABBR_" + strings.ReplaceAll(abbr, ".", "_DOT_") + "_"
		restored = strings.ReplaceAll(restored, placeholder, abbr)
	}
	restored = strings.ReplaceAll(restored, "_INIT_", ".")
	restored = strings.ReplaceAll(restored, "_ACRO_", ".")
	restored = strings.ReplaceAll(restored, "_NUM_", ".")
	restored = strings.ReplaceAll(restored, "_DECIMAL_", ".")
	restored = strings.ReplaceAll(restored, "_DOM_", ".")
	restored = strings.ReplaceAll(restored, "_FEXT_", ".")
	restored = strings.ReplaceAll(restored, "_ELLIPSIS_", "...")
	return restored
}

func (s *Splitter) splitLongSentences(sentences []string) []string {
	result := make([]string, 0, len(sentences))
	for _, sent := range sentences {
		if len(sent) <= s.maxLen {
			result = append(result, sent)
			continue
		}
		result = append(result, s.splitLong(sent, 0)...)
	}
	return result
}

const maxSplitDepth = 10

func (s *Splitter) splitLong(sentence string, depth int) []string {
	if len(sentence) <= s.maxLen || depth > maxSplitDepth {
		return []string{sentence}
	}

	// 1. semicolon: strongest break point.
	if strings.Contains(sentence, ";") {
		rawParts := strings.Split(sentence, ";")
		if len(rawParts) > 1 {
			var parts []string
			for i, p := range rawParts[:len(rawParts)-1] {
				p = strings.TrimSpace(p)
				if p == "" {
					continue
				}
				parts = append(parts, p+";")
				_ = i
			}
			if last := strings.TrimSpace(rawParts[len(rawParts)-1]); last != "" {
				parts = append(parts, last)
			}
			if len(parts) > 1 {
				return s.flattenSplit(parts, depth)
			}
		}
	}

	// 2. spaced em-dash.
	if strings.Contains(sentence, " — ") {
		rawParts := strings.Split(sentence, " — ")
		if len(rawParts) > 1 {
			parts := []string{strings.TrimSpace(rawParts[0])}
			for _, p := range rawParts[1:] {
				p = strings.TrimSpace(p)
				if p == "" || p == "—" {
					continue
				}
				parts = append(parts, "— "+p)
			}
			if len(parts) > 1 {
				return s.flattenSplit(parts, depth)
			}
		}
	}

	// 3. comma + conjunction.
	base := langreg.BaseCode(s.lang)
	for _, conjs := range [][]string{conjunctionSplits[base], conjunctionSplits["ru"], conjunctionSplits["en"], conjunctionSplits["es"]} {
		for _, pattern := range conjs {
			if idx := strings.Index(sentence, pattern); idx >= 0 {
				part1 := strings.TrimSpace(sentence[:idx+1])
				part2 := strings.TrimSpace(sentence[idx+2:])
				if part1 != "" && part2 != "" {
					return s.flattenSplit([]string{part1, part2}, depth)
				}
			}
		}
	}

	// 4. comma nearest the middle, only if within [20%, 80%] of length.
	if strings.Contains(sentence, ",") {
		mid := len(sentence) / 2
		best, bestDist := -1, len(sentence)+1
		for i, r := range sentence {
			if r != ',' {
				continue
			}
			dist := i - mid
			if dist < 0 {
				dist = -dist
			}
			if dist < bestDist {
				best, bestDist = i, dist
			}
		}
		if best >= 0 {
			lower := int(float64(len(sentence)) * 0.2)
			upper := int(float64(len(sentence)) * 0.8)
			if best > lower && best < upper {
				part1 := strings.TrimSpace(sentence[:best+1])
				part2 := strings.TrimSpace(sentence[best+1:])
				if part1 != "" && part2 != "" {
					return s.flattenSplit([]string{part1, part2}, depth)
				}
			}
		}
	}

	return []string{sentence}
}

func (s *Splitter) flattenSplit(parts []string, depth int) []string {
	var result []string
	for _, p := range parts {
		result = append(result, s.splitLong(p, depth+1)...)
	}
	return result
}

// Split is a convenience function equivalent to New(lang, maxLen).Split(text).
func Split(text, lang string, maxLen int) ([]string, error) {
	s, err := New(lang, maxLen)
	if err != nil {
		return nil, err
	}
	return s.Split(text), nil
}
