// Package provider implements the uniform adapter surface over
// heterogeneous translation and text-to-speech backends: each adapter
// owns its own rate limiter and retry policy, and every translation
// passes through a shared validation pass before the caller sees it.
package provider

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Line is one unit of translatable text keyed by its sentence index,
// the shape every batch-capable adapter marshals to JSON on the wire.
type Line struct {
	ID   int    `json:"i"`
	Text string `json:"t"`
}

// Translator adapts a translation backend behind a single capability
// set, resolved once at construction time per spec.md's "tagged union,
// not string keys in hot paths" design note.
type Translator interface {
	Name() string
	SupportedLanguages() []string
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	TranslateBatch(ctx context.Context, texts []Line, sourceLang, targetLang string) ([]Line, error)
}

// Synthesizer adapts a text-to-speech backend.
type Synthesizer interface {
	Name() string
	SupportedLanguages() []string
	Synthesize(ctx context.Context, text, lang, outPath string) (durationMs int64, err error)
}

// ProviderInfo is metadata about a configured provider, used for
// diagnostics and the CLI's provider-info surface.
type ProviderInfo struct {
	Name        string
	Type        string // "cloud" or "local"
	RequiresKey bool
	Endpoint    string
}

// ProviderError is returned by adapters for both translation and
// synthesis failures.
type ProviderError struct {
	Provider string
	Code     string // rate_limit, invalid_key, network_error, http_error, inference_error
	Message  string
	Retry    bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Code, e.Message)
}

// IsRateLimitError reports whether err is a rate-limit ProviderError.
func IsRateLimitError(err error) bool {
	var pe *ProviderError
	if ok := asProviderError(err, &pe); ok {
		return pe.Code == "rate_limit"
	}
	return false
}

// IsAuthError reports whether err is an auth-failure ProviderError.
func IsAuthError(err error) bool {
	var pe *ProviderError
	if ok := asProviderError(err, &pe); ok {
		return pe.Code == "invalid_key" || pe.Code == "unauthorized"
	}
	return false
}

func asProviderError(err error, out **ProviderError) bool {
	pe, ok := err.(*ProviderError)
	if ok {
		*out = pe
	}
	return ok
}

// ValidationError reports a post-response validation failure: empty
// output, byte-identical passthrough, or source-alphabet residue.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "validation: " + e.Reason }

// scriptByLang maps a language's base code to the Unicode script its
// text is written in, for the wrong-alphabet residue check.
var scriptByLang = map[string]*unicode.RangeTable{
	"ru": unicode.Cyrillic,
	"en": unicode.Latin,
	"es": unicode.Latin,
	"de": unicode.Latin,
	"fr": unicode.Latin,
	"pt": unicode.Latin,
}

// Validate applies the common post-response checks every adapter must
// pass before a translation is accepted: non-empty, not byte-equal to
// the input when source != target, and free of source-script residue
// when the two languages use different scripts.
func Validate(original, translated, sourceLang, targetLang string) error {
	trimmed := strings.TrimSpace(translated)
	if trimmed == "" {
		return &ValidationError{Reason: "empty translation"}
	}
	if sourceLang != targetLang && translated == original {
		return &ValidationError{Reason: "translation identical to source text"}
	}

	sourceBase, _, _ := strings.Cut(sourceLang, "-")
	targetBase, _, _ := strings.Cut(targetLang, "-")
	sourceScript, hasSource := scriptByLang[sourceBase]
	targetScript, hasTarget := scriptByLang[targetBase]
	if hasSource && hasTarget && sourceScript != targetScript {
		if containsScript(translated, sourceScript) {
			return &ValidationError{Reason: fmt.Sprintf("output retains %s-script characters from the source", sourceLang)}
		}
	}
	return nil
}

func containsScript(text string, script *unicode.RangeTable) bool {
	for _, r := range text {
		if unicode.IsLetter(r) && unicode.Is(script, r) {
			return true
		}
	}
	return false
}
