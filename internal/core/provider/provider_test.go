package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestProviderErrorError(t *testing.T) {
	err := &ProviderError{Provider: "openrouter", Code: "rate_limit", Message: "Too many requests"}

	errStr := err.Error()
	if !strings.Contains(errStr, "openrouter") {
		t.Errorf("Error() should contain provider: %q", errStr)
	}
	if !strings.Contains(errStr, "rate_limit") {
		t.Errorf("Error() should contain code: %q", errStr)
	}
	if !strings.Contains(errStr, "Too many requests") {
		t.Errorf("Error() should contain message: %q", errStr)
	}
}

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"rate_limit error", &ProviderError{Code: "rate_limit"}, true},
		{"other error", &ProviderError{Code: "invalid_key"}, false},
		{"generic error", errors.New("generic error"), false},
		{"nil error", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid_key error", &ProviderError{Code: "invalid_key"}, true},
		{"unauthorized error", &ProviderError{Code: "unauthorized"}, true},
		{"other error", &ProviderError{Code: "rate_limit"}, false},
		{"generic error", errors.New("generic error"), false},
		{"nil error", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateEmptyTranslation(t *testing.T) {
	if err := Validate("hello", "   ", "en", "ru"); err == nil {
		t.Error("expected error for empty translation")
	}
}

func TestValidateByteIdenticalWhenLanguagesDiffer(t *testing.T) {
	if err := Validate("hello world", "hello world", "en", "ru"); err == nil {
		t.Error("expected error for byte-identical translation across different languages")
	}
}

func TestValidateAllowsIdenticalTextForSameLanguage(t *testing.T) {
	if err := Validate("hello", "hello", "en", "en"); err != nil {
		t.Errorf("same-language passthrough should be valid, got %v", err)
	}
}

func TestValidateRejectsWrongScriptResidue(t *testing.T) {
	if err := Validate("привет мир", "hello мир", "ru", "en"); err == nil {
		t.Error("expected error for Cyrillic residue in an English translation")
	}
}

func TestValidateAcceptsCleanCrossScriptTranslation(t *testing.T) {
	if err := Validate("привет мир", "hello world", "ru", "en"); err != nil {
		t.Errorf("clean translation should validate, got %v", err)
	}
}

// Interface compliance: every concrete adapter must satisfy Translator.
var (
	_ Translator  = (*OpenAIAdapter)(nil)
	_ Translator  = (*GeminiAdapter)(nil)
	_ Translator  = (*OpenRouterAdapter)(nil)
	_ Translator  = (*LocalLLMAdapter)(nil)
	_ Synthesizer = (*GTTSAdapter)(nil)
	_ Synthesizer = (*GoogleCloudTTSAdapter)(nil)
)

func TestLineFields(t *testing.T) {
	line := Line{ID: 10, Text: "Test line"}
	if line.ID != 10 || line.Text != "Test line" {
		t.Fatal("Line fields not set as expected")
	}
}

func TestTranslatorsAgreeOnSupportedLanguages(t *testing.T) {
	_ = context.Background()
	adapters := []Translator{
		NewOpenAIAdapter("k", "m", 0.3),
		NewGeminiAdapter("k", "m", 0.3),
		NewOpenRouterAdapter("k", "m", 0.3),
		NewLocalLLMAdapter("http://localhost:11434", "m", 0.3),
	}
	for _, a := range adapters {
		if len(a.SupportedLanguages()) == 0 {
			t.Errorf("%s: SupportedLanguages() returned empty list", a.Name())
		}
	}
}
