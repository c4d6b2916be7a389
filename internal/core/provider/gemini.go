package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/narrata-av/narrata/internal/core/ratelimiter"
)

// GeminiAdapter is a Translator backed by Google's Gemini REST API.
type GeminiAdapter struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	temperature float64
	limiter     *ratelimiter.Limiter
	maxRetries  int
}

// NewGeminiAdapter constructs a Gemini-backed translator.
func NewGeminiAdapter(apiKey, model string, temperature float64) *GeminiAdapter {
	return &GeminiAdapter{
		apiKey:      apiKey,
		model:       model,
		baseURL:     "https://generativelanguage.googleapis.com/v1beta",
		client:      &http.Client{Timeout: 120 * time.Second},
		temperature: temperature,
		limiter:     ratelimiter.New(ratelimiter.DefaultConfig()),
		maxRetries:  5,
	}
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (g *GeminiAdapter) Name() string { return "gemini" }

func (g *GeminiAdapter) SupportedLanguages() []string {
	return []string{"en", "ru", "es", "es-latam", "de", "fr", "pt-br"}
}

func (g *GeminiAdapter) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}
	prompt := fmt.Sprintf("Translate from %s to %s. Return only the translation, nothing else.\n\n%s", sourceLang, targetLang, text)

	var translated string
	err := g.limiter.Do(g.maxRetries, func() (bool, error) {
		content, retryable, err := g.generate(ctx, prompt)
		if err != nil {
			return retryable, err
		}
		translated = content
		return false, nil
	})
	if err != nil {
		return "", err
	}
	if err := Validate(text, translated, sourceLang, targetLang); err != nil {
		return "", err
	}
	return translated, nil
}

func (g *GeminiAdapter) TranslateBatch(ctx context.Context, lines []Line, sourceLang, targetLang string) ([]Line, error) {
	if sourceLang == targetLang {
		return lines, nil
	}

	payloadJSON, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	prompt := fmt.Sprintf(
		"Translate the \"t\" field of each JSON object from %s to %s, preserving \"i\". Return a JSON array of the same shape, nothing else.\n\n%s",
		sourceLang, targetLang, payloadJSON)

	var result []Line
	err = g.limiter.Do(g.maxRetries, func() (bool, error) {
		content, retryable, err := g.generate(ctx, prompt)
		if err != nil {
			return retryable, err
		}
		var parsed []Line
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return true, fmt.Errorf("parse translated batch: %w", err)
		}
		result = parsed
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[int]string, len(lines))
	for _, l := range lines {
		byID[l.ID] = l.Text
	}
	for i, r := range result {
		original, ok := byID[r.ID]
		if !ok {
			continue
		}
		if verr := Validate(original, r.Text, sourceLang, targetLang); verr != nil {
			retranslated, err := g.Translate(ctx, original, sourceLang, targetLang)
			if err != nil {
				return nil, fmt.Errorf("retranslate line %d after batch validation failure: %w", r.ID, err)
			}
			result[i].Text = retranslated
		}
	}
	return result, nil
}

func (g *GeminiAdapter) generate(ctx context.Context, prompt string) (string, bool, error) {
	reqBody := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenConfig{Temperature: g.temperature},
	}
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqJSON))
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", true, &ProviderError{Provider: "gemini", Code: "network_error", Message: err.Error(), Retry: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	var apiResp geminiResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", true, fmt.Errorf("parse response: %w", err)
	}

	if apiResp.Error != nil {
		code := "unknown"
		if apiResp.Error.Code == 429 {
			code = "rate_limit"
		} else if apiResp.Error.Code == 401 || apiResp.Error.Code == 403 {
			code = "invalid_key"
		}
		retry := apiResp.Error.Code == 429 || apiResp.Error.Code >= 500
		return "", retry, &ProviderError{Provider: "gemini", Code: code, Message: apiResp.Error.Message, Retry: retry}
	}

	if len(apiResp.Candidates) == 0 {
		return "", true, fmt.Errorf("no candidates in response")
	}
	var content string
	for _, part := range apiResp.Candidates[0].Content.Parts {
		content += part.Text
	}
	if content == "" {
		return "", true, fmt.Errorf("no text content in response")
	}
	return content, false, nil
}

// ValidateKey checks key validity by listing models.
func (g *GeminiAdapter) ValidateKey(ctx context.Context) bool {
	models, err := g.ListModels(ctx)
	return err == nil && len(models) > 0
}

// ListModels returns Gemini-family model names available to this key.
func (g *GeminiAdapter) ListModels(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s/models?key=%s", g.baseURL, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "gemini", Code: "network_error", Message: err.Error(), Retry: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "gemini", Code: "invalid_key", Message: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "gemini", Code: "http_error", Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body), Retry: resp.StatusCode >= 500}
	}

	var modelsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	var models []string
	for _, m := range modelsResp.Models {
		if strings.Contains(m.Name, "gemini") {
			models = append(models, strings.TrimPrefix(m.Name, "models/"))
		}
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no compatible models found")
	}
	return models, nil
}
