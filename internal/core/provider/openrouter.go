package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/narrata-av/narrata/internal/core/ratelimiter"
)

// OpenRouterAdapter is a Translator backed by the OpenRouter API, which
// mirrors the OpenAI chat-completions wire format across many backing
// models.
type OpenRouterAdapter struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	temperature float64
	limiter     *ratelimiter.Limiter
	maxRetries  int
}

// NewOpenRouterAdapter constructs an OpenRouter-backed translator.
func NewOpenRouterAdapter(apiKey, model string, temperature float64) *OpenRouterAdapter {
	return &OpenRouterAdapter{
		apiKey:      apiKey,
		model:       model,
		baseURL:     "https://openrouter.ai/api/v1",
		client:      &http.Client{Timeout: 120 * time.Second},
		temperature: temperature,
		limiter:     ratelimiter.New(ratelimiter.DefaultConfig()),
		maxRetries:  5,
	}
}

type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (o *OpenRouterAdapter) Name() string { return "openrouter" }

func (o *OpenRouterAdapter) SupportedLanguages() []string {
	return []string{"en", "ru", "es", "es-latam", "de", "fr", "pt-br"}
}

func (o *OpenRouterAdapter) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}
	systemPrompt := fmt.Sprintf("Translate from %s to %s. Return only the translation, nothing else.", sourceLang, targetLang)

	var translated string
	err := o.limiter.Do(o.maxRetries, func() (bool, error) {
		content, retryable, err := o.complete(ctx, systemPrompt, text)
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

func (o *OpenRouterAdapter) TranslateBatch(ctx context.Context, lines []Line, sourceLang, targetLang string) ([]Line, error) {
	if sourceLang == targetLang {
		return lines, nil
	}

	systemPrompt := fmt.Sprintf(
		"Translate the \"t\" field of each JSON object from %s to %s, preserving \"i\". Return a JSON array of the same shape, nothing else.",
		sourceLang, targetLang)
	payloadJSON, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var result []Line
	err = o.limiter.Do(o.maxRetries, func() (bool, error) {
		content, retryable, err := o.complete(ctx, systemPrompt, string(payloadJSON))
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
			retranslated, err := o.Translate(ctx, original, sourceLang, targetLang)
			if err != nil {
				return nil, fmt.Errorf("retranslate line %d after batch validation failure: %w", r.ID, err)
			}
			result[i].Text = retranslated
		}
	}
	return result, nil
}

func (o *OpenRouterAdapter) complete(ctx context.Context, systemPrompt, userContent string) (string, bool, error) {
	reqBody := openRouterRequest{
		Model: o.model,
		Messages: []openRouterMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Temperature: o.temperature,
	}
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewReader(reqJSON))
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", true, &ProviderError{Provider: "openrouter", Code: "network_error", Message: err.Error(), Retry: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	var apiResp openRouterResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", true, fmt.Errorf("parse response: %w", err)
	}

	if apiResp.Error != nil {
		code := "unknown"
		if apiResp.Error.Code == 429 {
			code = "rate_limit"
		} else if apiResp.Error.Code == 401 {
			code = "invalid_key"
		}
		retry := apiResp.Error.Code == 429 || apiResp.Error.Code >= 500
		return "", retry, &ProviderError{Provider: "openrouter", Code: code, Message: apiResp.Error.Message, Retry: retry}
	}

	if len(apiResp.Choices) == 0 {
		return "", true, fmt.Errorf("no response from openrouter")
	}
	return apiResp.Choices[0].Message.Content, false, nil
}

// ValidateKey checks key validity against OpenRouter's key-info endpoint.
func (o *OpenRouterAdapter) ValidateKey(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/auth/key", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns model IDs available through OpenRouter.
func (o *OpenRouterAdapter) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "openrouter", Code: "network_error", Message: err.Error(), Retry: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "openrouter", Code: "http_error", Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body), Retry: resp.StatusCode >= 500}
	}

	var modelsResp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	models := make([]string, len(modelsResp.Data))
	for i, m := range modelsResp.Data {
		models[i] = m.ID
	}
	return models, nil
}
