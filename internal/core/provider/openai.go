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

// OpenAIAdapter is a Translator backed by the OpenAI chat-completions API.
type OpenAIAdapter struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	temperature float64
	limiter     *ratelimiter.Limiter
	maxRetries  int
}

// NewOpenAIAdapter constructs an OpenAI-backed translator.
func NewOpenAIAdapter(apiKey, model string, temperature float64) *OpenAIAdapter {
	return &OpenAIAdapter{
		apiKey:      apiKey,
		model:       model,
		baseURL:     "https://api.openai.com/v1",
		client:      &http.Client{Timeout: 120 * time.Second},
		temperature: temperature,
		limiter:     ratelimiter.New(ratelimiter.DefaultConfig()),
		maxRetries:  5,
	}
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

func (o *OpenAIAdapter) Name() string { return "openai" }

func (o *OpenAIAdapter) SupportedLanguages() []string {
	return []string{"en", "ru", "es", "es-latam", "de", "fr", "pt-br"}
}

// Translate sends a single sentence through the chat-completions
// endpoint using a terse translation-only system prompt.
func (o *OpenAIAdapter) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
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

// TranslateBatch sends an entire batch as one minified-JSON payload and
// re-validates every returned item; items that fail validation are
// retranslated individually rather than failing the whole batch.
func (o *OpenAIAdapter) TranslateBatch(ctx context.Context, lines []Line, sourceLang, targetLang string) ([]Line, error) {
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

// complete issues one chat-completions request and classifies the
// outcome for the rate limiter: (content, retryable, error).
func (o *OpenAIAdapter) complete(ctx context.Context, systemPrompt, userContent string) (string, bool, error) {
	reqBody := openAIRequest{
		Model: o.model,
		Messages: []openAIMessage{
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
		return "", true, &ProviderError{Provider: "openai", Code: "network_error", Message: err.Error(), Retry: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	var apiResp openAIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", true, fmt.Errorf("parse response: %w", err)
	}

	if apiResp.Error != nil {
		code, retry := "unknown", false
		if apiResp.Error.Type == "insufficient_quota" || apiResp.Error.Code == "rate_limit_exceeded" {
			code, retry = "rate_limit", true
		} else if apiResp.Error.Type == "invalid_request_error" && apiResp.Error.Code == "invalid_api_key" {
			code = "invalid_key"
		}
		return "", retry, &ProviderError{Provider: "openai", Code: code, Message: apiResp.Error.Message, Retry: retry}
	}

	if len(apiResp.Choices) == 0 {
		return "", true, fmt.Errorf("no response from openai")
	}
	return apiResp.Choices[0].Message.Content, false, nil
}

// ValidateKey checks key validity by listing models.
func (o *OpenAIAdapter) ValidateKey(ctx context.Context) bool {
	models, err := o.ListModels(ctx)
	return err == nil && len(models) > 0
}

// ListModels returns GPT-family model IDs available to this key.
func (o *OpenAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Code: "network_error", Message: err.Error(), Retry: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "openai", Code: "invalid_key", Message: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Provider: "openai", Code: "http_error", Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body), Retry: resp.StatusCode >= 500}
	}

	var modelsResp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	var models []string
	for _, m := range modelsResp.Data {
		if len(m.ID) >= 3 && m.ID[:3] == "gpt" {
			models = append(models, m.ID)
		}
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no compatible GPT models found")
	}
	return models, nil
}
