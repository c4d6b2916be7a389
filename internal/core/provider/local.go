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

// LocalLLMAdapter is a Translator backed by a locally hosted chat
// endpoint compatible with Ollama/LMStudio's /api/chat shape.
type LocalLLMAdapter struct {
	endpoint    string
	model       string
	client      *http.Client
	temperature float64
	limiter     *ratelimiter.Limiter
	maxRetries  int
}

// NewLocalLLMAdapter constructs a local-server-backed translator.
func NewLocalLLMAdapter(endpoint, model string, temperature float64) *LocalLLMAdapter {
	return &LocalLLMAdapter{
		endpoint:    endpoint,
		model:       model,
		client:      &http.Client{Timeout: 300 * time.Second},
		temperature: temperature,
		limiter:     ratelimiter.New(ratelimiter.DefaultConfig()),
		maxRetries:  3,
	}
}

type localLLMRequest struct {
	Model       string            `json:"model"`
	Messages    []localLLMMessage `json:"messages"`
	Stream      bool              `json:"stream"`
	Temperature float64           `json:"temperature"`
}

type localLLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type localLLMResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

func (l *LocalLLMAdapter) Name() string { return "local" }

func (l *LocalLLMAdapter) SupportedLanguages() []string {
	return []string{"en", "ru", "es", "es-latam", "de", "fr", "pt-br"}
}

func (l *LocalLLMAdapter) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}
	systemPrompt := fmt.Sprintf("Translate from %s to %s. Return only the translation, nothing else.", sourceLang, targetLang)

	var translated string
	err := l.limiter.Do(l.maxRetries, func() (bool, error) {
		content, retryable, err := l.chat(ctx, systemPrompt, text)
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

func (l *LocalLLMAdapter) TranslateBatch(ctx context.Context, lines []Line, sourceLang, targetLang string) ([]Line, error) {
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
	err = l.limiter.Do(l.maxRetries, func() (bool, error) {
		content, retryable, err := l.chat(ctx, systemPrompt, string(payloadJSON))
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
	for _, ln := range lines {
		byID[ln.ID] = ln.Text
	}
	for i, r := range result {
		original, ok := byID[r.ID]
		if !ok {
			continue
		}
		if verr := Validate(original, r.Text, sourceLang, targetLang); verr != nil {
			retranslated, err := l.Translate(ctx, original, sourceLang, targetLang)
			if err != nil {
				return nil, fmt.Errorf("retranslate line %d after batch validation failure: %w", r.ID, err)
			}
			result[i].Text = retranslated
		}
	}
	return result, nil
}

func (l *LocalLLMAdapter) chat(ctx context.Context, systemPrompt, userContent string) (string, bool, error) {
	reqBody := localLLMRequest{
		Model: l.model,
		Messages: []localLLMMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userContent},
		},
		Stream:      false,
		Temperature: l.temperature,
	}
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.endpoint+"/api/chat", bytes.NewReader(reqJSON))
	if err != nil {
		return "", false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", true, &ProviderError{Provider: "local", Code: "network_error", Message: fmt.Sprintf("failed to connect to %s: %v", l.endpoint, err), Retry: true}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}

	var apiResp localLLMResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", true, fmt.Errorf("parse response: %w", err)
	}

	if apiResp.Error != "" {
		return "", false, &ProviderError{Provider: "local", Code: "inference_error", Message: apiResp.Error, Retry: false}
	}

	if apiResp.Message.Content == "" {
		return "", true, fmt.Errorf("empty response from local server")
	}
	return apiResp.Message.Content, false, nil
}

// ValidateKey checks whether the local server is reachable. Local
// backends take no credential, so this is a liveness probe.
func (l *LocalLLMAdapter) ValidateKey(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", l.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListModels returns model tags available on the local server.
func (l *LocalLLMAdapter) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", l.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "local", Code: "network_error", Message: err.Error(), Retry: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var tagsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	models := make([]string, len(tagsResp.Models))
	for i, m := range tagsResp.Models {
		models[i] = m.Name
	}
	return models, nil
}
