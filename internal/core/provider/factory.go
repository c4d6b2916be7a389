package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/narrata-av/narrata/internal/config"
	"github.com/narrata-av/narrata/internal/core/store"
)

// Factory resolves a Translator and a Synthesizer from configuration
// once, at orchestrator construction, rather than dispatching on a
// provider-name string in the hot translate/synthesize paths.
type Factory struct {
	config *config.Config
	quota  *QuotaTracker
}

// NewFactory constructs a Factory. st may be nil, in which case quota
// accounting is a no-op.
func NewFactory(cfg *config.Config, st *store.Store) *Factory {
	var quota *QuotaTracker
	if st != nil {
		quota = NewQuotaTracker(st)
	}
	return &Factory{config: cfg, quota: quota}
}

// CreateTranslator resolves the configured translation backend.
func (f *Factory) CreateTranslator() (Translator, error) {
	if f.config == nil {
		return nil, fmt.Errorf("config is nil")
	}

	providerName := strings.ToLower(strings.TrimSpace(f.config.AIProvider))

	temperature := f.config.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	model := f.config.Model
	if model == "" && providerName != "local" && providerName != "ollama" && providerName != "lmstudio" {
		return nil, fmt.Errorf("model not configured")
	}

	switch providerName {
	case "openai":
		if f.config.APIKey == "" {
			return nil, fmt.Errorf("API key not configured for OpenAI")
		}
		return NewOpenAIAdapter(f.config.APIKey, model, temperature), nil

	case "openrouter":
		if f.config.APIKey == "" {
			return nil, fmt.Errorf("API key not configured for OpenRouter")
		}
		return NewOpenRouterAdapter(f.config.APIKey, model, temperature), nil

	case "gemini", "google", "google-gemini":
		if f.config.APIKey == "" {
			return nil, fmt.Errorf("API key not configured for Gemini")
		}
		return NewGeminiAdapter(f.config.APIKey, model, temperature), nil

	case "local", "ollama", "lmstudio":
		if f.config.LocalEndpoint == "" {
			return nil, fmt.Errorf("local endpoint not configured")
		}
		return NewLocalLLMAdapter(f.config.LocalEndpoint, model, temperature), nil

	default:
		return nil, fmt.Errorf("unsupported translation provider: %s (supported: openai, openrouter, gemini, local)", providerName)
	}
}

// CreateSynthesizer resolves the configured TTS backend.
func (f *Factory) CreateSynthesizer() (Synthesizer, error) {
	if f.config == nil {
		return nil, fmt.Errorf("config is nil")
	}

	providerName := strings.ToLower(strings.TrimSpace(f.config.TTSProvider))
	if providerName == "" {
		providerName = "gtts"
	}

	switch providerName {
	case "gtts":
		return NewGTTSAdapter(), nil

	case "google_cloud":
		if f.config.GoogleCloudAPIKey == "" {
			return nil, fmt.Errorf("API key not configured for Google Cloud TTS")
		}
		return NewGoogleCloudTTSAdapter(f.config.GoogleCloudAPIKey, f.quota), nil

	default:
		return nil, fmt.Errorf("unsupported tts provider: %s (supported: gtts, google_cloud)", providerName)
	}
}

// GetProviderInfo returns metadata about the currently configured
// translation provider.
func (f *Factory) GetProviderInfo() (*ProviderInfo, error) {
	if f.config == nil {
		return nil, fmt.Errorf("config is nil")
	}

	providerName := strings.ToLower(strings.TrimSpace(f.config.AIProvider))

	switch providerName {
	case "openai":
		return &ProviderInfo{Name: "OpenAI", Type: "cloud", RequiresKey: true, Endpoint: "https://api.openai.com/v1"}, nil

	case "openrouter":
		return &ProviderInfo{Name: "OpenRouter", Type: "cloud", RequiresKey: true, Endpoint: "https://openrouter.ai/api/v1"}, nil

	case "gemini", "google", "google-gemini":
		return &ProviderInfo{Name: "Google Gemini", Type: "cloud", RequiresKey: true, Endpoint: "https://generativelanguage.googleapis.com"}, nil

	case "local", "ollama", "lmstudio":
		endpoint := f.config.LocalEndpoint
		if endpoint == "" {
			endpoint = "http://localhost:11434"
		}
		return &ProviderInfo{Name: "Local LLM", Type: "local", RequiresKey: false, Endpoint: endpoint}, nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", providerName)
	}
}

// ValidateConfiguration constructs the configured translator and probes
// its credentials/reachability.
func (f *Factory) ValidateConfiguration(ctx context.Context) error {
	if f.config.AIProvider == "" {
		return fmt.Errorf("AI provider not configured")
	}

	translator, err := f.CreateTranslator()
	if err != nil {
		return fmt.Errorf("create translator: %w", err)
	}

	type keyValidator interface {
		ValidateKey(ctx context.Context) bool
	}
	if kv, ok := translator.(keyValidator); ok {
		if !kv.ValidateKey(ctx) {
			return fmt.Errorf("provider validation failed (check API key/endpoint)")
		}
	}
	return nil
}

// ListAvailableProviders returns every supported translation provider name.
func ListAvailableProviders() []string {
	return []string{"openai", "openrouter", "gemini", "local"}
}

// ListAvailableTTSProviders returns every supported TTS provider name.
func ListAvailableTTSProviders() []string {
	return []string{"gtts", "google_cloud"}
}
