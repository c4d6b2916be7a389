package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/narrata-av/narrata/internal/core/ratelimiter"
)

// gttsLangMap mirrors gTTS's base-language-only alphabet; es-latam has
// no distinct gTTS voice, so it collapses onto "es" same as upstream.
var gttsLangMap = map[string]string{
	"ru":       "ru",
	"en":       "en",
	"es":       "es",
	"es-latam": "es",
	"de":       "de",
	"fr":       "fr",
	"pt-br":    "pt",
}

// GTTSAdapter is a Synthesizer backed by the unauthenticated Google
// Translate text-to-speech endpoint.
type GTTSAdapter struct {
	client     *http.Client
	limiter    *ratelimiter.Limiter
	maxRetries int
}

// NewGTTSAdapter constructs a gTTS-backed synthesizer.
func NewGTTSAdapter() *GTTSAdapter {
	return &GTTSAdapter{
		client:     &http.Client{Timeout: 60 * time.Second},
		limiter:    ratelimiter.New(ratelimiter.DefaultConfig()),
		maxRetries: 5,
	}
}

func (g *GTTSAdapter) Name() string { return "gtts" }

func (g *GTTSAdapter) SupportedLanguages() []string {
	langs := make([]string, 0, len(gttsLangMap))
	for l := range gttsLangMap {
		langs = append(langs, l)
	}
	return langs
}

func (g *GTTSAdapter) Synthesize(ctx context.Context, text, lang, outPath string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, &ValidationError{Reason: "empty text for synthesis"}
	}
	langCode, ok := gttsLangMap[lang]
	if !ok {
		langCode = lang
	}

	err := g.limiter.Do(g.maxRetries, func() (bool, error) {
		return g.fetch(ctx, text, langCode, outPath)
	})
	if err != nil {
		return 0, err
	}
	return probeDurationMs(ctx, outPath)
}

func (g *GTTSAdapter) fetch(ctx context.Context, text, langCode, outPath string) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return false, fmt.Errorf("create output dir: %w", err)
	}

	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("client", "tw-ob")
	params.Set("tl", langCode)
	params.Set("q", text)
	reqURL := "https://translate.google.com/translate_tts?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.client.Do(req)
	if err != nil {
		return true, &ProviderError{Provider: "gtts", Code: "network_error", Message: err.Error(), Retry: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, &ProviderError{Provider: "gtts", Code: "rate_limit", Message: "too many requests", Retry: true}
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode >= 500, &ProviderError{Provider: "gtts", Code: "http_error", Message: fmt.Sprintf("HTTP %d", resp.StatusCode), Retry: resp.StatusCode >= 500}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return false, fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if _, err := f.ReadFrom(resp.Body); err != nil {
		return true, fmt.Errorf("write audio: %w", err)
	}
	return false, nil
}

// googleCloudVoiceMap mirrors google_cloud_provider.py's VOICE_MAP,
// distinguishing European (es) from Latin American (es-latam) Spanish,
// which gTTS cannot.
var googleCloudVoiceMap = map[string][2]string{
	"ru":       {"ru-RU", "ru-RU-Standard-A"},
	"es":       {"es-ES", "es-ES-Standard-A"},
	"es-latam": {"es-US", "es-US-Standard-A"},
	"en":       {"en-US", "en-US-Standard-C"},
	"pt-br":    {"pt-BR", "pt-BR-Standard-A"},
	"de":       {"de-DE", "de-DE-Standard-A"},
	"fr":       {"fr-FR", "fr-FR-Standard-A"},
}

// GoogleCloudTTSAdapter is a Synthesizer backed by the Google Cloud
// Text-to-Speech REST API.
type GoogleCloudTTSAdapter struct {
	apiKey     string
	client     *http.Client
	limiter    *ratelimiter.Limiter
	maxRetries int
	quota      *QuotaTracker
}

// NewGoogleCloudTTSAdapter constructs a Google Cloud TTS synthesizer.
// apiKey is an API-key credential (the REST API's simplest auth mode);
// service-account JSON auth is out of scope for a CLI pipeline.
func NewGoogleCloudTTSAdapter(apiKey string, quota *QuotaTracker) *GoogleCloudTTSAdapter {
	return &GoogleCloudTTSAdapter{
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 60 * time.Second},
		limiter:    ratelimiter.New(ratelimiter.DefaultConfig()),
		maxRetries: 5,
		quota:      quota,
	}
}

func (gc *GoogleCloudTTSAdapter) Name() string { return "google_cloud" }

func (gc *GoogleCloudTTSAdapter) SupportedLanguages() []string {
	langs := make([]string, 0, len(googleCloudVoiceMap))
	for l := range googleCloudVoiceMap {
		langs = append(langs, l)
	}
	return langs
}

type googleCloudTTSRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string  `json:"audioEncoding"`
		SpeakingRate  float64 `json:"speakingRate"`
		Pitch         float64 `json:"pitch"`
	} `json:"audioConfig"`
}

type googleCloudTTSResponse struct {
	AudioContent string `json:"audioContent"`
	Error        *struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (gc *GoogleCloudTTSAdapter) Synthesize(ctx context.Context, text, lang, outPath string) (int64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, &ValidationError{Reason: "empty text for synthesis"}
	}
	voice, ok := googleCloudVoiceMap[lang]
	if !ok {
		return 0, &ValidationError{Reason: fmt.Sprintf("unsupported language for google_cloud tts: %s", lang)}
	}

	err := gc.limiter.Do(gc.maxRetries, func() (bool, error) {
		return gc.synthesizeOnce(ctx, text, voice, outPath)
	})
	if err != nil {
		return 0, err
	}

	if gc.quota != nil {
		gc.quota.AddUsage("google_tts", len(text))
	}
	return probeDurationMs(ctx, outPath)
}

func (gc *GoogleCloudTTSAdapter) synthesizeOnce(ctx context.Context, text string, voice [2]string, outPath string) (bool, error) {
	reqBody := googleCloudTTSRequest{}
	reqBody.Input.Text = text
	reqBody.Voice.LanguageCode = voice[0]
	reqBody.Voice.Name = voice[1]
	reqBody.AudioConfig.AudioEncoding = "MP3"
	reqBody.AudioConfig.SpeakingRate = 1.0

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return false, fmt.Errorf("marshal request: %w", err)
	}

	reqURL := "https://texttospeech.googleapis.com/v1/text:synthesize?key=" + gc.apiKey
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, strings.NewReader(string(reqJSON)))
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := gc.client.Do(req)
	if err != nil {
		return true, &ProviderError{Provider: "google_cloud", Code: "network_error", Message: err.Error(), Retry: true}
	}
	defer resp.Body.Close()

	var apiResp googleCloudTTSResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return true, fmt.Errorf("parse response: %w", err)
	}

	if apiResp.Error != nil {
		retry := apiResp.Error.Status == "RESOURCE_EXHAUSTED" || resp.StatusCode >= 500
		code := "unknown"
		if apiResp.Error.Status == "RESOURCE_EXHAUSTED" {
			code = "rate_limit"
		} else if apiResp.Error.Status == "PERMISSION_DENIED" || apiResp.Error.Status == "UNAUTHENTICATED" {
			code = "invalid_key"
		}
		return retry, &ProviderError{Provider: "google_cloud", Code: code, Message: apiResp.Error.Message, Retry: retry}
	}

	audio, err := base64.StdEncoding.DecodeString(apiResp.AudioContent)
	if err != nil {
		return false, fmt.Errorf("decode audio content: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return false, fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(outPath, audio, 0o644); err != nil {
		return false, fmt.Errorf("write audio: %w", err)
	}
	return false, nil
}

// probeDurationMs shells out to ffprobe to read the container duration
// of a just-written audio file, the same approach audio artifact
// validation uses.
func probeDurationMs(ctx context.Context, path string) (int64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "quiet",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return int64(seconds * 1000), nil
}
