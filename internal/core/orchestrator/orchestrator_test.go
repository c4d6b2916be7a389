package orchestrator

import (
	"context"
	"os"
	"testing"

	"github.com/narrata-av/narrata/internal/core/provider"
	"github.com/narrata-av/narrata/internal/core/rareword"
	"github.com/narrata-av/narrata/internal/core/store"
)

// mockTranslator echoes each line prefixed with the target language
// code, so tests can assert on translated content deterministically.
type mockTranslator struct {
	failFirstN int
	calls      int
}

func (m *mockTranslator) Name() string                 { return "mock" }
func (m *mockTranslator) SupportedLanguages() []string { return []string{"en", "pt-br", "es"} }

func (m *mockTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return "[" + targetLang + "] " + text, nil
}

func (m *mockTranslator) TranslateBatch(ctx context.Context, texts []provider.Line, sourceLang, targetLang string) ([]provider.Line, error) {
	m.calls++
	if m.calls <= m.failFirstN {
		return nil, &provider.ProviderError{Provider: "mock", Code: "network_error", Message: "boom"}
	}
	out := make([]provider.Line, len(texts))
	for i, l := range texts {
		out[i] = provider.Line{ID: l.ID, Text: "[" + targetLang + "] " + l.Text}
	}
	return out, nil
}

type mockSynthesizer struct{}

func (m *mockSynthesizer) Name() string                 { return "mock-tts" }
func (m *mockSynthesizer) SupportedLanguages() []string { return []string{"en", "pt-br", "es"} }

func (m *mockSynthesizer) Synthesize(ctx context.Context, text, lang, outPath string) (int64, error) {
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return 0, err
	}
	return int64(100 + len(text)*10), nil
}

type mockAudioAssembler struct{}

func (m *mockAudioAssembler) Assemble(ctx context.Context, in AudioAssembleInput) (AudioAssembleResult, error) {
	if err := os.WriteFile(in.OutputPath, []byte("combined"), 0644); err != nil {
		return AudioAssembleResult{}, err
	}
	var timeline []TimelineEntry
	var cursor int64
	for _, s := range in.Sentences {
		start := cursor
		end := start + 1000
		timeline = append(timeline, TimelineEntry{SentenceIdx: s.Idx, StartMs: start, EndMs: end})
		cursor = end
	}
	return AudioAssembleResult{OutputPath: in.OutputPath, DurationMs: cursor, Timeline: timeline}, nil
}

type mockSubtitleBuilder struct{}

func (m *mockSubtitleBuilder) Build(ctx context.Context, in SubtitleBuildInput) (string, error) {
	return "[Script Info]\nmock subtitles", nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.Store) {
	t.Helper()
	dbPath := t.TempDir() + "/test.db"
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	o := New(st, &mockTranslator{}, &mockSynthesizer{}, Config{
		ProjectsDir: t.TempDir(),
		RareWords:   rareword.DefaultOptions(),
	})
	o.Audio = &mockAudioAssembler{}
	o.Subtitle = &mockSubtitleBuilder{}
	return o, st
}

func TestNewFillsDefaults(t *testing.T) {
	st, err := store.Open(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	o := New(st, &mockTranslator{}, &mockSynthesizer{}, Config{})
	if o.Config.TranslationParallel == 0 {
		t.Error("expected default TranslationParallel")
	}
	if o.Config.BatchSize != 50 {
		t.Errorf("expected default BatchSize 50, got %d", o.Config.BatchSize)
	}
	if o.Config.ProjectsDir == "" {
		t.Error("expected default ProjectsDir")
	}
}

func TestRunSentencesStep(t *testing.T) {
	o, st := newTestOrchestrator(t)

	err := o.Run(context.Background(), RunOptions{
		Slug:       "test-project",
		SourceLang: "en",
		TargetLang: "pt-br",
		SourceText: "Hello there. How are you?",
		StopAfter:  "sentences",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sentences, err := st.GetSentences("test-project", "en")
	if err != nil {
		t.Fatalf("GetSentences failed: %v", err)
	}
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %v", len(sentences), sentences)
	}

	p, err := st.Progress("test-project", "sentences")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if p.Status != store.StepComplete {
		t.Errorf("expected sentences step complete, got %s", p.Status)
	}
}

func TestRunSkipsCompletedSteps(t *testing.T) {
	o, st := newTestOrchestrator(t)
	ctx := context.Background()

	opts := RunOptions{
		Slug:       "skip-project",
		SourceLang: "en",
		TargetLang: "pt-br",
		SourceText: "Hello there.",
		StopAfter:  "sentences",
	}
	if err := o.Run(ctx, opts); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	var logged []string
	o.LogFunc = func(msg string) { logged = append(logged, msg) }

	if err := o.Run(ctx, opts); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	found := false
	for _, msg := range logged {
		if msg == `sentences: already complete, skipping` {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a skip log for the completed sentences step, got %v", logged)
	}

	_ = st
}

func TestTranslationStepWithRetry(t *testing.T) {
	o, st := newTestOrchestrator(t)
	translator := &mockTranslator{failFirstN: 1}
	o.Translator = translator

	err := o.Run(context.Background(), RunOptions{
		Slug:       "retry-project",
		SourceLang: "en",
		TargetLang: "pt-br",
		SourceText: "Hello there. How are you? This is fine.",
		StopAfter:  "translations",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sentences, _ := st.GetSentences("retry-project", "en")
	for i := range sentences {
		text, found, err := st.GetTranslation("retry-project", i)
		if err != nil {
			t.Fatalf("GetTranslation failed: %v", err)
		}
		if !found {
			t.Fatalf("expected translation for sentence %d", i)
		}
		if text == "" {
			t.Errorf("expected non-empty translation for sentence %d", i)
		}
	}
}

func TestFullPipelineRun(t *testing.T) {
	o, st := newTestOrchestrator(t)

	err := o.Run(context.Background(), RunOptions{
		Slug:       "full-project",
		SourceLang: "en",
		TargetLang: "pt-br",
		SourceText: "The quick fox ran. It jumped over the lazy dog.",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	all, err := st.AllProgress("full-project")
	if err != nil {
		t.Fatalf("AllProgress failed: %v", err)
	}
	for _, p := range all {
		if p.Status != store.StepComplete {
			t.Errorf("step %s not complete: %+v", p.Step, p)
		}
	}

	art, found, err := st.GetArtifact("full-project", "audio_combined", "final")
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	if !found {
		t.Fatal("expected a combined audio artifact")
	}
	if _, err := os.Stat(art.Path); err != nil {
		t.Errorf("combined audio file missing: %v", err)
	}
}

func TestStopAfterHaltsPipeline(t *testing.T) {
	o, st := newTestOrchestrator(t)

	err := o.Run(context.Background(), RunOptions{
		Slug:       "stop-project",
		SourceLang: "en",
		TargetLang: "pt-br",
		SourceText: "Hello there. Goodbye now.",
		StopAfter:  "translations",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	p, err := st.Progress("stop-project", "rare_words_extract")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if p.Status == store.StepComplete {
		t.Error("expected rare_words_extract to remain pending after StopAfter=translations")
	}
}

func TestForceResetsStep(t *testing.T) {
	o, st := newTestOrchestrator(t)
	ctx := context.Background()

	opts := RunOptions{
		Slug:       "force-project",
		SourceLang: "en",
		TargetLang: "pt-br",
		SourceText: "Hello there.",
		StopAfter:  "sentences",
	}
	if err := o.Run(ctx, opts); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	opts.Force = []string{"sentences"}
	if err := o.Run(ctx, opts); err != nil {
		t.Fatalf("forced run failed: %v", err)
	}

	p, err := st.Progress("force-project", "sentences")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if p.Status != store.StepComplete {
		t.Errorf("expected sentences re-completed after force, got %s", p.Status)
	}
}

func TestChunkInts(t *testing.T) {
	chunks := chunkInts([]int{0, 1, 2, 3, 4, 5, 6}, 3)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 3 || len(chunks[2]) != 1 {
		t.Errorf("unexpected chunk sizes: %v", chunks)
	}
}

func TestTranslateBatchWithRetryGivesUpOnSingleLine(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	o.Translator = &mockTranslator{failFirstN: 1000}

	_, err := o.translateBatchWithRetry(context.Background(), []provider.Line{{ID: 0, Text: "hi"}}, "en", "pt-br", 0)
	if err == nil {
		t.Error("expected an error once retries are exhausted on a single-line batch")
	}
}
