package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/narrata-av/narrata/internal/config"
	"github.com/narrata-av/narrata/internal/core/audio"
	"github.com/narrata-av/narrata/internal/core/orchestrator"
	"github.com/narrata-av/narrata/internal/core/provider"
	"github.com/narrata-av/narrata/internal/core/rareword"
	"github.com/narrata-av/narrata/internal/core/store"
	"github.com/narrata-av/narrata/internal/core/subtitle"
	"github.com/narrata-av/narrata/internal/core/tokenizer"
	"github.com/narrata-av/narrata/internal/core/toolchain"
	"github.com/narrata-av/narrata/internal/progress"
	"github.com/narrata-av/narrata/pkg/utils"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("narrata %s\n", utils.Version)
		return
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	utils.SafeRun(func() {
		var err error
		switch os.Args[1] {
		case "run":
			err = runCmd(os.Args[2:])
		case "resume":
			err = resumeCmd(os.Args[2:])
		case "list":
			err = listCmd(os.Args[2:])
		default:
			printUsage()
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	})
}

func printUsage() {
	fmt.Println("narrata - bilingual audiobook video pipeline")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  narrata run --slug NAME --source-lang en --target-lang pt-br --text FILE")
	fmt.Println("  narrata resume --slug NAME")
	fmt.Println("  narrata list")
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	slug := fs.String("slug", "", "project slug (required)")
	sourceLang := fs.String("source-lang", "en", "source language code")
	targetLang := fs.String("target-lang", "pt-br", "target language code")
	textPath := fs.String("text", "", "path to the plain-text source file (required)")
	stopAfter := fs.String("stop-after", "", "stop once this step completes")
	force := fs.String("force", "", "comma-separated steps to force-rerun")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug == "" || *textPath == "" {
		return fmt.Errorf("run requires --slug and --text")
	}

	text, err := os.ReadFile(*textPath)
	if err != nil {
		return fmt.Errorf("read source text: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	estimate := tokenizer.NewEstimator().EstimateCost(strings.Split(string(text), "\n"), cfg.Model)
	fmt.Printf("estimated translation cost: %s (%d tokens)\n", estimate.FormattedCost, estimate.TotalTokens)

	orch, st, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := signalContext()
	defer cancel()

	var forceSteps []string
	if *force != "" {
		forceSteps = strings.Split(*force, ",")
	}

	return orch.Run(ctx, orchestrator.RunOptions{
		Slug:       *slug,
		SourceLang: *sourceLang,
		TargetLang: *targetLang,
		SourceText: string(text),
		StopAfter:  *stopAfter,
		Force:      forceSteps,
	})
}

func resumeCmd(args []string) error {
	fs := flag.NewFlagSet("resume", flag.ExitOnError)
	slug := fs.String("slug", "", "project slug (required)")
	stopAfter := fs.String("stop-after", "", "stop once this step completes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *slug == "" {
		return fmt.Errorf("resume requires --slug")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	orch, st, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	proj, err := st.CreateOrOpen(*slug, "", "")
	if err != nil {
		return fmt.Errorf("open project %q: %w", *slug, err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	return orch.Run(ctx, orchestrator.RunOptions{
		Slug:       *slug,
		SourceLang: proj.SourceLang,
		TargetLang: proj.TargetLang,
		SourceText: proj.OriginalText,
		StopAfter:  *stopAfter,
	})
}

func listCmd(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(storePath(cfg))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	projects, err := st.ListProjects()
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("no projects yet")
		return nil
	}

	for _, p := range projects {
		steps, err := st.AllProgress(p.Slug)
		if err != nil {
			return fmt.Errorf("progress for %q: %w", p.Slug, err)
		}
		completed := 0
		for _, s := range steps {
			if s.Status == store.StepComplete {
				completed++
			}
		}
		fmt.Printf("%-24s %s -> %s  %d/%d steps  %d sentences\n",
			p.Slug, p.SourceLang, p.TargetLang, completed, len(steps), p.TotalSentences)
	}
	return nil
}

// buildOrchestrator wires config, store, provider factory, the audio
// assembler, and the subtitle builder into a ready-to-run Orchestrator.
func buildOrchestrator(cfg *config.Config) (*orchestrator.Orchestrator, *store.Store, error) {
	if _, err := toolchain.Check(); err != nil {
		return nil, nil, fmt.Errorf("check toolchain: %w", err)
	}

	st, err := store.Open(storePath(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	factory := provider.NewFactory(cfg, st)
	translator, err := factory.CreateTranslator()
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("create translator: %w", err)
	}
	synthesizer, err := factory.CreateSynthesizer()
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("create synthesizer: %w", err)
	}

	orchCfg := orchestrator.Config{
		TranslationParallel:  cfg.TranslationParallel,
		TTSParallel:          cfg.TTSParallel,
		CombineWorkers:       cfg.CombineWorkers,
		VideoWorkers:         cfg.VideoWorkers,
		BatchSize:            cfg.BatchSize,
		SentenceMaxLen:       cfg.SentenceMaxLen,
		WordCardsEnabled:     cfg.WordCardsEnabled,
		RareWords: rareword.Options{
			ZipfThreshold:  cfg.RareWords.ZipfThreshold,
			MinZipf:        cfg.RareWords.MinZipf,
			TargetAvg:      cfg.RareWords.TargetAvg,
			MaxPerSentence: cfg.RareWords.MaxPerSentence,
			MinPerSentence: cfg.RareWords.MinPerSentence,
		},
		SourceTempo:          cfg.Audio.SourceTempo,
		TargetTempo:          cfg.Audio.TargetTempo,
		InterLanguagePauseMs: cfg.Audio.InterLanguagePauseMs,
		InterSentencePauseMs: cfg.Audio.InterSentencePauseMs,
		PreWordcardPauseMs:   cfg.Audio.PreWordcardPauseMs,
		InterWordPauseMs:     cfg.Audio.InterWordPauseMs,
		ProjectsDir:          cfg.ProjectsDir,
	}

	orch := orchestrator.New(st, translator, synthesizer, orchCfg)
	orch.Audio = audio.NewAssembler(filepath.Join(cfg.ProjectsDir, ".scratch"))
	orch.Subtitle = subtitle.NewBuilder()

	printer := progress.NewPrinter(os.Stdout)
	orch.ProgressFunc = printer.Handle
	orch.LogFunc = printer.Log

	return orch, st, nil
}

func storePath(cfg *config.Config) string {
	return filepath.Join(cfg.ProjectsDir, "narrata.db")
}

// signalContext returns a context canceled on SIGINT/SIGTERM so a
// running pipeline stops at the next step boundary instead of being
// killed mid-write.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
