package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"video-assistant/internal/assistant"
	"video-assistant/internal/classifier"
	"video-assistant/internal/config"
	"video-assistant/internal/llm"
	"video-assistant/internal/memory"
	"video-assistant/internal/server"
	"video-assistant/internal/telemetry"
	"video-assistant/internal/transcript"
	"video-assistant/internal/ui"
)

// options are the command-line settings that are not part of the config file
type options struct {
	configPath string
	serve      bool
	videoID    string
	startAt    string
}

func main() {
	// Set the GetEnv function for config
	config.GetEnv = os.Getenv

	opts, cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg, opts.serve)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags loads the config file and environment, then applies the flags
// that were set explicitly on the command line
func parseFlags() (options, *config.Config, error) {
	var opts options
	defaults := config.NewConfig()

	flag.StringVar(&opts.configPath, "config", config.DefaultPath(), "Path to the YAML config file")
	flag.BoolVar(&opts.serve, "serve", false, "Run the HTTP API instead of the interactive session")
	flag.StringVar(&opts.videoID, "video", "", "YouTube video ID for the interactive session")
	flag.StringVar(&opts.startAt, "at", "00:00", "Initial playback position (MM:SS)")

	provider := flag.String("provider", defaults.Provider, "Completion provider (ollama, openai)")
	model := flag.String("model", "", "Model name for the selected provider")
	ollamaURL := flag.String("ollama-url", defaults.OllamaURL, "Ollama API URL")
	mode := flag.String("mode", defaults.DefaultMode, "Answer mode (contextual, memory, multi_agent)")
	classifierName := flag.String("classifier", defaults.Classifier, "Question classifier (llm, heuristic)")
	transcriptDir := flag.String("transcript-dir", "", "Read transcripts from <dir>/<video>.json instead of YouTube")
	addr := flag.String("addr", defaults.ListenAddr, "HTTP listen address")
	timeoutSeconds := flag.Int("timeout", int(defaults.LLMTimeout.Seconds()), "Completion request timeout in seconds")
	verbose := flag.Bool("verbose", defaults.Verbose, "Enable verbose logging")

	flag.Parse()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return opts, nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "provider":
			cfg.Provider = *provider
		case "model":
			if *provider == llm.ProviderOpenAI || cfg.Provider == llm.ProviderOpenAI {
				cfg.OpenAIModel = *model
			} else {
				cfg.OllamaModel = *model
			}
		case "ollama-url":
			cfg.OllamaURL = *ollamaURL
		case "mode":
			cfg.DefaultMode = *mode
		case "classifier":
			cfg.Classifier = *classifierName
		case "transcript-dir":
			cfg.TranscriptSource = config.SourceDir
			cfg.TranscriptDir = *transcriptDir
		case "addr":
			cfg.ListenAddr = *addr
		case "timeout":
			cfg.LLMTimeout = time.Duration(*timeoutSeconds) * time.Second
		case "verbose":
			cfg.Verbose = *verbose
		}
	})

	if err := cfg.Validate(); err != nil {
		return opts, nil, err
	}
	if !opts.serve && opts.videoID == "" {
		return opts, nil, errors.New("either -serve or -video <id> is required")
	}
	return opts, cfg, nil
}

// newLogger logs JSON in server mode and text otherwise. The interactive
// session only shows warnings unless verbose is set.
func newLogger(cfg *config.Config, serve bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.Verbose {
		level = slog.LevelDebug
	} else if !serve && level < slog.LevelWarn {
		level = slog.LevelWarn
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if serve {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
}

func run(ctx context.Context, opts options, cfg *config.Config, logger *slog.Logger) error {
	provider, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	metrics, err := telemetry.NewMetrics(provider.Meter)
	if err != nil {
		return fmt.Errorf("create metrics: %w", err)
	}

	completer, err := llm.New(cfg.LLMConfig(), llm.WithTimeout(cfg.LLMTimeout))
	if err != nil {
		return err
	}
	if ollama, ok := completer.(*llm.OllamaClient); ok {
		if err := ollama.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%w (make sure Ollama is running: ollama serve)", err)
		}
		if err := ollama.CheckModel(ctx); err != nil {
			return fmt.Errorf("%w (pull it with: ollama pull %s)", err, cfg.OllamaModel)
		}
	}

	store := memory.NewStore(cfg.MaxMessages, cfg.SessionTimeout)
	cleanup := memory.NewCleanupService(memory.CleanupConfig{
		Store:    store,
		Schedule: cfg.CleanupSchedule,
		Logger:   logger,
		OnCleanup: func(ctx context.Context, removed int) {
			metrics.SessionsCleaned.Add(ctx, int64(removed))
		},
	})
	if err := cleanup.Start(ctx); err != nil {
		return fmt.Errorf("start memory cleanup: %w", err)
	}
	defer cleanup.Stop()

	asst, err := assistant.New(assistant.Config{
		Source:      newSource(cfg),
		Completer:   completer,
		Store:       store,
		Classifier:  newClassifier(cfg, completer, logger),
		Window:      cfg.Window,
		DefaultMode: cfg.DefaultMode,
		Tracer:      provider.Tracer,
		Metrics:     metrics,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	watchConfig(ctx, opts.configPath, asst, logger)

	if opts.serve {
		return server.New(server.Config{
			Addr:           cfg.ListenAddr,
			Assistant:      asst,
			AllowedOrigins: cfg.AllowedOrigins,
			MaxBodyBytes:   cfg.MaxBodyBytes,
			Tracer:         provider.Tracer,
			Metrics:        metrics,
			Logger:         logger,
		}).Run(ctx)
	}

	return runInteractive(ctx, ui.NewDisplay(), asst, session{
		videoID: opts.videoID,
		model:   cfg.Model(),
		startAt: opts.startAt,
	})
}

func newSource(cfg *config.Config) transcript.Source {
	if cfg.TranscriptSource == config.SourceDir {
		return transcript.NewDirSource(cfg.TranscriptDir)
	}
	return transcript.NewYouTubeSource(cfg.YouTubeURL, cfg.FetchTimeout, cfg.MaxContentSize, cfg.UserAgent, cfg.Languages)
}

func newClassifier(cfg *config.Config, completer llm.Completer, logger *slog.Logger) classifier.Classifier {
	if cfg.Classifier == config.ClassifierHeuristic {
		return classifier.NewHeuristicClassifier()
	}
	return classifier.NewLLMClassifier(completer, logger)
}

// watchConfig reloads the window options whenever the config file changes
func watchConfig(ctx context.Context, path string, asst *assistant.Assistant, logger *slog.Logger) {
	watcher := config.NewWatcher(path, logger)
	if err := watcher.Start(ctx); err != nil {
		logger.Debug("config watcher disabled", slog.String("path", path), slog.Any("error", err))
		return
	}

	go func() {
		for range watcher.Events() {
			cfg, err := config.Load(path)
			if err != nil {
				logger.Warn("config reload failed", slog.Any("error", err))
				continue
			}
			asst.SetWindowOptions(cfg.Window)
			logger.Info("window options reloaded",
				slog.Float64("priority_before", cfg.Window.PriorityBefore),
				slog.Float64("priority_after", cfg.Window.PriorityAfter),
			)
		}
	}()
}
