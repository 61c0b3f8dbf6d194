package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"video-assistant/internal/assistant"
	"video-assistant/internal/llm"
	"video-assistant/internal/telemetry"
	"video-assistant/internal/window"
)

// Transcript source names
const (
	SourceYouTube = "youtube"
	SourceDir     = "dir"
)

// Classifier names
const (
	ClassifierLLM       = "llm"
	ClassifierHeuristic = "heuristic"
)

// Config holds all application configuration
type Config struct {
	// LLM settings
	Provider      string        `yaml:"provider"`
	OllamaURL     string        `yaml:"ollama_url"`
	OllamaModel   string        `yaml:"ollama_model"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	OpenAIModel   string        `yaml:"openai_model"`
	OpenAIAPIKey  string        `yaml:"openai_api_key"`
	LLMTimeout    time.Duration `yaml:"llm_timeout"`
	Classifier    string        `yaml:"classifier"`

	// Transcript settings
	TranscriptSource string        `yaml:"transcript_source"`
	TranscriptDir    string        `yaml:"transcript_dir"`
	YouTubeURL       string        `yaml:"youtube_url"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	MaxContentSize   int64         `yaml:"max_content_size"`
	UserAgent        string        `yaml:"user_agent"`
	Languages        []string      `yaml:"languages"`

	// Window settings, hot-reloadable
	Window window.Options `yaml:"window"`

	// Memory settings
	MaxMessages     int           `yaml:"max_messages"`
	SessionTimeout  time.Duration `yaml:"session_timeout"`
	CleanupSchedule string        `yaml:"cleanup_schedule"`

	// Server settings
	ListenAddr     string   `yaml:"listen_addr"`
	MaxBodyBytes   int64    `yaml:"max_body_bytes"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	DefaultMode    string   `yaml:"default_mode"`

	Telemetry telemetry.Config `yaml:"telemetry"`

	LogLevel string `yaml:"log_level"`
	Verbose  bool   `yaml:"verbose"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		// LLM defaults
		Provider:      llm.ProviderOllama,
		OllamaURL:     "http://localhost:11434",
		OllamaModel:   "deepseek-r1:8b",
		OpenAIBaseURL: "",
		OpenAIModel:   "gpt-4o",
		LLMTimeout:    llm.DefaultTimeout,
		Classifier:    ClassifierLLM,

		// Transcript defaults
		TranscriptSource: SourceYouTube,
		YouTubeURL:       "https://www.youtube.com",
		FetchTimeout:     15 * time.Second,
		MaxContentSize:   5 * 1024 * 1024, // 5 MB
		UserAgent:        "video-assistant/1.0",
		Languages:        []string{"fr", "en"},

		Window: window.DefaultOptions(),

		// Memory defaults
		MaxMessages:     10,
		SessionTimeout:  30 * time.Minute,
		CleanupSchedule: "@every 5m",

		// Server defaults
		ListenAddr:     "127.0.0.1:5000",
		MaxBodyBytes:   64 * 1024,
		AllowedOrigins: []string{"https://www.youtube.com"},
		DefaultMode:    assistant.ModeContextual,

		Telemetry: telemetry.Config{Exporter: telemetry.ExporterOTLPHTTP, SampleRate: 1.0},

		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, the YAML file at path and
// environment overrides, in that order. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	if path != "" {
		data, err := os.ReadFile(expandHome(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		case len(data) > 0:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := GetEnv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := GetEnv("VIDEO_ASSISTANT_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := GetEnv("VIDEO_ASSISTANT_OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := GetEnv("VIDEO_ASSISTANT_MODEL"); v != "" {
		if cfg.Provider == llm.ProviderOpenAI {
			cfg.OpenAIModel = v
		} else {
			cfg.OllamaModel = v
		}
	}
	if v := GetEnv("VIDEO_ASSISTANT_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := GetEnv("VIDEO_ASSISTANT_TRANSCRIPT_DIR"); v != "" {
		cfg.TranscriptSource = SourceDir
		cfg.TranscriptDir = v
	}
	if v := GetEnv("VIDEO_ASSISTANT_MODE"); v != "" {
		cfg.DefaultMode = v
	}
	if v := GetEnv("VIDEO_ASSISTANT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := GetEnv("VIDEO_ASSISTANT_MAX_MESSAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxMessages = n
		}
	}
	if v := GetEnv("VIDEO_ASSISTANT_SESSION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTimeout = d
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Provider {
	case llm.ProviderOllama:
		if c.OllamaURL == "" {
			return fmt.Errorf("ollama URL cannot be empty")
		}
		if c.OllamaModel == "" {
			return fmt.Errorf("ollama model cannot be empty")
		}
	case llm.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		if c.OpenAIModel == "" {
			return fmt.Errorf("openai model cannot be empty")
		}
	default:
		return fmt.Errorf("unknown provider %q (supported: ollama, openai)", c.Provider)
	}

	if c.Classifier != ClassifierLLM && c.Classifier != ClassifierHeuristic {
		return fmt.Errorf("unknown classifier %q (supported: llm, heuristic)", c.Classifier)
	}

	switch c.TranscriptSource {
	case SourceYouTube:
		if c.YouTubeURL == "" {
			return fmt.Errorf("youtube URL cannot be empty")
		}
	case SourceDir:
		if c.TranscriptDir == "" {
			return fmt.Errorf("transcript_dir is required for the dir source")
		}
	default:
		return fmt.Errorf("unknown transcript source %q (supported: youtube, dir)", c.TranscriptSource)
	}

	if err := ValidateWindow(c.Window); err != nil {
		return err
	}
	if c.MaxMessages < 1 {
		return fmt.Errorf("max messages must be at least 1")
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}
	if c.MaxBodyBytes < 1 {
		return fmt.Errorf("max body bytes must be at least 1")
	}
	if !assistant.ValidMode(c.DefaultMode) {
		return fmt.Errorf("unknown mode %q (supported: %s)", c.DefaultMode, strings.Join(assistant.Modes, ", "))
	}
	return nil
}

// ValidateWindow checks window options
func ValidateWindow(opts window.Options) error {
	if opts.PriorityBefore < 0 || opts.PriorityAfter < 0 {
		return fmt.Errorf("window bounds cannot be negative")
	}
	if opts.PriorityBefore == 0 && opts.PriorityAfter == 0 {
		return fmt.Errorf("window cannot be empty")
	}
	return nil
}

// LLMConfig returns the completion backend settings for the configured provider
func (c *Config) LLMConfig() llm.Config {
	if c.Provider == llm.ProviderOpenAI {
		return llm.Config{
			Provider: llm.ProviderOpenAI,
			Model:    c.OpenAIModel,
			BaseURL:  c.OpenAIBaseURL,
			APIKey:   c.OpenAIAPIKey,
		}
	}
	return llm.Config{
		Provider: llm.ProviderOllama,
		Model:    c.OllamaModel,
		BaseURL:  c.OllamaURL,
	}
}

// Model returns the model name of the configured provider
func (c *Config) Model() string {
	return c.LLMConfig().Model
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return expandHome("~/.video-assistant/config.yaml")
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir := getHomeDir()
		return homeDir + path[1:]
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = func(key string) string {
	// Will be replaced with os.Getenv in main
	return ""
}
