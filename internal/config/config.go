package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/hpungsan/timeless/internal/capsule"
)

// FileName is the config file name inside a Timeless directory.
const FileName = "config.toml"

// Gateway configures the AI content gateway client.
type Gateway struct {
	// URL is the proxy endpoint that accepts {action, payload} requests.
	// Empty means generate in-process with the [openai] settings.
	URL string `toml:"url"`

	// TimeoutSeconds is the transport timeout for a single call.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// OpenAI configures the generative backend behind the gateway proxy.
type OpenAI struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	TextModel   string `toml:"text_model"`
	ImageModel  string `toml:"image_model"`
	SpeechModel string `toml:"speech_model"`
	Voice       string `toml:"voice"`
}

// Web configures the local web UI.
type Web struct {
	Bind string `toml:"bind"`
	Port int    `toml:"port"`
}

// Config holds application configuration.
type Config struct {
	// MaxAttachmentBytes caps the decoded size of a single attachment or cover upload.
	MaxAttachmentBytes int64 `toml:"max_attachment_bytes"`

	// ConfirmTTLSeconds is how long a seal/delete confirmation token stays valid.
	ConfirmTTLSeconds int `toml:"confirm_ttl_seconds"`

	// PlaceholderURL is the fallback cover template; %d is replaced by the
	// capsule's creation time in Unix milliseconds.
	PlaceholderURL string `toml:"placeholder_url"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// LogFormat is console or json.
	LogFormat string `toml:"log_format"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default.
	DBMaxOpenConns int `toml:"db_max_open_conns"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `toml:"db_max_idle_conns"`

	// AllowedPaths lists extra directories that export and import may use
	// besides ~/.timeless/exports. Relative entries are ignored.
	AllowedPaths []string `toml:"allowed_paths"`

	// AllowUnsafePaths disables the directory restriction for export and import.
	// Symlinks are still refused.
	AllowUnsafePaths bool `toml:"allow_unsafe_paths"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `toml:"disabled_tools"`

	Gateway Gateway `toml:"gateway"`
	OpenAI  OpenAI  `toml:"openai"`
	Web     Web     `toml:"web"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxAttachmentBytes: 25 << 20,
		ConfirmTTLSeconds:  300,
		PlaceholderURL:     capsule.DefaultPlaceholderURL,
		LogLevel:           "info",
		LogFormat:          "console",
		Gateway: Gateway{
			TimeoutSeconds: 60,
		},
		OpenAI: OpenAI{
			TextModel:   "gpt-4o-mini",
			ImageModel:  "dall-e-3",
			SpeechModel: "tts-1",
			Voice:       "alloy",
		},
		Web: Web{
			Bind: "127.0.0.1",
			Port: 8765,
		},
	}
}

// ConfirmTTL returns the confirmation token lifetime.
func (c *Config) ConfirmTTL() time.Duration {
	return time.Duration(c.ConfirmTTLSeconds) * time.Second
}

// GatewayTimeout returns the gateway transport timeout (0 = none).
func (c *Config) GatewayTimeout() time.Duration {
	return time.Duration(c.Gateway.TimeoutSeconds) * time.Second
}

// Placeholder renders the deterministic placeholder cover for a creation time.
func (c *Config) Placeholder(createdAtMillis int64) string {
	return capsule.PlaceholderCover(c.PlaceholderURL, createdAtMillis)
}

// Load loads configuration from baseDir/config.toml.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.timeless.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, FileName))
}

// LoadWithRepo loads configuration from both global (~/.timeless) and repo (.timeless) directories.
// Repo config is found by walking upward from startDir to find the nearest .timeless/config.toml.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, FileName))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest .timeless/config.toml.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".timeless", FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overlays environment variables onto cfg.
// getenv is injected so tests need not touch the process environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv("TIMELESS_GATEWAY_URL")); v != "" {
		c.Gateway.URL = v
	}
	if v := strings.TrimSpace(getenv("TIMELESS_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = strings.TrimSpace(getenv("OPENAI_API_KEY"))
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = strings.TrimSpace(getenv("OPENAI_BASE_URL"))
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		MaxAttachmentBytes: pick(overlay.MaxAttachmentBytes, base.MaxAttachmentBytes),
		ConfirmTTLSeconds:  pick(overlay.ConfirmTTLSeconds, base.ConfirmTTLSeconds),
		PlaceholderURL:     pick(overlay.PlaceholderURL, base.PlaceholderURL),
		LogLevel:           pick(overlay.LogLevel, base.LogLevel),
		LogFormat:          pick(overlay.LogFormat, base.LogFormat),
		DBMaxOpenConns:     pick(overlay.DBMaxOpenConns, base.DBMaxOpenConns),
		DBMaxIdleConns:     pick(overlay.DBMaxIdleConns, base.DBMaxIdleConns),
		AllowUnsafePaths:   overlay.AllowUnsafePaths || base.AllowUnsafePaths,
		Gateway: Gateway{
			URL:            pick(overlay.Gateway.URL, base.Gateway.URL),
			TimeoutSeconds: pick(overlay.Gateway.TimeoutSeconds, base.Gateway.TimeoutSeconds),
		},
		OpenAI: OpenAI{
			APIKey:      pick(overlay.OpenAI.APIKey, base.OpenAI.APIKey),
			BaseURL:     pick(overlay.OpenAI.BaseURL, base.OpenAI.BaseURL),
			TextModel:   pick(overlay.OpenAI.TextModel, base.OpenAI.TextModel),
			ImageModel:  pick(overlay.OpenAI.ImageModel, base.OpenAI.ImageModel),
			SpeechModel: pick(overlay.OpenAI.SpeechModel, base.OpenAI.SpeechModel),
			Voice:       pick(overlay.OpenAI.Voice, base.OpenAI.Voice),
		},
		Web: Web{
			Bind: pick(overlay.Web.Bind, base.Web.Bind),
			Port: pick(overlay.Web.Port, base.Web.Port),
		},
	}

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// pick returns overlay if it is non-zero, else base.
func pick[T comparable](overlay, base T) T {
	var zero T
	if overlay != zero {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
