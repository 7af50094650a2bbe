// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/ipapadil7-star/nexus/internal/backend"
	"github.com/ipapadil7-star/nexus/internal/session"
	"github.com/ipapadil7-star/nexus/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete nexus configuration.
type Config struct {
	Gemini  GeminiConfig  `toml:"gemini" json:"gemini"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Video   VideoConfig   `toml:"video" json:"video"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	Log     LogConfig     `toml:"log" json:"log"`
	Metrics MetricsConfig `toml:"metrics" json:"metrics"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// GeminiConfig selects the API key and the model behind each feature.
type GeminiConfig struct {
	// APIKey is the Gemini API key. GEMINI_API_KEY and API_KEY override it.
	APIKey         string `toml:"api_key" json:"api_key"`
	TextModel      string `toml:"text_model" json:"text_model"`
	ImageModel     string `toml:"image_model" json:"image_model"`
	ImagenModel    string `toml:"imagen_model" json:"imagen_model"`
	TTSModel       string `toml:"tts_model" json:"tts_model"`
	VideoFastModel string `toml:"video_fast_model" json:"video_fast_model"`
	VideoHighModel string `toml:"video_high_model" json:"video_high_model"`
	// Voice is the prebuilt TTS voice used by /dengarkan.
	Voice string `toml:"voice" json:"voice"`
}

// ChatConfig contains chat session settings.
type ChatConfig struct {
	// Persona is one of nexus, akbar, asisten.
	Persona string `toml:"persona" json:"persona"`
	// OCR asks the model to read text in attached images.
	OCR bool `toml:"ocr" json:"ocr"`
}

// VideoConfig contains video job settings.
type VideoConfig struct {
	PollIntervalSecs int `toml:"poll_interval_secs" json:"poll_interval_secs"`
	TimeoutSecs      int `toml:"timeout_secs" json:"timeout_secs"`
}

// StorageConfig contains the on-disk layout.
type StorageConfig struct {
	// DataDir holds media, transcripts, the macro database and logs.
	// Empty means ~/.nexus.
	DataDir string `toml:"data_dir" json:"data_dir"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" json:"level"`
	// File overrides the default <data_dir>/logs/nexus.log.
	File string `toml:"file" json:"file"`
}

// MetricsConfig contains the Prometheus endpoint settings.
type MetricsConfig struct {
	// Addr is the host:port serving /metrics. Empty disables the endpoint.
	Addr string `toml:"addr" json:"addr"`
}

// UIConfig contains UI preferences.
type UIConfig struct {
	// Theme is dark, light or auto.
	Theme string `toml:"theme" json:"theme"`
	// GlamourStyle is the markdown style for model replies.
	GlamourStyle string `toml:"glamour_style" json:"glamour_style"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	defaultPollSecs    = 10
	defaultTimeoutSecs = 600
)

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			TextModel:      backend.DefaultTextModel,
			ImageModel:     backend.DefaultImageModel,
			ImagenModel:    backend.DefaultWallpaperModel,
			TTSModel:       backend.DefaultTTSModel,
			VideoFastModel: backend.DefaultVideoFastModel,
			VideoHighModel: backend.DefaultVideoHighModel,
			Voice:          backend.DefaultVoice,
		},
		Chat: ChatConfig{
			Persona: string(session.PersonaNexus),
			OCR:     true,
		},
		Video: VideoConfig{
			PollIntervalSecs: defaultPollSecs,
			TimeoutSecs:      defaultTimeoutSecs,
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			Theme:        "dark",
			GlamourStyle: "dark",
		},
	}
}

// SetDefaults fills empty fields with their defaults.
func (c *Config) SetDefaults() {
	d := Default()
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&c.Gemini.TextModel, d.Gemini.TextModel)
	fill(&c.Gemini.ImageModel, d.Gemini.ImageModel)
	fill(&c.Gemini.ImagenModel, d.Gemini.ImagenModel)
	fill(&c.Gemini.TTSModel, d.Gemini.TTSModel)
	fill(&c.Gemini.VideoFastModel, d.Gemini.VideoFastModel)
	fill(&c.Gemini.VideoHighModel, d.Gemini.VideoHighModel)
	fill(&c.Gemini.Voice, d.Gemini.Voice)
	fill(&c.Chat.Persona, d.Chat.Persona)
	fill(&c.Log.Level, d.Log.Level)
	fill(&c.UI.Theme, d.UI.Theme)
	fill(&c.UI.GlamourStyle, d.UI.GlamourStyle)
	if c.Video.PollIntervalSecs == 0 {
		c.Video.PollIntervalSecs = d.Video.PollIntervalSecs
	}
	if c.Video.TimeoutSecs == 0 {
		c.Video.TimeoutSecs = d.Video.TimeoutSecs
	}
	c.Chat.Persona = strings.ToLower(strings.TrimSpace(c.Chat.Persona))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the configuration directory. NEXUS_HOME overrides
// ~/.nexus.
func ConfigDir() (string, error) {
	if dir := os.Getenv("NEXUS_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".nexus"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// DataDir returns the resolved data directory.
func (c *Config) DataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return expandHome(c.Storage.DataDir), nil
	}
	return ConfigDir()
}

// LogFile returns the resolved log file path.
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return expandHome(c.Log.File), nil
	}
	dir, err := c.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs", "nexus.log"), nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// ensureSecurePermissions tightens config files to 0600; they can hold
// the API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config directory.
// Tries TOML first, then JSON, and falls back to defaults. The .env files
// and environment overrides are applied last.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full
// validation. A .json suffix selects JSON; anything else is TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func finish(cfg *Config) error {
	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadDotEnv loads .env from the working directory and the config
// directory. Variables already set in the environment win.
func LoadDotEnv() {
	paths := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", p, err)
		}
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML path.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to path with owner-only permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# nexus configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0o600, 0o700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	validLogLevels     = []string{"debug", "info", "warn", "error"}
	validThemes        = []string{"dark", "light", "auto"}
	validGlamourStyles = []string{"dark", "light", "notty", "auto", "dracula", "pink", "ascii", "tokyo-night"}
)

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// Validate validates the configuration and returns any errors. A missing
// API key is not an error here; commands that need the backend report it.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if _, err := session.ParsePersona(c.Chat.Persona); err != nil {
		errs = append(errs, ValidationError{
			Field:   "chat.persona",
			Message: fmt.Sprintf("invalid persona '%s'", c.Chat.Persona),
		})
	}
	if c.Video.PollIntervalSecs < 1 || c.Video.PollIntervalSecs > 300 {
		errs = append(errs, ValidationError{
			Field:   "video.poll_interval_secs",
			Message: fmt.Sprintf("must be between 1 and 300, got %d", c.Video.PollIntervalSecs),
		})
	}
	if c.Video.TimeoutSecs < 60 || c.Video.TimeoutSecs > 3600 {
		errs = append(errs, ValidationError{
			Field:   "video.timeout_secs",
			Message: fmt.Sprintf("must be between 60 and 3600, got %d", c.Video.TimeoutSecs),
		})
	}
	if !oneOf(c.Log.Level, validLogLevels) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: %s", c.Log.Level, strings.Join(validLogLevels, ", ")),
		})
	}
	if c.Metrics.Addr != "" {
		if _, port, err := net.SplitHostPort(c.Metrics.Addr); err != nil || port == "" {
			errs = append(errs, ValidationError{
				Field:   "metrics.addr",
				Message: fmt.Sprintf("invalid address '%s', expected host:port", c.Metrics.Addr),
			})
		}
	}
	if !oneOf(c.UI.Theme, validThemes) {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: %s", c.UI.Theme, strings.Join(validThemes, ", ")),
		})
	}
	if !oneOf(c.UI.GlamourStyle, validGlamourStyles) {
		errs = append(errs, ValidationError{
			Field:   "ui.glamour_style",
			Message: fmt.Sprintf("invalid style '%s', must be one of: %s", c.UI.GlamourStyle, strings.Join(validGlamourStyles, ", ")),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - GEMINI_API_KEY, API_KEY, NEXUS_API_KEY: override gemini.api_key
//   - NEXUS_TEXT_MODEL: overrides gemini.text_model
//   - NEXUS_PERSONA: overrides chat.persona
//   - NEXUS_OCR: "1"/"true" or "0"/"false"
//   - NEXUS_POLL_INTERVAL: video poll interval in seconds
//   - NEXUS_DATA_DIR: overrides storage.data_dir
//   - NEXUS_LOG_LEVEL: overrides log.level
//   - NEXUS_METRICS_ADDR: overrides metrics.addr
func (c *Config) ApplyEnvOverrides() {
	for _, name := range []string{"API_KEY", "GEMINI_API_KEY", "NEXUS_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			c.Gemini.APIKey = key
		}
	}
	if m := os.Getenv("NEXUS_TEXT_MODEL"); m != "" {
		c.Gemini.TextModel = m
	}
	if p := os.Getenv("NEXUS_PERSONA"); p != "" {
		c.Chat.Persona = p
	}
	if v := os.Getenv("NEXUS_OCR"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Chat.OCR = b
		}
	}
	if v := os.Getenv("NEXUS_POLL_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Video.PollIntervalSecs = n
		}
	}
	if d := os.Getenv("NEXUS_DATA_DIR"); d != "" {
		c.Storage.DataDir = d
	}
	if l := os.Getenv("NEXUS_LOG_LEVEL"); l != "" {
		c.Log.Level = l
	}
	if a := os.Getenv("NEXUS_METRICS_ADDR"); a != "" {
		c.Metrics.Addr = a
	}
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// PollInterval returns the video poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Video.PollIntervalSecs) * time.Second
}

// VideoTimeout returns the overall video generation deadline.
func (c *Config) VideoTimeout() time.Duration {
	return time.Duration(c.Video.TimeoutSecs) * time.Second
}

// Persona returns the configured persona, nexus when unknown.
func (c *Config) Persona() session.Persona {
	p, err := session.ParsePersona(c.Chat.Persona)
	if err != nil {
		return session.PersonaNexus
	}
	return p
}

// Backend returns the Gemini backend configuration.
func (c *Config) Backend() backend.Config {
	return backend.Config{
		APIKey:         c.Gemini.APIKey,
		TextModel:      c.Gemini.TextModel,
		ImageModel:     c.Gemini.ImageModel,
		WallpaperModel: c.Gemini.ImagenModel,
		TTSModel:       c.Gemini.TTSModel,
		VideoFastModel: c.Gemini.VideoFastModel,
		VideoHighModel: c.Gemini.VideoHighModel,
		Voice:          c.Gemini.Voice,
		PollInterval:   c.PollInterval(),
	}
}

// Session returns the session manager configuration.
func (c *Config) Session() session.Config {
	return session.Config{Persona: c.Persona(), OCR: c.Chat.OCR}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

// String renders the configuration as JSON with the API key masked.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Gemini.APIKey != "" {
		safe.Gemini.APIKey = maskKey(safe.Gemini.APIKey)
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

func maskKey(k string) string {
	if len(k) <= 8 {
		return "****"
	}
	return k[:4] + "****" + k[len(k)-4:]
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
