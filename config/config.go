// Package config loads the server configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	Backend   string `yaml:"backend"` // file|sqlite|memory
	Path      string `yaml:"path"`
	Workspace string `yaml:"workspace"`
}

type SelectionConfig struct {
	Dir        string `yaml:"dir"`
	DebounceMs int    `yaml:"debounce_ms"`
	NoWatch    bool   `yaml:"no_watch"`
}

type CompressionConfig struct {
	GlobalPreset string `yaml:"global_preset"`
	OutDir       string `yaml:"out_dir"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int               `yaml:"config_version"`
	Server        ServerConfig      `yaml:"server"`
	Storage       StorageConfig     `yaml:"storage"`
	Selection     SelectionConfig   `yaml:"selection"`
	Compression   CompressionConfig `yaml:"compression"`
	Logging       LoggingConfig     `yaml:"logging"`
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Server:        ServerConfig{Addr: ":8080"},
		Storage:       StorageConfig{Backend: "file", Path: "/data", Workspace: "default"},
		Selection:     SelectionConfig{DebounceMs: 150},
		Compression:   CompressionConfig{GlobalPreset: "default", OutDir: "out"},
		Logging:       LoggingConfig{Level: "info", Format: "text"},
	}
}

// Env var names used as overrides.
const (
	EnvAddr           = "TINYSVG_ADDR"
	EnvPort           = "PORT"
	EnvStorageBackend = "TINYSVG_STORAGE_BACKEND"
	EnvStoragePath    = "TINYSVG_STORAGE_PATH"
	EnvWorkspace      = "TINYSVG_WORKSPACE"
	EnvSelectionDir   = "TINYSVG_SELECTION_DIR"
	EnvDebounceMs     = "TINYSVG_DEBOUNCE_MS"
	EnvGlobalPreset   = "TINYSVG_GLOBAL_PRESET"
	EnvLogLevel       = "TINYSVG_LOG_LEVEL"
	EnvLogFormat      = "TINYSVG_LOG_FORMAT"
	EnvLogSource      = "TINYSVG_LOG_SOURCE"
	EnvLogFile        = "TINYSVG_LOG_FILE"
)

// Load reads path (when non-empty), merges it over Defaults and applies
// environment overrides. A missing file is not an error; a malformed one is.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			var fileCfg AppConfig
			if err := yaml.Unmarshal(data, &fileCfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, cfg.Validate()
}

// Validate reports settings the server cannot start with.
func (c AppConfig) Validate() error {
	switch c.Storage.Backend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend != "memory" && strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage path is required")
	}
	if c.Selection.DebounceMs < 0 {
		return errors.New("selection debounce must not be negative")
	}
	return nil
}

// Debounce returns the selection quiet period.
func (s SelectionConfig) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.Server.Addr); v != "" {
		dst.Server.Addr = v
	}
	if v := strings.TrimSpace(src.Storage.Backend); v != "" {
		dst.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Storage.Path); v != "" {
		dst.Storage.Path = v
	}
	if v := strings.TrimSpace(src.Storage.Workspace); v != "" {
		dst.Storage.Workspace = v
	}
	if v := strings.TrimSpace(src.Selection.Dir); v != "" {
		dst.Selection.Dir = v
	}
	if src.Selection.DebounceMs != 0 {
		dst.Selection.DebounceMs = src.Selection.DebounceMs
	}
	dst.Selection.NoWatch = src.Selection.NoWatch
	if v := strings.TrimSpace(src.Compression.GlobalPreset); v != "" {
		dst.Compression.GlobalPreset = v
	}
	if v := strings.TrimSpace(src.Compression.OutDir); v != "" {
		dst.Compression.OutDir = v
	}
	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := env(EnvPort); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := env(EnvAddr); v != "" {
		cfg.Server.Addr = v
	}
	if v := env(EnvStorageBackend); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := env(EnvStoragePath); v != "" {
		cfg.Storage.Path = v
	}
	if v := env(EnvWorkspace); v != "" {
		cfg.Storage.Workspace = v
	}
	if v := env(EnvSelectionDir); v != "" {
		cfg.Selection.Dir = v
	}
	if v := env(EnvDebounceMs); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Selection.DebounceMs = n
		}
	}
	if v := env(EnvGlobalPreset); v != "" {
		cfg.Compression.GlobalPreset = v
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogSource); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }
