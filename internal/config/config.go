// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for comply.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.comply/config.toml
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete comply configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend connection settings
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Chat behavior settings
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Document upload settings
	Upload UploadConfig `toml:"upload" json:"upload"`

	// Local history cache settings
	History HistoryConfig `toml:"history" json:"history"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// BackendConfig contains connection settings for the analysis backend.
type BackendConfig struct {
	// BaseURL is the root URL of the backend API.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the per-request timeout for non-streaming calls.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// RateLimitPerSec caps outgoing requests per second.
	RateLimitPerSec float64 `toml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	// RateLimitBurst is the rate limiter burst size.
	RateLimitBurst int `toml:"rate_limit_burst" json:"rate_limit_burst"`
}

// ChatConfig contains chat behavior settings.
type ChatConfig struct {
	// ShowThinking displays the live reasoning trace while a reply streams.
	ShowThinking bool `toml:"show_thinking" json:"show_thinking"`
	// CollapseOnFinal folds the reasoning trace once the final reply lands.
	CollapseOnFinal bool `toml:"collapse_on_final" json:"collapse_on_final"`
	// HistoryLimit is the number of remote sessions shown by "comply sessions".
	HistoryLimit int `toml:"history_limit" json:"history_limit"`
}

// UploadConfig contains document upload settings.
type UploadConfig struct {
	// MaxFileSizeMB rejects attachments larger than this before upload.
	MaxFileSizeMB int64 `toml:"max_file_size_mb" json:"max_file_size_mb"`
}

// HistoryConfig contains local history cache settings.
type HistoryConfig struct {
	// Enabled controls whether synced sessions are cached locally.
	Enabled bool `toml:"enabled" json:"enabled"`
	// DBPath is the sqlite database path (empty = ~/.comply/history.db).
	DBPath string `toml:"db_path" json:"db_path"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// ShowTimestamps displays message timestamps in the transcript
	ShowTimestamps bool `toml:"show_timestamps" json:"show_timestamps"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			BaseURL:         "http://127.0.0.1:5000",
			TimeoutSecs:     60,
			RateLimitPerSec: 5,
			RateLimitBurst:  10,
		},

		Chat: ChatConfig{
			ShowThinking:    true,
			CollapseOnFinal: true,
			HistoryLimit:    50,
		},

		Upload: UploadConfig{
			MaxFileSizeMB: 25,
		},

		History: HistoryConfig{
			Enabled: true,
			DBPath:  "",
		},

		UI: UIConfig{
			Theme:          "dark",
			CompactMode:    false,
			ShowTimestamps: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the comply configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".comply"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions checks and fixes permissions on config files.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, falling back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# comply configuration file")
	fmt.Fprintln(file, "# Generated by comply, edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Backend.BaseURL != "" {
		u, err := url.Parse(c.Backend.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "backend.base_url",
				Message: fmt.Sprintf("invalid URL '%s'", c.Backend.BaseURL),
			})
		}
	}

	if c.Backend.TimeoutSecs < 1 || c.Backend.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "backend.timeout_secs",
			Message: fmt.Sprintf("must be 1-600, got %d", c.Backend.TimeoutSecs),
		})
	}

	if c.Backend.RateLimitPerSec < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.rate_limit_per_sec",
			Message: "must be non-negative",
		})
	}
	if c.Backend.RateLimitBurst < 0 {
		errs = append(errs, ValidationError{
			Field:   "backend.rate_limit_burst",
			Message: "must be non-negative",
		})
	}

	if c.Chat.HistoryLimit < 1 || c.Chat.HistoryLimit > 1000 {
		errs = append(errs, ValidationError{
			Field:   "chat.history_limit",
			Message: fmt.Sprintf("must be 1-1000, got %d", c.Chat.HistoryLimit),
		})
	}

	if c.Upload.MaxFileSizeMB < 1 || c.Upload.MaxFileSizeMB > 500 {
		errs = append(errs, ValidationError{
			Field:   "upload.max_file_size_mb",
			Message: fmt.Sprintf("must be 1-500, got %d", c.Upload.MaxFileSizeMB),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = defaults.Backend.TimeoutSecs
	}
	if c.Backend.RateLimitPerSec == 0 {
		c.Backend.RateLimitPerSec = defaults.Backend.RateLimitPerSec
	}
	if c.Backend.RateLimitBurst == 0 {
		c.Backend.RateLimitBurst = defaults.Backend.RateLimitBurst
	}
	if c.Chat.HistoryLimit == 0 {
		c.Chat.HistoryLimit = defaults.Chat.HistoryLimit
	}
	if c.Upload.MaxFileSizeMB == 0 {
		c.Upload.MaxFileSizeMB = defaults.Upload.MaxFileSizeMB
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - COMPLY_BASE_URL: overrides backend.base_url
//   - COMPLY_TIMEOUT_SECS: overrides backend.timeout_secs
//   - COMPLY_THEME: overrides ui.theme
//   - COMPLY_NO_THINKING: set to "1" or "true" to hide the reasoning trace
//   - COMPLY_NO_HISTORY: set to "1" or "true" to disable the local cache
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("COMPLY_BASE_URL"); base != "" {
		c.Backend.BaseURL = base
	}
	if secs := os.Getenv("COMPLY_TIMEOUT_SECS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			c.Backend.TimeoutSecs = n
		}
	}
	if theme := os.Getenv("COMPLY_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if v := os.Getenv("COMPLY_NO_THINKING"); v != "" {
		c.Chat.ShowThinking = !(v == "1" || strings.ToLower(v) == "true")
	}
	if v := os.Getenv("COMPLY_NO_HISTORY"); v != "" {
		c.History.Enabled = !(v == "1" || strings.ToLower(v) == "true")
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}
		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
	}
	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type
// conversion. String input is coerced to match the field type so config
// commands can pass raw CLI arguments.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.ToLower(strVal) == "true" || strings.ToLower(strVal) == "yes"
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"backend.base_url",
		"backend.timeout_secs",
		"backend.rate_limit_per_sec",
		"backend.rate_limit_burst",
		"chat.show_thinking",
		"chat.collapse_on_final",
		"chat.history_limit",
		"upload.max_file_size_mb",
		"history.enabled",
		"history.db_path",
		"ui.theme",
		"ui.compact_mode",
		"ui.show_timestamps",
	}
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns a string representation of the config for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
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
		globalConfig = cfg
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
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
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
