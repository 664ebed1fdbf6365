// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Backend.BaseURL != "http://127.0.0.1:5000" {
		t.Errorf("base_url = %q", cfg.Backend.BaseURL)
	}
	if !cfg.Chat.ShowThinking || !cfg.Chat.CollapseOnFinal {
		t.Error("thinking trace defaults must be on")
	}
}

func TestLoadFromPathOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[backend]
base_url = "https://comply.example.com"
timeout_secs = 120

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Backend.BaseURL != "https://comply.example.com" {
		t.Errorf("base_url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutSecs != 120 {
		t.Errorf("timeout_secs = %d", cfg.Backend.TimeoutSecs)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	// Unset sections keep their defaults.
	if cfg.Chat.HistoryLimit != 50 {
		t.Errorf("history_limit = %d, want default 50", cfg.Chat.HistoryLimit)
	}
}

func TestLoadFromPathRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[ui]
theme = "neon"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected validation error for unknown theme")
	}
}

func TestLoadFixesInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %o, want 0600", info.Mode().Perm())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Backend.BaseURL = "https://api.example.com"
	cfg.UI.CompactMode = true
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Backend.BaseURL != "https://api.example.com" {
		t.Errorf("base_url = %q", loaded.Backend.BaseURL)
	}
	if !loaded.UI.CompactMode {
		t.Error("compact_mode lost in round trip")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("COMPLY_BASE_URL", "http://10.0.0.2:5000")
	t.Setenv("COMPLY_THEME", "light")
	t.Setenv("COMPLY_NO_THINKING", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.BaseURL != "http://10.0.0.2:5000" {
		t.Errorf("base_url = %q", cfg.Backend.BaseURL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	if cfg.Chat.ShowThinking {
		t.Error("COMPLY_NO_THINKING must disable the trace")
	}
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad base url", func(c *Config) { c.Backend.BaseURL = "not a url" }},
		{"timeout too small", func(c *Config) { c.Backend.TimeoutSecs = 0 }},
		{"timeout too large", func(c *Config) { c.Backend.TimeoutSecs = 9999 }},
		{"negative rate limit", func(c *Config) { c.Backend.RateLimitPerSec = -1 }},
		{"history limit out of range", func(c *Config) { c.Chat.HistoryLimit = 0 }},
		{"upload size out of range", func(c *Config) { c.Upload.MaxFileSizeMB = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("ui.theme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v != "dark" {
		t.Errorf("ui.theme = %v", v)
	}

	if err := cfg.Set("ui.theme", "light"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q after Set", cfg.UI.Theme)
	}

	// String coercion for non-string fields.
	if err := cfg.Set("backend.timeout_secs", "90"); err != nil {
		t.Fatalf("Set int: %v", err)
	}
	if cfg.Backend.TimeoutSecs != 90 {
		t.Errorf("timeout = %d", cfg.Backend.TimeoutSecs)
	}
	if err := cfg.Set("chat.show_thinking", "false"); err != nil {
		t.Fatalf("Set bool: %v", err)
	}
	if cfg.Chat.ShowThinking {
		t.Error("show_thinking must be false")
	}

	if _, err := cfg.Get("no.such.key"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := cfg.Set("backend.nope", "x"); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestGetAllKeysResolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("key %q does not resolve: %v", key, err)
		}
	}
}

func TestGlobalSingleton(t *testing.T) {
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	custom := Default()
	custom.UI.Theme = "light"
	SetGlobal(custom)

	if Global().UI.Theme != "light" {
		t.Error("SetGlobal did not take effect")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	updated := Default()
	updated.UI.Theme = "light"
	if err := SaveTOML(updated, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.UI.Theme != "light" {
			t.Errorf("reloaded theme = %q", cfg.UI.Theme)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload within 5s")
	}
}
