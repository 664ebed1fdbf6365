// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session persists the current backend session id across runs.
//
// The id lives in a single file under the config directory. A fresh id is
// generated locally when none is stored; the backend replaces it through
// checkpoint events as turns complete.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jeranaias/comply-tui/internal/util"
)

// sessionFileName is the file under the config dir holding the id.
const sessionFileName = "session"

// Manager loads, stores, and clears the current session id. Safe for
// concurrent use; the checkpoint hook writes from the stream goroutine
// while commands read.
type Manager struct {
	mu      sync.Mutex
	path    string
	current string
}

// DefaultPath returns ~/.comply/session.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".comply", sessionFileName), nil
}

// NewManager creates a manager over the default session file.
func NewManager() (*Manager, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(path), nil
}

// NewManagerAt creates a manager over an explicit file path. Used by tests.
func NewManagerAt(path string) *Manager {
	return &Manager{path: path}
}

// Current returns the loaded session id without touching disk. Empty
// until GetOrCreate or Set has run.
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// GetOrCreate returns the stored session id, generating and persisting a
// new one when the file is missing or empty.
func (m *Manager) GetOrCreate() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != "" {
		return m.current, nil
	}

	data, err := os.ReadFile(m.path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			m.current = id
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read session file: %w", err)
	}

	id := uuid.NewString()
	if err := m.persist(id); err != nil {
		return "", err
	}
	m.current = id
	return id, nil
}

// Set stores a new session id, replacing the current one. Called when a
// checkpoint arrives or the user switches sessions.
func (m *Manager) Set(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("session id must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.persist(id); err != nil {
		return err
	}
	m.current = id
	return nil
}

// Rotate generates, persists, and returns a fresh session id. Used by
// "new chat".
func (m *Manager) Rotate() (string, error) {
	id := uuid.NewString()
	if err := m.Set(id); err != nil {
		return "", err
	}
	return id, nil
}

// Clear forgets the session id and removes the file. Called on logout.
func (m *Manager) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = ""
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// persist writes the id to disk. Caller holds the lock.
func (m *Manager) persist(id string) error {
	if err := util.AtomicWriteFileWithDir(m.path, []byte(id+"\n"), 0600, 0700); err != nil {
		return fmt.Errorf("failed to save session id: %w", err)
	}
	return nil
}
