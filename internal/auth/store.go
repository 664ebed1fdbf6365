// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth stores the backend bearer token encrypted at rest.
//
// Credentials live under the config directory as an XChaCha20-Poly1305
// sealed blob; the random key sits next to it with 0600 permissions. This
// keeps tokens out of plaintext files and shell history without requiring
// a master password for a CLI tool.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/jeranaias/comply-tui/internal/util"
)

// =============================================================================
// CONSTANTS AND ERRORS
// =============================================================================

// EncryptedPrefix marks a stored value as encrypted.
const EncryptedPrefix = "ENC:"

const (
	keyFileName   = "token.key"
	credsFileName = "credentials.enc"
)

var (
	// ErrNoToken indicates no credentials are stored.
	ErrNoToken = errors.New("not signed in: run 'comply auth login'")

	// ErrCorruptCredentials indicates the stored blob failed to open
	// (tampered file or replaced key).
	ErrCorruptCredentials = errors.New("stored credentials are unreadable; run 'comply auth login' again")
)

// zeroBytes clears key material after use.
func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// Credentials is the decrypted content of the credential store.
type Credentials struct {
	Token  string `json:"token"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

// =============================================================================
// STORE
// =============================================================================

// Store reads and writes encrypted credentials in a directory.
type Store struct {
	dir string
}

// DefaultDir returns ~/.comply.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, ".comply"), nil
}

// NewStore creates a store over the default config directory.
func NewStore() (*Store, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return NewStoreAt(dir), nil
}

// NewStoreAt creates a store over an explicit directory. Used by tests.
func NewStoreAt(dir string) *Store {
	return &Store{dir: dir}
}

// Save encrypts and stores credentials, generating the key on first use.
func (s *Store) Save(creds Credentials) error {
	if strings.TrimSpace(creds.Token) == "" {
		return fmt.Errorf("token must not be empty")
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("failed to initialize cipher: %w", err)
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)

	blob := EncryptedPrefix + base64.StdEncoding.EncodeToString(sealed)
	if err := util.AtomicWriteFileWithDir(s.credsPath(), []byte(blob), 0600, 0700); err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// Load decrypts and returns the stored credentials.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.credsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	blob := strings.TrimSpace(string(data))
	if !strings.HasPrefix(blob, EncryptedPrefix) {
		return nil, ErrCorruptCredentials
	}
	sealed, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(blob, EncryptedPrefix))
	if err != nil {
		return nil, ErrCorruptCredentials
	}
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return nil, ErrCorruptCredentials
	}

	key, err := s.loadKey()
	if err != nil {
		return nil, err
	}
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	nonce, ciphertext := sealed[:chacha20poly1305.NonceSizeX], sealed[chacha20poly1305.NonceSizeX:]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrCorruptCredentials
	}

	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, ErrCorruptCredentials
	}
	return &creds, nil
}

// Token returns the stored bearer token. Implements the backend client's
// token provider.
func (s *Store) Token() (string, error) {
	creds, err := s.Load()
	if err != nil {
		return "", err
	}
	return creds.Token, nil
}

// HasToken reports whether credentials are stored, without decrypting.
func (s *Store) HasToken() bool {
	_, err := os.Stat(s.credsPath())
	return err == nil
}

// Clear removes the stored credentials. The key file stays; a later login
// reuses it.
func (s *Store) Clear() error {
	if err := os.Remove(s.credsPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (s *Store) credsPath() string {
	return filepath.Join(s.dir, credsFileName)
}

func (s *Store) keyPath() string {
	return filepath.Join(s.dir, keyFileName)
}

// loadKey reads the encryption key from disk.
func (s *Store) loadKey() ([]byte, error) {
	key, err := os.ReadFile(s.keyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCorruptCredentials
		}
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrCorruptCredentials
	}
	return key, nil
}

// loadOrCreateKey returns the key, generating a fresh one on first use.
func (s *Store) loadOrCreateKey() ([]byte, error) {
	key, err := os.ReadFile(s.keyPath())
	if err == nil && len(key) == chacha20poly1305.KeySize {
		return key, nil
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(s.keyPath(), key, 0600, 0700); err != nil {
		return nil, fmt.Errorf("failed to save key: %w", err)
	}
	return key, nil
}
