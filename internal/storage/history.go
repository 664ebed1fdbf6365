// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/comply-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound is returned when a cached session doesn't exist.
	ErrSessionNotFound = errors.New("session not found in local cache")
)

// =============================================================================
// TYPES
// =============================================================================

// CachedSession is a locally cached copy of a remote chat session.
type CachedSession struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
	SyncedAt  time.Time
	Messages  []CachedMessage
}

// CachedMessage is a transcript row within a cached session.
type CachedMessage struct {
	Role    string
	Content string
}

// SessionMeta contains metadata for listing cached sessions.
type SessionMeta struct {
	ID           string
	Title        string
	UpdatedAt    time.Time
	SyncedAt     time.Time
	MessageCount int
	Preview      string // First user message truncated
}

// =============================================================================
// HISTORY STORE
// =============================================================================

// History is the sqlite-backed session cache. Reads work offline after a
// sync; the backend stays authoritative.
type History struct {
	db *sql.DB
	mu sync.Mutex
}

// DefaultDBPath returns ~/.comply/history.db.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".comply", "history.db"), nil
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; modernc sqlite serializes anyway but this keeps
	// "database is locked" out of concurrent use.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	h := &History{db: db}
	if err := h.checkSchemaVersion(); err != nil {
		db.Close()
		return nil, err
	}
	return h, nil
}

// checkSchemaVersion records the schema version on first open and rejects
// databases written by a newer build.
func (h *History) checkSchemaVersion() error {
	var stored string
	err := h.db.QueryRow("SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		_, err = h.db.Exec(
			"INSERT INTO metadata (key, value) VALUES ('schema_version', ?)",
			strconv.Itoa(SchemaVersion))
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	version, err := strconv.Atoi(stored)
	if err != nil || version > SchemaVersion {
		return fmt.Errorf("history database schema version %s is newer than this build supports", stored)
	}
	return nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// SaveSession upserts a session and replaces its transcript. Called after
// fetching a session from the backend.
func (h *History) SaveSession(sess CachedSession) error {
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id must not be empty")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	created := sess.CreatedAt
	if created.IsZero() {
		created = now
	}
	updated := sess.UpdatedAt
	if updated.IsZero() {
		updated = now
	}

	_, err = tx.Exec(`
		INSERT INTO sessions (id, title, created_at, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at
	`, sess.ID, sess.Title, created.Unix(), updated.Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	// Replace the transcript wholesale. The backend owns ordering.
	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", sess.ID); err != nil {
		return fmt.Errorf("failed to clear old messages: %w", err)
	}
	for i, msg := range sess.Messages {
		_, err := tx.Exec(
			"INSERT INTO messages (session_id, seq, role, content) VALUES (?, ?, ?, ?)",
			sess.ID, i, msg.Role, msg.Content)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteSession removes a cached session and its messages.
func (h *History) DeleteSession(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	res, err := h.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// Clear removes all cached sessions.
func (h *History) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.db.Exec("DELETE FROM sessions")
	return err
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// GetSession loads a cached session with its full transcript.
func (h *History) GetSession(id string) (*CachedSession, error) {
	var sess CachedSession
	var created, updated, synced int64
	err := h.db.QueryRow(
		"SELECT id, title, created_at, updated_at, synced_at FROM sessions WHERE id = ?", id,
	).Scan(&sess.ID, &sess.Title, &created, &updated, &synced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	sess.CreatedAt = time.Unix(created, 0)
	sess.UpdatedAt = time.Unix(updated, 0)
	sess.SyncedAt = time.Unix(synced, 0)

	rows, err := h.db.Query(
		"SELECT role, content FROM messages WHERE session_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg CachedMessage
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, err
		}
		sess.Messages = append(sess.Messages, msg)
	}
	return &sess, rows.Err()
}

// ListSessions returns cached session metadata, most recently updated
// first. limit <= 0 means no limit.
func (h *History) ListSessions(limit int) ([]SessionMeta, error) {
	query := `
		SELECT s.id, s.title, s.updated_at, s.synced_at,
		       COUNT(m.id),
		       COALESCE((SELECT content FROM messages
		                 WHERE session_id = s.id AND role = 'user'
		                 ORDER BY seq LIMIT 1), '')
		FROM sessions s
		LEFT JOIN messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.updated_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []SessionMeta
	for rows.Next() {
		var meta SessionMeta
		var updated, synced int64
		var preview string
		if err := rows.Scan(&meta.ID, &meta.Title, &updated, &synced, &meta.MessageCount, &preview); err != nil {
			return nil, err
		}
		meta.UpdatedAt = time.Unix(updated, 0)
		meta.SyncedAt = time.Unix(synced, 0)
		meta.Preview = util.TruncateRunes(util.FirstLine(preview), 80)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Search finds cached sessions whose messages match the query using
// full-text search. An empty query lists everything.
func (h *History) Search(query string) ([]SessionMeta, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return h.ListSessions(0)
	}

	rows, err := h.db.Query(`
		SELECT DISTINCT m.session_id
		FROM messages_fts f
		JOIN messages m ON m.id = f.rowid
		WHERE messages_fts MATCH ?
	`, ftsQuote(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matched := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		matched[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	all, err := h.ListSessions(0)
	if err != nil {
		return nil, err
	}
	var results []SessionMeta
	for _, meta := range all {
		if matched[meta.ID] {
			results = append(results, meta)
		}
	}
	return results, nil
}

// ftsQuote wraps each term in double quotes so user input cannot inject
// FTS5 query syntax.
func ftsQuote(query string) string {
	terms := strings.Fields(query)
	for i, term := range terms {
		terms[i] = `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}

// =============================================================================
// EXPORT AND FORMATTING
// =============================================================================

// ExportMarkdown renders the cached session as a Markdown transcript.
func (c *CachedSession) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# Session " + c.ID + "\n\n")
	if c.Title != "" {
		sb.WriteString(c.Title + "\n\n")
	}
	sb.WriteString("Created: " + c.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, msg := range c.Messages {
		role := "**User**"
		switch msg.Role {
		case "assistant":
			role = "**Assistant**"
		case "system":
			role = "**System**"
		}
		sb.WriteString(role + ":\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// FormatSessionList formats cached sessions as a plain table for display.
func FormatSessionList(sessions []SessionMeta) string {
	if len(sessions) == 0 {
		return "No sessions found."
	}

	var sb strings.Builder
	sb.WriteString("Sessions:\n")
	sb.WriteString("-----------------------------------------------------\n")
	sb.WriteString(pad("ID", 14) + " " + pad("Updated", 17) + " " + pad("Msgs", 5) + " Preview\n")
	sb.WriteString("-----------------------------------------------------\n")

	for _, s := range sessions {
		id := util.TruncateRunes(s.ID, 14)
		sb.WriteString(pad(id, 14) + " " +
			pad(s.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			pad(strconv.Itoa(s.MessageCount), 5) + " " +
			util.TruncateRunes(s.Preview, 40) + "\n")
	}
	return sb.String()
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(runes))
}
