// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateGeneratesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	m := NewManagerAt(path)

	id, err := m.GetOrCreate()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, m.Current())

	// A second manager over the same file sees the same id.
	m2 := NewManagerAt(path)
	id2, err := m2.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, id, id2)
}

func TestGetOrCreateIsStable(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "session"))
	a, err := m.GetOrCreate()
	require.NoError(t, err)
	b, err := m.GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSetOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	m := NewManagerAt(path)
	_, err := m.GetOrCreate()
	require.NoError(t, err)

	require.NoError(t, m.Set("checkpoint-42"))
	assert.Equal(t, "checkpoint-42", m.Current())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "checkpoint-42\n", string(data))
}

func TestSetRejectsEmpty(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "session"))
	assert.Error(t, m.Set("  "))
}

func TestRotateChangesID(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "session"))
	a, err := m.GetOrCreate()
	require.NoError(t, err)
	b, err := m.Rotate()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, b, m.Current())
}

func TestClearRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	m := NewManagerAt(path)
	_, err := m.GetOrCreate()
	require.NoError(t, err)

	require.NoError(t, m.Clear())
	assert.Empty(t, m.Current())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Clearing twice is fine.
	require.NoError(t, m.Clear())
}

func TestFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	m := NewManagerAt(path)
	_, err := m.GetOrCreate()
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
