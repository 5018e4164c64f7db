package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"first_name": "Ada",
		"last_name": "Lovelace",
		"email": "ada@example.com"
	}`), 0o644))

	profile, err := loadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.FirstName)
	assert.Equal(t, "Ada Lovelace", profile.FullName())
}

func TestLoadProfile_BadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o644))

	_, err := loadProfile(path)
	assert.Error(t, err)
}

func TestLoadProfile_Missing(t *testing.T) {
	_, err := loadProfile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
