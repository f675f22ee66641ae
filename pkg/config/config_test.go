package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func (s *sample) Validate() error {
	if s.Count < 0 {
		return errors.New("count must not be negative")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "notes")
	path := writeFile(t, "name: ${SAMPLE_NAME}\ncount: 3\n")

	var got sample
	require.NoError(t, Load(path, &got))
	assert.Equal(t, sample{Name: "notes", Count: 3}, got)
}

func TestLoad_ValidationFails(t *testing.T) {
	path := writeFile(t, "count: -1\n")
	var got sample
	assert.ErrorContains(t, Load(path, &got), "config validation failed")
}

func TestLoad_Missing(t *testing.T) {
	var got sample
	assert.Error(t, Load(filepath.Join(t.TempDir(), "nope.yaml"), &got))
}

func TestLoadOptional(t *testing.T) {
	got := sample{Name: "default"}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "default", got.Name)

	path := writeFile(t, "name: file\n")
	found, err = LoadOptional(path, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "file", got.Name)

	bad := sample{Count: -1}
	_, err = LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &bad)
	assert.Error(t, err)
}
