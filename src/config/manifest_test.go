package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadManifest(t *testing.T) {
	path := writeManifest(t, `{
		"name": "Example addon",
		"version": "1.2.3",
		"image": "hassioaddons/example-{arch}",
		"arch": ["amd64", "aarch64"],
		"build_from": {"amd64": "alpine:3.20"},
		"squash": false,
		"args": {"EXTRA": "value"}
	}`)

	p, err := ReadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", p.Version)
	assert.Equal(t, "hassioaddons/example-{arch}", p.OutputImageTemplate)
	assert.Equal(t, []string{"amd64", "aarch64"}, p.SupportedArchitectures)
	assert.Equal(t, map[string]string{"amd64": "alpine:3.20"}, p.BaseImageOverrides)
	require.NotNil(t, p.Squash)
	assert.False(t, *p.Squash)
	assert.Equal(t, map[string]string{"EXTRA": "value"}, p.ExtraBuildArgs)
}

func TestReadManifestMissingFile(t *testing.T) {
	p, err := ReadManifest(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err, "the manifest is an optional source")
	assert.Equal(t, Partial{}, p)
}

func TestReadManifestOmittedKeys(t *testing.T) {
	p, err := ReadManifest(writeManifest(t, `{"version": "0.1.0"}`))
	require.NoError(t, err)

	assert.Equal(t, "0.1.0", p.Version)
	assert.Nil(t, p.Squash, "omitted squash stays undecided")
	assert.Empty(t, p.SupportedArchitectures)
}

func TestReadManifestInvalidJSON(t *testing.T) {
	_, err := ReadManifest(writeManifest(t, `{not json`))
	assert.Error(t, err)
}
