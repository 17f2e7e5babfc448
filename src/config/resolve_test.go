package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestResolvePrecedence(t *testing.T) {
	ov := Overrides{
		Architectures: []string{"amd64"},
		Version:       "from-flag",
	}
	fromDockerfile := Partial{Version: "from-dockerfile", BaseImageTemplate: "df/{arch}:1"}
	fromManifest := Partial{Version: "from-manifest", OutputImageTemplate: "repo/{arch}-addon"}
	fromGit := Partial{Version: "from-git", BuildRef: "abc1234"}

	cfg := Resolve(ov, fromDockerfile, fromManifest, fromGit, &FileDefaults{})

	assert.Equal(t, "from-flag", cfg.Version, "flag outranks every other source")
	assert.Equal(t, "df/{arch}:1", cfg.BaseImageTemplate, "Dockerfile outranks manifest and builtin")
	assert.Equal(t, "repo/{arch}-addon", cfg.OutputImageTemplate)
	assert.Equal(t, "abc1234", cfg.BuildRef)
}

func TestResolveLowerSourcesFillGaps(t *testing.T) {
	cfg := Resolve(Overrides{Architectures: []string{"amd64"}},
		Partial{}, Partial{Version: "2.1.0"}, Partial{BuildRef: "abc1234"}, nil)

	assert.Equal(t, "2.1.0", cfg.Version)
	assert.Equal(t, "abc1234", cfg.BuildRef)
	assert.Equal(t, "homeassistant/{arch}-base:latest", cfg.BaseImageTemplate, "builtin default applies last")
	assert.Equal(t, "addon", cfg.BuildType)
}

func TestResolveBuildRefFallback(t *testing.T) {
	cfg := Resolve(Overrides{}, Partial{}, Partial{}, Partial{}, nil)
	assert.Equal(t, "Unknown", cfg.BuildRef)
}

func TestResolveBuildAllExpansion(t *testing.T) {
	// With a declared support set, --all selects exactly that set.
	cfg := Resolve(Overrides{BuildAll: true},
		Partial{}, Partial{SupportedArchitectures: []string{"amd64", "aarch64"}}, Partial{}, nil)
	assert.Equal(t, []string{"amd64", "aarch64"}, cfg.Architectures)

	// Without one, --all expands to the full enumeration.
	cfg = Resolve(Overrides{BuildAll: true}, Partial{}, Partial{}, Partial{}, nil)
	assert.Equal(t, []string{"aarch64", "amd64", "armhf", "armv7", "i386"}, cfg.Architectures)
}

func TestResolveArchitectureDedupe(t *testing.T) {
	cfg := Resolve(Overrides{Architectures: []string{"amd64", "amd64", "armhf"}},
		Partial{}, Partial{}, Partial{}, nil)
	assert.Equal(t, []string{"amd64", "armhf"}, cfg.Architectures)
}

func TestResolveSquashDisablesCache(t *testing.T) {
	cfg := Resolve(Overrides{Squash: true}, Partial{}, Partial{}, Partial{}, nil)
	assert.True(t, cfg.Squash)
	assert.False(t, cfg.CacheEnabled, "squash and layer caching are mutually exclusive")

	// Same rule when squash comes from the manifest.
	cfg = Resolve(Overrides{}, Partial{}, Partial{Squash: boolPtr(true)}, Partial{}, nil)
	assert.True(t, cfg.Squash)
	assert.False(t, cfg.CacheEnabled)
}

func TestResolveCacheDefaults(t *testing.T) {
	cfg := Resolve(Overrides{}, Partial{}, Partial{}, Partial{}, nil)
	assert.True(t, cfg.CacheEnabled, "caching defaults on")

	cfg = Resolve(Overrides{NoCache: true}, Partial{}, Partial{}, Partial{}, nil)
	assert.False(t, cfg.CacheEnabled)

	cfg = Resolve(Overrides{}, Partial{}, Partial{}, Partial{}, &FileDefaults{Cache: boolPtr(false)})
	assert.False(t, cfg.CacheEnabled, "defaults file can opt out")
}

func TestResolveBoolFlagsOnlyAssert(t *testing.T) {
	// An unset flag leaves the git-derived tagging hints in charge.
	cfg := Resolve(Overrides{}, Partial{}, Partial{},
		Partial{TagLatest: boolPtr(true), TagTest: boolPtr(false)}, nil)
	assert.True(t, cfg.TagLatest)
	assert.False(t, cfg.TagTest)

	// A set flag asserts on top of a false lower source.
	cfg = Resolve(Overrides{TagTest: true}, Partial{}, Partial{},
		Partial{TagTest: boolPtr(false)}, nil)
	assert.True(t, cfg.TagTest)
}

func TestResolveExtraBuildArgsMerge(t *testing.T) {
	cfg := Resolve(
		Overrides{ExtraBuildArgs: map[string]string{"A": "flag"}},
		Partial{},
		Partial{ExtraBuildArgs: map[string]string{"A": "manifest", "B": "manifest"}},
		Partial{},
		&FileDefaults{Args: map[string]string{"A": "file", "C": "file"}},
	)
	assert.Equal(t, map[string]string{"A": "flag", "B": "manifest", "C": "file"}, cfg.ExtraBuildArgs)
}

func TestResolveBaseImageOverrides(t *testing.T) {
	cfg := Resolve(
		Overrides{BaseImageOverrides: map[string]string{"amd64": "flag/amd64-base"}},
		Partial{},
		Partial{BaseImageOverrides: map[string]string{"amd64": "manifest/amd64-base", "armhf": "manifest/armhf-base"}},
		Partial{},
		nil,
	)
	assert.Equal(t, "flag/amd64-base", cfg.BaseImageFor("amd64"))
	assert.Equal(t, "manifest/armhf-base", cfg.BaseImageFor("armhf"))
	assert.Equal(t, "homeassistant/aarch64-base:latest", cfg.BaseImageFor("aarch64"))
}

func TestImageFor(t *testing.T) {
	cfg := &BuildConfig{OutputImageTemplate: "hassioaddons/example-{arch}"}
	assert.Equal(t, "hassioaddons/example-amd64", cfg.ImageFor("amd64"))
}
