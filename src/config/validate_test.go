package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassio-addons/build-env/src/exitcode"
)

func validConfig() *BuildConfig {
	return &BuildConfig{
		Architectures:       []string{"amd64"},
		BaseImageTemplate:   "homeassistant/{arch}-base:latest",
		OutputImageTemplate: "hassioaddons/example-{arch}",
		Version:             "1.2.3",
		BuildType:           "addon",
	}
}

func TestValidateOK(t *testing.T) {
	require.NoError(t, Validate(validConfig()))
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*BuildConfig)
		wantCode int
	}{
		{
			name:     "no architecture",
			mutate:   func(c *BuildConfig) { c.Architectures = nil },
			wantCode: exitcode.BadArch,
		},
		{
			name:     "unknown architecture",
			mutate:   func(c *BuildConfig) { c.Architectures = []string{"riscv64"} },
			wantCode: exitcode.BadArch,
		},
		{
			name: "outside support set",
			mutate: func(c *BuildConfig) {
				c.SupportedArchitectures = []string{"aarch64"}
			},
			wantCode: exitcode.BadArch,
		},
		{
			name:     "no version",
			mutate:   func(c *BuildConfig) { c.Version = "" },
			wantCode: exitcode.NoVersion,
		},
		{
			name:     "no output image",
			mutate:   func(c *BuildConfig) { c.OutputImageTemplate = "" },
			wantCode: exitcode.NoImage,
		},
		{
			name:     "invalid build type",
			mutate:   func(c *BuildConfig) { c.BuildType = "plugin" },
			wantCode: exitcode.BadBuildType,
		},
		{
			name:     "no base image",
			mutate:   func(c *BuildConfig) { c.BaseImageTemplate = "" },
			wantCode: exitcode.NoImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, exitcode.From(err))
		})
	}
}

func TestValidateBuildAllSkipsSupportCheck(t *testing.T) {
	cfg := validConfig()
	cfg.BuildAll = true
	cfg.Architectures = []string{"amd64", "aarch64"}
	cfg.SupportedArchitectures = []string{"amd64", "aarch64"}
	require.NoError(t, Validate(cfg))
}

func TestValidBuildType(t *testing.T) {
	for _, bt := range BuildTypes {
		assert.True(t, ValidBuildType(bt), bt)
	}
	assert.False(t, ValidBuildType("plugin"))
	assert.False(t, ValidBuildType(""))
}

func TestWarnings(t *testing.T) {
	cfg := validConfig()
	warnings := Warnings(cfg)
	assert.Len(t, warnings, 7, "all optional metadata absent")

	cfg.Name = "Example"
	cfg.Maintainer = "Jane <jane@example.com>"
	assert.Len(t, Warnings(cfg), 5)
}
