// Package config resolves the build configuration: it merges CLI
// overrides, the manifest, Dockerfile metadata, git-derived values, and
// file/built-in defaults by fixed precedence, then validates the merged
// record before any build side effects occur.
package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".build-env.yml"

// FileDefaults is the optional repo-level defaults file. It sits below
// every dynamic source in the precedence order: a value here only wins
// when no flag, manifest, Dockerfile, or git source supplied one.
type FileDefaults struct {
	BaseFrom   string            `yaml:"base_from"`
	Image      string            `yaml:"image"`
	Parallel   *bool             `yaml:"parallel"`
	Cache      *bool             `yaml:"cache"`
	Args       map[string]string `yaml:"args"`
	Name       string            `yaml:"name"`
	Vendor     string            `yaml:"vendor"`
	Maintainer string            `yaml:"maintainer"`
	URL        string            `yaml:"url"`
	DocURL     string            `yaml:"doc_url"`
}

// LoadDefaults reads the defaults file. If path is empty the default
// file name is tried. A missing file yields zero defaults.
func LoadDefaults(path string) (*FileDefaults, error) {
	if path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &FileDefaults{}, nil
		}
		return nil, err
	}

	fd := &FileDefaults{}
	if err := yaml.Unmarshal(data, fd); err != nil {
		return nil, err
	}
	return fd, nil
}

// Built-in fallbacks, applied after every other source.
const (
	defaultBaseImageTemplate = "homeassistant/{arch}-base:latest"
	defaultBuildType         = "addon"
)
