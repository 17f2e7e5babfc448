package config

import (
	"github.com/hassio-addons/build-env/src/arch"
)

// Overrides is the CLI flag layer: the highest-precedence source.
// Boolean flags only ever assert (a flag the user did not pass leaves
// the lower sources in charge); --no-cache is the one negative flag.
type Overrides struct {
	TargetDir string

	Architectures []string
	BuildAll      bool

	BaseImageTemplate   string
	BaseImageOverrides  map[string]string
	OutputImageTemplate string

	Version   string
	BuildRef  string
	BuildType string

	Name        string
	Description string
	Vendor      string
	Maintainer  string
	URL         string
	DocURL      string
	GitURL      string

	ExtraBuildArgs map[string]string

	NoCache       bool
	Squash        bool
	Parallel      bool
	TagLatest     bool
	TagTest       bool
	LabelOverride bool
	Push          bool
	RequireGit    bool
}

// Resolve merges all configuration sources into one BuildConfig.
//
// Precedence, highest first: CLI flag, Dockerfile-declared value,
// manifest value, git-derived value, defaults file, built-in default.
// Once a field is set by a higher source, lower sources never
// overwrite it.
func Resolve(ov Overrides, fromDockerfile, fromManifest, fromGit Partial, fd *FileDefaults) *BuildConfig {
	if fd == nil {
		fd = &FileDefaults{}
	}

	cfg := &BuildConfig{
		TargetDir:  ov.TargetDir,
		BuildAll:   ov.BuildAll,
		RequireGit: ov.RequireGit,
		Push:       ov.Push,
	}

	cfg.SupportedArchitectures = fromManifest.SupportedArchitectures

	// Architecture selection prioritizes the CLI outright; --all expands
	// to the supported set (or the full enumeration when the manifest
	// declares none).
	switch {
	case ov.BuildAll:
		if len(cfg.SupportedArchitectures) > 0 {
			cfg.Architectures = dedupe(cfg.SupportedArchitectures)
		} else {
			cfg.Architectures = arch.Names()
		}
	default:
		cfg.Architectures = dedupe(ov.Architectures)
	}

	cfg.BaseImageTemplate = pick(ov.BaseImageTemplate, fromDockerfile.BaseImageTemplate,
		fromManifest.BaseImageTemplate, fd.BaseFrom, defaultBaseImageTemplate)
	cfg.BaseImageOverrides = mergeMaps(fromManifest.BaseImageOverrides, ov.BaseImageOverrides)
	cfg.OutputImageTemplate = pick(ov.OutputImageTemplate, fromDockerfile.OutputImageTemplate,
		fromManifest.OutputImageTemplate, fd.Image)

	cfg.Version = pick(ov.Version, fromDockerfile.Version, fromManifest.Version, fromGit.Version)
	cfg.BuildRef = pick(ov.BuildRef, fromGit.BuildRef, "Unknown")
	cfg.BuildType = pick(ov.BuildType, fromDockerfile.BuildType, defaultBuildType)

	cfg.Name = pick(ov.Name, fromDockerfile.Name, fd.Name)
	cfg.Description = pick(ov.Description, fromDockerfile.Description)
	cfg.Vendor = pick(ov.Vendor, fromDockerfile.Vendor, fd.Vendor)
	cfg.Maintainer = pick(ov.Maintainer, fromDockerfile.Maintainer, fd.Maintainer)
	cfg.URL = pick(ov.URL, fromDockerfile.URL, fd.URL)
	cfg.DocURL = pick(ov.DocURL, fromDockerfile.DocURL, fd.DocURL)
	cfg.GitURL = pick(ov.GitURL, fromDockerfile.GitURL, fromGit.GitURL)

	cfg.ExtraBuildArgs = mergeMaps(fd.Args, fromManifest.ExtraBuildArgs, ov.ExtraBuildArgs)

	cfg.Squash = ov.Squash || boolOr(fromManifest.Squash, false)
	cfg.Parallel = ov.Parallel || boolOr(fd.Parallel, false)

	cfg.TagLatest = ov.TagLatest || boolOr(fromGit.TagLatest, false)
	cfg.TagTest = ov.TagTest || boolOr(fromGit.TagTest, false)
	cfg.LabelOverride = ov.LabelOverride

	// Cache defaults on; --no-cache or a defaults-file opt-out disables
	// it, and squash always wins the conflict.
	cfg.CacheEnabled = !ov.NoCache && boolOr(fd.Cache, true)
	if cfg.Squash {
		cfg.CacheEnabled = false
	}

	return cfg
}

// pick returns the first non-empty candidate.
func pick(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}

// mergeMaps merges maps lowest-precedence first: later maps overwrite.
func mergeMaps(maps ...map[string]string) map[string]string {
	out := map[string]string{}
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func substituteArch(template, archName string) string {
	return arch.Substitute(template, archName)
}
