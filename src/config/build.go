package config

// BuildConfig is the fully resolved build record. It is constructed
// once per invocation by Resolve, validated, and treated as immutable
// by the augmenter and orchestrator.
type BuildConfig struct {
	TargetDir string // directory holding the Dockerfile and build context

	Architectures          []string // requested targets, canonical order
	SupportedArchitectures []string // declared by the manifest; empty = unconstrained
	BuildAll               bool     // --all: build every supported architecture

	BaseImageTemplate   string            // {arch}-templated base image reference
	BaseImageOverrides  map[string]string // per-architecture explicit base images
	OutputImageTemplate string            // {arch}-templated output image name

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

	CacheEnabled  bool
	Squash        bool
	Parallel      bool
	TagLatest     bool
	TagTest       bool
	LabelOverride bool
	Push          bool

	RequireGit bool // --git: repository metadata is mandatory
}

// BuildTypes enumerates the recognized build-artifact categories.
var BuildTypes = []string{"addon", "base", "cluster", "homeassistant", "supervisor"}

// ValidBuildType reports whether t belongs to the recognized enumeration.
func ValidBuildType(t string) bool {
	for _, k := range BuildTypes {
		if k == t {
			return true
		}
	}
	return false
}

// BaseImageFor resolves the concrete base image for one architecture:
// explicit override first, template substitution otherwise.
func (c *BuildConfig) BaseImageFor(archName string) string {
	if img, ok := c.BaseImageOverrides[archName]; ok && img != "" {
		return img
	}
	if c.BaseImageTemplate == "" {
		return ""
	}
	return substituteArch(c.BaseImageTemplate, archName)
}

// ImageFor resolves the concrete output image name (no tag) for one
// architecture.
func (c *BuildConfig) ImageFor(archName string) string {
	return substituteArch(c.OutputImageTemplate, archName)
}

// Partial is a candidate field set extracted from one configuration
// source (manifest, Dockerfile, or git). Empty strings and nil values
// mean the source supplied nothing for that field.
type Partial struct {
	Version                string
	BaseImageTemplate      string
	BaseImageOverrides     map[string]string
	OutputImageTemplate    string
	SupportedArchitectures []string
	Squash                 *bool
	ExtraBuildArgs         map[string]string

	BuildRef  string
	BuildType string

	Name        string
	Description string
	Vendor      string
	Maintainer  string
	URL         string
	DocURL      string
	GitURL      string

	TagLatest *bool
	TagTest   *bool
}
