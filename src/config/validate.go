package config

import (
	"fmt"
	"strings"

	"github.com/hassio-addons/build-env/src/arch"
	"github.com/hassio-addons/build-env/src/exitcode"
)

// Validate runs the preflight checks that do not need the Dockerfile
// contents. Each failure is a distinct fatal condition with its own
// exit code; the Dockerfile-dependent checks (existence, single FROM)
// live in the dockerfile package.
func Validate(cfg *BuildConfig) error {
	if len(cfg.Architectures) == 0 {
		return exitcode.New(exitcode.BadArch, "no architecture requested: pass architecture flags or --all")
	}

	for _, a := range cfg.Architectures {
		if !arch.IsValid(a) {
			return exitcode.New(exitcode.BadArch, "unknown architecture %q (recognized: %s)",
				a, strings.Join(arch.Names(), ", "))
		}
	}

	// Explicitly requested architectures must be inside the declared
	// support set; --all selected from that set already.
	if !cfg.BuildAll && len(cfg.SupportedArchitectures) > 0 {
		supported := make(map[string]bool, len(cfg.SupportedArchitectures))
		for _, a := range cfg.SupportedArchitectures {
			supported[a] = true
		}
		for _, a := range cfg.Architectures {
			if !supported[a] {
				return exitcode.New(exitcode.BadArch, "architecture %s not supported by this project (supported: %s)",
					a, strings.Join(cfg.SupportedArchitectures, ", "))
			}
		}
	}

	if cfg.Version == "" {
		return exitcode.New(exitcode.NoVersion, "version could not be resolved from any source; pass --version")
	}

	if cfg.OutputImageTemplate == "" {
		return exitcode.New(exitcode.NoImage, "output image name could not be resolved; pass --image")
	}

	if cfg.BuildType != "" && !ValidBuildType(cfg.BuildType) {
		return exitcode.New(exitcode.BadBuildType, "invalid build type %q (recognized: %s)",
			cfg.BuildType, strings.Join(BuildTypes, ", "))
	}

	for _, a := range cfg.Architectures {
		if cfg.BaseImageFor(a) == "" {
			return exitcode.New(exitcode.NoImage, "no base image resolvable for architecture %s", a)
		}
	}

	return nil
}

// Warnings returns non-fatal notices for absent optional metadata.
// These never block the build.
func Warnings(cfg *BuildConfig) []string {
	var w []string
	optional := []struct {
		value, flag string
	}{
		{cfg.Name, "--name"},
		{cfg.Description, "--description"},
		{cfg.Vendor, "--vendor"},
		{cfg.Maintainer, "--maintainer"},
		{cfg.URL, "--url"},
		{cfg.DocURL, "--doc-url"},
		{cfg.GitURL, "--git-url"},
	}
	for _, o := range optional {
		if o.value == "" {
			w = append(w, fmt.Sprintf("metadata %s is unset, the label will be omitted", o.flag))
		}
	}
	return w
}
