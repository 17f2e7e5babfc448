package engine

import (
	"time"

	"github.com/hassio-addons/build-env/src/config"
)

// BuildDateFormat is the standardized date stamp handed to every build.
const BuildDateFormat = time.RFC3339

// Specs derives one BuildSpec per requested architecture, in the
// configured order. declaredArgs is the ARG inventory of the augmented
// Dockerfile: a build argument is only passed when the Dockerfile
// declares it, so unexpected --arg values never reach the engine.
func Specs(cfg *config.BuildConfig, declaredArgs []string, dockerfilePath string, buildDate time.Time) []BuildSpec {
	declared := make(map[string]bool, len(declaredArgs))
	for _, a := range declaredArgs {
		declared[a] = true
	}

	date := buildDate.UTC().Format(BuildDateFormat)

	specs := make([]BuildSpec, 0, len(cfg.Architectures))
	for _, a := range cfg.Architectures {
		base := cfg.BaseImageFor(a)

		args := map[string]string{
			"BUILD_DATE": date,
			"BUILD_ARCH": a,
		}

		// Metadata arguments the Dockerfile is known to accept.
		gated := map[string]string{
			"BUILD_FROM":        base,
			"BUILD_VERSION":     cfg.Version,
			"BUILD_REF":         cfg.BuildRef,
			"BUILD_NAME":        cfg.Name,
			"BUILD_DESCRIPTION": cfg.Description,
		}
		for k, v := range gated {
			if declared[k] && v != "" {
				args[k] = v
			}
		}

		// User-supplied arguments pass through under the same rule.
		for k, v := range cfg.ExtraBuildArgs {
			if declared[k] {
				args[k] = v
			}
		}

		specs = append(specs, BuildSpec{
			Arch:       a,
			BaseImage:  base,
			Image:      cfg.ImageFor(a),
			Version:    cfg.Version,
			Dockerfile: dockerfilePath,
			Context:    cfg.TargetDir,
			BuildArgs:  args,
			Squash:     cfg.Squash,
		})
	}
	return specs
}
