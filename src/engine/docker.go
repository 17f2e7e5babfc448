// Package engine drives the external container build engine: it
// synthesizes docker build/tag/push/pull invocations per architecture
// and orchestrates them across the warm-up, build, tag, and push
// phases, in parallel or sequentially.
package engine

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
)

// BuildSpec is one architecture's concrete build invocation.
type BuildSpec struct {
	Arch       string
	BaseImage  string            // resolved FROM reference
	Image      string            // output image name, no tag
	Version    string            // version tag for the produced image
	Dockerfile string            // path to the augmented Dockerfile
	Context    string            // build context directory
	BuildArgs  map[string]string // complete, already gated on declared ARGs
	CacheFrom  string            // previous :latest reference, "" = no cache
	Squash     bool
}

// VersionRef returns the image:version reference this spec produces.
func (s BuildSpec) VersionRef() string { return s.Image + ":" + s.Version }

// LatestRef returns the image:latest reference.
func (s BuildSpec) LatestRef() string { return s.Image + ":latest" }

// TestRef returns the image:test reference.
func (s BuildSpec) TestRef() string { return s.Image + ":test" }

// Client is the build engine command surface the orchestrator needs.
// The one real implementation shells out to the docker CLI; tests
// substitute a fake.
type Client interface {
	Build(ctx context.Context, spec BuildSpec, out io.Writer) error
	Tag(ctx context.Context, src, dst string, out io.Writer) error
	Push(ctx context.Context, ref string, out io.Writer) error
	Pull(ctx context.Context, ref string, out io.Writer) error
	Login(ctx context.Context, registry, username, password string) error
}

// Docker runs the docker CLI.
type Docker struct {
	Bin string // docker binary, default "docker"
}

// NewDocker returns a Docker client using the docker binary on PATH.
func NewDocker() *Docker {
	return &Docker{Bin: "docker"}
}

// Build executes a single-architecture image build.
func (d *Docker) Build(ctx context.Context, spec BuildSpec, out io.Writer) error {
	args := []string{"build", "--tag", spec.VersionRef(), "--file", spec.Dockerfile}

	// Deterministic argument order keeps invocations reproducible.
	keys := make([]string, 0, len(spec.BuildArgs))
	for k := range spec.BuildArgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, spec.BuildArgs[k]))
	}

	if spec.CacheFrom != "" {
		args = append(args, "--cache-from", spec.CacheFrom)
	} else {
		args = append(args, "--no-cache")
	}
	if spec.Squash {
		args = append(args, "--squash")
	}

	context := spec.Context
	if context == "" {
		context = "."
	}
	args = append(args, context)

	return d.run(ctx, out, args...)
}

// Tag applies dst as an additional name for src.
func (d *Docker) Tag(ctx context.Context, src, dst string, out io.Writer) error {
	return d.run(ctx, out, "tag", src, dst)
}

// Push uploads a reference to its registry.
func (d *Docker) Push(ctx context.Context, ref string, out io.Writer) error {
	return d.run(ctx, out, "push", ref)
}

// Pull downloads a reference, typically for layer-cache warm-up.
func (d *Docker) Pull(ctx context.Context, ref string, out io.Writer) error {
	return d.run(ctx, out, "pull", ref)
}

// Login authenticates against a registry. The password goes over
// stdin, never the argument list.
func (d *Docker) Login(ctx context.Context, registry, username, password string) error {
	args := []string{"login", "--username", username, "--password-stdin"}
	if registry != "" {
		args = append(args, registry)
	}
	cmd := exec.CommandContext(ctx, d.bin(), args...)
	cmd.Stdin = strings.NewReader(password)
	if outBytes, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("docker login failed: %s: %w", strings.TrimSpace(string(outBytes)), err)
	}
	return nil
}

func (d *Docker) run(ctx context.Context, out io.Writer, args ...string) error {
	cmd := exec.CommandContext(ctx, d.bin(), args...)
	cmd.Stdout = out
	cmd.Stderr = out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker %s failed: %w", args[0], err)
	}
	return nil
}

func (d *Docker) bin() string {
	if d.Bin != "" {
		return d.Bin
	}
	return "docker"
}
