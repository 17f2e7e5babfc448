package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hassio-addons/build-env/src/arch"
	"github.com/hassio-addons/build-env/src/config"
	"github.com/hassio-addons/build-env/src/dockerfile"
	"github.com/hassio-addons/build-env/src/engine"
	"github.com/hassio-addons/build-env/src/exitcode"
	"github.com/hassio-addons/build-env/src/gitver"
	"github.com/hassio-addons/build-env/src/lifecycle"
	"github.com/hassio-addons/build-env/src/output"
)

var (
	bTarget     string
	bRepository string
	bBranch     string

	bAarch64 bool
	bAmd64   bool
	bArmhf   bool
	bArmv7   bool
	bI386    bool
	bAll     bool

	bFrom        string
	bAarch64From string
	bAmd64From   string
	bArmhfFrom   string
	bArmv7From   string
	bI386From    string

	bImage   string
	bVersion string
	bType    string

	bName        string
	bDescription string
	bVendor      string
	bMaintainer  string
	bURL         string
	bDocURL      string
	bGitURL      string

	bArgs []string

	bTagLatest      bool
	bTagTest        bool
	bPush           bool
	bNoCache        bool
	bSquash         bool
	bParallel       bool
	bGit            bool
	bOverrideLabels bool
	bDryRun         bool
	bExternalDaemon bool
	bEnvFile        string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build container images for one or more architectures",
	Long: `Build container images for every requested architecture.

Resolves the build configuration from flags, the addon manifest, the
Dockerfile, and git, augments the Dockerfile with metadata labels, and
runs docker build/tag/push per architecture.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&bTarget, "target", "t", ".", "target directory containing the Dockerfile")
	buildCmd.Flags().StringVarP(&bRepository, "repository", "r", "", "git repository to clone into the target directory")
	buildCmd.Flags().StringVarP(&bBranch, "branch", "b", "", "branch to clone (default: remote HEAD)")

	buildCmd.Flags().BoolVar(&bAarch64, "aarch64", false, "build for aarch64")
	buildCmd.Flags().BoolVar(&bAmd64, "amd64", false, "build for amd64")
	buildCmd.Flags().BoolVar(&bArmhf, "armhf", false, "build for armhf")
	buildCmd.Flags().BoolVar(&bArmv7, "armv7", false, "build for armv7")
	buildCmd.Flags().BoolVar(&bI386, "i386", false, "build for i386")
	buildCmd.Flags().BoolVar(&bAll, "all", false, "build for all supported architectures")

	buildCmd.Flags().StringVarP(&bFrom, "from", "f", "", "base image template, {arch} is substituted")
	buildCmd.Flags().StringVar(&bAarch64From, "aarch64-from", "", "base image override for aarch64")
	buildCmd.Flags().StringVar(&bAmd64From, "amd64-from", "", "base image override for amd64")
	buildCmd.Flags().StringVar(&bArmhfFrom, "armhf-from", "", "base image override for armhf")
	buildCmd.Flags().StringVar(&bArmv7From, "armv7-from", "", "base image override for armv7")
	buildCmd.Flags().StringVar(&bI386From, "i386-from", "", "base image override for i386")

	buildCmd.Flags().StringVarP(&bImage, "image", "i", "", "output image name template, {arch} is substituted")
	buildCmd.Flags().StringVar(&bVersion, "version", "", "version tag for the produced images")
	buildCmd.Flags().StringVar(&bType, "type", "", "build type (addon, base, cluster, homeassistant, supervisor)")

	buildCmd.Flags().StringVar(&bName, "name", "", "image name label")
	buildCmd.Flags().StringVar(&bDescription, "description", "", "image description label")
	buildCmd.Flags().StringVar(&bVendor, "vendor", "", "image vendor label")
	buildCmd.Flags().StringVar(&bMaintainer, "maintainer", "", "image maintainer label")
	buildCmd.Flags().StringVar(&bURL, "url", "", "project URL label")
	buildCmd.Flags().StringVar(&bDocURL, "doc-url", "", "documentation URL label")
	buildCmd.Flags().StringVar(&bGitURL, "git-url", "", "source repository URL label")

	buildCmd.Flags().StringArrayVarP(&bArgs, "arg", "a", nil, "extra build argument as KEY=VALUE, repeatable")

	buildCmd.Flags().BoolVar(&bTagLatest, "tag-latest", false, "also tag the images :latest")
	buildCmd.Flags().BoolVar(&bTagTest, "tag-test", false, "also tag the images :test")
	buildCmd.Flags().BoolVarP(&bPush, "push", "p", false, "push the images after building")
	buildCmd.Flags().BoolVarP(&bNoCache, "no-cache", "n", false, "disable layer caching")
	buildCmd.Flags().BoolVarP(&bSquash, "squash", "s", false, "squash image layers (implies --no-cache)")
	buildCmd.Flags().BoolVar(&bParallel, "parallel", false, "build all architectures concurrently")
	buildCmd.Flags().BoolVarP(&bGit, "git", "g", false, "require git-derived version information")
	buildCmd.Flags().BoolVar(&bOverrideLabels, "override-labels", false, "replace labels already present in the Dockerfile")
	buildCmd.Flags().BoolVar(&bDryRun, "dry-run", false, "show the per-architecture plan without building")
	buildCmd.Flags().BoolVar(&bExternalDaemon, "external-daemon", false, "use an already-running docker daemon")
	buildCmd.Flags().StringVar(&bEnvFile, "env-file", "", "env file with registry credentials")

	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := os.Stdout
	color := output.UseColor()
	pipelineStart := time.Now()

	targetDir := bTarget
	if len(args) > 0 {
		targetDir = args[0]
	}

	// --- Clone ---
	if bRepository != "" {
		output.SectionStart(w, "be_clone", "Clone")
		cloneStart := time.Now()
		if err := gitver.Clone(ctx, bRepository, bBranch, targetDir, w); err != nil {
			output.SectionEnd(w, "be_clone")
			return err
		}
		sec := output.NewSection(w, "Clone", time.Since(cloneStart), color)
		sec.Row("%-16s→ %s", "repository", bRepository)
		if bBranch != "" {
			sec.Row("%-16s→ %s", "branch", bBranch)
		}
		sec.Row("%-16s→ %s", "target", targetDir)
		sec.Close()
		output.SectionEnd(w, "be_clone")
	}

	// --- Resolve ---
	output.SectionStart(w, "be_resolve", "Resolve")
	resolveStart := time.Now()

	extraArgs, err := parseBuildArgs(bArgs)
	if err != nil {
		output.SectionEnd(w, "be_resolve")
		return err
	}

	manifestPartial, err := config.ReadManifest(filepath.Join(targetDir, "config.json"))
	if err != nil {
		output.SectionEnd(w, "be_resolve")
		return fmt.Errorf("reading addon manifest: %w", err)
	}

	df, err := dockerfile.Read(filepath.Join(targetDir, "Dockerfile"))
	if err != nil {
		output.SectionEnd(w, "be_resolve")
		return err
	}

	gitPartial := config.Partial{}
	repoState, err := gitver.Inspect(targetDir)
	switch {
	case errors.Is(err, gitver.ErrNoRepository):
		if bGit {
			output.SectionEnd(w, "be_resolve")
			return exitcode.New(exitcode.GitRequired, "%s is not a git repository and --git was requested", targetDir)
		}
	case err != nil:
		output.SectionEnd(w, "be_resolve")
		return fmt.Errorf("inspecting git repository: %w", err)
	default:
		gitPartial = repoState.Partial()
		if repoState.Dirty {
			output.Notice(w, color, "working tree has uncommitted changes, version falls back to %q", gitver.DirtySentinel)
		}
	}

	cfg := config.Resolve(buildOverrides(targetDir, extraArgs), df.Metadata(), manifestPartial, gitPartial, fileDefaults)

	if err := config.Validate(cfg); err != nil {
		output.SectionEnd(w, "be_resolve")
		return err
	}
	for _, warn := range config.Warnings(cfg) {
		output.Notice(w, color, "%s", warn)
	}

	sec := output.NewSection(w, "Resolve", time.Since(resolveStart), color)
	sec.Row("%-16s→ %s", "architectures", strings.Join(cfg.Architectures, ", "))
	for _, a := range cfg.Architectures {
		sec.Row("%-16s→ %s", "base "+a, cfg.BaseImageFor(a))
	}
	sec.Row("%-16s→ %s", "image", cfg.OutputImageTemplate)
	sec.Row("%-16s→ %s", "version", cfg.Version)
	sec.Row("%-16s→ %s", "type", cfg.BuildType)
	sec.Row("%-16s→ %s", "cache", onOff(cfg.CacheEnabled))
	sec.Row("%-16s→ %s", "parallel", onOff(cfg.Parallel))
	sec.Row("%-16s→ %s", "push", onOff(cfg.Push))
	if tags := tagSummary(cfg); tags != "" {
		sec.Row("%-16s→ %s", "extra tags", tags)
	}
	sec.Close()
	output.SectionEnd(w, "be_resolve")

	// The source Dockerfile is never touched: the augmented text goes
	// to a scratch file and docker is pointed at it via --file.
	dockerfilePath := df.Path
	if !bDryRun {
		tmpPath, cleanup, werr := writeAugmented(df.Augment(cfg))
		if werr != nil {
			return werr
		}
		defer cleanup()
		dockerfilePath = tmpPath
	}
	specs := engine.Specs(cfg, df.AugmentedArgs(cfg), dockerfilePath, time.Now())

	// --- Dry run ---
	if bDryRun {
		for _, spec := range specs {
			fmt.Fprintf(w, "architecture: %s\n", spec.Arch)
			fmt.Fprintf(w, "  base:       %s\n", spec.BaseImage)
			fmt.Fprintf(w, "  image:      %s\n", spec.VersionRef())
			fmt.Fprintf(w, "  dockerfile: %s\n", spec.Dockerfile)
			fmt.Fprintf(w, "  context:    %s\n", spec.Context)
			fmt.Fprintf(w, "  build_args: %v\n", spec.BuildArgs)
			if spec.Squash {
				fmt.Fprintf(w, "  squash:     true\n")
			}
		}
		return nil
	}

	// --- Environment ---
	if !bExternalDaemon {
		var daemonOut io.Writer
		if verbose {
			daemonOut = w
		}
		mgr := &lifecycle.Manager{Out: daemonOut}
		output.SectionStart(w, "be_env", "Environment")
		envStart := time.Now()
		startErr := mgr.Start(ctx, buildArchitectures(cfg))
		if startErr != nil {
			output.SectionEnd(w, "be_env")
			_ = mgr.Close()
			return startErr
		}
		envSec := output.NewSection(w, "Environment", time.Since(envStart), color)
		envSec.Row("%-16s→ %s", "daemon", "ready")
		envSec.Row("%-16s→ %s", "emulation", strings.Join(cfg.Architectures, ", "))
		envSec.Close()
		output.SectionEnd(w, "be_env")
		defer func() {
			if cerr := mgr.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
	}

	client := engine.NewDocker()

	// --- Login ---
	if cfg.Push {
		if err := registryLogin(ctx, client); err != nil {
			return err
		}
	}

	// --- Build ---
	output.SectionStart(w, "be_build", "Build")
	run := engine.NewRun(client, cfg, specs, w, color)
	runErr := run.Execute(ctx)
	output.SectionEnd(w, "be_build")

	// --- Summary ---
	sumSec := output.NewSection(w, "Summary", 0, color)
	for _, res := range run.Results() {
		output.SummaryRow(w, res.Arch, resultStatus(res), resultDetail(res, cfg), color)
	}
	sumSec.Separator()
	status := "success"
	if runErr != nil {
		status = "failed"
	}
	output.SummaryTotal(w, time.Since(pipelineStart), status, color)
	sumSec.Close()

	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(w, "\n    Image References\n")
	for _, spec := range specs {
		fmt.Fprintf(w, "    → %s\n", spec.VersionRef())
	}
	fmt.Fprintln(w)

	return nil
}

// buildOverrides maps the flag set onto the highest-precedence
// configuration layer.
func buildOverrides(targetDir string, extraArgs map[string]string) config.Overrides {
	var archs []string
	for _, sel := range []struct {
		set  bool
		name string
	}{
		{bAarch64, "aarch64"},
		{bAmd64, "amd64"},
		{bArmhf, "armhf"},
		{bArmv7, "armv7"},
		{bI386, "i386"},
	} {
		if sel.set {
			archs = append(archs, sel.name)
		}
	}

	overrides := map[string]string{}
	for name, from := range map[string]string{
		"aarch64": bAarch64From,
		"amd64":   bAmd64From,
		"armhf":   bArmhfFrom,
		"armv7":   bArmv7From,
		"i386":    bI386From,
	} {
		if from != "" {
			overrides[name] = from
		}
	}

	return config.Overrides{
		TargetDir:           targetDir,
		Architectures:       archs,
		BuildAll:            bAll,
		BaseImageTemplate:   bFrom,
		BaseImageOverrides:  overrides,
		OutputImageTemplate: bImage,
		Version:             bVersion,
		BuildType:           bType,
		Name:                bName,
		Description:         bDescription,
		Vendor:              bVendor,
		Maintainer:          bMaintainer,
		URL:                 bURL,
		DocURL:              bDocURL,
		GitURL:              bGitURL,
		ExtraBuildArgs:      extraArgs,
		NoCache:             bNoCache,
		Squash:              bSquash,
		Parallel:            bParallel,
		TagLatest:           bTagLatest,
		TagTest:             bTagTest,
		LabelOverride:       bOverrideLabels,
		Push:                bPush,
		RequireGit:          bGit,
	}
}

// writeAugmented stores the augmented Dockerfile text in a scratch
// directory, leaving the build target's own Dockerfile untouched. The
// returned cleanup removes the scratch directory.
func writeAugmented(text string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "build-env-")
	if err != nil {
		return "", nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	path := filepath.Join(dir, "Dockerfile")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, fmt.Errorf("writing augmented Dockerfile: %w", err)
	}
	return path, func() { _ = os.RemoveAll(dir) }, nil
}

// parseBuildArgs splits repeated KEY=VALUE tokens into a map.
func parseBuildArgs(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(raw))
	for _, pair := range raw {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --arg %q, expected KEY=VALUE", pair)
		}
		out[key] = value
	}
	return out, nil
}

func buildArchitectures(cfg *config.BuildConfig) []arch.Architecture {
	archs := make([]arch.Architecture, 0, len(cfg.Architectures))
	for _, name := range cfg.Architectures {
		if a, ok := arch.Lookup(name); ok {
			archs = append(archs, a)
		}
	}
	return archs
}

// registryLogin authenticates against the target registry when
// credentials are present in the environment (optionally loaded from
// an env file). Absent credentials are not an error: the push may
// target a registry that already has a session.
func registryLogin(ctx context.Context, client engine.Client) error {
	if bEnvFile != "" {
		if err := godotenv.Load(bEnvFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", bEnvFile, err)
		}
	}
	username := os.Getenv("DOCKER_USERNAME")
	password := os.Getenv("DOCKER_PASSWORD")
	if username == "" || password == "" {
		return nil
	}
	return client.Login(ctx, os.Getenv("DOCKER_REGISTRY"), username, password)
}

func tagSummary(cfg *config.BuildConfig) string {
	var tags []string
	if cfg.TagLatest {
		tags = append(tags, "latest")
	}
	if cfg.TagTest {
		tags = append(tags, "test")
	}
	return strings.Join(tags, ", ")
}

func resultStatus(res engine.JobResult) string {
	if res.BuildErr != nil || res.TagErr != nil || res.PushErr != nil {
		return "failed"
	}
	return "success"
}

func resultDetail(res engine.JobResult, cfg *config.BuildConfig) string {
	switch {
	case res.BuildErr != nil:
		return "build failed"
	case res.TagErr != nil:
		return "tag failed"
	case res.PushErr != nil:
		return "push failed"
	case cfg.Push:
		return "built and pushed"
	default:
		return "built"
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
