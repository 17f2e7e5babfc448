package engine

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hassio-addons/build-env/src/config"
	"github.com/hassio-addons/build-env/src/exitcode"
	"github.com/hassio-addons/build-env/src/output"
)

// JobResult records one architecture's outcome across the phases.
type JobResult struct {
	Arch     string
	BuildErr error
	TagErr   error
	PushErr  error
}

// Run orchestrates one multi-architecture build: warm-up, build, tag,
// and push, each phase completing fully before the next begins.
//
// In parallel mode every launched job is awaited even after a failure,
// and the reported error is the first failure in architecture order.
// In sequential mode a failure aborts the remaining architectures.
type Run struct {
	client Client
	cfg    *config.BuildConfig
	specs  []BuildSpec
	out    io.Writer
	color  bool

	mu            sync.Mutex // serializes prefixed job output lines
	cacheDegraded atomic.Bool
	results       []JobResult
}

// NewRun prepares an orchestrated run over the given specs.
func NewRun(client Client, cfg *config.BuildConfig, specs []BuildSpec, out io.Writer, color bool) *Run {
	results := make([]JobResult, len(specs))
	for i, s := range specs {
		results[i].Arch = s.Arch
	}
	return &Run{client: client, cfg: cfg, specs: specs, out: out, color: color, results: results}
}

// Results returns the per-architecture outcomes collected so far.
func (r *Run) Results() []JobResult { return r.results }

// CacheUsable reports whether layer caching is still in effect:
// enabled by configuration and not degraded by a warm-up failure.
func (r *Run) CacheUsable() bool {
	return r.cfg.CacheEnabled && !r.cacheDegraded.Load()
}

// Execute runs all phases in order.
func (r *Run) Execute(ctx context.Context) error {
	r.WarmUp(ctx)
	if err := r.BuildPhase(ctx); err != nil {
		return err
	}
	if err := r.TagPhase(ctx); err != nil {
		return err
	}
	if r.cfg.Push {
		return r.PushPhase(ctx)
	}
	return nil
}

// WarmUp pulls each architecture's previous :latest image so the build
// can reuse unchanged layers. Any pull failure degrades caching for
// the whole run; it is never fatal. The phase barrier here guarantees
// the degradation flag is written before any build job reads it.
func (r *Run) WarmUp(ctx context.Context) {
	if !r.cfg.CacheEnabled {
		return
	}

	pull := func(spec BuildSpec) error {
		w := output.NewPrefixWriter(r.out, spec.Arch, &r.mu)
		defer w.Flush()
		if err := r.client.Pull(ctx, spec.LatestRef(), w); err != nil {
			r.cacheDegraded.Store(true)
			output.Notice(w, r.color, "cache warm-up pull of %s failed, caching disabled for this run", spec.LatestRef())
			return err
		}
		return nil
	}

	if r.parallel() {
		var g errgroup.Group
		for _, spec := range r.specs {
			spec := spec
			g.Go(func() error { return pull(spec) })
		}
		_ = g.Wait()
		return
	}

	for _, spec := range r.specs {
		_ = pull(spec)
	}
}

// BuildPhase builds every architecture's image.
func (r *Run) BuildPhase(ctx context.Context) error {
	return r.runPhase(ctx, !r.parallel(), func(ctx context.Context, i int, w io.Writer) error {
		spec := r.specs[i]
		if r.CacheUsable() {
			spec.CacheFrom = spec.LatestRef()
		}
		err := r.client.Build(ctx, spec, w)
		r.results[i].BuildErr = err
		if err != nil {
			return exitcode.Wrap(exitcode.BuildFailed, err, "build failed for %s", spec.Arch)
		}
		return nil
	})
}

// TagPhase applies the latest/test tags after a successful build
// phase. Tagging is independent per architecture: one failure never
// stops the others, in either execution mode.
func (r *Run) TagPhase(ctx context.Context) error {
	if !r.cfg.TagLatest && !r.cfg.TagTest {
		return nil
	}
	return r.runPhase(ctx, false, func(ctx context.Context, i int, w io.Writer) error {
		spec := r.specs[i]
		for _, dst := range r.extraRefs(spec) {
			if err := r.client.Tag(ctx, spec.VersionRef(), dst, w); err != nil {
				r.results[i].TagErr = err
				return exitcode.Wrap(exitcode.TagFailed, err, "tagging %s failed for %s", dst, spec.Arch)
			}
		}
		return nil
	})
}

// PushPhase uploads the version tag plus any latest/test tags, with
// the same fan-out and failure aggregation as the build phase.
func (r *Run) PushPhase(ctx context.Context) error {
	return r.runPhase(ctx, !r.parallel(), func(ctx context.Context, i int, w io.Writer) error {
		spec := r.specs[i]
		refs := append([]string{spec.VersionRef()}, r.extraRefs(spec)...)
		for _, ref := range refs {
			if err := r.client.Push(ctx, ref, w); err != nil {
				r.results[i].PushErr = err
				return exitcode.Wrap(exitcode.PushFailed, err, "pushing %s failed for %s", ref, spec.Arch)
			}
		}
		return nil
	})
}

// extraRefs lists the additional tags configured for a spec.
func (r *Run) extraRefs(spec BuildSpec) []string {
	var refs []string
	if r.cfg.TagLatest {
		refs = append(refs, spec.LatestRef())
	}
	if r.cfg.TagTest {
		refs = append(refs, spec.TestRef())
	}
	return refs
}

func (r *Run) parallel() bool {
	return r.cfg.Parallel && len(r.specs) > 1
}

// runPhase executes fn once per architecture. Parallel mode launches
// every job, awaits them all, and returns the first failure in
// architecture order. failFast mode runs jobs one at a time and stops
// at the first failure, never starting the remaining architectures.
func (r *Run) runPhase(ctx context.Context, failFast bool, fn func(ctx context.Context, i int, w io.Writer) error) error {
	if failFast || !r.parallel() {
		var firstErr error
		for i := range r.specs {
			w := output.NewPrefixWriter(r.out, r.specs[i].Arch, &r.mu)
			err := fn(ctx, i, w)
			w.Flush()
			if err != nil {
				if failFast {
					return err
				}
				if firstErr == nil {
					firstErr = err
				}
			}
		}
		return firstErr
	}

	errs := make([]error, len(r.specs))
	var wg sync.WaitGroup
	for i := range r.specs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := output.NewPrefixWriter(r.out, r.specs[i].Arch, &r.mu)
			errs[i] = fn(ctx, i, w)
			w.Flush()
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
