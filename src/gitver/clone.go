package gitver

import (
	"context"
	"io"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/hassio-addons/build-env/src/exitcode"
)

// Clone fetches the remote repository into dir. The directory must be
// empty (or absent): cloning over existing files is a distinct fatal
// condition, not a merge.
func Clone(ctx context.Context, url, branch, dir string, progress io.Writer) error {
	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return exitcode.Wrap(exitcode.CloneFailed, err, "creating target directory %s", dir)
		}
	case err != nil:
		return exitcode.Wrap(exitcode.CloneFailed, err, "reading target directory %s", dir)
	case len(entries) > 0:
		return exitcode.New(exitcode.DirNotEmpty, "target directory %s is not empty, refusing to clone into it", dir)
	}

	opts := &git.CloneOptions{
		URL:      url,
		Progress: progress,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}

	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return exitcode.Wrap(exitcode.CloneFailed, err, "cloning %s", url)
	}
	return nil
}
