// Package gitver derives build metadata from the local git repository:
// a version (tag, commit, or dirty sentinel), the build ref, the
// normalized remote URL, and the latest/test tagging hints.
package gitver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/hassio-addons/build-env/src/config"
)

// ErrNoRepository means the target directory is not inside a git
// repository. Fatal only when git metadata was explicitly requested.
var ErrNoRepository = errors.New("not a git repository")

// DirtySentinel is the version/ref value used for a modified tree.
const DirtySentinel = "dirty"

// RepoState is the repository-derived configuration source.
type RepoState struct {
	Version   string
	BuildRef  string
	GitURL    string
	TagLatest bool // HEAD is exactly on the newest version tag
	TagTest   bool // untagged or dirty: image should carry the test tag
	Dirty     bool
}

// sshRemoteRe matches SSH-style GitHub remotes: git@github.com:owner/repo[.git]
var sshRemoteRe = regexp.MustCompile(`^git@([^:]+):(.+?)(?:\.git)?$`)

// Inspect reads the repository containing dir and applies the version
// policy: a clean tree sitting exactly on a tag uses the tag (stripped
// of its "v" prefix) as version, and marks latest when that tag is the
// newest one; a clean untagged tree uses the short commit hash and
// marks test; a dirty tree uses the sentinel and marks test.
func Inspect(dir string) (*RepoState, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNoRepository
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	s := &RepoState{}
	s.GitURL = remoteURL(repo)

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}

	if !status.IsClean() {
		s.Dirty = true
		s.Version = DirtySentinel
		s.BuildRef = DirtySentinel
		s.TagTest = true
		return s, nil
	}

	head, err := repo.Head()
	if err != nil {
		// A freshly initialized repository has no commits yet; treat it
		// like the no-repository case rather than aborting the build.
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrNoRepository
		}
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	headTag, newest := tagsAt(repo, head.Hash())
	if headTag != "" {
		s.Version = strings.TrimPrefix(headTag, "v")
		s.BuildRef = headTag
		s.TagLatest = headTag == newest
		return s, nil
	}

	short := head.Hash().String()[:7]
	s.Version = short
	s.BuildRef = short
	s.TagTest = true
	return s, nil
}

// Partial converts the repository state into a configuration source.
func (s *RepoState) Partial() config.Partial {
	return config.Partial{
		Version:   s.Version,
		BuildRef:  s.BuildRef,
		GitURL:    s.GitURL,
		TagLatest: &s.TagLatest,
		TagTest:   &s.TagTest,
	}
}

// tagsAt returns the tag pointing exactly at hash (any one, annotated
// tags resolved to their targets) and the newest version-ordered tag
// name in the whole repository.
func tagsAt(repo *git.Repository, hash plumbing.Hash) (atHead, newest string) {
	iter, err := repo.Tags()
	if err != nil {
		return "", ""
	}
	defer iter.Close()

	var newestVer *masterminds.Version
	_ = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		target := ref.Hash()
		if tagObj, err := repo.TagObject(ref.Hash()); err == nil {
			target = tagObj.Target
		}

		if target == hash {
			atHead = name
		}
		if v, err := masterminds.NewVersion(name); err == nil {
			if newestVer == nil || v.GreaterThan(newestVer) {
				newestVer = v
				newest = name
			}
		}
		return nil
	})
	return atHead, newest
}

// remoteURL returns the origin remote's URL with SSH-style remotes
// normalized to HTTPS and any .git suffix stripped.
func remoteURL(repo *git.Repository) string {
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil || len(remote.Config().URLs) == 0 {
		return ""
	}
	return NormalizeRemote(remote.Config().URLs[0])
}

// NormalizeRemote converts git@host:owner/repo[.git] to
// https://host/owner/repo and strips a trailing .git from HTTP remotes.
func NormalizeRemote(url string) string {
	if m := sshRemoteRe.FindStringSubmatch(url); m != nil {
		return "https://" + m[1] + "/" + m[2]
	}
	return strings.TrimSuffix(url, ".git")
}
