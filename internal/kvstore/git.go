// Keeps blobs in a git worktree using go-git (pure Go, no git binary dependency).

package kvstore

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Git is a Dir whose every Set is committed to a git repository, giving the
// blobs a browsable history.
type Git struct {
	*Dir
	name  string
	email string
	repo  *gogit.Repository
	mu    sync.Mutex
}

// NewGit opens the repository at dir, initializing it when missing.
// name and email sign the commits.
func NewGit(dir, name, email string) (*Git, error) {
	d, err := NewDir(dir)
	if err != nil {
		return nil, err
	}
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		// Not a repo yet, initialize it.
		repo, err = gogit.PlainInit(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize git repo: %w", err)
		}
		cfg, err := repo.Config()
		if err != nil {
			return nil, fmt.Errorf("failed to read git config: %w", err)
		}
		cfg.User.Name = name
		cfg.User.Email = email
		if err := repo.SetConfig(cfg); err != nil {
			return nil, fmt.Errorf("failed to write git config: %w", err)
		}
	}
	return &Git{Dir: d, name: name, email: email, repo: repo}, nil
}

// Set writes the blob and commits it. Writing identical content creates no
// commit.
func (g *Git) Set(key, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.Dir.Set(key, value); err != nil {
		return err
	}
	p, err := g.Path(key)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(g.Root(), p)
	if err != nil {
		return unavailable("commit", key, err)
	}

	w, err := g.repo.Worktree()
	if err != nil {
		return unavailable("commit", key, fmt.Errorf("failed to get worktree: %w", err))
	}
	if _, err := w.Add(rel); err != nil {
		return unavailable("commit", key, fmt.Errorf("failed to stage %s: %w", rel, err))
	}
	status, err := w.Status()
	if err != nil {
		return unavailable("commit", key, fmt.Errorf("failed to get worktree status: %w", err))
	}
	if fs, ok := status[rel]; !ok || fs.Staging == gogit.Unmodified {
		return nil
	}
	sig := &object.Signature{Name: g.name, Email: g.email, When: time.Now()}
	if _, err := w.Commit("Update "+key, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		return unavailable("commit", key, fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}

// CommitCount returns the total number of commits in the repository. A
// repository without commits has zero.
func (g *Git) CommitCount() (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	iter, err := g.repo.Log(&gogit.LogOptions{})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read git log: %w", err)
	}
	defer iter.Close()
	n := 0
	err = iter.ForEach(func(*object.Commit) error {
		n++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk git log: %w", err)
	}
	return n, nil
}
