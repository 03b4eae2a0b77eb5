package gateway

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"
)

// GitSync commits the registry file into the repository that contains it and
// pushes the commit to origin.
type GitSync struct {
	repoDir  string
	username string
	token    string
	push     bool
	logger   *zap.Logger
}

// NewGitSync creates a publisher for the git repository containing repoDir.
// When push is false commits stay local.
func NewGitSync(repoDir, username, token string, push bool, logger *zap.Logger) *GitSync {
	return &GitSync{repoDir: repoDir, username: username, token: token, push: push, logger: logger}
}

// Publish stages path, commits it and optionally pushes.
func (g *GitSync) Publish(ctx context.Context, path string) error {
	repo, err := git.PlainOpenWithOptions(g.repoDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fmt.Errorf("failed to open git repository %s: %w", g.repoDir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to open worktree: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(wt.Filesystem.Root(), abs)
	if err != nil {
		return fmt.Errorf("registry %s is outside the repository: %w", path, err)
	}
	if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
		return fmt.Errorf("failed to stage %s: %w", rel, err)
	}

	status, err := wt.Status()
	if err != nil {
		return fmt.Errorf("failed to read worktree status: %w", err)
	}
	if status.IsClean() {
		g.logger.Debug("Registry unchanged, nothing to commit")
		return nil
	}

	hash, err := wt.Commit("Updated config", &git.CommitOptions{
		Author: &object.Signature{Name: "ctrl", Email: "ctrl@users.noreply.github.com", When: time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to commit registry: %w", err)
	}
	g.logger.Info("Committed registry", zap.String("commit", hash.String()))

	if !g.push {
		return nil
	}
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		Auth:       &githttp.BasicAuth{Username: g.username, Password: g.token},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push registry: %w", err)
	}
	g.logger.Info("Pushed registry to origin")
	return nil
}
