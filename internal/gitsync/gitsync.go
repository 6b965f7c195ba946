// Package gitsync keeps the content tree in sync with a git remote, so a
// notes repository pushed from elsewhere shows up on the next prebuild.
package gitsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.home.luguber.info/inful/trellis/internal/config"
	"git.home.luguber.info/inful/trellis/internal/logfields"
)

// Syncer clones or fast-forwards the content tree from the configured remote.
type Syncer struct {
	cfg         config.GitSyncConfig
	contentRoot string
	logger      *slog.Logger
}

func New(cfg config.GitSyncConfig, contentRoot string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{cfg: cfg, contentRoot: contentRoot, logger: logger}
}

// Enabled reports whether a remote is configured.
func (s *Syncer) Enabled() bool { return s.cfg.Remote != "" }

// Sync clones the remote when the content root is not yet a repository,
// otherwise pulls. Already-up-to-date is not an error.
func (s *Syncer) Sync(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}

	if _, err := os.Stat(filepath.Join(s.contentRoot, ".git")); err == nil {
		return s.pull(ctx)
	}
	return s.clone(ctx)
}

func (s *Syncer) clone(ctx context.Context) error {
	opts := &git.CloneOptions{
		URL:  s.cfg.Remote,
		Auth: s.auth(),
	}
	if s.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.cfg.Branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, s.contentRoot, false, opts)
	if err != nil {
		return fmt.Errorf("clone content remote %s: %w", s.cfg.Remote, err)
	}

	if ref, headErr := repo.Head(); headErr == nil {
		s.logger.Info("content repository cloned",
			slog.String("remote", s.cfg.Remote),
			slog.String("commit", ref.Hash().String()[:8]))
	} else {
		s.logger.Info("content repository cloned", slog.String("remote", s.cfg.Remote))
	}
	return nil
}

func (s *Syncer) pull(ctx context.Context) error {
	repo, err := git.PlainOpen(s.contentRoot)
	if err != nil {
		return fmt.Errorf("open content repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	opts := &git.PullOptions{
		RemoteName: "origin",
		Auth:       s.auth(),
	}
	if s.cfg.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(s.cfg.Branch)
	}

	err = worktree.PullContext(ctx, opts)
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		s.logger.Debug("content repository already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("pull content remote %s: %w", s.cfg.Remote, err)
	}

	if ref, headErr := repo.Head(); headErr == nil {
		s.logger.Info("content repository updated",
			slog.String("commit", ref.Hash().String()[:8]),
			logfields.Path(s.contentRoot))
	}
	return nil
}

// auth builds token auth for HTTP remotes; forge tokens go in the password
// slot with a fixed username.
func (s *Syncer) auth() *githttp.BasicAuth {
	if s.cfg.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "token", Password: s.cfg.Token}
}
