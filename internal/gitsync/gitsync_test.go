package gitsync

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/trellis/internal/config"
)

func commitFile(t *testing.T, dir, name, content string) {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o640))
	_, err = worktree.Add(name)
	require.NoError(t, err)
	_, err = worktree.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com"},
	})
	require.NoError(t, err)
}

func newRemote(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, dir, "note.md", "# Note")
	return dir
}

func TestSync_Disabled_NoOp(t *testing.T) {
	s := New(config.GitSyncConfig{}, t.TempDir(), nil)
	require.False(t, s.Enabled())
	require.NoError(t, s.Sync(context.Background()))
}

func TestSync_ClonesThenPulls(t *testing.T) {
	remote := newRemote(t)
	contentRoot := filepath.Join(t.TempDir(), "content")

	s := New(config.GitSyncConfig{Remote: remote}, contentRoot, nil)
	require.True(t, s.Enabled())

	require.NoError(t, s.Sync(context.Background()))
	require.FileExists(t, filepath.Join(contentRoot, "note.md"))

	// Second sync is a pull; up to date is not an error.
	require.NoError(t, s.Sync(context.Background()))

	// New upstream commit arrives on the next sync.
	commitFile(t, remote, "second.md", "# Second")
	require.NoError(t, s.Sync(context.Background()))
	require.FileExists(t, filepath.Join(contentRoot, "second.md"))
}
