package internal

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/envisage/internal/testutil"
)

const sampleNote = "---\ncreated_utc: 2025-01-02T03:04:05.678+00:00\nsource: screenshot\norig_filename: shot1.png\ntopics: general\nversion: 1.0\nocr_engine: tesseract\n---\n\nHello world\n"

func testConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Notes.Dir = filepath.Join(root, "notes")
	cfg.Site.Dir = filepath.Join(root, "site")
	cfg.Watch.Dir = filepath.Join(root, "shots")
	cfg.Clipboard.Dir = filepath.Join(root, "captures")
	cfg.SQLite.Path = filepath.Join(root, "envisage.db")
	cfg.Git.Enabled = false
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRun_GenerateMode(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Notes.Dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Notes.Dir, "20250102T030405_678000Z__shot1.md"), []byte(sampleNote), 0o644))

	require.NoError(t, Run(context.Background(), WithConfig(cfg), WithMode(ModeGenerate)))

	assert.FileExists(t, filepath.Join(cfg.Site.Dir, "index.html"))
	assert.FileExists(t, filepath.Join(cfg.Site.Dir, "notes", "20250102T030405_678000Z__shot1.html"))
}

func TestRun_RequiresConfig(t *testing.T) {
	assert.Error(t, Run(context.Background()))
}

func TestRun_UnknownMode(t *testing.T) {
	err := Run(context.Background(), WithConfig(testConfig(t)), WithMode("dance"))
	assert.ErrorContains(t, err, "unknown mode")
}

func TestHTTPHandler(t *testing.T) {
	cfg := testConfig(t)
	comps, err := buildComponents(cfg, testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(comps.Close)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Notes.Dir, "20250102T030405_678000Z__shot1.md"), []byte(sampleNote), 0o644))
	require.True(t, comps.pipeline.Regenerate(context.Background()).OK())

	srv := httptest.NewServer(newHTTPHandler(cfg, comps, testutil.Logger()))
	t.Cleanup(srv.Close)

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	code, _ = get("/health/ready")
	assert.Equal(t, http.StatusOK, code)

	code, body = get("/api/notes")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "20250102T030405_678000Z__shot1.md")

	code, body = get("/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Hello world")

	code, _ = get("/notes/20250102T030405_678000Z__shot1.html")
	assert.Equal(t, http.StatusOK, code)
}

func TestRuntimeExcludes(t *testing.T) {
	root := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Git.RepoDir = root
	cfg.SQLite.Path = filepath.Join(root, "data", "envisage.db")
	cfg.App.LogFile = filepath.Join(root, "data", "envisage.log")

	assert.Equal(t, []string{
		"data/envisage.db", "data/envisage.db-wal", "data/envisage.db-shm", "data/envisage.db-journal",
		"data/envisage*.log",
	}, runtimeExcludes(cfg))

	cfg.SQLite.Path = filepath.Join(t.TempDir(), "envisage.db")
	cfg.App.LogFile = ""
	assert.Empty(t, runtimeExcludes(cfg), "paths outside the repository need no exclusion")
}

func TestRun_SyncModeTwiceIsNoOp(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	root := t.TempDir()
	remote := filepath.Join(root, "remote.git")
	repo := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(repo, 0o755))

	git := func(dir string, args ...string) string {
		t.Helper()
		out, err := exec.Command("git", append([]string{"-C", dir}, args...)...).CombinedOutput()
		require.NoError(t, err, string(out))
		return strings.TrimSpace(string(out))
	}
	git(root, "init", "-q", "--bare", remote)
	git(repo, "init", "-q")
	git(repo, "checkout", "-q", "-b", "main")
	git(repo, "config", "user.name", "Envisage Test")
	git(repo, "config", "user.email", "test@example.com")
	git(repo, "config", "commit.gpgsign", "false")
	git(repo, "remote", "add", "origin", remote)

	cfg := NewDefaultConfig()
	cfg.App.LogFile = filepath.Join(repo, "data", "envisage.log")
	cfg.Notes.Dir = filepath.Join(repo, "notes")
	cfg.Site.Dir = filepath.Join(repo, "site")
	cfg.Watch.Dir = filepath.Join(root, "shots")
	cfg.Clipboard.Dir = filepath.Join(root, "captures")
	cfg.SQLite.Path = filepath.Join(repo, "data", "envisage.db")
	cfg.Git.Enabled = true
	cfg.Git.RepoDir = repo
	cfg.Git.Remote = "origin"
	cfg.Git.Branch = "main"
	require.NoError(t, cfg.Validate())

	require.NoError(t, os.MkdirAll(cfg.Notes.Dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Notes.Dir, "20250102T030405_678000Z__shot1.md"), []byte(sampleNote), 0o644))

	require.NoError(t, Run(context.Background(), WithConfig(cfg), WithMode(ModeSync)))
	assert.Equal(t, "1", git(repo, "rev-list", "--count", "HEAD"))
	assert.FileExists(t, cfg.SQLite.Path)
	assert.FileExists(t, cfg.App.LogFile)

	require.NoError(t, Run(context.Background(), WithConfig(cfg), WithMode(ModeSync)))
	assert.Equal(t, "1", git(repo, "rev-list", "--count", "HEAD"), "second sync must not commit")
	assert.Equal(t, "1", git(remote, "rev-list", "--count", "main"))

	comps, err := buildComponents(cfg, testutil.Logger())
	require.NoError(t, err)
	t.Cleanup(comps.Close)
	rep := comps.pipeline.SyncNow(context.Background(), "notes: sync")
	require.NotNil(t, rep.Sync)
	assert.True(t, rep.Sync.NoOp, rep.Sync.String())

	tracked := git(repo, "ls-files")
	assert.Contains(t, tracked, "notes/20250102T030405_678000Z__shot1.md")
	assert.NotContains(t, tracked, "envisage.db")
	assert.NotContains(t, tracked, "envisage.log")
}
