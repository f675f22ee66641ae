package gitsync

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/starford/envisage/internal/apperr"
)

const (
	DefaultRemote = "origin"
	DefaultBranch = "main"
)

// Result describes one sync attempt. It is reported, never persisted.
type Result struct {
	OK      bool
	NoOp    bool
	Retried bool
	Message string
	Err     error
}

func (r Result) String() string {
	switch {
	case r.NoOp:
		return "no-op: " + r.Message
	case r.OK:
		return "ok: " + r.Message
	default:
		return "failed: " + r.Message
	}
}

// Syncer stages, commits and pushes a repository working tree.
type Syncer struct {
	runner   Runner
	repoDir  string
	remote   string
	branch   string
	stageAll bool
	excludes []string
	logger   *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithRemote sets the remote and branch pushed to.
func WithRemote(remote, branch string) Option {
	return func(s *Syncer) {
		if remote != "" {
			s.remote = remote
		}
		if branch != "" {
			s.branch = branch
		}
	}
}

// WithStageAll chooses between `add --all` (true) and `add .` (false).
func WithStageAll(all bool) Option {
	return func(s *Syncer) { s.stageAll = all }
}

// WithExclude keeps paths (relative to the repository, wildcards allowed) out
// of both the dirty check and staging.
func WithExclude(paths ...string) Option {
	return func(s *Syncer) { s.excludes = append(s.excludes, paths...) }
}

// NewSyncer creates a Syncer for repoDir. A nil runner uses ExecRunner.
func NewSyncer(runner Runner, repoDir string, logger *slog.Logger, opts ...Option) *Syncer {
	if runner == nil {
		runner = ExecRunner{}
	}
	if repoDir == "" {
		repoDir = "."
	}
	s := &Syncer{
		runner:   runner,
		repoDir:  repoDir,
		remote:   DefaultRemote,
		branch:   DefaultBranch,
		stageAll: true,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync commits every pending change with message and pushes it. A clean
// working tree is a successful no-op unless earlier commits are still
// unpushed, which are pushed then. A rejected push is retried once after
// fetching and rebasing (or merging, if the rebase fails).
func (s *Syncer) Sync(ctx context.Context, message string) Result {
	if _, err := s.git(ctx, "rev-parse", "--is-inside-work-tree"); err != nil {
		return s.fail(fmt.Errorf("gitsync: %s: %w", s.repoDir, apperr.ErrNotRepository),
			"not a git repository; initialize one with `git init`")
	}

	statusArgs := []string{"status", "--porcelain"}
	if spec := s.pathspec(); spec != nil {
		statusArgs = append(append(statusArgs, "--untracked-files=all"), spec...)
	}
	status, err := s.git(ctx, statusArgs...)
	if err != nil {
		return s.fail(err, "git status failed")
	}
	clean := strings.TrimSpace(status) == ""

	remotes, err := s.git(ctx, "remote")
	if err != nil {
		return s.fail(err, "git remote failed")
	}
	if clean {
		if hasRemote(remotes, s.remote) {
			if n := s.unpushed(ctx); n > 0 {
				s.logger.Info("gitsync: pushing earlier commits", slog.Int("commits", n))
				return s.pushWithRetry(ctx, fmt.Sprintf("pushed %d pending commit(s)", n))
			}
		}
		s.logger.Info("gitsync: nothing to commit")
		return Result{OK: true, NoOp: true, Message: "no changes to commit (clean working tree)"}
	}
	if !hasRemote(remotes, s.remote) {
		return s.fail(fmt.Errorf("gitsync: remote %q: %w", s.remote, apperr.ErrNoRemote),
			fmt.Sprintf("no remote named %q configured; cannot push", s.remote))
	}

	addArgs := []string{"add", "--all"}
	if !s.stageAll {
		addArgs = []string{"add"}
	}
	if spec := s.pathspec(); spec != nil {
		addArgs = append(addArgs, spec...)
	} else if !s.stageAll {
		addArgs = append(addArgs, ".")
	}
	if _, err := s.git(ctx, addArgs...); err != nil {
		return s.fail(err, "git add failed")
	}
	if _, err := s.git(ctx, "commit", "-m", message); err != nil {
		return s.fail(err, "git commit failed")
	}

	return s.pushWithRetry(ctx, "push complete")
}

// pushWithRetry pushes the branch, retrying once after a pull.
func (s *Syncer) pushWithRetry(ctx context.Context, okMsg string) Result {
	refspec := s.branch + ":" + s.branch
	s.logger.Info("gitsync: pushing", slog.String("remote", s.remote), slog.String("branch", s.branch))
	pushErr := s.push(ctx, refspec)
	if pushErr == nil {
		return Result{OK: true, Message: okMsg}
	}

	s.logger.Warn("gitsync: push rejected, retrying after pull", slog.String("error", pushErr.Error()))
	if err := s.pull(ctx); err != nil {
		r := s.fail(err, "pull before retry failed")
		r.Retried = true
		return r
	}
	if err := s.push(ctx, refspec); err != nil {
		r := s.fail(err, "push failed after pull")
		r.Retried = true
		return r
	}
	return Result{OK: true, Retried: true, Message: okMsg + " after pull"}
}

func (s *Syncer) pathspec() []string {
	if len(s.excludes) == 0 {
		return nil
	}
	spec := []string{"--", "."}
	for _, p := range s.excludes {
		spec = append(spec, ":(exclude)"+p)
	}
	return spec
}

// unpushed counts local commits missing from the remote branch. An unknown
// remote branch counts as none.
func (s *Syncer) unpushed(ctx context.Context) int {
	out, err := s.git(ctx, "rev-list", "--count", s.remote+"/"+s.branch+"..HEAD")
	if err != nil {
		s.logger.Debug("gitsync: rev-list", slog.String("error", err.Error()))
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0
	}
	return n
}

func (s *Syncer) push(ctx context.Context, refspec string) error {
	_, err := s.git(ctx, "push", s.remote, refspec)
	return err
}

// pull brings the local branch up to date with the remote, preferring a
// rebase and falling back to a merge.
func (s *Syncer) pull(ctx context.Context) error {
	if _, err := s.git(ctx, "fetch", s.remote); err != nil {
		return err
	}
	_, err := s.git(ctx, "pull", "--rebase", s.remote, s.branch)
	if err == nil {
		return nil
	}
	s.logger.Warn("gitsync: rebase failed, falling back to merge", slog.String("error", err.Error()))
	if _, abortErr := s.git(ctx, "rebase", "--abort"); abortErr != nil {
		s.logger.Debug("gitsync: rebase abort", slog.String("error", abortErr.Error()))
	}
	_, err = s.git(ctx, "pull", s.remote, s.branch)
	return err
}

func (s *Syncer) git(ctx context.Context, args ...string) (string, error) {
	return s.runner.Run(ctx, s.repoDir, args...)
}

func (s *Syncer) fail(err error, msg string) Result {
	s.logger.Error("gitsync: "+msg, slog.String("error", err.Error()))
	return Result{Message: msg + ": " + err.Error(), Err: err}
}

func hasRemote(list, name string) bool {
	for _, r := range strings.Fields(list) {
		if r == name {
			return true
		}
	}
	return false
}
