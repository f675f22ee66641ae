package gitsync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/envisage/internal/apperr"
	"github.com/starford/envisage/internal/testutil"
)

// scriptedRunner answers git commands from a table keyed by the joined
// arguments. A key may hold several answers, consumed in order.
type scriptedRunner struct {
	answers map[string][]answer
	calls   []string
}

type answer struct {
	out string
	err error
}

func (r *scriptedRunner) Run(_ context.Context, _ string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	r.calls = append(r.calls, key)
	queue := r.answers[key]
	if len(queue) == 0 {
		return "", nil
	}
	a := queue[0]
	if len(queue) > 1 {
		r.answers[key] = queue[1:]
	}
	return a.out, a.err
}

func (r *scriptedRunner) called(key string) int {
	n := 0
	for _, c := range r.calls {
		if c == key {
			n++
		}
	}
	return n
}

func dirtyRepo() map[string][]answer {
	return map[string][]answer{
		"status --porcelain": {{out: "?? notes/20250101T000000_000000Z__a.md"}},
		"remote":             {{out: "origin\n"}},
	}
}

func newSyncer(r Runner) *Syncer {
	return NewSyncer(r, "/repo", testutil.Logger())
}

func TestSync_PushSucceeds(t *testing.T) {
	r := &scriptedRunner{answers: dirtyRepo()}
	res := newSyncer(r).Sync(context.Background(), "notes: add a.md")

	assert.True(t, res.OK)
	assert.False(t, res.NoOp)
	assert.False(t, res.Retried)
	assert.Equal(t, 1, r.called("add --all"))
	assert.Equal(t, 1, r.called("commit -m notes: add a.md"))
	assert.Equal(t, 1, r.called("push origin main:main"))
}

func TestSync_RejectedOnceThenSucceeds(t *testing.T) {
	answers := dirtyRepo()
	answers["push origin main:main"] = []answer{{err: errors.New("rejected: non-fast-forward")}, {}}
	r := &scriptedRunner{answers: answers}

	res := newSyncer(r).Sync(context.Background(), "notes: add a.md")

	assert.True(t, res.OK, res.Message)
	assert.True(t, res.Retried)
	assert.Equal(t, 2, r.called("push origin main:main"))
	assert.Equal(t, 1, r.called("fetch origin"))
	assert.Equal(t, 1, r.called("pull --rebase origin main"))
	assert.Zero(t, r.called("pull origin main"))
}

func TestSync_RebaseFailsFallsBackToMerge(t *testing.T) {
	answers := dirtyRepo()
	answers["push origin main:main"] = []answer{{err: errors.New("rejected")}, {}}
	answers["pull --rebase origin main"] = []answer{{err: errors.New("conflict")}}
	r := &scriptedRunner{answers: answers}

	res := newSyncer(r).Sync(context.Background(), "msg")

	assert.True(t, res.OK)
	assert.True(t, res.Retried)
	assert.Equal(t, 1, r.called("rebase --abort"))
	assert.Equal(t, 1, r.called("pull origin main"))
}

func TestSync_RetryFails(t *testing.T) {
	answers := dirtyRepo()
	answers["push origin main:main"] = []answer{{err: errors.New("rejected")}, {err: errors.New("still rejected")}}
	r := &scriptedRunner{answers: answers}

	res := newSyncer(r).Sync(context.Background(), "msg")

	assert.False(t, res.OK)
	assert.True(t, res.Retried)
	assert.Contains(t, res.Message, "push failed after pull")
	assert.Equal(t, 2, r.called("push origin main:main"))
}

func TestSync_CleanTreeIsNoOp(t *testing.T) {
	r := &scriptedRunner{answers: map[string][]answer{}}
	res := newSyncer(r).Sync(context.Background(), "msg")

	assert.True(t, res.OK)
	assert.True(t, res.NoOp)
	assert.NoError(t, res.Err)
	assert.Zero(t, r.called("add --all"))
	assert.Zero(t, r.called("commit -m msg"))
}

func TestSync_CleanTreePushesPendingCommits(t *testing.T) {
	r := &scriptedRunner{answers: map[string][]answer{
		"remote":                             {{out: "origin\n"}},
		"rev-list --count origin/main..HEAD": {{out: "2\n"}},
	}}
	res := newSyncer(r).Sync(context.Background(), "msg")

	assert.True(t, res.OK, res.Message)
	assert.False(t, res.NoOp)
	assert.Equal(t, 1, r.called("push origin main:main"))
	assert.Zero(t, r.called("commit -m msg"))
	assert.Contains(t, res.Message, "2 pending")
}

func TestSync_CleanTreeInSyncWithRemoteIsNoOp(t *testing.T) {
	r := &scriptedRunner{answers: map[string][]answer{
		"remote":                             {{out: "origin\n"}},
		"rev-list --count origin/main..HEAD": {{out: "0\n"}},
	}}
	res := newSyncer(r).Sync(context.Background(), "msg")

	assert.True(t, res.OK)
	assert.True(t, res.NoOp)
	assert.Zero(t, r.called("push origin main:main"))
}

func TestSync_CleanTreePendingPushRetriedAfterPull(t *testing.T) {
	r := &scriptedRunner{answers: map[string][]answer{
		"remote":                             {{out: "origin\n"}},
		"rev-list --count origin/main..HEAD": {{out: "1"}},
		"push origin main:main":              {{err: errors.New("rejected")}, {}},
	}}
	res := newSyncer(r).Sync(context.Background(), "msg")

	assert.True(t, res.OK, res.Message)
	assert.True(t, res.Retried)
	assert.Equal(t, 2, r.called("push origin main:main"))
}

func TestSync_ExcludedPathsKeptOutOfStatusAndStaging(t *testing.T) {
	const status = "status --porcelain --untracked-files=all -- . :(exclude)data/envisage.db :(exclude)data/envisage*.log"
	r := &scriptedRunner{answers: map[string][]answer{
		status:   {{out: "?? notes/a.md"}},
		"remote": {{out: "origin"}},
	}}
	s := NewSyncer(r, "/repo", testutil.Logger(), WithExclude("data/envisage.db", "data/envisage*.log"))
	res := s.Sync(context.Background(), "msg")

	assert.True(t, res.OK, res.Message)
	assert.Equal(t, 1, r.called(status))
	assert.Equal(t, 1, r.called("add --all -- . :(exclude)data/envisage.db :(exclude)data/envisage*.log"))
	assert.Zero(t, r.called("add --all"))
}

func TestSync_OnlyExcludedChangesIsNoOp(t *testing.T) {
	r := &scriptedRunner{answers: map[string][]answer{
		"status --porcelain": {{out: "?? data/envisage.db"}},
		"remote":             {{out: "origin"}},
	}}
	s := NewSyncer(r, "/repo", testutil.Logger(), WithExclude("data/envisage.db"))
	res := s.Sync(context.Background(), "msg")

	assert.True(t, res.NoOp, res.Message)
	assert.Zero(t, r.called("status --porcelain"))
	assert.Zero(t, r.called("commit -m msg"))
}

func TestSync_NoRemote(t *testing.T) {
	r := &scriptedRunner{answers: map[string][]answer{
		"status --porcelain": {{out: " M a.md"}},
		"remote":             {{out: ""}},
	}}
	res := newSyncer(r).Sync(context.Background(), "msg")

	assert.False(t, res.OK)
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, apperr.ErrNoRemote))
	assert.Zero(t, r.called("commit -m msg"), "tree left as is")
}

func TestSync_NotARepository(t *testing.T) {
	r := &scriptedRunner{answers: map[string][]answer{
		"rev-parse --is-inside-work-tree": {{err: errors.New("fatal: not a git repository")}},
	}}
	res := newSyncer(r).Sync(context.Background(), "msg")

	assert.False(t, res.OK)
	assert.True(t, errors.Is(res.Err, apperr.ErrNotRepository))
	assert.Contains(t, res.String(), "failed")
}

func TestSync_CustomRemoteAndStaging(t *testing.T) {
	r := &scriptedRunner{answers: map[string][]answer{
		"status --porcelain": {{out: " M a.md"}},
		"remote":             {{out: "origin\nbackup"}},
	}}
	s := NewSyncer(r, "/repo", testutil.Logger(), WithRemote("backup", "notes"), WithStageAll(false))
	res := s.Sync(context.Background(), "msg")

	assert.True(t, res.OK)
	assert.Equal(t, 1, r.called("add ."))
	assert.Equal(t, 1, r.called("push backup notes:notes"))
}
