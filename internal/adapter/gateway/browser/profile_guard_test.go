package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProcess struct {
	pid          int32
	name         string
	args         []string
	ignoresTerm  bool
	killErr      error
	running      bool
	terminated   bool
	killed       bool
	inspectError error
}

func (p *fakeProcess) PID() int32 { return p.pid }

func (p *fakeProcess) Name(ctx context.Context) (string, error) {
	return p.name, p.inspectError
}

func (p *fakeProcess) Cmdline(ctx context.Context) ([]string, error) {
	return p.args, p.inspectError
}

func (p *fakeProcess) Terminate(ctx context.Context) error {
	p.terminated = true
	if !p.ignoresTerm {
		p.running = false
	}
	return nil
}

func (p *fakeProcess) Kill(ctx context.Context) error {
	p.killed = true
	if p.killErr != nil {
		return p.killErr
	}
	p.running = false
	return nil
}

func (p *fakeProcess) IsRunning(ctx context.Context) (bool, error) {
	return p.running, nil
}

type fakeTable []*fakeProcess

func (t fakeTable) Processes(ctx context.Context) ([]Process, error) {
	out := make([]Process, 0, len(t))
	for _, p := range t {
		out = append(out, p)
	}
	return out, nil
}

const (
	testExec    = `C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`
	testProfile = `C:\Users\op\AppData\Local\BraveSoftware\Brave-Browser\User Data`
)

func newTestGuard(table ProcessTable) *ProfileGuard {
	logger, _ := test.NewNullLogger()
	g := NewProfileGuard(table, testExec, testProfile, 20*time.Millisecond, logger)
	g.poll = time.Millisecond
	return g
}

func TestProfileGuard_TerminatesOnlyProfileHolders(t *testing.T) {
	holder := &fakeProcess{
		pid: 10, name: "brave.exe", running: true,
		args: []string{"brave.exe", `--user-data-dir=C:\Users\op\AppData\Local\BraveSoftware\Brave-Browser\User Data`},
	}
	otherProfile := &fakeProcess{
		pid: 11, name: "brave.exe", running: true,
		args: []string{"brave.exe", `--user-data-dir=C:\Temp\scratch`},
	}
	otherBrowser := &fakeProcess{
		pid: 12, name: "chrome.exe", running: true,
		args: []string{"chrome.exe", `--user-data-dir=C:\Users\op\AppData\Local\BraveSoftware\Brave-Browser\User Data`},
	}

	g := newTestGuard(fakeTable{holder, otherProfile, otherBrowser})
	n, err := g.EnsureExclusive(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.True(t, holder.terminated)
	assert.False(t, holder.killed)
	assert.False(t, otherProfile.terminated)
	assert.False(t, otherBrowser.terminated)
}

func TestProfileGuard_KillsAfterGrace(t *testing.T) {
	stubborn := &fakeProcess{
		pid: 20, name: "brave", running: true, ignoresTerm: true,
		args: []string{"brave", "--user-data-dir=" + testProfile},
	}

	g := newTestGuard(fakeTable{stubborn})
	n, err := g.EnsureExclusive(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.True(t, stubborn.terminated)
	assert.True(t, stubborn.killed)
}

func TestProfileGuard_KillFailure(t *testing.T) {
	stuck := &fakeProcess{
		pid: 30, name: "brave.exe", running: true, ignoresTerm: true,
		killErr: errors.New("access denied"),
		args:    []string{"--user-data-dir=" + testProfile},
	}

	g := newTestGuard(fakeTable{stuck})
	_, err := g.EnsureExclusive(context.Background())
	assert.Error(t, err)
}

func TestProfileGuard_NothingToDo(t *testing.T) {
	unreadable := &fakeProcess{pid: 40, inspectError: errors.New("permission denied"), running: true}

	g := newTestGuard(fakeTable{unreadable})
	n, err := g.EnsureExclusive(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, unreadable.terminated)
}

func TestProfileGuard_SkipsSelf(t *testing.T) {
	g := newTestGuard(nil)
	self := &fakeProcess{
		pid: g.self, name: "brave.exe", running: true,
		args: []string{"--user-data-dir=" + testProfile},
	}
	g.table = fakeTable{self}

	n, err := g.EnsureExclusive(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.False(t, self.terminated)
}
