package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"

	"github.com/Jairedddy/ClockIn-Automation/internal/pkg/retry"
)

// Process is the subset of an OS process the guard inspects and signals
type Process interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	Cmdline(ctx context.Context) ([]string, error)
	Terminate(ctx context.Context) error
	Kill(ctx context.Context) error
	IsRunning(ctx context.Context) (bool, error)
}

// ProcessTable lists the processes visible to the current user
type ProcessTable interface {
	Processes(ctx context.Context) ([]Process, error)
}

// SystemProcesses is the ProcessTable backed by the operating system
type SystemProcesses struct{}

// Processes lists every running process
func (SystemProcesses) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		out = append(out, systemProcess{p})
	}
	return out, nil
}

type systemProcess struct{ p *process.Process }

func (s systemProcess) PID() int32 { return s.p.Pid }

func (s systemProcess) Name(ctx context.Context) (string, error) {
	return s.p.NameWithContext(ctx)
}

func (s systemProcess) Cmdline(ctx context.Context) ([]string, error) {
	return s.p.CmdlineSliceWithContext(ctx)
}

func (s systemProcess) Terminate(ctx context.Context) error { return s.p.TerminateWithContext(ctx) }
func (s systemProcess) Kill(ctx context.Context) error      { return s.p.KillWithContext(ctx) }

func (s systemProcess) IsRunning(ctx context.Context) (bool, error) {
	return s.p.IsRunningWithContext(ctx)
}

// ProfileGuard makes sure no other browser instance holds the profile
// directory before automation launches its own.
type ProfileGuard struct {
	table      ProcessTable
	execName   string // normalized executable name
	profileDir string // normalized profile path
	grace      time.Duration
	poll       time.Duration
	self       int32
	log        logrus.FieldLogger
}

// NewProfileGuard creates a guard for browsers started from execPath on profileDir
func NewProfileGuard(table ProcessTable, execPath, profileDir string, grace time.Duration, log logrus.FieldLogger) *ProfileGuard {
	if table == nil {
		table = SystemProcesses{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ProfileGuard{
		table:      table,
		execName:   normalizeExecName(execBase(execPath)),
		profileDir: normalizePath(profileDir),
		grace:      grace,
		poll:       100 * time.Millisecond,
		self:       int32(os.Getpid()),
		log:        log,
	}
}

// EnsureExclusive terminates browser processes that run on the guarded
// profile. Processes get the grace period to exit before they are killed.
// It returns the number of processes it stopped.
func (g *ProfileGuard) EnsureExclusive(ctx context.Context) (int, error) {
	procs, err := g.table.Processes(ctx)
	if err != nil {
		return 0, err
	}

	var holders []Process
	for _, p := range procs {
		if p.PID() == g.self {
			continue
		}
		if g.holdsProfile(ctx, p) {
			holders = append(holders, p)
		}
	}
	if len(holders) == 0 {
		return 0, nil
	}
	stopped := len(holders)

	for _, p := range holders {
		g.log.WithField("pid", p.PID()).Warn("terminating browser holding the profile")
		if err := p.Terminate(ctx); err != nil {
			g.log.WithError(err).WithField("pid", p.PID()).Debug("terminate failed")
		}
	}

	deadline := time.Now().Add(g.grace)
	for {
		holders = g.stillRunning(ctx, holders)
		if len(holders) == 0 || !time.Now().Before(deadline) {
			break
		}
		if err := retry.Sleep(ctx, g.poll); err != nil {
			return 0, err
		}
	}

	var failed []int32
	for _, p := range holders {
		g.log.WithField("pid", p.PID()).Warn("browser ignored terminate, killing")
		if err := p.Kill(ctx); err != nil {
			failed = append(failed, p.PID())
		}
	}
	if len(failed) > 0 {
		return 0, fmt.Errorf("failed to stop browser processes %v holding %s", failed, g.profileDir)
	}
	return stopped, nil
}

// holdsProfile reports whether p is the guarded browser running on the
// guarded profile. Processes that cannot be inspected are ignored.
func (g *ProfileGuard) holdsProfile(ctx context.Context, p Process) bool {
	if g.profileDir == "" {
		return false
	}
	name, err := p.Name(ctx)
	if err != nil || normalizeExecName(name) != g.execName {
		return false
	}
	args, err := p.Cmdline(ctx)
	if err != nil {
		return false
	}
	for _, a := range args {
		if strings.Contains(normalizePath(a), g.profileDir) {
			return true
		}
	}
	return false
}

func (g *ProfileGuard) stillRunning(ctx context.Context, procs []Process) []Process {
	var out []Process
	for _, p := range procs {
		running, err := p.IsRunning(ctx)
		if err == nil && running {
			out = append(out, p)
		}
	}
	return out
}

// execBase returns the file name of a path written with either separator
func execBase(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}

func normalizeExecName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}

func normalizePath(p string) string {
	if p == "" {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(filepath.Clean(p), `\`, "/"))
}
