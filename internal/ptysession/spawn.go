// Package ptysession implements process spawning and PTY streaming
// (components C6/C7, spec.md §4.6/§4.7): a foreground exec arms a
// pending PTY handoff that the worker's session loop enters right
// after replying; a background exec detaches a reaper goroutine and
// never streams anything.
package ptysession

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/srgg/rpcd/internal/groutine"
)

// Pending is the per-worker PTY handoff latch: the exec routine arms
// it, and the session loop drains it right after the exec reply is
// sent. Deliberately a per-worker field rather than a package global
// (unlike the original's g_pending_pty) — each worker process handles
// exactly one client, so there is no cross-client collision to guard
// against here (spec.md §9, resolved).
type Pending struct {
	Master *os.File
	PID    int
	valid  bool
}

func (p *Pending) Arm(master *os.File, pid int) {
	p.Master, p.PID, p.valid = master, pid, true
}

func (p *Pending) Take() (*os.File, int, bool) {
	if !p.valid {
		return nil, 0, false
	}
	master, pid := p.Master, p.PID
	p.Master, p.PID, p.valid = nil, 0, false
	return master, pid, true
}

// Session spawns foreground/background children and owns the pending
// latch between an exec reply and the PTY streaming phase. It
// implements internal/routines.Spawner.
type Session struct {
	pending Pending
}

func NewSession() *Session { return &Session{} }

// PendingPID reports the pid armed by the most recent foreground
// spawn, or 0 if none is pending.
func (s *Session) PendingPID() int { return s.pending.PID }

// TakePending drains the pending latch for the session loop to stream,
// per spec.md §4.6's handoff from exec reply to PTY mode.
func (s *Session) TakePending() (*os.File, int, bool) { return s.pending.Take() }

// SpawnForeground opens a PTY pair, sets the slave to raw mode
// (matching createPTY's term.MakeRaw call), starts argv/envp attached
// to the slave with Setsid so it becomes its own session leader (the
// original achieves the same via posix_openpt + setsid in the child),
// and arms the pending latch with the master end.
func (s *Session) SpawnForeground(argv, envp []string) (int, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return 0, fmt.Errorf("ptysession: open pty: %w", err)
	}
	if _, err := term.MakeRaw(int(slave.Fd())); err != nil {
		master.Close()
		slave.Close()
		return 0, fmt.Errorf("ptysession: raw mode: %w", err)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	if len(envp) > 0 {
		cmd.Env = envp
	}
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true}

	if err := cmd.Start(); err != nil {
		master.Close()
		slave.Close()
		return 0, fmt.Errorf("ptysession: start: %w", err)
	}
	slave.Close() // parent keeps only the master end

	s.pending.Arm(master, cmd.Process.Pid)
	return cmd.Process.Pid, nil
}

// SpawnBackground runs argv/envp detached from any terminal and spins
// off a reaper goroutine that discards the exit status, matching
// routine_exec's pthread_create(thread_waitpid) for background
// children (see DESIGN.md, "background-exec discards exit status").
func (s *Session) SpawnBackground(argv, envp []string) (int, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	if len(envp) > 0 {
		cmd.Env = envp
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("ptysession: start background: %w", err)
	}

	pid := cmd.Process.Pid
	groutine.Go(nil, fmt.Sprintf("reap-%d", pid), func(_ context.Context) {
		if err := cmd.Wait(); err != nil {
			logrus.WithError(err).WithField("pid", pid).Debug("background child exited")
		}
	})
	return pid, nil
}
