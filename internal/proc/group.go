// Package proc supervises long-lived child processes. Children run in their
// own session so that termination can target the whole process group, and
// teardown is two-phase: graceful signal, bounded grace, unconditional kill.
package proc

import (
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Group is a spawned process group
type Group struct {
	name string
	cmd  *exec.Cmd
	done chan struct{}
}

// Start launches cmd as the leader of a new session and begins reaping its
// exit status in the background.
func Start(cmd *exec.Cmd, name string) (*Group, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	g := &Group{
		name: name,
		cmd:  cmd,
		done: make(chan struct{}),
	}

	go func() {
		_ = cmd.Wait()
		close(g.done)
	}()

	return g, nil
}

// PID returns the group leader's process id
func (g *Group) PID() int {
	return g.cmd.Process.Pid
}

// Alive reports whether the group leader is still running. A nil group is
// not alive.
func (g *Group) Alive() bool {
	if g == nil {
		return false
	}
	select {
	case <-g.done:
		return false
	default:
		return true
	}
}

// Stop terminates the whole process group: SIGTERM first, then SIGKILL if
// the leader is still alive after the grace period. The same path is used
// for mode switches and for shutdown.
func (g *Group) Stop(grace time.Duration) {
	if g == nil {
		return
	}

	pgid, err := syscall.Getpgid(g.cmd.Process.Pid)
	if err != nil {
		log.Warn().Str("process", g.name).Msg("Process group already terminated")
		return
	}

	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			log.Warn().Str("process", g.name).Msg("Process group already terminated")
			return
		}
		log.Error().Err(err).Str("process", g.name).Msg("Failed to signal process group")
	}

	select {
	case <-g.done:
	case <-time.After(grace):
		log.Warn().Str("process", g.name).Msg("Process group still alive after SIGTERM, sending SIGKILL")
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
			log.Error().Err(err).Str("process", g.name).Msg("Failed to kill process group")
		}
		<-g.done
	}

	log.Info().Str("process", g.name).Msg("Process group terminated")
}
