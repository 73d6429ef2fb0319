package display

import (
	"context"
	"os"
	"os/exec"
	"time"
)

// commandRunner executes an external command with optional extra environment
// entries and returns its stdout. Backends hold one so tests can fake the
// underlying binaries.
type commandRunner func(ctx context.Context, extraEnv []string, name string, args ...string) (string, error)

// newRunner returns a commandRunner that shells out with a bounded timeout.
// The controlling session's environment may not carry the compositor socket,
// so callers pass the candidate entries explicitly.
func newRunner(timeout time.Duration) commandRunner {
	if timeout == 0 {
		timeout = 4 * time.Second
	}
	return func(ctx context.Context, extraEnv []string, name string, args ...string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, name, args...)
		if len(extraEnv) > 0 {
			cmd.Env = append(os.Environ(), extraEnv...)
		}
		out, err := cmd.Output()
		return string(out), err
	}
}

func binaryExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
