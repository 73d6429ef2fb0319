package display

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// envCandidate is one plausible compositor session environment. The daemon
// usually runs outside the compositor's session, so the right runtime socket
// has to be discovered rather than inherited.
type envCandidate struct {
	runtimeDir string
	display    string
}

func (e envCandidate) environ() []string {
	return []string{
		"XDG_RUNTIME_DIR=" + e.runtimeDir,
		"WAYLAND_DISPLAY=" + e.display,
	}
}

// Compositor drives wlroots output power via wlr-randr
type Compositor struct {
	run commandRunner
}

// NewCompositor creates the compositor backend
func NewCompositor(run commandRunner) *Compositor {
	return &Compositor{run: run}
}

// Available reports whether wlr-randr is present
func (c *Compositor) Available() bool {
	return binaryExists("wlr-randr")
}

// SessionPresent reports whether any compositor session socket can be found.
// The legacy DPMS fallback is only permitted when this is false. Detection is
// purely environmental: a Wayland session without wlr-randr installed still
// counts, xset must not touch it.
func (c *Compositor) SessionPresent() bool {
	return len(c.candidates()) > 0
}

func (c *Compositor) candidates() []envCandidate {
	var out []envCandidate

	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	display := os.Getenv("WAYLAND_DISPLAY")
	if runtimeDir != "" && display != "" {
		out = append(out, envCandidate{runtimeDir: runtimeDir, display: display})
	}

	userRuntime := fmt.Sprintf("/run/user/%d", os.Getuid())
	if info, err := os.Stat(userRuntime); err == nil && info.IsDir() {
		for _, d := range []string{"wayland-0", "wayland-1"} {
			if _, err := os.Stat(filepath.Join(userRuntime, d)); err != nil {
				continue
			}
			candidate := envCandidate{runtimeDir: userRuntime, display: d}
			if len(out) == 0 || out[0] != candidate {
				out = append(out, candidate)
			}
		}
	}

	return out
}

// Probe reads the enabled state of the named output, trying every session
// candidate until one yields a conclusive listing.
func (c *Compositor) Probe(ctx context.Context, output string) (State, error) {
	if !c.Available() {
		return StateUnknown, errors.New("wlr-randr not available")
	}

	for _, candidate := range c.candidates() {
		listing, err := c.run(ctx, candidate.environ(), "wlr-randr")
		if err != nil {
			continue
		}
		if enabled, ok := parseOutputEnabled(listing, output); ok {
			return stateFor(enabled), nil
		}
	}

	return StateUnknown, errors.New("no conclusive compositor reading")
}

// ApplyAny tries to toggle the preferred output, then any other output
// discovered in the session listing, until one toggle succeeds.
func (c *Compositor) ApplyAny(ctx context.Context, preferred string, on bool) bool {
	if !c.Available() {
		return false
	}

	arg := "--off"
	if on {
		arg = "--on"
	}

	for _, candidate := range c.candidates() {
		outputs := []string{preferred}
		if listing, err := c.run(ctx, candidate.environ(), "wlr-randr"); err == nil {
			for _, name := range parseOutputNames(listing) {
				if name != preferred {
					outputs = append(outputs, name)
				}
			}
		}

		for _, output := range outputs {
			if _, err := c.run(ctx, candidate.environ(), "wlr-randr", "--output", output, arg); err != nil {
				continue
			}
			log.Info().
				Str("output", output).
				Str("wayland_display", candidate.display).
				Bool("on", on).
				Msg("Display toggled via compositor")
			return true
		}
	}

	return false
}

var enabledPattern = regexp.MustCompile(`(?i)^Enabled:\s*(yes|no)$`)

// parseOutputEnabled scans a wlr-randr listing for the named output's
// "Enabled: yes/no" attribute. Output headers start at column zero;
// attributes are indented.
func parseOutputEnabled(listing, output string) (bool, bool) {
	current := ""
	for _, raw := range strings.Split(listing, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if line == "" {
			continue
		}

		if !strings.HasPrefix(line, " ") {
			current = headerName(line)
			continue
		}
		if current != output {
			continue
		}

		if m := enabledPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return strings.EqualFold(m[1], "yes"), true
		}
	}
	return false, false
}

// parseOutputNames returns every output header in a wlr-randr listing
func parseOutputNames(listing string) []string {
	var names []string
	for _, raw := range strings.Split(listing, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if line == "" || strings.HasPrefix(line, " ") {
			continue
		}
		if name := headerName(line); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func headerName(line string) string {
	name, _, _ := strings.Cut(line, " ")
	return strings.Trim(name, `"`)
}
