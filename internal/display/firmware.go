package display

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// Firmware drives the SoC firmware power interface (vcgencmd). It is the
// primary set path but its probe cannot be trusted unconditionally: some
// stacks pin the reading to "on" regardless of actual output state.
type Firmware struct {
	run commandRunner
}

// NewFirmware creates the firmware backend
func NewFirmware(run commandRunner) *Firmware {
	return &Firmware{run: run}
}

// Available reports whether the firmware binary is present
func (f *Firmware) Available() bool {
	return binaryExists("vcgencmd")
}

// Probe reads the firmware-level power state
func (f *Firmware) Probe(ctx context.Context) (State, error) {
	out, err := f.run(ctx, nil, "vcgencmd", "display_power")
	if err != nil {
		return StateUnknown, fmt.Errorf("display_power query failed: %w", err)
	}

	switch trimmed := strings.TrimSpace(out); {
	case strings.HasSuffix(trimmed, "=1"):
		return StateOn, nil
	case strings.HasSuffix(trimmed, "=0"):
		return StateOff, nil
	default:
		return StateUnknown, fmt.Errorf("unexpected display_power output: %q", trimmed)
	}
}

// Apply issues the firmware power command. Best effort: callers verify the
// result themselves.
func (f *Firmware) Apply(ctx context.Context, on bool) error {
	arg := "0"
	if on {
		arg = "1"
	}
	if _, err := f.run(ctx, nil, "vcgencmd", "display_power", arg); err != nil {
		return fmt.Errorf("display_power %s failed: %w", arg, err)
	}
	log.Debug().Bool("on", on).Msg("Firmware power command issued")
	return nil
}
