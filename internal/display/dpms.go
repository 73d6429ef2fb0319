package display

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// DPMS is the legacy X11 power fallback. It is only consulted when no
// compositor session exists at all.
type DPMS struct {
	run commandRunner
}

// NewDPMS creates the DPMS backend
func NewDPMS(run commandRunner) *DPMS {
	return &DPMS{run: run}
}

// Available reports whether xset is present
func (d *DPMS) Available() bool {
	return binaryExists("xset")
}

// Apply forces the display power state through DPMS
func (d *DPMS) Apply(ctx context.Context, on bool) error {
	display := os.Getenv("DISPLAY")
	if display == "" {
		display = ":0"
	}

	arg := "off"
	if on {
		arg = "on"
	}

	if _, err := d.run(ctx, nil, "xset", "-display", display, "dpms", "force", arg); err != nil {
		return fmt.Errorf("xset dpms force %s failed: %w", arg, err)
	}
	log.Info().Bool("on", on).Msg("Display toggled via DPMS")
	return nil
}
