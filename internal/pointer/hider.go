// Package pointer keeps the mouse cursor hidden on the kiosk display.
package pointer

import (
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"kioskd/internal/proc"
)

const stopGrace = time.Second

// Hider supervises an unclutter process that hides the idle cursor. A kiosk
// has no mouse user, so the cursor only ever appears by accident and should
// vanish immediately.
type Hider struct {
	enabled     bool
	idleSeconds float64

	group *proc.Group

	warnedMissing bool
}

// NewHider builds a hider. When enabled is false every method is a no-op.
func NewHider(enabled bool, idleSeconds float64) *Hider {
	return &Hider{enabled: enabled, idleSeconds: idleSeconds}
}

// EnsureRunning starts unclutter if it is not already running. Called every
// reconcile pass while a kiosk page is shown, so a crashed hider comes back
// on the next tick.
func (h *Hider) EnsureRunning() {
	if !h.enabled || h.group.Alive() {
		return
	}

	bin, err := exec.LookPath("unclutter")
	if err != nil {
		if !h.warnedMissing {
			log.Warn().Msg("unclutter is not installed, cursor will stay visible")
			h.warnedMissing = true
		}
		return
	}

	idle := strconv.FormatFloat(h.idleSeconds, 'f', -1, 64)
	group, err := proc.Start(exec.Command(bin, "-idle", idle, "-root"), "unclutter")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to start cursor hider")
		return
	}

	h.group = group
	log.Debug().Int("pid", group.PID()).Msg("Cursor hider started")
}

// Stop terminates the hider if it is running
func (h *Hider) Stop() {
	if h.group == nil {
		return
	}
	h.group.Stop(stopGrace)
	h.group = nil
}
