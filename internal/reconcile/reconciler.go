// Package reconcile runs the control loop that keeps the kiosk display in
// the state the inputs call for. Each tick observes playback and the clock,
// decides a desired mode and converges the display, the browser session and
// the cursor hider toward it. The loop holds no long-lived assumptions: a
// dead browser or an externally toggled display is re-detected and repaired
// on the next pass.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"kioskd/internal/config"
)

// PlaybackMonitor reports whether music is considered playing
type PlaybackMonitor interface {
	IsPlaying(ctx context.Context) bool
}

// DisplayPower reads and drives display power. Both methods return the
// best-known resulting state rather than an error: power control failures
// are absorbed and retried on the next tick.
type DisplayPower interface {
	Get(ctx context.Context, def bool) bool
	Set(ctx context.Context, on bool) bool
}

// Session is a running kiosk browser window
type Session interface {
	ID() string
	Alive() bool
	Terminate()
}

// Launcher starts a kiosk browser session for a display mode
type Launcher interface {
	Launch(mode Mode, forceSanitize bool) (Session, error)
}

// PointerHider keeps the cursor hidden while a page is shown
type PointerHider interface {
	EnsureRunning()
	Stop()
}

// Housekeeper performs the periodic browser cache cleanup
type Housekeeper interface {
	CleanCache() error
}

// Recorder persists display events. Implementations must be best-effort:
// the loop never blocks or aborts on recording failures.
type Recorder interface {
	ModeTransition(from, to Mode, sessionID string)
	PowerSet(on bool)
	CacheCleanup()
}

// Reconciler is the kiosk control loop
type Reconciler struct {
	monitor     PlaybackMonitor
	power       DisplayPower
	launcher    Launcher
	hider       PointerHider
	housekeeper Housekeeper
	recorder    Recorder

	window         config.Window
	weatherEnabled bool
	tick           time.Duration

	now func() time.Time

	// loop state, touched only from Run's goroutine
	current         Mode
	session         Session
	displayOn       bool
	sanitizeNext    bool
	lastCleanupHour int
	lastPlaying     *bool
}

// New builds a reconciler
func New(
	monitor PlaybackMonitor,
	power DisplayPower,
	launcher Launcher,
	hider PointerHider,
	housekeeper Housekeeper,
	recorder Recorder,
	window config.Window,
	weatherEnabled bool,
	tick time.Duration,
) *Reconciler {
	if tick <= 0 {
		tick = 15 * time.Second
	}
	return &Reconciler{
		monitor:        monitor,
		power:          power,
		launcher:       launcher,
		hider:          hider,
		housekeeper:    housekeeper,
		recorder:       recorder,
		window:         window,
		weatherEnabled: weatherEnabled,
		tick:           tick,
		now:            time.Now,
		current:        ModeOff,
		// The first launch always sanitizes: the previous run may have been
		// killed without a chance to shut Chromium down.
		sanitizeNext:    true,
		lastCleanupHour: -1,
	}
}

// Run executes the loop until ctx is cancelled, then tears the session and
// the cursor hider down. The display is left in its current state: a kiosk
// restarting for an upgrade should not blank the screen mid-song.
func (r *Reconciler) Run(ctx context.Context) {
	r.displayOn = r.power.Get(ctx, false)
	log.Info().
		Bool("display_on", r.displayOn).
		Str("window", r.window.String()).
		Dur("tick", r.tick).
		Msg("Reconciler started")

	defer r.teardown()

	r.runTick(ctx)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Reconciler stopping")
			return
		case <-ticker.C:
			r.runTick(ctx)
		}
	}
}

// runTick isolates one pass. A panic in a tick must not take the daemon
// down: the display would be stranded in whatever state the panic left it.
func (r *Reconciler) runTick(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Reconcile tick panicked")
		}
	}()
	r.Tick(ctx)
}

// Tick performs one observe-decide-converge pass
func (r *Reconciler) Tick(ctx context.Context) {
	playing := r.monitor.IsPlaying(ctx)
	r.logPlaybackEdge(playing)

	now := r.now()
	desired := r.desiredMode(playing, now)

	r.converge(ctx, desired)
	r.syncPointerHider()
	r.maybeCleanCache(now)
}

// desiredMode maps the observed inputs to a display mode. Playback wins
// unconditionally; the weather window only applies while nothing plays.
func (r *Reconciler) desiredMode(playing bool, now time.Time) Mode {
	if playing {
		return ModeSonify
	}
	if r.weatherEnabled && r.window.Contains(now.Hour()*60+now.Minute()) {
		return ModeWeather
	}
	return ModeOff
}

func (r *Reconciler) converge(ctx context.Context, desired Mode) {
	// A browser that died on its own invalidates the current mode.
	if r.session != nil && !r.session.Alive() {
		log.Warn().
			Str("session_id", r.session.ID()).
			Str("mode", r.current.String()).
			Msg("Browser session died, reconverging")
		r.session = nil
		r.setCurrent(ModeOff, "")
	}

	// Converged only when the power state matches the mode too: a display
	// left on while Off is desired (startup, or a power command that did not
	// stick) gets driven off again on every pass.
	if desired == r.current && r.displayOn == (desired != ModeOff) {
		return
	}

	if desired == ModeOff {
		if r.displayOn {
			r.displayOn = r.power.Set(ctx, false)
			r.recorder.PowerSet(false)
		}
		if r.session != nil {
			r.session.Terminate()
			r.session = nil
		}
		r.setCurrent(ModeOff, "")
		return
	}

	// Page modes get a fresh browser window. Reusing the old window for a
	// different page would need remote debugging; a relaunch is seconds and
	// happens a handful of times a day.
	if r.session != nil {
		r.session.Terminate()
		r.session = nil
	}

	session, err := r.launcher.Launch(desired, r.sanitizeNext)
	if err != nil {
		log.Error().Err(err).Str("mode", desired.String()).Msg("Failed to launch kiosk browser")
		r.setCurrent(ModeOff, "")
		return
	}
	r.session = session
	r.sanitizeNext = false

	if !r.displayOn {
		r.displayOn = r.power.Set(ctx, true)
		r.recorder.PowerSet(true)
	}
	r.setCurrent(desired, session.ID())
}

func (r *Reconciler) setCurrent(mode Mode, sessionID string) {
	if mode == r.current {
		return
	}
	log.Info().
		Str("from", r.current.String()).
		Str("to", mode.String()).
		Msg("Display mode transition")
	r.recorder.ModeTransition(r.current, mode, sessionID)
	r.current = mode
}

func (r *Reconciler) syncPointerHider() {
	if r.current != ModeOff {
		r.hider.EnsureRunning()
	} else {
		r.hider.Stop()
	}
}

// maybeCleanCache runs the cache cleanup once per hour, in the first tick
// window after the top of the hour.
func (r *Reconciler) maybeCleanCache(now time.Time) {
	window := int(r.tick / time.Second)
	if window < 1 {
		window = 1
	}
	if now.Minute() != 0 || now.Second() >= window || now.Hour() == r.lastCleanupHour {
		return
	}
	r.lastCleanupHour = now.Hour()

	if err := r.housekeeper.CleanCache(); err != nil {
		log.Warn().Err(err).Msg("Browser cache cleanup failed")
		return
	}
	r.recorder.CacheCleanup()
}

func (r *Reconciler) logPlaybackEdge(playing bool) {
	if r.lastPlaying != nil && *r.lastPlaying == playing {
		return
	}
	r.lastPlaying = &playing
	log.Info().Bool("playing", playing).Msg("Playback state changed")
}

func (r *Reconciler) teardown() {
	if r.session != nil {
		r.session.Terminate()
		r.session = nil
	}
	r.hider.Stop()
}
