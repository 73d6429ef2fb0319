package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"kioskd/internal/browser"
	"kioskd/internal/config"
	"kioskd/internal/display"
	"kioskd/internal/ledger"
	"kioskd/internal/pointer"
	"kioskd/internal/reconcile"
	"kioskd/internal/sonos"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	Ledger     *ledger.Ledger
	Sonos      *sonos.Client
	Monitor    *sonos.Monitor
	Display    *display.Controller
	Launcher   *browser.Launcher
	Hider      *pointer.Hider
	Reconciler *reconcile.Reconciler

	recDone       chan struct{}
	retentionStop context.CancelFunc
	retentionDone chan struct{}
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	eventLedger, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		return nil, err
	}
	s.Ledger = eventLedger

	s.Sonos = sonos.NewClient(cfg.Sonos.ZonesURL, cfg.Sonos.Timeout.Duration(), cfg.Sonos.RateLimitRPS)
	s.Monitor = sonos.NewMonitor(
		s.Sonos,
		cfg.Sonos.Room,
		cfg.Sonos.CacheTTL.Duration(),
		cfg.Sonos.Grace.Duration(),
		cfg.Sonos.TransitionHold.Duration(),
	)

	s.Display = display.NewController(
		cfg.Display.Output,
		cfg.Display.SettleDelay.Duration(),
		cfg.Display.CommandTimeout.Duration(),
	)

	s.Launcher = browser.NewLauncher(&cfg.Browser)
	s.Hider = pointer.NewHider(cfg.Cursor.IsHideEnabled(), cfg.Cursor.IdleSeconds)

	s.Reconciler = reconcile.New(
		s.Monitor,
		s.Display,
		&modeLauncher{launcher: s.Launcher, cfg: &cfg.Browser},
		s.Hider,
		s.Launcher,
		&ledgerRecorder{ledger: eventLedger},
		cfg.Weather.Window(),
		cfg.Weather.IsEnabled(),
		cfg.Reconciler.TickInterval.Duration(),
	)

	return s, nil
}

// Start launches the reconcile loop and the ledger retention loop.
func (s *Services) Start(ctx context.Context) error {
	s.recDone = make(chan struct{})
	go func() {
		defer close(s.recDone)
		s.Reconciler.Run(ctx)
	}()

	retentionCtx, cancel := context.WithCancel(context.Background())
	s.retentionStop = cancel
	s.retentionDone = make(chan struct{})
	go s.runLedgerRetention(retentionCtx)

	return nil
}

// Stop waits for the reconcile loop to finish its teardown, then closes the
// remaining services. The ledger must outlive the loop so the final events
// still get recorded.
func (s *Services) Stop() error {
	if s.recDone != nil {
		select {
		case <-s.recDone:
		case <-time.After(10 * time.Second):
			log.Warn().Msg("Reconciler did not stop in time")
		}
	}

	if s.retentionStop != nil {
		s.retentionStop()
		<-s.retentionDone
	}

	if s.Sonos != nil {
		s.Sonos.Close()
	}
	if s.Ledger != nil {
		if err := s.Ledger.Close(); err != nil {
			return err
		}
	}
	return nil
}

// runLedgerRetention prunes old ledger events on the configured interval
func (s *Services) runLedgerRetention(ctx context.Context) {
	defer close(s.retentionDone)

	retention := time.Duration(s.cfg.Ledger.RetentionDays) * 24 * time.Hour
	prune := func() {
		deleted, err := s.Ledger.DeleteOlderThan(time.Now().Add(-retention))
		if err != nil {
			log.Warn().Err(err).Msg("Ledger retention pass failed")
			return
		}
		if deleted > 0 {
			log.Info().Int64("deleted", deleted).Msg("Pruned old ledger events")
		}
	}

	prune()
	ticker := time.NewTicker(s.cfg.Ledger.CleanupInterval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// modeLauncher maps display modes to kiosk launch requests
type modeLauncher struct {
	launcher *browser.Launcher
	cfg      *config.BrowserConfig
}

func (m *modeLauncher) Launch(mode reconcile.Mode, forceSanitize bool) (reconcile.Session, error) {
	opts := browser.Options{
		ScaleFactor:   m.cfg.ScaleFactor,
		ForceSanitize: forceSanitize,
	}

	url := m.cfg.SonifyURL
	if mode == reconcile.ModeWeather {
		url = m.cfg.WeatherURL
		// The dashboard is a dense layout that never scrolls on purpose.
		opts.HideScrollbars = true
	}

	return m.launcher.Launch(url, opts)
}

// ledgerRecorder adapts the ledger to the reconciler's best-effort recorder
type ledgerRecorder struct {
	ledger *ledger.Ledger
}

func (r *ledgerRecorder) ModeTransition(from, to reconcile.Mode, sessionID string) {
	r.record(ledger.Event{
		Type:      ledger.EventModeTransition,
		ModeFrom:  from.String(),
		ModeTo:    to.String(),
		SessionID: sessionID,
	})
}

func (r *ledgerRecorder) PowerSet(on bool) {
	detail := "off"
	if on {
		detail = "on"
	}
	r.record(ledger.Event{Type: ledger.EventPowerSet, Detail: detail})
}

func (r *ledgerRecorder) CacheCleanup() {
	r.record(ledger.Event{Type: ledger.EventCacheCleanup})
}

func (r *ledgerRecorder) record(ev ledger.Event) {
	if err := r.ledger.Append(ev); err != nil {
		log.Warn().Err(err).Str("event_type", ev.Type).Msg("Failed to record ledger event")
	}
}
