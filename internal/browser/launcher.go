// Package browser launches and supervises the Chromium kiosk window. One
// window is alive at a time; switching pages is done by terminating the
// current session and launching a new one against a sanitized profile.
package browser

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog/log"

	"kioskd/internal/config"
	"kioskd/internal/proc"
)

// ErrNoBrowser is returned when no Chromium binary can be found
var ErrNoBrowser = errors.New("no chromium binary found")

// chromiumNames are the binaries probed when no explicit override is set
var chromiumNames = []string{"chromium-browser", "chromium"}

// Options tune a single kiosk launch
type Options struct {
	ScaleFactor    float64 // 0 leaves the browser default
	HideScrollbars bool
	ForceSanitize  bool // sanitize the profile even when it looks clean
}

// Launcher starts kiosk browser sessions
type Launcher struct {
	bin        string
	profileDir string
	grace      config.Duration
	sanitizer  *Sanitizer

	warnedMissing bool
}

// NewLauncher builds a launcher from the browser configuration
func NewLauncher(cfg *config.BrowserConfig) *Launcher {
	return &Launcher{
		bin:        cfg.Bin,
		profileDir: cfg.ProfileDir,
		grace:      cfg.ShutdownGrace,
		sanitizer:  NewSanitizer(cfg.ProfileDir),
	}
}

// Launch sanitizes the profile and starts a new kiosk session on url.
// The caller owns the returned session and must Terminate it before
// launching another.
func (l *Launcher) Launch(url string, opts Options) (*Session, error) {
	bin, err := l.resolveCommand()
	if err != nil {
		if !l.warnedMissing {
			log.Error().Msg("Chromium is not installed, kiosk pages cannot be shown")
			l.warnedMissing = true
		}
		return nil, err
	}

	if err := l.sanitizer.Sanitize(opts.ForceSanitize); err != nil {
		log.Warn().Err(err).Msg("Profile sanitize failed, launching anyway")
	}

	args := kioskArgs(l.profileDir, url, opts)
	group, err := proc.Start(exec.Command(bin, args...), "chromium")
	if err != nil {
		return nil, fmt.Errorf("start chromium: %w", err)
	}

	session := newSession(url, group, l.grace.Duration())
	log.Info().
		Str("session_id", session.ID()).
		Str("url", url).
		Int("pid", group.PID()).
		Msg("Kiosk browser launched")
	return session, nil
}

func (l *Launcher) resolveCommand() (string, error) {
	if l.bin != "" {
		return l.bin, nil
	}
	for _, name := range chromiumNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrNoBrowser
}

// kioskArgs builds the Chromium command line for an unattended fullscreen
// session. The disk cache is disabled: kiosk pages are local and the cache
// only wears out the SD card.
func kioskArgs(profileDir, url string, opts Options) []string {
	args := []string{
		"--start-fullscreen",
		"--no-first-run",
		"--disable-translate",
		"--disable-infobars",
		"--disable-session-crashed-bubble",
		"--disable-session-restore",
		"--new-window",
		"--user-data-dir=" + profileDir,
		"--disk-cache-size=0",
	}
	if opts.ScaleFactor > 0 {
		args = append(args, "--force-device-scale-factor="+strconv.FormatFloat(opts.ScaleFactor, 'f', -1, 64))
	}
	if opts.HideScrollbars {
		args = append(args, "--hide-scrollbars")
	}
	return append(args, url)
}
