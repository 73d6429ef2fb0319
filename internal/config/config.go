// Package config loads the kioskd configuration file and resolves every
// setting to a safe default. Configuration problems are downgraded to logged
// warnings wherever the daemon can keep running without the setting.
package config

import (
	"errors"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Display    DisplayConfig    `yaml:"display"`
	Sonos      SonosConfig      `yaml:"sonos"`
	Weather    WeatherConfig    `yaml:"weather"`
	Browser    BrowserConfig    `yaml:"browser"`
	Cursor     CursorConfig     `yaml:"cursor"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Log        LogConfig        `yaml:"log"`
}

// DisplayConfig contains display power control settings
type DisplayConfig struct {
	Output         string   `yaml:"output"`          // compositor output name, e.g. HDMI-A-1
	SettleDelay    Duration `yaml:"settle_delay"`    // wait after a power command before trusting a probe
	CommandTimeout Duration `yaml:"command_timeout"` // timeout for power control subprocesses
}

// SonosConfig contains playback detection settings
type SonosConfig struct {
	ZonesURL       string   `yaml:"zones_url"`
	Room           string   `yaml:"room"`
	Timeout        Duration `yaml:"timeout"`
	CacheTTL       Duration `yaml:"cache_ttl"`
	Grace          Duration `yaml:"grace"`           // hold after last confirmed playback
	TransitionHold Duration `yaml:"transition_hold"` // hold while TRANSITIONING between tracks
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
}

// WeatherConfig contains weather dashboard window settings
type WeatherConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`

	// Resolved by Load from Start/End, falling back to the built-in window.
	StartMinutes int `yaml:"-"`
	EndMinutes   int `yaml:"-"`
}

// IsEnabled returns whether the weather dashboard is enabled (default true)
func (w *WeatherConfig) IsEnabled() bool {
	return w.Enabled == nil || *w.Enabled
}

// Window returns the resolved daily display window
func (w *WeatherConfig) Window() Window {
	return Window{Start: w.StartMinutes, End: w.EndMinutes}
}

// BrowserConfig contains kiosk browser settings
type BrowserConfig struct {
	Bin           string   `yaml:"bin"` // chromium binary override
	ProfileDir    string   `yaml:"profile_dir"`
	SonifyURL     string   `yaml:"sonify_url"`
	WeatherURL    string   `yaml:"weather_url"`
	ScaleFactor   float64  `yaml:"scale_factor"`   // 0 = browser default
	ShutdownGrace Duration `yaml:"shutdown_grace"` // SIGTERM grace before SIGKILL
}

// CursorConfig contains cursor auto-hide settings
type CursorConfig struct {
	Hide        *bool   `yaml:"hide"`
	IdleSeconds float64 `yaml:"idle_seconds"`
}

// IsHideEnabled returns whether cursor hiding is enabled (default true)
func (c *CursorConfig) IsHideEnabled() bool {
	return c.Hide == nil || *c.Hide
}

// ReconcilerConfig contains reconciliation loop settings
type ReconcilerConfig struct {
	TickInterval Duration `yaml:"tick_interval"`
}

// LedgerConfig contains event ledger settings
type LedgerConfig struct {
	Path            string   `yaml:"path"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// GetLevel returns the log level with default
func (c *LogConfig) GetLevel() string {
	if c.Level == "" {
		return "info"
	}
	return c.Level
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file. A missing file is not an
// error: the kiosk must come up with built-in defaults when setup has not
// provided one yet.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Warn().Str("config", path).Msg("Configuration file not found, using defaults")
	case err != nil:
		return nil, err
	default:
		// Expand environment variables
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	// Display defaults
	if cfg.Display.Output == "" {
		cfg.Display.Output = "HDMI-A-1"
	}
	if cfg.Display.SettleDelay == 0 {
		cfg.Display.SettleDelay = Duration(300 * time.Millisecond)
	}
	if cfg.Display.CommandTimeout == 0 {
		cfg.Display.CommandTimeout = Duration(4 * time.Second)
	}

	// Sonos defaults
	if cfg.Sonos.ZonesURL == "" {
		cfg.Sonos.ZonesURL = "http://localhost:5005/zones"
	}
	if cfg.Sonos.Timeout == 0 {
		cfg.Sonos.Timeout = Duration(3 * time.Second)
	}
	if cfg.Sonos.CacheTTL == 0 {
		cfg.Sonos.CacheTTL = Duration(5 * time.Second)
	}
	if cfg.Sonos.Grace == 0 {
		cfg.Sonos.Grace = Duration(5 * time.Second)
	}
	if cfg.Sonos.TransitionHold == 0 {
		cfg.Sonos.TransitionHold = Duration(20 * time.Second)
	}
	if cfg.Sonos.RateLimitRPS == 0 {
		cfg.Sonos.RateLimitRPS = 2.0
	}
	if cfg.Sonos.Room == "" {
		log.Warn().Msg("No Sonos room configured, playback detection is disabled until setup provides one")
	}

	// Weather window: invalid clock strings fall back to the built-in window
	cfg.Weather.StartMinutes = resolveClockSetting(cfg.Weather.Start, DefaultWeatherStartMinutes, "weather.start")
	cfg.Weather.EndMinutes = resolveClockSetting(cfg.Weather.End, DefaultWeatherEndMinutes, "weather.end")
	if cfg.Weather.StartMinutes == cfg.Weather.EndMinutes {
		log.Warn().Msg("Weather window start and end are the same, weather dashboard window is disabled")
	}

	// Browser defaults
	if cfg.Browser.ProfileDir == "" {
		cfg.Browser.ProfileDir = "./chromium_sonify"
	}
	if cfg.Browser.SonifyURL == "" {
		cfg.Browser.SonifyURL = "http://localhost:5000"
	}
	if cfg.Browser.WeatherURL == "" {
		cfg.Browser.WeatherURL = "http://localhost:3000"
	}
	if cfg.Browser.ShutdownGrace == 0 {
		cfg.Browser.ShutdownGrace = Duration(2 * time.Second)
	}

	// Cursor defaults
	if cfg.Cursor.IdleSeconds <= 0 {
		cfg.Cursor.IdleSeconds = 0.1
	}

	// Reconciler defaults
	if cfg.Reconciler.TickInterval == 0 {
		cfg.Reconciler.TickInterval = Duration(15 * time.Second)
	}

	// Ledger defaults
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "./kioskd.sqlite"
	}
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}
}

func resolveClockSetting(raw string, defaultMinutes int, field string) int {
	if strings.TrimSpace(raw) == "" {
		return defaultMinutes
	}
	minutes, err := ParseClockTime(raw)
	if err != nil {
		log.Warn().
			Str(field, raw).
			Str("fallback", FormatMinutes(defaultMinutes)).
			Msg("Invalid clock time, using default")
		return defaultMinutes
	}
	return minutes
}

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	// Match ${VAR} or ${VAR:default}
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
