// waitready blocks until the kiosk's dependencies are ready: the X socket
// for the configured DISPLAY and the local web UIs the browser will load.
// It is meant to gate kioskd in a systemd unit or startup script, so it is
// configured through environment variables rather than the config file.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	dialTimeout  = 500 * time.Millisecond
	pollInterval = time.Second
)

type check struct {
	name  string
	ready func() bool
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	timeout := time.Duration(envSeconds("STARTUP_READY_TIMEOUT_SECONDS", 90)) * time.Second
	checks := buildChecks()

	log.Info().Int("checks", len(checks)).Dur("timeout", timeout).Msg("Waiting for kiosk dependencies")

	deadline := time.Now().Add(timeout)
	for {
		var pending []string
		remaining := checks[:0]
		for _, c := range checks {
			if c.ready() {
				log.Info().Str("check", c.name).Msg("Ready")
				continue
			}
			pending = append(pending, c.name)
			remaining = append(remaining, c)
		}
		checks = remaining

		if len(checks) == 0 {
			log.Info().Msg("All dependencies ready")
			return
		}
		if time.Now().After(deadline) {
			log.Error().Strs("pending", pending).Msg("Timed out waiting for dependencies")
			os.Exit(1)
		}
		time.Sleep(pollInterval)
	}
}

func buildChecks() []check {
	var checks []check

	display := os.Getenv("DISPLAY")
	if display == "" {
		display = ":0"
	}
	socket := xSocketPath(display)
	checks = append(checks, check{
		name:  "x-socket " + socket,
		ready: func() bool { return socketExists(socket) },
	})

	if envBool("ENABLE_SONIFY_UI", true) {
		checks = append(checks, check{
			name:  "sonify-ui :5000",
			ready: func() bool { return portReady("localhost:5000") },
		})
	}
	if envBool("ENABLE_WEATHER_DASHBOARD", true) {
		checks = append(checks, check{
			name:  "weather-dashboard :3000",
			ready: func() bool { return portReady("localhost:3000") },
		})
	}

	return checks
}

// xSocketPath maps a DISPLAY value like ":0" or ":0.0" to its unix socket
func xSocketPath(display string) string {
	num := strings.TrimPrefix(display, ":")
	if i := strings.IndexByte(num, '.'); i >= 0 {
		num = num[:i]
	}
	if num == "" {
		num = "0"
	}
	return fmt.Sprintf("/tmp/.X11-unix/X%s", num)
}

func socketExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode()&os.ModeSocket != 0
}

func portReady(addr string) bool {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func envSeconds(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Warn().Str(name, raw).Int("default", def).Msg("Invalid timeout, using default")
		return def
	}
	return v
}

// envBool parses a boolean flag; only 1/true/yes/on count as true.
func envBool(name string, def bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(name)))
	if raw == "" {
		return def
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
