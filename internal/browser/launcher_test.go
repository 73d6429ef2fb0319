package browser

import (
	"slices"
	"testing"

	"kioskd/internal/config"
)

func TestKioskArgs(t *testing.T) {
	args := kioskArgs("/tmp/profile", "http://localhost:5000", Options{})

	if got := args[len(args)-1]; got != "http://localhost:5000" {
		t.Errorf("last arg = %q, want the url", got)
	}
	for _, want := range []string{
		"--start-fullscreen",
		"--disable-session-restore",
		"--user-data-dir=/tmp/profile",
		"--disk-cache-size=0",
	} {
		if !slices.Contains(args, want) {
			t.Errorf("args missing %q", want)
		}
	}
	if slices.Contains(args, "--hide-scrollbars") {
		t.Error("scrollbars must not be hidden by default")
	}
}

func TestKioskArgsOptions(t *testing.T) {
	args := kioskArgs("/tmp/profile", "http://localhost:3000", Options{
		ScaleFactor:    1.25,
		HideScrollbars: true,
	})

	if !slices.Contains(args, "--force-device-scale-factor=1.25") {
		t.Errorf("args missing scale factor: %v", args)
	}
	if !slices.Contains(args, "--hide-scrollbars") {
		t.Error("args missing --hide-scrollbars")
	}
}

func TestResolveCommandOverride(t *testing.T) {
	l := NewLauncher(&config.BrowserConfig{
		Bin:        "/opt/custom/chromium",
		ProfileDir: t.TempDir(),
	})

	bin, err := l.resolveCommand()
	if err != nil {
		t.Fatalf("resolveCommand() error: %v", err)
	}
	if bin != "/opt/custom/chromium" {
		t.Errorf("bin = %q, want the configured override", bin)
	}
}
