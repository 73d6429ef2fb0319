package display

import (
	"context"
	"testing"
)

const sampleListing = `HDMI-A-1 "Sample Monitor 27 (HDMI-A-1)"
  Physical size: 600x340 mm
  Enabled: yes
  Modes:
    1920x1080 px, 60.000000 Hz (preferred, current)
  Position: 0,0
DP-1 "Other Panel"
  Enabled: no
  Position: 1920,0
`

func TestParseOutputEnabled(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    bool
		wantOK  bool
	}{
		{name: "enabled_output", output: "HDMI-A-1", want: true, wantOK: true},
		{name: "disabled_output", output: "DP-1", want: false, wantOK: true},
		{name: "unknown_output", output: "HDMI-A-2", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseOutputEnabled(sampleListing, tt.output)
			if ok != tt.wantOK {
				t.Fatalf("parseOutputEnabled ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("parseOutputEnabled = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseOutputEnabledEmptyListing(t *testing.T) {
	if _, ok := parseOutputEnabled("", "HDMI-A-1"); ok {
		t.Error("empty listing must be inconclusive")
	}
}

func TestParseOutputNames(t *testing.T) {
	names := parseOutputNames(sampleListing)
	want := []string{"HDMI-A-1", "DP-1"}
	if len(names) != len(want) {
		t.Fatalf("parseOutputNames = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestSessionPresentWithoutBinary(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv("WAYLAND_DISPLAY", "wayland-9")

	// No runner: the session must be detected from the environment alone,
	// whether or not wlr-randr is installed.
	c := NewCompositor(nil)
	if !c.SessionPresent() {
		t.Error("configured compositor session not detected")
	}
}

func TestFirmwareProbe(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    State
		wantErr bool
	}{
		{name: "on", output: "display_power=1\n", want: StateOn},
		{name: "off", output: "display_power=0\n", want: StateOff},
		{name: "garbage", output: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fw := NewFirmware(func(ctx context.Context, env []string, name string, args ...string) (string, error) {
				return tt.output, nil
			})
			got, err := fw.Probe(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Probe() = %v, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Probe() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}
