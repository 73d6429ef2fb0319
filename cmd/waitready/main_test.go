package main

import "testing"

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{value: "", def: true, want: true},
		{value: "", def: false, want: false},
		{value: "1", def: false, want: true},
		{value: "true", def: false, want: true},
		{value: "YES", def: false, want: true},
		{value: "On", def: false, want: true},
		{value: "0", def: true, want: false},
		{value: "false", def: true, want: false},
		{value: "banana", def: true, want: false},
	}

	for _, tt := range tests {
		t.Run("value_"+tt.value, func(t *testing.T) {
			t.Setenv("WAITREADY_TEST_FLAG", tt.value)
			if got := envBool("WAITREADY_TEST_FLAG", tt.def); got != tt.want {
				t.Errorf("envBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
			}
		})
	}
}

func TestXSocketPath(t *testing.T) {
	tests := []struct {
		display string
		want    string
	}{
		{display: ":0", want: "/tmp/.X11-unix/X0"},
		{display: ":0.0", want: "/tmp/.X11-unix/X0"},
		{display: ":12", want: "/tmp/.X11-unix/X12"},
		{display: ":", want: "/tmp/.X11-unix/X0"},
	}

	for _, tt := range tests {
		if got := xSocketPath(tt.display); got != tt.want {
			t.Errorf("xSocketPath(%q) = %q, want %q", tt.display, got, tt.want)
		}
	}
}
