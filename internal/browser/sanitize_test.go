package browser

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeJSON(t *testing.T, path string, doc map[string]any) {
	t.Helper()
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestSanitizeAfterCrash(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "Local State"), map[string]any{
		"profile": map[string]any{"exited_cleanly": false},
	})
	writeJSON(t, filepath.Join(dir, "Default", "Preferences"), map[string]any{
		"profile": map[string]any{
			"exit_type":      "Crashed",
			"exited_cleanly": false,
		},
	})
	sessionDir := filepath.Join(dir, "Default", "Session Storage")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewSanitizer(dir)
	if err := s.Sanitize(false); err != nil {
		t.Fatalf("Sanitize() error: %v", err)
	}

	state := readJSON(t, filepath.Join(dir, "Local State"))
	profile := state["profile"].(map[string]any)
	if profile["exited_cleanly"] != true {
		t.Error("Local State exited_cleanly not patched")
	}

	prefs := readJSON(t, filepath.Join(dir, "Default", "Preferences"))
	prefsProfile := prefs["profile"].(map[string]any)
	if prefsProfile["exit_type"] != "Normal" {
		t.Errorf("exit_type = %v, want Normal", prefsProfile["exit_type"])
	}
	if prefsProfile["exited_cleanly"] != true {
		t.Error("Preferences exited_cleanly not patched")
	}

	if _, err := os.Stat(sessionDir); !os.IsNotExist(err) {
		t.Error("session artifacts should be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, lastSanitizeMarker)); err != nil {
		t.Error("sanitize marker should be written")
	}
}

func TestSanitizeSkipsCleanProfile(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "Local State"), map[string]any{
		"profile": map[string]any{"exited_cleanly": true, "exit_type": "Normal"},
	})
	sessionDir := filepath.Join(dir, "Default", "Sessions")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewSanitizer(dir)
	if err := s.Sanitize(false); err != nil {
		t.Fatalf("Sanitize() error: %v", err)
	}

	if _, err := os.Stat(sessionDir); err != nil {
		t.Error("a clean profile must be left alone")
	}
}

func TestSanitizeForced(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "Local State"), map[string]any{
		"profile": map[string]any{"exited_cleanly": true, "exit_type": "Normal"},
	})
	sessionDir := filepath.Join(dir, "Default", "Last Session")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewSanitizer(dir)
	if err := s.Sanitize(true); err != nil {
		t.Fatalf("Sanitize() error: %v", err)
	}

	if _, err := os.Stat(sessionDir); !os.IsNotExist(err) {
		t.Error("forced sanitize must remove session artifacts")
	}
}

func TestSanitizeHonorsRequestMarker(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "Local State"), map[string]any{
		"profile": map[string]any{"exited_cleanly": true, "exit_type": "Normal"},
	})

	s := NewSanitizer(dir)
	s.RequestSanitize()
	if err := s.Sanitize(false); err != nil {
		t.Fatalf("Sanitize() error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, needsSanitizeMarker)); !os.IsNotExist(err) {
		t.Error("request marker should be consumed")
	}
	if _, err := os.Stat(filepath.Join(dir, lastSanitizeMarker)); err != nil {
		t.Error("sanitize marker should be written")
	}
}

func TestSanitizeOnCrashedExitType(t *testing.T) {
	// exited_cleanly alone is not enough: Chromium records a crash in
	// exit_type while leaving exited_cleanly true in some shutdown paths.
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "Local State"), map[string]any{
		"profile": map[string]any{"exited_cleanly": true, "exit_type": "Crashed"},
	})
	sessionDir := filepath.Join(dir, "Default", "Current Session")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewSanitizer(dir)
	if err := s.Sanitize(false); err != nil {
		t.Fatalf("Sanitize() error: %v", err)
	}

	if _, err := os.Stat(sessionDir); !os.IsNotExist(err) {
		t.Error("a crashed exit_type must trigger sanitizing")
	}
}

func TestSanitizeOnCorruptLocalState(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Local State"), []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	sessionDir := filepath.Join(dir, "Default", "Sessions")
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		t.Fatal(err)
	}

	s := NewSanitizer(dir)
	if err := s.Sanitize(false); err != nil {
		t.Fatalf("Sanitize() error: %v", err)
	}

	if _, err := os.Stat(sessionDir); !os.IsNotExist(err) {
		t.Error("a corrupt Local State must trigger sanitizing")
	}
}

func TestSanitizeMissingProfile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fresh")

	s := NewSanitizer(dir)
	if err := s.Sanitize(false); err != nil {
		t.Fatalf("Sanitize() on a fresh profile: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Error("profile dir should be created")
	}
}

func TestMarkCleanNested(t *testing.T) {
	doc := map[string]any{
		"top": map[string]any{
			"inner": map[string]any{
				"exited_cleanly": false,
				"exit_type":      "Crashed",
			},
		},
		"exit_type": "Normal",
	}

	if !markClean(doc) {
		t.Fatal("markClean should report a change")
	}
	inner := doc["top"].(map[string]any)["inner"].(map[string]any)
	if inner["exited_cleanly"] != true || inner["exit_type"] != "Normal" {
		t.Errorf("nested flags not patched: %v", inner)
	}

	if markClean(doc) {
		t.Error("second pass should be a no-op")
	}
}
