package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	lastSanitizeMarker  = "last_sanitize"
	needsSanitizeMarker = "needs_sanitize"
)

// sessionArtifacts are the profile subdirectories Chromium uses to restore
// the previous session. They are removed during sanitizing so a relaunch
// never resurfaces a stale page or a restore bubble.
var sessionArtifacts = []string{
	filepath.Join("Default", "Current Session"),
	filepath.Join("Default", "Last Session"),
	filepath.Join("Default", "Session Storage"),
	filepath.Join("Default", "Sessions"),
}

// Sanitizer repairs a Chromium profile that was not shut down cleanly.
// Unattended kiosks are power-cycled rather than closed, so the profile
// regularly records a crash and Chromium would nag about it on launch.
type Sanitizer struct {
	profileDir string
}

// NewSanitizer returns a sanitizer for the given profile directory
func NewSanitizer(profileDir string) *Sanitizer {
	return &Sanitizer{profileDir: profileDir}
}

// Sanitize prepares the profile for a fresh kiosk launch. It is a no-op
// when the previous run exited cleanly and no sanitize was requested,
// unless force is set.
func (s *Sanitizer) Sanitize(force bool) error {
	if err := os.MkdirAll(s.profileDir, 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}

	if !force && s.exitedCleanly() && !s.sanitizeRequested() {
		return nil
	}

	log.Info().Str("profile", s.profileDir).Bool("forced", force).Msg("Sanitizing browser profile")

	s.patchCrashFlags(filepath.Join(s.profileDir, "Local State"))
	s.patchCrashFlags(filepath.Join(s.profileDir, "Default", "Preferences"))

	for _, rel := range sessionArtifacts {
		path := filepath.Join(s.profileDir, rel)
		if err := os.RemoveAll(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove session artifact")
		}
	}

	s.markSanitized()
	return nil
}

// exitedCleanly reads the previous run's exit flags from Local State. Both
// flags must agree on a clean exit; a missing, unreadable or corrupt file
// counts as unclean, since that is exactly what a hard power cut leaves
// behind.
func (s *Sanitizer) exitedCleanly() bool {
	data, err := os.ReadFile(filepath.Join(s.profileDir, "Local State"))
	if err != nil {
		return false
	}

	var state map[string]any
	if err := json.Unmarshal(data, &state); err != nil {
		return false
	}

	profile, ok := state["profile"].(map[string]any)
	if !ok {
		return false
	}
	clean, _ := profile["exited_cleanly"].(bool)
	exitType, _ := profile["exit_type"].(string)
	return clean && exitType == "Normal"
}

func (s *Sanitizer) sanitizeRequested() bool {
	_, err := os.Stat(filepath.Join(s.profileDir, needsSanitizeMarker))
	return err == nil
}

// RequestSanitize leaves a marker so the next launch sanitizes the profile
// even if the exit flags look clean.
func (s *Sanitizer) RequestSanitize() {
	path := filepath.Join(s.profileDir, needsSanitizeMarker)
	if err := os.WriteFile(path, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write sanitize marker")
	}
}

func (s *Sanitizer) markSanitized() {
	path := filepath.Join(s.profileDir, lastSanitizeMarker)
	if err := os.WriteFile(path, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write sanitize marker")
	}
	_ = os.Remove(filepath.Join(s.profileDir, needsSanitizeMarker))
}

// patchCrashFlags rewrites crash/restore flags in a Chromium JSON settings
// file. Chromium nests the flags at different depths depending on version,
// so every object in the tree is patched.
func (s *Sanitizer) patchCrashFlags(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Settings file is not valid JSON, skipping patch")
		return
	}

	if !markClean(doc) {
		return
	}

	patched, err := json.Marshal(doc)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to re-encode settings file")
		return
	}
	if err := os.WriteFile(path, patched, 0o644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write patched settings file")
	}
}

// markClean patches exit flags everywhere they occur and reports whether
// anything changed.
func markClean(node map[string]any) bool {
	changed := false

	if v, ok := node["exited_cleanly"].(bool); ok && !v {
		node["exited_cleanly"] = true
		changed = true
	}
	if v, ok := node["exit_type"].(string); ok && v != "Normal" {
		node["exit_type"] = "Normal"
		changed = true
	}

	for _, v := range node {
		if child, ok := v.(map[string]any); ok {
			if markClean(child) {
				changed = true
			}
		}
	}
	return changed
}
