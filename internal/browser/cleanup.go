package browser

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// CleanCache drops the profile's disk cache. The launch flags already cap
// the cache at zero, but Chromium still leaves metadata behind that grows
// without bound on long-running kiosks.
func (l *Launcher) CleanCache() error {
	cacheDir := filepath.Join(l.profileDir, "Default", "Cache")

	if err := os.RemoveAll(cacheDir); err != nil {
		return err
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}

	log.Debug().Str("path", cacheDir).Msg("Browser cache cleaned")
	return nil
}
