package ioc

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lvow2022/research-assistant/internal/config"
)

// InitDataDirs makes sure the upload, cache and log directories exist and
// accept writes.
func InitDataDirs(cfg *config.Config) error {
	for _, dir := range []string{cfg.Server.UploadDir, cfg.Server.CacheDir, cfg.Server.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("make %s: %w", dir, err)
		}
		probe, err := os.CreateTemp(dir, ".probe-*")
		if err != nil {
			return fmt.Errorf("%s is not writable: %w", dir, err)
		}
		name := probe.Name()
		_ = probe.Close()
		_ = os.Remove(filepath.Clean(name))
	}
	return nil
}
