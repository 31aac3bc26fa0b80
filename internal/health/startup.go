package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zeecm/parking/internal/config"
	"github.com/zeecm/parking/internal/log"
)

// PerformStartupChecks probes the environment before the daemon
// starts: things config validation cannot see, like filesystem
// permissions. Fatal problems return an error; durability concerns
// only warn.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("Running pre-flight startup checks...")

	if err := checkDataDir(logger, cfg.DataDir); err != nil {
		return fmt.Errorf("data directory check failed: %w", err)
	}

	warnDurability(logger, cfg)

	logger.Info().Msg("✅ All startup checks passed")
	return nil
}

// checkDataDir verifies the directory where sqlite, badger and export
// artifacts live exists and is writable.
func checkDataDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(path, 0o750); mkErr != nil {
				return fmt.Errorf("cannot create data directory %s: %w", path, mkErr)
			}
			logger.Info().Str("path", path).Msg("✓ Data directory created")
			return probeWrite(logger, path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}
	return probeWrite(logger, path)
}

func probeWrite(logger zerolog.Logger, path string) error {
	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", path).Msg("✓ Data directory is writable")
	return nil
}

// warnDurability flags configurations that work but lose data across
// restarts.
func warnDurability(logger zerolog.Logger, cfg config.AppConfig) {
	if cfg.Redis.Addr == "" {
		logger.Warn().Msg("redis not configured; snapshots cached in process memory only")
	}
	if cfg.State.InMemory {
		logger.Warn().Msg("state store is in-memory; refresh checkpoints are lost on restart")
	}

	tempDir := filepath.Clean(os.TempDir())
	dataDir := filepath.Clean(cfg.DataDir)
	if tempDir != "." && (dataDir == tempDir || strings.HasPrefix(dataDir, tempDir+string(filepath.Separator))) {
		logger.Warn().
			Str("data_dir", cfg.DataDir).
			Msg("data directory is under temp; history and checkpoints may be lost on reboot")
	}
}
