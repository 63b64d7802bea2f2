package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fintrack-dev/fintrack/internal/config"
	"github.com/fintrack-dev/fintrack/internal/logger"
	"github.com/fintrack-dev/fintrack/internal/oplog"
	"github.com/fintrack-dev/fintrack/internal/storage/badgerstore"
	"github.com/fintrack-dev/fintrack/internal/tracker"
)

const configFile = "fintrack.yaml"

// openService builds a tracker.Service over the badger store in the data
// directory. The returned closer releases the database.
func openService(cmd *cobra.Command) (*tracker.Service, func(), error) {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return nil, nil, err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving data dir: %w", err)
	}

	cfg, err := loadConfig(absDir)
	if err != nil {
		return nil, nil, err
	}

	log := logger.New()
	store, err := badgerstore.Open(badgerstore.Config{
		Path:       filepath.Join(absDir, "db"),
		SyncWrites: true,
		Logger:     log,
	})
	if err != nil {
		return nil, nil, err
	}

	svc, err := tracker.NewService(store, cfg, log, tracker.Options{
		ExportDir: filepath.Join(absDir, "exports"),
		Recorder:  oplog.New(absDir),
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	return svc, func() { _ = store.Close() }, nil
}

// loadConfig reads fintrack.yaml from dir, or falls back to defaults when
// the directory has not been initialized yet.
func loadConfig(dir string) (*config.Config, error) {
	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(path)
}
