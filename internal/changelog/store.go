package changelog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dlcks7456/diaryCleaning/internal/config"
	"github.com/dlcks7456/diaryCleaning/internal/exporter"
)

// OpenStore builds the store selected by cfg.ChangeLog.Backend.
func OpenStore(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger) (Store, error) {
	switch cfg.ChangeLog.Backend {
	case "", "csv":
		return NewCSVStore(exporter.NewCSVWriter("", logger), paths.LogFile), nil
	case "sqlite":
		store, err := OpenSQLiteStore(ctx, cfg.ChangeLog.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown change log backend %q", cfg.ChangeLog.Backend)
}
