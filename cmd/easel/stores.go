package main

import (
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/easel/config"
	"github.com/alejandrodnm/easel/internal/adapters/filestore"
	"github.com/alejandrodnm/easel/internal/adapters/storage"
	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/alejandrodnm/easel/internal/ports"
)

// stores agrupa la persistencia elegida por storage.driver.
// El ledger vive siempre en SQLite; contadores e historia pueden ir a ficheros JSON.
type stores struct {
	db       *storage.SQLiteStorage
	counters ports.CounterStore
	history  ports.HistoryStore
}

func openStores(cfg *config.Config) (*stores, error) {
	db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
	}
	st := &stores{db: db, counters: db, history: db}

	if cfg.Storage.Driver == "files" {
		fs, err := filestore.New(cfg.Storage.Dir)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open file store %q: %w", cfg.Storage.Dir, err)
		}
		st.counters = fs
		st.history = fs
	}
	slog.Debug("storage opened", "driver", cfg.Storage.Driver, "dsn", cfg.Storage.DSN, "dir", cfg.Storage.Dir)
	return st, nil
}

func (s *stores) Close() error {
	return s.db.Close()
}

func limitPolicy(cfg *config.Config) domain.LimitPolicy {
	return domain.LimitPolicy{
		OverallMax:  cfg.Risk.MaxTradesPerDay,
		PerAssetMax: cfg.Risk.MaxTradesPerAssetDay,
	}
}

func adaptiveGate(cfg *config.Config) domain.AdaptiveGate {
	return domain.AdaptiveGate{
		MinSamples:   cfg.Learning.MinSamples,
		WinRateFloor: cfg.WinRateFloor(),
	}
}
