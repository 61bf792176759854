package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samijaber1/aegis-watch/internal/config"
	"github.com/samijaber1/aegis-watch/internal/storage"
	"github.com/samijaber1/aegis-watch/internal/storage/file"
	"github.com/samijaber1/aegis-watch/internal/storage/metrics"
	"github.com/samijaber1/aegis-watch/internal/storage/sqlite"
)

// openSinks opens every configured storage backend. The prometheus sink is
// also returned so its registry can be served.
func openSinks(cfg *config.Config) (*storage.Multi, *metrics.Sink, error) {
	var sinks []storage.Sink
	var prom *metrics.Sink

	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	for _, backend := range cfg.Storage.Backends {
		switch backend {
		case config.BackendFile:
			store, err := file.NewStore(cfg.Storage.File.Path)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("failed to open file storage: %w", err)
			}
			sinks = append(sinks, store)
		case config.BackendSQLite:
			if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLite.Path), 0o755); err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
			store, err := sqlite.NewStore(cfg.Storage.SQLite.Path)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("failed to open sqlite storage: %w", err)
			}
			sinks = append(sinks, store)
		case config.BackendPrometheus:
			prom = metrics.NewSink(cfg.Storage.Prometheus.JobName, version)
			sinks = append(sinks, prom)
		default:
			closeAll()
			return nil, nil, fmt.Errorf("unknown storage backend: %s", backend)
		}
	}

	return storage.NewMulti(sinks...), prom, nil
}
