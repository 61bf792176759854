package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samijaber1/aegis-watch/internal/config"
)

func TestOpenSinks(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Backends = []string{config.BackendFile, config.BackendSQLite, config.BackendPrometheus}
	cfg.Storage.File.Path = filepath.Join(dir, "data")
	cfg.Storage.SQLite.Path = filepath.Join(dir, "db", "aegis.db")

	multi, prom, err := openSinks(&cfg)
	require.NoError(t, err)
	defer multi.Close()

	assert.Len(t, multi.Sinks(), 3)
	require.NotNil(t, prom)

	_, ok := multi.Querier()
	assert.True(t, ok)
	assert.FileExists(t, cfg.Storage.SQLite.Path)
}

func TestOpenSinks_NoBackends(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backends = nil

	multi, prom, err := openSinks(&cfg)
	require.NoError(t, err)
	assert.Empty(t, multi.Sinks())
	assert.Nil(t, prom)

	_, ok := multi.Querier()
	assert.False(t, ok)
}

func TestOpenSinks_UnknownBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Storage.Backends = []string{"influxdb"}

	_, _, err := openSinks(&cfg)
	assert.ErrorContains(t, err, "unknown storage backend")
}
