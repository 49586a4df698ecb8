package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rapport-api/internal/config"
)

func TestOpenStoreMemory(t *testing.T) {
	e := &env{}
	store, err := openStore(context.Background(), config.CacheConfig{Driver: "memory"}, e)
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Empty(t, e.closers)
}

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	store, err := openStore(context.Background(), config.CacheConfig{}, &env{})
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestOpenStoreSQLite(t *testing.T) {
	e := &env{}
	cfg := config.CacheConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "cache.db"),
	}

	store, err := openStore(context.Background(), cfg, e)
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Len(t, e.closers, 1)
	e.Close()
}

func TestOpenStoreSQLiteRequiresPath(t *testing.T) {
	_, err := openStore(context.Background(), config.CacheConfig{Driver: "sqlite"}, &env{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqlite_path")
}

func TestOpenStorePostgresRequiresURL(t *testing.T) {
	_, err := openStore(context.Background(), config.CacheConfig{Driver: "postgres"}, &env{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.CacheConfig{Driver: "redis"}, &env{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
}

func TestInitPipelineWiresMemoryCache(t *testing.T) {
	cfg := &config.Config{}
	cfg.Cache.Driver = "memory"
	cfg.Cache.TTLHours = 6
	cfg.Geo.TimeoutSecs = 8
	cfg.Brief.BranchTimeoutSecs = 20

	e, err := initPipeline(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()
	assert.NotNil(t, e.Pipeline)
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["brief"])
}
