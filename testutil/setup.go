package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/questboard/questboard/cache"
	"github.com/questboard/questboard/config"
	"github.com/questboard/questboard/db"
	dbsqlite "github.com/questboard/questboard/db/sqlite"
	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupTestStore opens a private in-memory embedded store and migrates it.
// It requires no external services and is safe to use in parallel tests.
func SetupTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	be, err := db.Open(config.DatabaseConfig{SQLitePath: dbsqlite.MemoryPath})
	require.NoError(t, err, "SetupTestStore: Open")
	s := store.New(be, 5*time.Second, zap.NewNop())
	require.NoError(t, s.Migrate(context.Background()), "SetupTestStore: Migrate")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SetupTestDB returns the raw handle behind a fresh test store.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	be, err := db.Open(config.DatabaseConfig{SQLitePath: dbsqlite.MemoryPath})
	require.NoError(t, err, "SetupTestDB: Open")
	require.NoError(t, model.AutoMigrate(be.MigrationDB()), "SetupTestDB: AutoMigrate")
	t.Cleanup(func() { _ = be.Close() })
	return be.DB()
}

// SetupTestCache creates a LocalCache (no Redis required).
func SetupTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.NewCache(config.CacheConfig{}) // empty RedisAddr → LocalCache
	require.NoError(t, err, "SetupTestCache: NewCache")
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// Logger returns a development logger for tests.
func Logger() *zap.Logger { l, _ := zap.NewDevelopment(); return l }
