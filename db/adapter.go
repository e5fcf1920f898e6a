package db

import (
	"github.com/questboard/questboard/config"
	dbmysql "github.com/questboard/questboard/db/mysql"
	dbsqlite "github.com/questboard/questboard/db/sqlite"
	"gorm.io/gorm"
)

const (
	ModeSQLite = "sqlite"
	ModeMySQL  = "mysql"
)

// Backend is an opened persistence engine. The embedded SQLite file and the
// shared MySQL server both implement it; everything above the store sees
// only this interface.
type Backend interface {
	// Mode reports ModeSQLite or ModeMySQL.
	Mode() string
	// DB returns the handle used for queries and transactions.
	DB() *gorm.DB
	// MigrationDB returns the handle used for schema creation. Backends may
	// attach table options here so that both engines compare identities the
	// same way.
	MigrationDB() *gorm.DB
	// Unavailable reports whether err means the engine could not be reached
	// or could not serve the request right now.
	Unavailable(err error) bool
	Close() error
}

// Open selects the backend once from configuration: a connection URL picks
// the shared MySQL store, its absence the embedded SQLite file.
func Open(cfg config.DatabaseConfig) (Backend, error) {
	if cfg.URL != "" {
		return dbmysql.Open(dbmysql.Config{
			DSN:         cfg.URL,
			MaxOpen:     cfg.MySQLMaxOpen,
			MaxIdle:     cfg.MySQLMaxIdle,
			MaxLife:     cfg.MySQLMaxLife,
			DialTimeout: cfg.DialTimeout,
		})
	}
	return dbsqlite.Open(cfg.SQLitePath)
}

// ModeFor reports which backend Open would pick for cfg.
func ModeFor(cfg config.DatabaseConfig) string {
	if cfg.URL != "" {
		return ModeMySQL
	}
	return ModeSQLite
}
