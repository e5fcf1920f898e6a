package mysql

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrBadDSN is returned when the connection string cannot be parsed.
var ErrBadDSN = errors.New("mysql: invalid connection string")

// tableOptions makes identity columns compare byte-for-byte, matching the
// embedded backend's BINARY collation.
const tableOptions = "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin"

const defaultIOTimeout = 30 * time.Second

// Config holds the shared-store connection settings.
type Config struct {
	DSN         string
	MaxOpen     int
	MaxIdle     int
	MaxLife     time.Duration
	DialTimeout time.Duration
}

// Backend is the shared multi-user store.
type Backend struct {
	db *gorm.DB
}

// Open creates a GORM *DB backed by MySQL with a connection pool.
func Open(cfg Config) (*Backend, error) {
	dsn, err := NormalizeDSN(cfg.DSN, cfg.DialTimeout)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	sqlDB.SetConnMaxLifetime(cfg.MaxLife)

	return &Backend{db: db}, nil
}

// NormalizeDSN accepts a go-sql-driver DSN, optionally prefixed with
// "mysql://", and forces the settings the store relies on: parsed UTC times
// and bounded dial/read/write timeouts.
func NormalizeDSN(raw string, dialTimeout time.Duration) (string, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "mysql://")
	c, err := gomysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadDSN, err)
	}
	c.ParseTime = true
	c.Loc = time.UTC
	if c.Timeout == 0 {
		c.Timeout = dialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultIOTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultIOTimeout
	}
	return c.FormatDSN(), nil
}

func (b *Backend) Mode() string { return "mysql" }

func (b *Backend) DB() *gorm.DB { return b.db }

func (b *Backend) MigrationDB() *gorm.DB {
	return b.db.Set("gorm:table_options", tableOptions)
}

func (b *Backend) Unavailable(err error) bool {
	return Unavailable(err)
}

// Unavailable classifies connectivity and server-capacity failures.
func Unavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, gomysql.ErrInvalidConn) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var me *gomysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case 1040, // too many connections
			1053, // server shutdown in progress
			1205, // lock wait timeout
			1213, // deadlock
			2002, 2003, 2006, 2013:
			return true
		}
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
