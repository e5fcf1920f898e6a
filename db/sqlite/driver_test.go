package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Memory(t *testing.T) {
	b, err := Open(MemoryPath)
	require.NoError(t, err)
	defer b.Close()

	// The single pooled connection keeps the in-memory database alive
	// between statements.
	require.NoError(t, b.DB().Exec("CREATE TABLE t (v TEXT)").Error)
	require.NoError(t, b.DB().Exec("INSERT INTO t (v) VALUES ('x')").Error)
	var n int64
	require.NoError(t, b.DB().Raw("SELECT COUNT(*) FROM t").Scan(&n).Error)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "sqlite", b.Mode())
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_busy_timeout=5000", dsn(MemoryPath))
	assert.Equal(t, "file:q.db?mode=rwc&_busy_timeout=5000", dsn("file:q.db?mode=rwc"))
}

func TestUnavailable(t *testing.T) {
	b := &Backend{}
	assert.False(t, b.Unavailable(nil))
	assert.True(t, b.Unavailable(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, b.Unavailable(fmt.Errorf("wrapped: %w", sqlite3.Error{Code: sqlite3.ErrLocked})))
	assert.False(t, b.Unavailable(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.True(t, b.Unavailable(context.DeadlineExceeded))
	assert.False(t, b.Unavailable(errors.New("syntax error")))
}
