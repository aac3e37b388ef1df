package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zsqlite "zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/vncsmyrnk/planner/internal/adapters/repository/sqlite"
)

func TestPoolPragmas(t *testing.T) {
	pool := openTestPool(t, nil)

	conn, err := pool.Take(context.Background())
	require.NoError(t, err)
	defer pool.Put(conn)

	pragma := func(name string) string {
		var value string
		err := sqlitex.Execute(conn, "PRAGMA "+name, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *zsqlite.Stmt) error {
				value = stmt.ColumnText(0)
				return nil
			},
		})
		require.NoError(t, err)
		return value
	}

	assert.Equal(t, "wal", pragma("journal_mode"))
	assert.Equal(t, "1", pragma("foreign_keys"))
	assert.Equal(t, "1", pragma("synchronous"))
}

func TestPoolOnConnect(t *testing.T) {
	called := false
	pool := openTestPool(t, func(conn *zsqlite.Conn) error {
		called = true
		return nil
	})

	conn, err := pool.Take(context.Background())
	require.NoError(t, err)
	pool.Put(conn)

	assert.True(t, called)
}

func TestPoolOnConnectFailure(t *testing.T) {
	boom := errors.New("boom")
	pool := openTestPool(t, func(conn *zsqlite.Conn) error {
		return boom
	})

	_, err := pool.Take(context.Background())
	assert.Error(t, err)
}

func TestPoolRequiresPath(t *testing.T) {
	_, err := sqlite.OpenPool(sqlite.PoolConfig{})
	assert.Error(t, err)
}

func TestPoolTakeHonoursContext(t *testing.T) {
	pool, err := sqlite.OpenPool(sqlite.PoolConfig{
		Path:     filepath.Join(t.TempDir(), "cancel.db"),
		PoolSize: 1,
	})
	require.NoError(t, err)
	defer pool.Close()

	conn, err := pool.Take(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pool.Take(ctx)
	assert.Error(t, err)

	pool.Put(conn)
}
