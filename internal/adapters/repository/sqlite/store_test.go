package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	zsqlite "zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/vncsmyrnk/planner/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/planner/internal/adapters/repository/storetest"
	"github.com/vncsmyrnk/planner/internal/core/domain"
	"github.com/vncsmyrnk/planner/internal/core/ports"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store {
		return openTestStore(t)
	})
}

func TestNewStoreIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t, nil)

	_, err := sqlite.NewStore(ctx, pool)
	require.NoError(t, err)
	_, err = sqlite.NewStore(ctx, pool)
	require.NoError(t, err)
}

func TestEmptyLastNameStoredAsNull(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t, nil)
	store, err := sqlite.NewStore(ctx, pool)
	require.NoError(t, err)

	voter, err := domain.NewVoter(1, "Ann", "")
	require.NoError(t, err)
	_, err = store.UpsertVoter(ctx, voter)
	require.NoError(t, err)

	conn, err := pool.Take(ctx)
	require.NoError(t, err)
	defer pool.Put(conn)

	isNull := 0
	err = sqlitex.Execute(conn, "SELECT last_name IS NULL FROM voters WHERE v_id = ?", &sqlitex.ExecOptions{
		Args: []any{1},
		ResultFunc: func(stmt *zsqlite.Stmt) error {
			isNull = stmt.ColumnInt(0)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, isNull)
}

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(context.Background(), openTestPool(t, nil))
	require.NoError(t, err)
	return store
}

func openTestPool(t *testing.T, onConnect func(*zsqlite.Conn) error) *sqlite.Pool {
	t.Helper()

	pool, err := sqlite.OpenPool(sqlite.PoolConfig{
		Path:      filepath.Join(t.TempDir(), "test.db"),
		PoolSize:  4,
		OnConnect: onConnect,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, pool.Close())
	})
	return pool
}
