package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vncsmyrnk/planner/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/planner/internal/adapters/repository/storetest"
	"github.com/vncsmyrnk/planner/internal/core/domain"
	"github.com/vncsmyrnk/planner/internal/core/ports"
)

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupDatabase(t)

	storetest.Run(t, func(t *testing.T) ports.Store {
		_, err := db.Exec(`TRUNCATE votes, voters, options, plannings RESTART IDENTITY`)
		require.NoError(t, err)
		return postgres.NewStore(db)
	})
}

func TestCloseWaitsForVoteInProgress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupDatabase(t)
	store := postgres.NewStore(db)
	ctx := context.Background()

	id, err := store.SavePlanning(ctx, 1, "Trip", domain.StatusOpened)
	require.NoError(t, err)
	optionID, err := store.SaveOption(ctx, id, "Saturday", 0)
	require.NoError(t, err)
	voter, err := domain.NewVoter(2, "Vera", "")
	require.NoError(t, err)
	_, err = store.UpsertVoter(ctx, voter)
	require.NoError(t, err)

	closed := make(chan error, 1)
	err = store.Atomic(ctx, func(tx ports.Store) error {
		opened, err := tx.LoadOpenedPlanning(ctx, id)
		if err != nil {
			return err
		}
		require.NotNil(t, opened)

		go func() {
			closed <- store.UpdatePlanningStatus(ctx, id, domain.StatusOpened, domain.StatusClosed)
		}()

		select {
		case err := <-closed:
			t.Fatalf("planning closed while a vote held it opened: %v", err)
		case <-time.After(300 * time.Millisecond):
		}

		return tx.SaveVote(ctx, optionID, voter.ID())
	})
	require.NoError(t, err)

	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("close never completed")
	}

	recorded, err := store.IsVoteRecorded(ctx, optionID, voter.ID())
	require.NoError(t, err)
	assert.True(t, recorded)

	opened, err := store.LoadOpenedPlanning(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, opened)
}

func TestMigrateIsRerunnable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	db := setupDatabase(t)
	require.NoError(t, postgres.Migrate(context.Background(), db))
}

func TestMigrationContent(t *testing.T) {
	content, err := postgres.MigrationContent("create_plannings.down")
	require.NoError(t, err)
	require.Contains(t, string(content), "DROP TABLE IF EXISTS plannings")

	_, err = postgres.MigrationContent("create_plannings")
	require.Error(t, err)

	_, err = postgres.MigrationContent("nope")
	require.Error(t, err)
}

func setupDatabase(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(context.Background()))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db))
	return db
}
