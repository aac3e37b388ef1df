package services_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/planner/internal/adapters/repository/sqlite"
	"github.com/vncsmyrnk/planner/internal/core/domain"
	"github.com/vncsmyrnk/planner/internal/core/ports"
	"github.com/vncsmyrnk/planner/internal/core/services"
)

type testApp struct {
	Store     ports.Store
	Plannings ports.PlanningService
	Options   ports.OptionService
	Voters    ports.VoterService
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	pool, err := sqlite.OpenPool(sqlite.PoolConfig{
		Path:     filepath.Join(t.TempDir(), "planner.db"),
		PoolSize: 4,
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, pool.Close()) })

	store, err := sqlite.NewStore(context.Background(), pool)
	require.NoError(t, err)

	return &testApp{
		Store:     store,
		Plannings: services.NewPlanningService(store),
		Options:   services.NewOptionService(store),
		Voters:    services.NewVoterService(store),
	}
}

func (app *testApp) openedPlanning(t *testing.T, ownerID int64, title string, options ...string) (*domain.Planning, []*domain.Option) {
	t.Helper()
	ctx := context.Background()

	planning, err := app.Plannings.Create(ctx, ownerID, title)
	require.NoError(t, err)

	created := make([]*domain.Option, 0, len(options))
	for _, text := range options {
		opt, err := app.Plannings.AddOption(ctx, planning, text)
		require.NoError(t, err)
		created = append(created, opt)
	}

	require.NoError(t, app.Plannings.Open(ctx, planning))
	return planning, created
}

func mustVoter(t *testing.T, id int64, firstName, lastName string) *domain.Voter {
	t.Helper()
	v, err := domain.NewVoter(id, firstName, lastName)
	require.NoError(t, err)
	return v
}
