package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/planner/internal/core/domain"
)

const owner int64 = 1001

func TestCreatePlanning(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, err := app.Plannings.Create(ctx, owner, "Fancy diner")
	require.NoError(t, err)
	assert.True(t, planning.IsPersisted())
	assert.Equal(t, domain.StatusUnderConstruction, planning.Status())

	loaded, err := app.Plannings.FindByID(ctx, planning.ID())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Fancy diner", loaded.Title())
	assert.Equal(t, owner, loaded.OwnerID())
	assert.Equal(t, domain.StatusUnderConstruction, loaded.Status())
}

func TestCreatePlanningRejectsEmptyTitle(t *testing.T) {
	app := setupTestApp(t)

	_, err := app.Plannings.Create(context.Background(), owner, "")
	require.ErrorIs(t, err, domain.ErrEmptyTitle)

	plannings, err := app.Plannings.FindByOwner(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, plannings)
}

// Scenario D: a second planning cannot be started before the first is done.
func TestCreatePlanningTwice(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	first, err := app.Plannings.Create(ctx, owner, "first")
	require.NoError(t, err)

	_, err = app.Plannings.Create(ctx, owner, "second")
	require.ErrorIs(t, err, domain.ErrPlanningInProgress)
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	current, err := app.Plannings.FindUnderConstructionForOwner(ctx, owner)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, first.ID(), current.ID())

	plannings, err := app.Plannings.FindByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, plannings, 1)
}

func TestSavePlanningOnlyOnce(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, err := domain.NewPlanning(owner, "t", domain.StatusUnderConstruction)
	require.NoError(t, err)
	require.NoError(t, app.Plannings.Save(ctx, planning))

	err = app.Plannings.Save(ctx, planning)
	assert.ErrorIs(t, err, domain.ErrAlreadyPersisted)
}

func TestOpenAndClose(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, err := app.Plannings.Create(ctx, owner, "t")
	require.NoError(t, err)

	err = app.Plannings.Close(ctx, planning)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, app.Plannings.Open(ctx, planning))
	assert.Equal(t, domain.StatusOpened, planning.Status())

	err = app.Plannings.Open(ctx, planning)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)

	require.NoError(t, app.Plannings.Close(ctx, planning))

	loaded, err := app.Plannings.FindByID(ctx, planning.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, loaded.Status())

	for _, to := range []domain.Status{domain.StatusUnderConstruction, domain.StatusOpened, domain.StatusClosed} {
		err := app.Plannings.UpdateStatus(ctx, planning, to)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition, "closed -> %s", to)
	}
}

func TestStaleCopyCannotReopenClosedPlanning(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, err := app.Plannings.Create(ctx, owner, "t")
	require.NoError(t, err)
	_, err = app.Plannings.AddOption(ctx, planning, "a")
	require.NoError(t, err)

	stale, err := app.Plannings.FindByID(ctx, planning.ID())
	require.NoError(t, err)
	require.NotNil(t, stale)

	require.NoError(t, app.Plannings.Open(ctx, planning))
	require.NoError(t, app.Plannings.Close(ctx, planning))

	err = app.Plannings.Open(ctx, stale)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusUnderConstruction, stale.Status())

	stored, err := app.Plannings.FindByID(ctx, planning.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, stored.Status())
}

func TestUpdateStatusOfUnsavedPlanning(t *testing.T) {
	app := setupTestApp(t)

	planning, err := domain.NewPlanning(owner, "t", domain.StatusUnderConstruction)
	require.NoError(t, err)

	err = app.Plannings.Open(context.Background(), planning)
	assert.ErrorIs(t, err, domain.ErrNotPersisted)
}

func TestOpeningFreesTheOwner(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	app.openedPlanning(t, owner, "first", "a")

	second, err := app.Plannings.Create(ctx, owner, "second")
	require.NoError(t, err)
	assert.Equal(t, "second", second.Title())
}

func TestAddOption(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, err := app.Plannings.Create(ctx, owner, "t")
	require.NoError(t, err)

	for i, text := range []string{"Monday", "Tuesday", "Wednesday"} {
		opt, err := app.Plannings.AddOption(ctx, planning, text)
		require.NoError(t, err)
		assert.Equal(t, i, opt.Ordinal())
		assert.True(t, opt.IsPersisted())
	}

	_, err = app.Plannings.AddOption(ctx, planning, "   ")
	require.ErrorIs(t, err, domain.ErrEmptyOptionText)

	options, err := app.Plannings.Options(ctx, planning)
	require.NoError(t, err)
	require.Len(t, options, 3)
	assert.Equal(t, "Tuesday", options[1].Text())
}

func TestAddOptionRequiresUnderConstruction(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, _ := app.openedPlanning(t, owner, "t", "a")

	_, err := app.Plannings.AddOption(ctx, planning, "late")
	assert.ErrorIs(t, err, domain.ErrPlanningNotEditable)
}

func TestOptionsReturnsFreshSlice(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, _ := app.openedPlanning(t, owner, "t", "a", "b")

	options, err := app.Plannings.Options(ctx, planning)
	require.NoError(t, err)
	options[0] = nil

	again, err := app.Plannings.Options(ctx, planning)
	require.NoError(t, err)
	require.NotNil(t, again[0])
	assert.Equal(t, "a", again[0].Text())
}

// Scenario A: a planning is built, then opened.
func TestBuildAndOpenPlanning(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, options := app.openedPlanning(t, owner, "Fancy diner", "Monday 8PM", "Tuesday 9PM")

	loaded, err := app.Plannings.FindOpenedByID(ctx, planning.ID())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Fancy diner", loaded.Title())

	assert.Equal(t, 0, options[0].Ordinal())
	assert.Equal(t, 1, options[1].Ordinal())

	description, err := app.Plannings.FullDescription(ctx, planning)
	require.NoError(t, err)
	assert.Equal(t,
		"Fancy diner\n\n"+
			"Monday 8PM — 0 participants\n"+
			"Tuesday 9PM — 0 participants\n\n"+
			"0 participants so far. Planning Opened.",
		description)
}

// Scenario E: cancelling before done removes everything.
func TestCancelPlanning(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, err := app.Plannings.Create(ctx, owner, "t")
	require.NoError(t, err)
	opt, err := app.Plannings.AddOption(ctx, planning, "a")
	require.NoError(t, err)

	require.NoError(t, app.Plannings.Remove(ctx, planning))

	inStore, err := app.Plannings.InStore(ctx, planning)
	require.NoError(t, err)
	assert.False(t, inStore)

	inStore, err = app.Options.InStore(ctx, opt)
	require.NoError(t, err)
	assert.False(t, inStore)

	plannings, err := app.Plannings.FindByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, plannings)

	_, err = app.Plannings.Create(ctx, owner, "again")
	assert.NoError(t, err)
}

func TestRemoveCascadesOnlyToOwnOptions(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	doomed, doomedOptions := app.openedPlanning(t, owner, "doomed", "a")
	kept, keptOptions := app.openedPlanning(t, 2002, "kept", "a")

	voter := mustVoter(t, 7, "Vic", "")
	_, err := app.Options.AddVote(ctx, doomedOptions[0], voter)
	require.NoError(t, err)
	_, err = app.Options.AddVote(ctx, keptOptions[0], voter)
	require.NoError(t, err)

	require.NoError(t, app.Plannings.Remove(ctx, doomed))

	voted, err := app.Options.HasVoted(ctx, doomedOptions[0], 7)
	require.NoError(t, err)
	assert.False(t, voted)

	voterKept, err := app.Voters.InStore(ctx, 7)
	require.NoError(t, err)
	assert.True(t, voterKept)

	voters, err := app.Plannings.Voters(ctx, kept)
	require.NoError(t, err)
	require.Len(t, voters, 1)
	assert.True(t, voter.Equal(voters[0]))
}

func TestRemoveUnsavedPlanning(t *testing.T) {
	app := setupTestApp(t)

	planning, err := domain.NewPlanning(owner, "t", domain.StatusUnderConstruction)
	require.NoError(t, err)

	err = app.Plannings.Remove(context.Background(), planning)
	assert.ErrorIs(t, err, domain.ErrNotPersisted)
}

func TestWithdrawVotes(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, options := app.openedPlanning(t, owner, "t", "a", "b", "c")
	voter := mustVoter(t, 9, "Wes", "")

	for _, opt := range options[:2] {
		_, err := app.Options.AddVote(ctx, opt, voter)
		require.NoError(t, err)
	}

	removed, err := app.Plannings.WithdrawVotes(ctx, planning, voter.ID())
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	voters, err := app.Plannings.Voters(ctx, planning)
	require.NoError(t, err)
	assert.Empty(t, voters)

	removed, err = app.Plannings.WithdrawVotes(ctx, planning, voter.ID())
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestWithdrawVotesRequiresOpenedPlanning(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	planning, options := app.openedPlanning(t, owner, "t", "a")
	voter := mustVoter(t, 9, "Wes", "")
	_, err := app.Options.AddVote(ctx, options[0], voter)
	require.NoError(t, err)
	require.NoError(t, app.Plannings.Close(ctx, planning))

	removed, err := app.Plannings.WithdrawVotes(ctx, planning, voter.ID())
	require.ErrorIs(t, err, domain.ErrPlanningNotOpened)
	assert.Zero(t, removed)

	recorded, err := app.Options.HasVoted(ctx, options[0], voter.ID())
	require.NoError(t, err)
	assert.True(t, recorded)

	building, err := app.Plannings.Create(ctx, owner, "draft")
	require.NoError(t, err)
	_, err = app.Plannings.WithdrawVotes(ctx, building, voter.ID())
	assert.ErrorIs(t, err, domain.ErrLogic)
}

func TestFindByOwnerOrder(t *testing.T) {
	app := setupTestApp(t)
	ctx := context.Background()

	app.openedPlanning(t, owner, "one", "a")
	app.openedPlanning(t, owner, "two", "a")
	_, err := app.Plannings.Create(ctx, owner, "three")
	require.NoError(t, err)

	plannings, err := app.Plannings.FindByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, plannings, 3)
	assert.Equal(t, "1. one — Opened", plannings[0].ShortDescription(0))
	assert.Equal(t, "3. three — Under construction", plannings[2].ShortDescription(2))
}
