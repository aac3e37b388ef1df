// Package storetest holds the behaviour every ports.Store implementation
// must share. Store packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/planner/internal/core/domain"
	"github.com/vncsmyrnk/planner/internal/core/ports"
)

// NewStore returns an empty store. It is called once per subtest.
type NewStore func(t *testing.T) ports.Store

func Run(t *testing.T, newStore NewStore) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store ports.Store)
	}{
		{"PlanningRoundTrip", testPlanningRoundTrip},
		{"OneUnderConstructionPerOwner", testOneUnderConstructionPerOwner},
		{"ConcurrentCreation", testConcurrentCreation},
		{"UpdateStatusOfMissingPlanning", testUpdateStatusOfMissingPlanning},
		{"UpdateStatusFromStaleStatus", testUpdateStatusFromStaleStatus},
		{"PlanningsByOwnerOrdered", testPlanningsByOwnerOrdered},
		{"LoadOpenedPlanning", testLoadOpenedPlanning},
		{"OptionsOrderedByOrdinal", testOptionsOrderedByOrdinal},
		{"DuplicateOrdinal", testDuplicateOrdinal},
		{"OptionOfMissingPlanning", testOptionOfMissingPlanning},
		{"UpsertVoter", testUpsertVoter},
		{"Votes", testVotes},
		{"VotersDistinctAndOrdered", testVotersDistinctAndOrdered},
		{"RemovePlanningCascades", testRemovePlanningCascades},
		{"RemoveMissingPlanning", testRemoveMissingPlanning},
		{"AtomicRollsBack", testAtomicRollsBack},
		{"AtomicNested", testAtomicNested},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func savePlanning(t *testing.T, store ports.Store, ownerID int64, title string, status domain.Status) int64 {
	t.Helper()
	id, err := store.SavePlanning(context.Background(), ownerID, title, status)
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

func saveOption(t *testing.T, store ports.Store, planningID int64, text string, ordinal int) int64 {
	t.Helper()
	id, err := store.SaveOption(context.Background(), planningID, text, ordinal)
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

func vote(t *testing.T, store ports.Store, optionID int64, voter *domain.Voter) {
	t.Helper()
	ctx := context.Background()
	_, err := store.UpsertVoter(ctx, voter)
	require.NoError(t, err)
	require.NoError(t, store.SaveVote(ctx, optionID, voter.ID()))
}

func newVoter(t *testing.T, id int64, firstName, lastName string) *domain.Voter {
	t.Helper()
	v, err := domain.NewVoter(id, firstName, lastName)
	require.NoError(t, err)
	return v
}

func testPlanningRoundTrip(t *testing.T, store ports.Store) {
	ctx := context.Background()
	id := savePlanning(t, store, 42, "Friday dinner", domain.StatusUnderConstruction)

	loaded, err := store.LoadPlanning(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, id, loaded.ID())
	assert.Equal(t, int64(42), loaded.OwnerID())
	assert.Equal(t, "Friday dinner", loaded.Title())
	assert.Equal(t, domain.StatusUnderConstruction, loaded.Status())

	exists, err := store.PlanningExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	missing, err := store.LoadPlanning(ctx, id+1000)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testOneUnderConstructionPerOwner(t *testing.T, store ports.Store) {
	ctx := context.Background()
	first := savePlanning(t, store, 1, "first", domain.StatusUnderConstruction)

	_, err := store.SavePlanning(ctx, 1, "second", domain.StatusUnderConstruction)
	require.ErrorIs(t, err, domain.ErrPlanningInProgress)
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	savePlanning(t, store, 2, "other owner", domain.StatusUnderConstruction)

	require.NoError(t, store.UpdatePlanningStatus(ctx, first, domain.StatusUnderConstruction, domain.StatusOpened))
	savePlanning(t, store, 1, "second", domain.StatusUnderConstruction)

	current, err := store.LoadUnderConstructionPlanning(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "second", current.Title())
}

func testConcurrentCreation(t *testing.T, store ports.Store) {
	const attempts = 8

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.SavePlanning(context.Background(), 7, "race", domain.StatusUnderConstruction)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrPlanningInProgress)
	}
	assert.Equal(t, 1, succeeded)

	plannings, err := store.LoadPlanningsByOwner(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, plannings, 1)
}

func testUpdateStatusOfMissingPlanning(t *testing.T, store ports.Store) {
	err := store.UpdatePlanningStatus(context.Background(), 9999, domain.StatusUnderConstruction, domain.StatusOpened)
	assert.ErrorIs(t, err, domain.ErrConsistency)
}

func testUpdateStatusFromStaleStatus(t *testing.T, store ports.Store) {
	ctx := context.Background()
	id := savePlanning(t, store, 1, "t", domain.StatusUnderConstruction)
	require.NoError(t, store.UpdatePlanningStatus(ctx, id, domain.StatusUnderConstruction, domain.StatusOpened))
	require.NoError(t, store.UpdatePlanningStatus(ctx, id, domain.StatusOpened, domain.StatusClosed))

	err := store.UpdatePlanningStatus(ctx, id, domain.StatusUnderConstruction, domain.StatusOpened)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NotErrorIs(t, err, domain.ErrConsistency)

	stored, err := store.LoadPlanning(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusClosed, stored.Status())
}

func testPlanningsByOwnerOrdered(t *testing.T, store ports.Store) {
	ctx := context.Background()
	a := savePlanning(t, store, 3, "a", domain.StatusClosed)
	b := savePlanning(t, store, 3, "b", domain.StatusOpened)
	c := savePlanning(t, store, 3, "c", domain.StatusUnderConstruction)
	savePlanning(t, store, 4, "not mine", domain.StatusOpened)

	plannings, err := store.LoadPlanningsByOwner(ctx, 3)
	require.NoError(t, err)
	require.Len(t, plannings, 3)
	assert.Equal(t, []int64{a, b, c}, []int64{plannings[0].ID(), plannings[1].ID(), plannings[2].ID()})

	none, err := store.LoadPlanningsByOwner(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testLoadOpenedPlanning(t *testing.T, store ports.Store) {
	ctx := context.Background()
	id := savePlanning(t, store, 1, "t", domain.StatusUnderConstruction)

	opened, err := store.LoadOpenedPlanning(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, opened)

	require.NoError(t, store.UpdatePlanningStatus(ctx, id, domain.StatusUnderConstruction, domain.StatusOpened))
	opened, err = store.LoadOpenedPlanning(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, opened)
	assert.Equal(t, domain.StatusOpened, opened.Status())

	require.NoError(t, store.UpdatePlanningStatus(ctx, id, domain.StatusOpened, domain.StatusClosed))
	opened, err = store.LoadOpenedPlanning(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, opened)
}

func testOptionsOrderedByOrdinal(t *testing.T, store ports.Store) {
	ctx := context.Background()
	pl := savePlanning(t, store, 1, "t", domain.StatusUnderConstruction)
	saveOption(t, store, pl, "third", 2)
	saveOption(t, store, pl, "first", 0)
	second := saveOption(t, store, pl, "second", 1)

	options, err := store.LoadOptionsByPlanning(ctx, pl)
	require.NoError(t, err)
	require.Len(t, options, 3)
	for i, opt := range options {
		assert.Equal(t, i, opt.Ordinal())
		assert.Equal(t, pl, opt.PlanningID())
	}
	assert.Equal(t, "first", options[0].Text())

	opt, err := store.LoadOptionByPlanningAndOrdinal(ctx, pl, 1)
	require.NoError(t, err)
	require.NotNil(t, opt)
	assert.Equal(t, second, opt.ID())
	assert.Equal(t, "second", opt.Text())

	missing, err := store.LoadOptionByPlanningAndOrdinal(ctx, pl, 3)
	require.NoError(t, err)
	assert.Nil(t, missing)

	exists, err := store.OptionExists(ctx, second)
	require.NoError(t, err)
	assert.True(t, exists)
}

func testDuplicateOrdinal(t *testing.T, store ports.Store) {
	pl := savePlanning(t, store, 1, "t", domain.StatusUnderConstruction)
	saveOption(t, store, pl, "a", 0)

	_, err := store.SaveOption(context.Background(), pl, "b", 0)
	assert.ErrorIs(t, err, domain.ErrConsistency)
}

func testOptionOfMissingPlanning(t *testing.T, store ports.Store) {
	_, err := store.SaveOption(context.Background(), 9999, "orphan", 0)
	assert.ErrorIs(t, err, domain.ErrConsistency)
}

func testUpsertVoter(t *testing.T, store ports.Store) {
	ctx := context.Background()

	stored, err := store.UpsertVoter(ctx, newVoter(t, 100, "Ann", ""))
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.ID())
	assert.Equal(t, "Ann", stored.FirstName())
	assert.Empty(t, stored.LastName())

	stored, err = store.UpsertVoter(ctx, newVoter(t, 100, "Anna", "Smith"))
	require.NoError(t, err)
	assert.Equal(t, "Anna", stored.FirstName())
	assert.Equal(t, "Smith", stored.LastName())

	_, err = store.UpsertVoter(ctx, newVoter(t, 100, "Anna", "Smith"))
	require.NoError(t, err)

	all, err := store.LoadAllVoters(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Anna Smith", all[0].DisplayName())

	exists, err := store.VoterExists(ctx, 100)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.VoterExists(ctx, 101)
	require.NoError(t, err)
	assert.False(t, exists)
}

func testVotes(t *testing.T, store ports.Store) {
	ctx := context.Background()
	pl := savePlanning(t, store, 1, "t", domain.StatusOpened)
	opt := saveOption(t, store, pl, "a", 0)
	voter := newVoter(t, 5, "Bob", "")

	vote(t, store, opt, voter)

	recorded, err := store.IsVoteRecorded(ctx, opt, 5)
	require.NoError(t, err)
	assert.True(t, recorded)

	err = store.SaveVote(ctx, opt, 5)
	assert.ErrorIs(t, err, domain.ErrMultipleVote)

	require.NoError(t, store.RemoveVote(ctx, opt, 5))
	recorded, err = store.IsVoteRecorded(ctx, opt, 5)
	require.NoError(t, err)
	assert.False(t, recorded)

	require.NoError(t, store.RemoveVote(ctx, opt, 5))
	require.NoError(t, store.SaveVote(ctx, opt, 5))
}

func testVotersDistinctAndOrdered(t *testing.T, store ports.Store) {
	ctx := context.Background()
	pl := savePlanning(t, store, 1, "t", domain.StatusOpened)
	a := saveOption(t, store, pl, "a", 0)
	b := saveOption(t, store, pl, "b", 1)

	zoe := newVoter(t, 1, "Zoe", "")
	adam := newVoter(t, 2, "Adam", "")
	mia := newVoter(t, 3, "Mia", "Lee")
	vote(t, store, a, zoe)
	vote(t, store, b, zoe)
	vote(t, store, b, adam)
	vote(t, store, a, mia)

	voters, err := store.LoadVotersByPlanning(ctx, pl)
	require.NoError(t, err)
	names := make([]string, 0, len(voters))
	for _, v := range voters {
		names = append(names, v.FirstName())
	}
	assert.Equal(t, []string{"Adam", "Mia", "Zoe"}, names)

	voters, err = store.LoadVotersByOption(ctx, a)
	require.NoError(t, err)
	require.Len(t, voters, 2)
	assert.Equal(t, "Mia", voters[0].FirstName())
	assert.Equal(t, "Lee", voters[0].LastName())
	assert.Equal(t, "Zoe", voters[1].FirstName())
}

func testRemovePlanningCascades(t *testing.T, store ports.Store) {
	ctx := context.Background()
	pl := savePlanning(t, store, 1, "doomed", domain.StatusOpened)
	opt := saveOption(t, store, pl, "a", 0)
	kept := savePlanning(t, store, 2, "kept", domain.StatusOpened)
	keptOpt := saveOption(t, store, kept, "a", 0)

	voter := newVoter(t, 10, "Cy", "")
	vote(t, store, opt, voter)
	require.NoError(t, store.SaveVote(ctx, keptOpt, 10))

	require.NoError(t, store.RemovePlanning(ctx, pl))

	exists, err := store.PlanningExists(ctx, pl)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = store.OptionExists(ctx, opt)
	require.NoError(t, err)
	assert.False(t, exists)

	recorded, err := store.IsVoteRecorded(ctx, opt, 10)
	require.NoError(t, err)
	assert.False(t, recorded)

	exists, err = store.VoterExists(ctx, 10)
	require.NoError(t, err)
	assert.True(t, exists, "voters outlive their votes")

	recorded, err = store.IsVoteRecorded(ctx, keptOpt, 10)
	require.NoError(t, err)
	assert.True(t, recorded)
}

func testRemoveMissingPlanning(t *testing.T, store ports.Store) {
	err := store.RemovePlanning(context.Background(), 9999)
	assert.ErrorIs(t, err, domain.ErrConsistency)
}

func testAtomicRollsBack(t *testing.T, store ports.Store) {
	ctx := context.Background()
	boom := errors.New("boom")
	var id int64

	err := store.Atomic(ctx, func(tx ports.Store) error {
		var err error
		id, err = tx.SavePlanning(ctx, 1, "t", domain.StatusUnderConstruction)
		if err != nil {
			return err
		}
		if _, err := tx.UpsertVoter(ctx, newVoter(t, 77, "Rolled", "")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	exists, err := store.PlanningExists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = store.VoterExists(ctx, 77)
	require.NoError(t, err)
	assert.False(t, exists)
}

func testAtomicNested(t *testing.T, store ports.Store) {
	ctx := context.Background()
	var id int64

	err := store.Atomic(ctx, func(tx ports.Store) error {
		return tx.Atomic(ctx, func(inner ports.Store) error {
			var err error
			id, err = inner.SavePlanning(ctx, 1, "t", domain.StatusUnderConstruction)
			return err
		})
	})
	require.NoError(t, err)

	exists, err := store.PlanningExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
}
