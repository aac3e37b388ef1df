package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/planner/internal/core/domain"
)

func TestNewPlanning(t *testing.T) {
	p, err := domain.NewPlanning(123, "Fancy diner", domain.StatusUnderConstruction)
	require.NoError(t, err)
	assert.False(t, p.IsPersisted())
	assert.Equal(t, int64(123), p.OwnerID())
	assert.Equal(t, "Fancy diner", p.Title())
	assert.Equal(t, domain.StatusUnderConstruction, p.Status())

	_, err = domain.NewPlanning(123, "", domain.StatusUnderConstruction)
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)

	_, err = domain.NewPlanning(123, "   ", domain.StatusUnderConstruction)
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	_, err = domain.NewPlanning(0, "Fancy diner", domain.StatusUnderConstruction)
	assert.ErrorIs(t, err, domain.ErrMissingOwner)

	_, err = domain.NewPlanning(123, "Fancy diner", domain.Status(0))
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestPlanningAssignIDOnlyOnce(t *testing.T) {
	p, err := domain.NewPlanning(1, "Trip", domain.StatusUnderConstruction)
	require.NoError(t, err)

	require.NoError(t, p.AssignID(42))
	assert.True(t, p.IsPersisted())
	assert.Equal(t, int64(42), p.ID())

	err = p.AssignID(43)
	assert.ErrorIs(t, err, domain.ErrAlreadyPersisted)
	assert.Equal(t, int64(42), p.ID())
}

func TestPlanningSetStatus(t *testing.T) {
	p, err := domain.NewPlanning(1, "Trip", domain.StatusUnderConstruction)
	require.NoError(t, err)

	err = p.SetStatus(domain.StatusClosed)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusUnderConstruction, p.Status())

	require.NoError(t, p.SetStatus(domain.StatusOpened))
	assert.ErrorIs(t, p.SetStatus(domain.StatusOpened), domain.ErrInvalidTransition)

	require.NoError(t, p.SetStatus(domain.StatusClosed))
	assert.ErrorIs(t, p.SetStatus(domain.StatusOpened), domain.ErrInvalidTransition)
	assert.Equal(t, domain.StatusClosed, p.Status())
}

func TestInlineQueryID(t *testing.T) {
	p, err := domain.RestorePlanning(77, 1, "Trip", domain.StatusOpened)
	require.NoError(t, err)
	assert.Equal(t, "planning_77", p.InlineQueryID())

	id, ok := domain.ParseInlineQueryID(p.InlineQueryID())
	require.True(t, ok)
	assert.Equal(t, int64(77), id)

	for _, query := range []string{"", "planning_", "planning_x", "planning_-3", "planning_0", "77", "poll_77"} {
		_, ok := domain.ParseInlineQueryID(query)
		assert.False(t, ok, query)
	}
}

func TestPlanningDescriptions(t *testing.T) {
	p, err := domain.RestorePlanning(1, 1, "Fancy diner", domain.StatusOpened)
	require.NoError(t, err)

	assert.Equal(t, "3. Fancy diner — Opened", p.ShortDescription(2))

	got := domain.FullDescription(p, []string{"Monday 8PM — 1 participants", "Tuesday 9PM — 0 participants"}, 1)
	want := "Fancy diner\n\n" +
		"Monday 8PM — 1 participants\n" +
		"Tuesday 9PM — 0 participants\n\n" +
		"1 participants so far. Planning Opened."
	assert.Equal(t, want, got)

	assert.Equal(t, "Fancy diner\n\n0 participants so far. Planning Opened.", domain.FullDescription(p, nil, 0))
}
