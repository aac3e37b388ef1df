package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/planner/internal/core/domain"
)

func TestNewOption(t *testing.T) {
	o, err := domain.NewOption(1, "Monday 8PM", 0)
	require.NoError(t, err)
	assert.False(t, o.IsPersisted())
	assert.Equal(t, "Monday 8PM — 2 participants", o.ShortDescription(2))

	_, err = domain.NewOption(0, "Monday 8PM", 0)
	assert.ErrorIs(t, err, domain.ErrMissingPlanning)

	_, err = domain.NewOption(1, "", 0)
	assert.ErrorIs(t, err, domain.ErrEmptyOptionText)

	_, err = domain.NewOption(1, "Monday 8PM", -1)
	assert.ErrorIs(t, err, domain.ErrNegativeOrdinal)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestOptionEqual(t *testing.T) {
	a, err := domain.RestoreOption(5, 1, "Monday", 0)
	require.NoError(t, err)
	b, err := domain.RestoreOption(5, 1, "Monday", 0)
	require.NoError(t, err)
	c, err := domain.RestoreOption(5, 1, "Monday", 1)
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))

	err = a.AssignID(6)
	assert.ErrorIs(t, err, domain.ErrAlreadyPersisted)
}
