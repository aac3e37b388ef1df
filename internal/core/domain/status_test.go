package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/planner/internal/core/domain"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []domain.Status{domain.StatusUnderConstruction, domain.StatusOpened, domain.StatusClosed} {
		parsed, err := domain.ParseStatus(s.Code())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}

	_, err := domain.ParseStatus("Opened")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "Under construction", domain.StatusUnderConstruction.String())
	assert.Equal(t, "Opened", domain.StatusOpened.String())
	assert.Equal(t, "Closed", domain.StatusClosed.String())
	assert.False(t, domain.Status(0).Valid())
	assert.Empty(t, domain.Status(9).Code())
}

func TestCanTransition(t *testing.T) {
	uc, op, cl := domain.StatusUnderConstruction, domain.StatusOpened, domain.StatusClosed

	tests := []struct {
		from, to domain.Status
		want     bool
	}{
		{uc, op, true},
		{op, cl, true},
		{uc, uc, false},
		{uc, cl, false},
		{op, op, false},
		{op, uc, false},
		{cl, cl, false},
		{cl, op, false},
		{cl, uc, false},
		{domain.Status(0), op, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CanTransition(tt.from, tt.to))
		})
	}
}
