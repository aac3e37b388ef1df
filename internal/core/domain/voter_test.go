package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/planner/internal/core/domain"
)

func TestVoter(t *testing.T) {
	chandler, err := domain.NewVoter(123456789, "Chandler", "Bing")
	require.NoError(t, err)
	assert.Equal(t, "Chandler Bing", chandler.DisplayName())

	renamed, err := domain.NewVoter(123456789, "Chan", "")
	require.NoError(t, err)
	assert.Equal(t, "Chan", renamed.DisplayName())
	assert.True(t, chandler.Equal(renamed))

	joey, err := domain.NewVoter(987654321, "Chandler", "Bing")
	require.NoError(t, err)
	assert.False(t, chandler.Equal(joey))

	_, err = domain.NewVoter(0, "Joey", "")
	assert.ErrorIs(t, err, domain.ErrMissingVoterID)

	_, err = domain.NewVoter(1, "", "Tribbiani")
	assert.ErrorIs(t, err, domain.ErrMissingFirstName)
}
