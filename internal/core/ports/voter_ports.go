package ports

import (
	"context"

	"github.com/vncsmyrnk/planner/internal/core/domain"
)

type VoterService interface {
	InStore(ctx context.Context, id int64) (bool, error)
	All(ctx context.Context) ([]*domain.Voter, error)
}
