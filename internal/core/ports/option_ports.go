package ports

import (
	"context"

	"github.com/vncsmyrnk/planner/internal/core/domain"
)

type OptionService interface {
	Save(ctx context.Context, option *domain.Option) error
	InStore(ctx context.Context, option *domain.Option) (bool, error)
	// AddVote registers a vote of voter for option. The planning must be
	// opened and the voter must not have voted for this option yet.
	AddVote(ctx context.Context, option *domain.Option, voter *domain.Voter) (*domain.Voter, error)
	RemoveVote(ctx context.Context, option *domain.Option, voterID int64) error
	HasVoted(ctx context.Context, option *domain.Option, voterID int64) (bool, error)
	Voters(ctx context.Context, option *domain.Option) ([]*domain.Voter, error)
	ShortDescription(ctx context.Context, option *domain.Option) (string, error)
	FindByPlanningAndOrdinal(ctx context.Context, planningID int64, ordinal int) (*domain.Option, error)
}
