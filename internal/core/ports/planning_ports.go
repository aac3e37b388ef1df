package ports

import (
	"context"

	"github.com/vncsmyrnk/planner/internal/core/domain"
)

type PlanningService interface {
	// Create opens a new planning under construction for ownerID. It fails
	// with domain.ErrPlanningInProgress when one already exists.
	Create(ctx context.Context, ownerID int64, title string) (*domain.Planning, error)
	Save(ctx context.Context, planning *domain.Planning) error
	UpdateStatus(ctx context.Context, planning *domain.Planning, status domain.Status) error
	Open(ctx context.Context, planning *domain.Planning) error
	Close(ctx context.Context, planning *domain.Planning) error
	AddOption(ctx context.Context, planning *domain.Planning, text string) (*domain.Option, error)
	Options(ctx context.Context, planning *domain.Planning) ([]*domain.Option, error)
	Voters(ctx context.Context, planning *domain.Planning) ([]*domain.Voter, error)
	WithdrawVotes(ctx context.Context, planning *domain.Planning, voterID int64) (int, error)
	Remove(ctx context.Context, planning *domain.Planning) error
	InStore(ctx context.Context, planning *domain.Planning) (bool, error)
	FullDescription(ctx context.Context, planning *domain.Planning) (string, error)

	FindByID(ctx context.Context, id int64) (*domain.Planning, error)
	FindByOwner(ctx context.Context, ownerID int64) ([]*domain.Planning, error)
	FindUnderConstructionForOwner(ctx context.Context, ownerID int64) (*domain.Planning, error)
	FindOpenedByID(ctx context.Context, id int64) (*domain.Planning, error)
}
