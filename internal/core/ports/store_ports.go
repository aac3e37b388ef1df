package ports

import (
	"context"

	"github.com/vncsmyrnk/planner/internal/core/domain"
)

type PlanningRepository interface {
	SavePlanning(ctx context.Context, ownerID int64, title string, status domain.Status) (int64, error)
	// UpdatePlanningStatus moves planning id from status from to status
	// to. It fails with domain.ErrInvalidTransition when the stored
	// status is no longer from.
	UpdatePlanningStatus(ctx context.Context, id int64, from, to domain.Status) error
	// RemovePlanning deletes the planning, its options and the votes cast
	// on them. Voters are kept.
	RemovePlanning(ctx context.Context, id int64) error
	PlanningExists(ctx context.Context, id int64) (bool, error)
	LoadPlanning(ctx context.Context, id int64) (*domain.Planning, error)
	LoadPlanningsByOwner(ctx context.Context, ownerID int64) ([]*domain.Planning, error)
	LoadUnderConstructionPlanning(ctx context.Context, ownerID int64) (*domain.Planning, error)
	LoadOpenedPlanning(ctx context.Context, id int64) (*domain.Planning, error)
}

type OptionRepository interface {
	SaveOption(ctx context.Context, planningID int64, text string, ordinal int) (int64, error)
	OptionExists(ctx context.Context, id int64) (bool, error)
	LoadOptionsByPlanning(ctx context.Context, planningID int64) ([]*domain.Option, error)
	LoadOptionByPlanningAndOrdinal(ctx context.Context, planningID int64, ordinal int) (*domain.Option, error)
}

type VoterRepository interface {
	UpsertVoter(ctx context.Context, voter *domain.Voter) (*domain.Voter, error)
	VoterExists(ctx context.Context, id int64) (bool, error)
	LoadAllVoters(ctx context.Context) ([]*domain.Voter, error)
	LoadVotersByPlanning(ctx context.Context, planningID int64) ([]*domain.Voter, error)
	LoadVotersByOption(ctx context.Context, optionID int64) ([]*domain.Voter, error)
}

type VoteRepository interface {
	SaveVote(ctx context.Context, optionID, voterID int64) error
	// RemoveVote succeeds when no such vote exists.
	RemoveVote(ctx context.Context, optionID, voterID int64) error
	IsVoteRecorded(ctx context.Context, optionID, voterID int64) (bool, error)
}

// Store is the durable home of plannings, options, voters and votes.
// Loaders return a nil entity and a nil error when nothing matches.
type Store interface {
	PlanningRepository
	OptionRepository
	VoterRepository
	VoteRepository

	// Atomic runs fn against a Store bound to a single transaction. The
	// transaction is rolled back when fn returns an error. Calling Atomic
	// on a bound Store runs fn inside the existing transaction.
	Atomic(ctx context.Context, fn func(Store) error) error
}
