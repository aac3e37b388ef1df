package services

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/planner/internal/core/domain"
	"github.com/vncsmyrnk/planner/internal/core/ports"
)

type optionService struct {
	store ports.Store
}

func NewOptionService(store ports.Store) ports.OptionService {
	return &optionService{
		store: store,
	}
}

func (s *optionService) Save(ctx context.Context, option *domain.Option) error {
	if option.IsPersisted() {
		return fmt.Errorf("%w: option %d", domain.ErrAlreadyPersisted, option.ID())
	}

	id, err := s.store.SaveOption(ctx, option.PlanningID(), option.Text(), option.Ordinal())
	if err != nil {
		return err
	}
	return option.AssignID(id)
}

func (s *optionService) InStore(ctx context.Context, option *domain.Option) (bool, error) {
	if !option.IsPersisted() {
		return false, nil
	}
	return s.store.OptionExists(ctx, option.ID())
}

// AddVote checks the planning is opened, upserts the voter and records the
// vote in one transaction: a rejected vote leaves nothing behind.
func (s *optionService) AddVote(ctx context.Context, option *domain.Option, voter *domain.Voter) (*domain.Voter, error) {
	if !option.IsPersisted() {
		return nil, domain.ErrNotPersisted
	}
	if voter == nil {
		return nil, domain.ErrMissingVoterID
	}

	var registered *domain.Voter
	err := s.store.Atomic(ctx, func(tx ports.Store) error {
		planning, err := tx.LoadOpenedPlanning(ctx, option.PlanningID())
		if err != nil {
			return err
		}
		if planning == nil {
			return domain.ErrPlanningNotOpened
		}

		v, err := tx.UpsertVoter(ctx, voter)
		if err != nil {
			return err
		}

		if err := tx.SaveVote(ctx, option.ID(), v.ID()); err != nil {
			return err
		}

		registered = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	return registered, nil
}

func (s *optionService) RemoveVote(ctx context.Context, option *domain.Option, voterID int64) error {
	if !option.IsPersisted() {
		return domain.ErrNotPersisted
	}
	return s.store.RemoveVote(ctx, option.ID(), voterID)
}

func (s *optionService) HasVoted(ctx context.Context, option *domain.Option, voterID int64) (bool, error) {
	if !option.IsPersisted() {
		return false, nil
	}
	return s.store.IsVoteRecorded(ctx, option.ID(), voterID)
}

func (s *optionService) Voters(ctx context.Context, option *domain.Option) ([]*domain.Voter, error) {
	if !option.IsPersisted() {
		return nil, domain.ErrNotPersisted
	}
	return s.store.LoadVotersByOption(ctx, option.ID())
}

func (s *optionService) ShortDescription(ctx context.Context, option *domain.Option) (string, error) {
	voters, err := s.Voters(ctx, option)
	if err != nil {
		return "", fmt.Errorf("failed to load voters: %w", err)
	}
	return option.ShortDescription(len(voters)), nil
}

func (s *optionService) FindByPlanningAndOrdinal(ctx context.Context, planningID int64, ordinal int) (*domain.Option, error) {
	return s.store.LoadOptionByPlanningAndOrdinal(ctx, planningID, ordinal)
}
