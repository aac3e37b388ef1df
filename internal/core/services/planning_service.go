package services

import (
	"context"
	"fmt"

	"github.com/vncsmyrnk/planner/internal/core/domain"
	"github.com/vncsmyrnk/planner/internal/core/ports"
)

type planningService struct {
	store ports.Store
}

func NewPlanningService(store ports.Store) ports.PlanningService {
	return &planningService{
		store: store,
	}
}

func (s *planningService) Create(ctx context.Context, ownerID int64, title string) (*domain.Planning, error) {
	var planning *domain.Planning
	var id int64

	err := s.store.Atomic(ctx, func(tx ports.Store) error {
		current, err := tx.LoadUnderConstructionPlanning(ctx, ownerID)
		if err != nil {
			return err
		}
		if current != nil {
			return domain.ErrPlanningInProgress
		}

		planning, err = domain.NewPlanning(ownerID, title, domain.StatusUnderConstruction)
		if err != nil {
			return err
		}

		id, err = tx.SavePlanning(ctx, planning.OwnerID(), planning.Title(), planning.Status())
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := planning.AssignID(id); err != nil {
		return nil, err
	}
	return planning, nil
}

func (s *planningService) Save(ctx context.Context, planning *domain.Planning) error {
	if planning.IsPersisted() {
		return fmt.Errorf("%w: planning %d", domain.ErrAlreadyPersisted, planning.ID())
	}

	id, err := s.store.SavePlanning(ctx, planning.OwnerID(), planning.Title(), planning.Status())
	if err != nil {
		return err
	}
	return planning.AssignID(id)
}

// UpdateStatus persists a transition. The store only applies it when the
// stored status still matches the in-memory one.
func (s *planningService) UpdateStatus(ctx context.Context, planning *domain.Planning, status domain.Status) error {
	if !planning.IsPersisted() {
		return domain.ErrNotPersisted
	}
	if err := planning.ValidateTransition(status); err != nil {
		return err
	}

	if err := s.store.UpdatePlanningStatus(ctx, planning.ID(), planning.Status(), status); err != nil {
		return err
	}
	return planning.SetStatus(status)
}

func (s *planningService) Open(ctx context.Context, planning *domain.Planning) error {
	if planning.Status() != domain.StatusUnderConstruction {
		return fmt.Errorf("%w: cannot open a planning that is %s", domain.ErrInvalidTransition, planning.Status())
	}
	return s.UpdateStatus(ctx, planning, domain.StatusOpened)
}

func (s *planningService) Close(ctx context.Context, planning *domain.Planning) error {
	if planning.Status() != domain.StatusOpened {
		return fmt.Errorf("%w: cannot close a planning that is %s", domain.ErrInvalidTransition, planning.Status())
	}
	return s.UpdateStatus(ctx, planning, domain.StatusClosed)
}

// AddOption appends an option after the existing ones. The stored status
// is checked, not the in-memory one.
func (s *planningService) AddOption(ctx context.Context, planning *domain.Planning, text string) (*domain.Option, error) {
	if !planning.IsPersisted() {
		return nil, domain.ErrNotPersisted
	}

	var option *domain.Option
	var id int64

	err := s.store.Atomic(ctx, func(tx ports.Store) error {
		stored, err := tx.LoadPlanning(ctx, planning.ID())
		if err != nil {
			return err
		}
		if stored == nil {
			return fmt.Errorf("%w: planning %d", domain.ErrNotPersisted, planning.ID())
		}
		if stored.Status() != domain.StatusUnderConstruction {
			return domain.ErrPlanningNotEditable
		}

		options, err := tx.LoadOptionsByPlanning(ctx, planning.ID())
		if err != nil {
			return err
		}

		option, err = domain.NewOption(planning.ID(), text, len(options))
		if err != nil {
			return err
		}

		id, err = tx.SaveOption(ctx, option.PlanningID(), option.Text(), option.Ordinal())
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := option.AssignID(id); err != nil {
		return nil, err
	}
	return option, nil
}

func (s *planningService) Options(ctx context.Context, planning *domain.Planning) ([]*domain.Option, error) {
	if !planning.IsPersisted() {
		return nil, domain.ErrNotPersisted
	}
	return s.store.LoadOptionsByPlanning(ctx, planning.ID())
}

func (s *planningService) Voters(ctx context.Context, planning *domain.Planning) ([]*domain.Voter, error) {
	if !planning.IsPersisted() {
		return nil, domain.ErrNotPersisted
	}
	return s.store.LoadVotersByPlanning(ctx, planning.ID())
}

// WithdrawVotes removes every vote voterID cast on the planning's options
// and reports how many were removed. The stored planning must be opened.
func (s *planningService) WithdrawVotes(ctx context.Context, planning *domain.Planning, voterID int64) (int, error) {
	if !planning.IsPersisted() {
		return 0, domain.ErrNotPersisted
	}

	removed := 0
	err := s.store.Atomic(ctx, func(tx ports.Store) error {
		removed = 0

		opened, err := tx.LoadOpenedPlanning(ctx, planning.ID())
		if err != nil {
			return err
		}
		if opened == nil {
			return fmt.Errorf("%w: planning %d", domain.ErrPlanningNotOpened, planning.ID())
		}

		options, err := tx.LoadOptionsByPlanning(ctx, planning.ID())
		if err != nil {
			return err
		}

		for _, opt := range options {
			recorded, err := tx.IsVoteRecorded(ctx, opt.ID(), voterID)
			if err != nil {
				return err
			}
			if !recorded {
				continue
			}
			if err := tx.RemoveVote(ctx, opt.ID(), voterID); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *planningService) Remove(ctx context.Context, planning *domain.Planning) error {
	if !planning.IsPersisted() {
		return domain.ErrNotPersisted
	}
	return s.store.RemovePlanning(ctx, planning.ID())
}

func (s *planningService) InStore(ctx context.Context, planning *domain.Planning) (bool, error) {
	if !planning.IsPersisted() {
		return false, nil
	}
	return s.store.PlanningExists(ctx, planning.ID())
}

func (s *planningService) FullDescription(ctx context.Context, planning *domain.Planning) (string, error) {
	options, err := s.Options(ctx, planning)
	if err != nil {
		return "", fmt.Errorf("failed to load options: %w", err)
	}

	lines := make([]string, 0, len(options))
	for _, opt := range options {
		voters, err := s.store.LoadVotersByOption(ctx, opt.ID())
		if err != nil {
			return "", fmt.Errorf("failed to load voters of option %d: %w", opt.ID(), err)
		}
		lines = append(lines, opt.ShortDescription(len(voters)))
	}

	voters, err := s.Voters(ctx, planning)
	if err != nil {
		return "", fmt.Errorf("failed to load voters: %w", err)
	}

	return domain.FullDescription(planning, lines, len(voters)), nil
}

func (s *planningService) FindByID(ctx context.Context, id int64) (*domain.Planning, error) {
	return s.store.LoadPlanning(ctx, id)
}

func (s *planningService) FindByOwner(ctx context.Context, ownerID int64) ([]*domain.Planning, error) {
	return s.store.LoadPlanningsByOwner(ctx, ownerID)
}

func (s *planningService) FindUnderConstructionForOwner(ctx context.Context, ownerID int64) (*domain.Planning, error) {
	return s.store.LoadUnderConstructionPlanning(ctx, ownerID)
}

func (s *planningService) FindOpenedByID(ctx context.Context, id int64) (*domain.Planning, error) {
	return s.store.LoadOpenedPlanning(ctx, id)
}
