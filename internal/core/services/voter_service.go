package services

import (
	"context"

	"github.com/vncsmyrnk/planner/internal/core/domain"
	"github.com/vncsmyrnk/planner/internal/core/ports"
)

type VoterService struct {
	repo ports.VoterRepository
}

func NewVoterService(repo ports.VoterRepository) ports.VoterService {
	return &VoterService{
		repo: repo,
	}
}

func (s *VoterService) InStore(ctx context.Context, id int64) (bool, error) {
	return s.repo.VoterExists(ctx, id)
}

func (s *VoterService) All(ctx context.Context) ([]*domain.Voter, error) {
	return s.repo.LoadAllVoters(ctx)
}
