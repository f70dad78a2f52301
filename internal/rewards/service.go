package rewards

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/pkg/db/models"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
)

// Service is the read side of the reward catalog. Catalog management lives
// outside the redemption engine; holds only need to quote a cost.
type Service interface {
	Get(ctx context.Context, familyID, rewardID uuid.UUID) (*models.Reward, error)
	ListActive(ctx context.Context, familyID uuid.UUID) ([]models.Reward, error)
}

// ServiceParams wires the reward service dependencies.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService wires a reward catalog reader.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) Get(ctx context.Context, familyID, rewardID uuid.UUID) (*models.Reward, error) {
	if familyID == uuid.Nil || rewardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id and reward id are required")
	}
	reward, err := s.repo.FindByID(ctx, familyID, rewardID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find reward")
	}
	if reward == nil || !reward.Active {
		// Inactive rewards read the same as missing ones.
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reward not found")
	}
	return reward, nil
}

func (s *service) ListActive(ctx context.Context, familyID uuid.UUID) ([]models.Reward, error) {
	if familyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id is required")
	}
	rewards, err := s.repo.ListActive(ctx, familyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rewards")
	}
	return rewards, nil
}
