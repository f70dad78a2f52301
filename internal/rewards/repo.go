package rewards

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/pkg/db/models"
)

// Repository reads the reward catalog the hold manager quotes from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, reward *models.Reward) error
	FindByID(ctx context.Context, familyID, id uuid.UUID) (*models.Reward, error)
	ListActive(ctx context.Context, familyID uuid.UUID) ([]models.Reward, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reward repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, reward *models.Reward) error {
	if reward.ID == uuid.Nil {
		reward.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(reward).Error
}

func (r *repository) FindByID(ctx context.Context, familyID, id uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	err := r.db.WithContext(ctx).
		Where("family_id = ? AND id = ?", familyID, id).
		First(&reward).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *repository) ListActive(ctx context.Context, familyID uuid.UUID) ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.db.WithContext(ctx).
		Where("family_id = ? AND active = ?", familyID, true).
		Order("title ASC").
		Find(&rewards).Error
	if err != nil {
		return nil, err
	}
	return rewards, nil
}
