package holds

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/enums"
)

// Repository manages persistence for reward holds.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, hold *models.Hold) error
	FindByID(ctx context.Context, familyID, id uuid.UUID) (*models.Hold, error)
	// FindByIDForUpdate row-locks the hold for the rest of the transaction
	// on Postgres. SQLite's single-writer model covers the same window.
	FindByIDForUpdate(ctx context.Context, familyID, id uuid.UUID) (*models.Hold, error)
	// TransitionFrom moves the hold out of the expected status, applying the
	// given column updates. It reports false when another writer got there
	// first.
	TransitionFrom(ctx context.Context, holdID uuid.UUID, from enums.HoldStatus, updates map[string]any) (bool, error)
	ListPending(ctx context.Context, familyID, userID uuid.UUID, now time.Time) ([]models.Hold, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a hold repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, hold *models.Hold) error {
	if hold.ID == uuid.Nil {
		hold.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(hold).Error
}

func (r *repository) FindByID(ctx context.Context, familyID, id uuid.UUID) (*models.Hold, error) {
	return r.find(ctx, r.db, familyID, id)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, familyID, id uuid.UUID) (*models.Hold, error) {
	q := r.db
	if r.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(ctx, q, familyID, id)
}

func (r *repository) find(ctx context.Context, q *gorm.DB, familyID, id uuid.UUID) (*models.Hold, error) {
	var hold models.Hold
	err := q.WithContext(ctx).
		Where("family_id = ? AND id = ?", familyID, id).
		First(&hold).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *repository) TransitionFrom(ctx context.Context, holdID uuid.UUID, from enums.HoldStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Hold{}).
		Where("id = ? AND status = ?", holdID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListPending(ctx context.Context, familyID, userID uuid.UUID, now time.Time) ([]models.Hold, error) {
	var holds []models.Hold
	err := r.db.WithContext(ctx).
		Where("family_id = ? AND user_id = ? AND status = ?", familyID, userID, enums.HoldStatusPending).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at ASC").
		Find(&holds).Error
	if err != nil {
		return nil, err
	}
	return holds, nil
}
