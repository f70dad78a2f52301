package captokens

import (
	"context"

	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/pkg/db/models"
)

// Repository persists consumed capability tokens. The jti primary key is the
// whole replay defense: the second insert for a token loses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, consumed *models.ConsumedToken) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a consumed token repository bound to the database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, consumed *models.ConsumedToken) error {
	return r.db.WithContext(ctx).Create(consumed).Error
}
