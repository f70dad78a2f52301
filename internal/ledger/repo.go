package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/pagination"
)

// ListQuery filters the entry history for one account.
type ListQuery struct {
	FamilyID uuid.UUID
	UserID   uuid.UUID
	Limit    int
	Cursor   *pagination.Cursor
}

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockAccount(ctx context.Context, familyID, userID uuid.UUID) error
	SumBalance(ctx context.Context, familyID, userID uuid.UUID) (int, error)
	Create(ctx context.Context, entry *models.Entry) error
	FindByID(ctx context.Context, familyID, id uuid.UUID) (*models.Entry, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Entry, error)
	SumRefundsAgainst(ctx context.Context, familyID, parentEntryID uuid.UUID) (int, error)
	ListRefundsAgainst(ctx context.Context, familyID, parentEntryID uuid.UUID) ([]models.Entry, error)
	ListRedeems(ctx context.Context, familyID, userID uuid.UUID) ([]models.Entry, error)
	List(ctx context.Context, query ListQuery) ([]models.Entry, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockAccount serializes writers for one (family, user) account. Postgres
// gets an advisory transaction lock; SQLite's single-writer model already
// serializes the read-then-insert sequence.
func (r *repository) LockAccount(ctx context.Context, familyID, userID uuid.UUID) error {
	if r.db.Dialector.Name() != "postgres" {
		return nil
	}
	key := fmt.Sprintf("%s:%s", familyID, userID)
	return r.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}

func (r *repository) SumBalance(ctx context.Context, familyID, userID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("family_id = ? AND user_id = ?", familyID, userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) Create(ctx context.Context, entry *models.Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, familyID, id uuid.UUID) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.WithContext(ctx).
		Where("family_id = ? AND id = ?", familyID, id).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// FindByIdempotencyKey looks the key up across all families. Key uniqueness
// is global; see DESIGN.md before narrowing the scope.
func (r *repository) FindByIdempotencyKey(ctx context.Context, key string) (*models.Entry, error) {
	var entry models.Entry
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) SumRefundsAgainst(ctx context.Context, familyID, parentEntryID uuid.UUID) (int, error) {
	var total int
	err := r.db.WithContext(ctx).
		Model(&models.Entry{}).
		Where("family_id = ? AND parent_entry_id = ?", familyID, parentEntryID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) ListRefundsAgainst(ctx context.Context, familyID, parentEntryID uuid.UUID) ([]models.Entry, error) {
	var entries []models.Entry
	err := r.db.WithContext(ctx).
		Where("family_id = ? AND parent_entry_id = ?", familyID, parentEntryID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListRedeems(ctx context.Context, familyID, userID uuid.UUID) ([]models.Entry, error) {
	var entries []models.Entry
	err := r.db.WithContext(ctx).
		Where("family_id = ? AND user_id = ? AND verb = ?", familyID, userID, "redeem").
		Order("created_at DESC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Entry, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(query.Limit)

	q := r.db.WithContext(ctx).
		Where("family_id = ? AND user_id = ?", query.FamilyID, query.UserID).
		Order("created_at DESC, id DESC").
		Limit(limit)

	if query.Cursor != nil {
		q = q.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID,
		)
	}

	var entries []models.Entry
	if err := q.Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	pageSize := pagination.NormalizeLimit(query.Limit)
	if len(entries) <= pageSize {
		return entries, nil, nil
	}

	entries = entries[:pageSize]
	last := entries[len(entries)-1]
	next := &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	return entries, next, nil
}
