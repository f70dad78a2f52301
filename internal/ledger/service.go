package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/pkg/db"
	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
	"github.com/famboard/famboard-backend/pkg/metrics"
	"github.com/famboard/famboard-backend/pkg/pagination"
)

// Service posts point movements and answers balance queries.
type Service interface {
	BalanceOf(ctx context.Context, familyID, userID uuid.UUID) (int, error)
	Post(ctx context.Context, input PostInput) (*PostResult, error)
	// PostInTx runs the same normalization, balance check and insert inside
	// a transaction owned by the caller. Hold approval and refunds use it
	// so their state changes commit atomically with the entry.
	PostInTx(ctx context.Context, tx *gorm.DB, input PostInput) (*models.Entry, error)
	ListEntries(ctx context.Context, params ListEntriesParams) (*EntriesPage, error)
}

// PostInput captures one requested point movement.
type PostInput struct {
	FamilyID       uuid.UUID
	UserID         uuid.UUID
	ActorID        *uuid.UUID
	Verb           enums.EntryVerb // inferred from the amount sign when empty
	Amount         int
	Reason         *string
	IdempotencyKey *string
	ParentHoldID   *uuid.UUID
	ParentEntryID  *uuid.UUID
	RefundReason   *string
	RefundNotes    *string
}

// PostResult reports the posted (or replayed) entry and the balance after it.
type PostResult struct {
	Entry   *models.Entry
	Balance int
	Deduped bool
}

// ListEntriesParams filters the paginated account history.
type ListEntriesParams struct {
	FamilyID uuid.UUID
	UserID   uuid.UUID
	Limit    int
	Cursor   string
}

// EntriesPage is one page of account history.
type EntriesPage struct {
	Entries    []models.Entry
	NextCursor string
}

// ServiceParams wires the ledger service dependencies.
type ServiceParams struct {
	DB      *db.Client
	Repo    Repository
	Metrics *metrics.LedgerMetrics
}

type service struct {
	db      *db.Client
	repo    Repository
	metrics *metrics.LedgerMetrics
}

// NewService wires a ledger service with the provided store handle.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("ledger db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{db: params.DB, repo: params.Repo, metrics: params.Metrics}, nil
}

func (s *service) BalanceOf(ctx context.Context, familyID, userID uuid.UUID) (int, error) {
	if familyID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "family id is required")
	}
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return s.repo.SumBalance(ctx, familyID, userID)
}

func (s *service) Post(ctx context.Context, input PostInput) (*PostResult, error) {
	started := time.Now()

	var entry *models.Entry
	deduped := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		posted, err := s.postInTx(ctx, tx, input)
		if err != nil {
			return err
		}
		entry = posted.entry
		deduped = posted.deduped
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("post", string(pkgerrors.As(err).Code()))
		return nil, err
	}

	s.metrics.ObserveDuration("post", time.Since(started))
	s.metrics.IncSuccess("post")
	return &PostResult{Entry: entry, Balance: entry.BalanceAfter, Deduped: deduped}, nil
}

func (s *service) PostInTx(ctx context.Context, tx *gorm.DB, input PostInput) (*models.Entry, error) {
	posted, err := s.postInTx(ctx, tx, input)
	if err != nil {
		return nil, err
	}
	return posted.entry, nil
}

type postOutcome struct {
	entry   *models.Entry
	deduped bool
}

func (s *service) postInTx(ctx context.Context, tx *gorm.DB, input PostInput) (*postOutcome, error) {
	if input.FamilyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id is required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	verb, amount, err := normalize(input.Verb, input.Amount)
	if err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)

	if input.IdempotencyKey != nil && *input.IdempotencyKey != "" {
		existing, err := repo.FindByIdempotencyKey(ctx, *input.IdempotencyKey)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
		}
		if existing != nil {
			return &postOutcome{entry: existing, deduped: true}, nil
		}
	}

	if err := repo.LockAccount(ctx, input.FamilyID, input.UserID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock account")
	}

	balance, err := repo.SumBalance(ctx, input.FamilyID, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read balance")
	}

	balanceAfter := balance + amount
	if balanceAfter < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "balance would go negative").
			WithDetails(map[string]any{"balance": balance, "requested": amount})
	}

	entry := &models.Entry{
		FamilyID:       input.FamilyID,
		UserID:         input.UserID,
		ActorID:        input.ActorID,
		Verb:           verb,
		Amount:         amount,
		BalanceAfter:   balanceAfter,
		Status:         models.EntryStatusPosted,
		ParentHoldID:   input.ParentHoldID,
		ParentEntryID:  input.ParentEntryID,
		IdempotencyKey: normalizeKey(input.IdempotencyKey),
		Reason:         input.Reason,
		RefundReason:   input.RefundReason,
		RefundNotes:    input.RefundNotes,
	}

	if err := repo.Create(ctx, entry); err != nil {
		// A concurrent replay can slip past the pre-check; the unique index
		// turns it into a constraint error we re-read as a dedupe.
		if db.IsUniqueViolation(err, "uniq_entries_idempotency_key") && entry.IdempotencyKey != nil {
			existing, findErr := repo.FindByIdempotencyKey(ctx, *entry.IdempotencyKey)
			if findErr == nil && existing != nil {
				return &postOutcome{entry: existing, deduped: true}, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert entry")
	}

	return &postOutcome{entry: entry}, nil
}

func (s *service) ListEntries(ctx context.Context, params ListEntriesParams) (*EntriesPage, error) {
	if params.FamilyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id is required")
	}
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	entries, next, err := s.repo.List(ctx, ListQuery{
		FamilyID: params.FamilyID,
		UserID:   params.UserID,
		Limit:    params.Limit,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list entries")
	}

	page := &EntriesPage{Entries: entries}
	if next != nil {
		page.NextCursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// normalize coerces the amount sign per verb, inferring the verb from the
// sign when the caller left it empty.
func normalize(verb enums.EntryVerb, amount int) (enums.EntryVerb, int, error) {
	if verb == "" {
		switch {
		case amount > 0:
			verb = enums.EntryVerbEarn
		case amount < 0:
			verb = enums.EntryVerbRedeem
		default:
			verb = enums.EntryVerbAdjust
		}
	}
	if !verb.IsValid() {
		return "", 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entry verb %q", verb))
	}

	switch verb {
	case enums.EntryVerbEarn, enums.EntryVerbRefund:
		amount = abs(amount)
	case enums.EntryVerbRedeem:
		amount = -abs(amount)
	}
	return verb, amount, nil
}

func normalizeKey(key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	return key
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
