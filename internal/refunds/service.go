package refunds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/internal/ledger"
	"github.com/famboard/famboard-backend/pkg/config"
	"github.com/famboard/famboard-backend/pkg/db"
	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
	"github.com/famboard/famboard-backend/pkg/metrics"
)

// Service reverses redeem entries. Refunds are bounded: the lifetime total
// refunded against one redeem never exceeds what the redeem debited, and
// nothing is refundable once the configured window closes.
type Service interface {
	Refund(ctx context.Context, input RefundInput) (*RefundResult, error)
	Remaining(ctx context.Context, familyID, entryID uuid.UUID) (int, error)
	Refundables(ctx context.Context, familyID, userID uuid.UUID) ([]Refundable, error)
}

// RefundInput requests a partial or full reversal of one redeem entry.
type RefundInput struct {
	FamilyID       uuid.UUID
	UserID         uuid.UUID
	ActorID        *uuid.UUID
	EntryID        uuid.UUID
	Amount         int
	Reason         *string
	Notes          *string
	IdempotencyKey *string
}

// RefundResult reports the posted refund entry and what is still refundable.
type RefundResult struct {
	Entry     *models.Entry
	Balance   int
	Remaining int
}

// Refundable is one redeem entry that still has refundable value.
type Refundable struct {
	Entry        models.Entry `json:"entry"`
	Remaining    int          `json:"remaining"`
	WindowEndsAt time.Time    `json:"window_ends_at"`
}

// ServiceParams wires the refund service dependencies.
type ServiceParams struct {
	DB      *db.Client
	Entries ledger.Repository
	Ledger  ledger.Service
	Config  config.LedgerConfig
	Metrics *metrics.LedgerMetrics
	Now     func() time.Time // defaults to time.Now
}

type service struct {
	db      *db.Client
	entries ledger.Repository
	ledger  ledger.Service
	cfg     config.LedgerConfig
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// NewService wires a refund service with the provided collaborators.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("refunds db client required")
	}
	if params.Entries == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		db:      params.DB,
		entries: params.Entries,
		ledger:  params.Ledger,
		cfg:     params.Config,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) Refund(ctx context.Context, input RefundInput) (*RefundResult, error) {
	if input.FamilyID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id and user id are required")
	}
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entry id is required")
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	started := s.now()
	var result *RefundResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		entries := s.entries.WithTx(tx)

		target, err := entries.FindByID(ctx, input.FamilyID, input.EntryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find redeem entry")
		}
		if target == nil {
			return pkgerrors.New(pkgerrors.CodeRedeemNotFound, "redeem transaction not found")
		}
		if target.Verb != enums.EntryVerbRedeem {
			return pkgerrors.New(pkgerrors.CodeNotRedeemTx, "target entry is not a redeem")
		}
		if target.UserID != input.UserID {
			return pkgerrors.New(pkgerrors.CodeUserMismatch, "entry belongs to a different member")
		}

		windowEndsAt := target.CreatedAt.Add(s.cfg.RefundWindow)
		if s.now().After(windowEndsAt) {
			return pkgerrors.New(pkgerrors.CodeRefundWindowExpired, "refund window has expired").
				WithDetails(map[string]any{"window_ended_at": windowEndsAt})
		}

		// Serialize against concurrent refunds of the same redeem before the
		// remaining amount is computed.
		if err := entries.LockAccount(ctx, target.FamilyID, target.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock account")
		}

		remaining, err := s.remaining(ctx, entries, target)
		if err != nil {
			return err
		}

		if input.IdempotencyKey != nil && *input.IdempotencyKey != "" {
			existing, err := entries.FindByIdempotencyKey(ctx, *input.IdempotencyKey)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
			}
			if existing != nil {
				return pkgerrors.New(pkgerrors.CodeRefundExists, "refund already recorded for this idempotency key").
					WithDetails(map[string]any{"existing": existing.ID, "remaining": remaining})
			}
		}

		if input.Amount > remaining {
			return pkgerrors.New(pkgerrors.CodeRefundNotAllowed, "refund exceeds remaining refundable amount").
				WithDetails(map[string]any{"remaining": remaining, "requested": input.Amount})
		}

		entry, err := s.ledger.PostInTx(ctx, tx, ledger.PostInput{
			FamilyID:       target.FamilyID,
			UserID:         target.UserID,
			ActorID:        input.ActorID,
			Verb:           enums.EntryVerbRefund,
			Amount:         input.Amount,
			ParentEntryID:  &target.ID,
			IdempotencyKey: input.IdempotencyKey,
			RefundReason:   input.Reason,
			RefundNotes:    input.Notes,
		})
		if err != nil {
			return err
		}

		result = &RefundResult{Entry: entry, Balance: entry.BalanceAfter, Remaining: remaining - input.Amount}
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("refund", string(pkgerrors.As(err).Code()))
		return nil, err
	}

	s.metrics.ObserveDuration("refund", time.Since(started))
	s.metrics.IncSuccess("refund")
	return result, nil
}

func (s *service) Remaining(ctx context.Context, familyID, entryID uuid.UUID) (int, error) {
	if familyID == uuid.Nil || entryID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "family id and entry id are required")
	}

	target, err := s.entries.FindByID(ctx, familyID, entryID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find redeem entry")
	}
	if target == nil {
		return 0, pkgerrors.New(pkgerrors.CodeRedeemNotFound, "redeem transaction not found")
	}
	if target.Verb != enums.EntryVerbRedeem {
		return 0, pkgerrors.New(pkgerrors.CodeNotRedeemTx, "target entry is not a redeem")
	}
	return s.remaining(ctx, s.entries, target)
}

func (s *service) Refundables(ctx context.Context, familyID, userID uuid.UUID) ([]Refundable, error) {
	if familyID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id and user id are required")
	}

	redeems, err := s.entries.ListRedeems(ctx, familyID, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list redeems")
	}

	now := s.now()
	refundables := []Refundable{}
	for _, redeem := range redeems {
		windowEndsAt := redeem.CreatedAt.Add(s.cfg.RefundWindow)
		if now.After(windowEndsAt) {
			continue
		}
		remaining, err := s.remaining(ctx, s.entries, &redeem)
		if err != nil {
			return nil, err
		}
		if remaining <= 0 {
			continue
		}
		refundables = append(refundables, Refundable{
			Entry:        redeem,
			Remaining:    remaining,
			WindowEndsAt: windowEndsAt,
		})
	}
	return refundables, nil
}

// remaining is how much of the redeem can still be given back: the debited
// amount minus every refund already posted against it.
func (s *service) remaining(ctx context.Context, entries ledger.Repository, target *models.Entry) (int, error) {
	refunded, err := entries.SumRefundsAgainst(ctx, target.FamilyID, target.ID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum refunds")
	}
	debited := -target.Amount
	return debited - refunded, nil
}
