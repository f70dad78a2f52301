package holds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/internal/ledger"
	"github.com/famboard/famboard-backend/internal/rewards"
	"github.com/famboard/famboard-backend/pkg/config"
	"github.com/famboard/famboard-backend/pkg/db"
	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
	"github.com/famboard/famboard-backend/pkg/metrics"
)

// Service manages the reward hold lifecycle. Reservation is optimistic:
// points only move when a hold is approved, and expiry is written lazily the
// next time a lapsed hold is touched.
type Service interface {
	Reserve(ctx context.Context, input ReserveInput) (*models.Hold, error)
	Approve(ctx context.Context, input ApproveInput) (*ApproveResult, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Hold, error)
	Get(ctx context.Context, familyID, holdID uuid.UUID) (*models.Hold, error)
	Pending(ctx context.Context, familyID, userID uuid.UUID) ([]models.Hold, error)
	PendingTotal(ctx context.Context, familyID, userID uuid.UUID) (int, error)
}

// ReserveInput creates a pending hold against a catalog reward.
type ReserveInput struct {
	FamilyID uuid.UUID
	UserID   uuid.UUID
	ActorID  *uuid.UUID
	RewardID uuid.UUID
}

// ApproveInput settles a pending hold into a redeem entry.
type ApproveInput struct {
	FamilyID    uuid.UUID
	HoldID      uuid.UUID
	ActorID     *uuid.UUID
	FinalAmount *int // overrides the quoted amount when set
}

// ApproveResult reports the settled hold, the redeem entry it produced and
// the balance after settlement.
type ApproveResult struct {
	Hold    *models.Hold
	Entry   *models.Entry
	Balance int
}

// CancelInput releases a pending hold without moving points.
type CancelInput struct {
	FamilyID uuid.UUID
	HoldID   uuid.UUID
	ActorID  *uuid.UUID
}

// ServiceParams wires the hold service dependencies.
type ServiceParams struct {
	DB      *db.Client
	Repo    Repository
	Rewards rewards.Service
	Ledger  ledger.Service
	Config  config.LedgerConfig
	Metrics *metrics.LedgerMetrics
	Now     func() time.Time // defaults to time.Now
}

type service struct {
	db      *db.Client
	repo    Repository
	rewards rewards.Service
	ledger  ledger.Service
	cfg     config.LedgerConfig
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// NewService wires a hold service with the provided collaborators.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("holds db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("holds repository required")
	}
	if params.Rewards == nil {
		return nil, fmt.Errorf("rewards service required")
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
		repo:    params.Repo,
		rewards: params.Rewards,
		ledger:  params.Ledger,
		cfg:     params.Config,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) Reserve(ctx context.Context, input ReserveInput) (*models.Hold, error) {
	if input.FamilyID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id and user id are required")
	}
	if input.RewardID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reward id is required")
	}

	reward, err := s.rewards.Get(ctx, input.FamilyID, input.RewardID)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.cfg.HoldTTL)
	hold := &models.Hold{
		FamilyID:     input.FamilyID,
		UserID:       input.UserID,
		RewardID:     reward.ID,
		QuotedAmount: reward.Cost,
		Status:       enums.HoldStatusPending,
		ExpiresAt:    &expiresAt,
	}
	if err := s.repo.Create(ctx, hold); err != nil {
		s.metrics.IncFailure("hold_reserve", string(pkgerrors.CodeDependency))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create hold")
	}

	s.metrics.IncSuccess("hold_reserve")
	return hold, nil
}

func (s *service) Approve(ctx context.Context, input ApproveInput) (*ApproveResult, error) {
	if input.FamilyID == uuid.Nil || input.HoldID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id and hold id are required")
	}
	if input.FinalAmount != nil && *input.FinalAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "final amount must be positive")
	}

	started := s.now()
	var result *ApproveResult
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		hold, err := s.lockPending(ctx, repo, input.FamilyID, input.HoldID)
		if err != nil {
			return err
		}

		amount := hold.QuotedAmount
		if input.FinalAmount != nil {
			amount = *input.FinalAmount
		}

		entry, err := s.ledger.PostInTx(ctx, tx, ledger.PostInput{
			FamilyID:     hold.FamilyID,
			UserID:       hold.UserID,
			ActorID:      input.ActorID,
			Verb:         enums.EntryVerbRedeem,
			Amount:       amount,
			ParentHoldID: &hold.ID,
		})
		if err != nil {
			// The hold stays pending on a failed settlement.
			return err
		}

		redeemedAt := s.now()
		ok, err := repo.TransitionFrom(ctx, hold.ID, enums.HoldStatusPending, map[string]any{
			"status":       enums.HoldStatusRedeemed,
			"final_amount": amount,
			"redeemed_at":  redeemedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle hold")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeHoldNotPending, "hold settled concurrently").
				WithDetails(map[string]any{"status": "unknown"})
		}

		hold.Status = enums.HoldStatusRedeemed
		hold.FinalAmount = &amount
		hold.RedeemedAt = &redeemedAt
		result = &ApproveResult{Hold: hold, Entry: entry, Balance: entry.BalanceAfter}
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("hold_approve", string(pkgerrors.As(err).Code()))
		return nil, err
	}

	s.metrics.ObserveDuration("hold_approve", time.Since(started))
	s.metrics.IncSuccess("hold_approve")
	return result, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Hold, error) {
	if input.FamilyID == uuid.Nil || input.HoldID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id and hold id are required")
	}

	var canceled *models.Hold
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		hold, err := s.lockPending(ctx, repo, input.FamilyID, input.HoldID)
		if err != nil {
			return err
		}

		releasedAt := s.now()
		ok, err := repo.TransitionFrom(ctx, hold.ID, enums.HoldStatusPending, map[string]any{
			"status":      enums.HoldStatusReleased,
			"released_at": releasedAt,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release hold")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeHoldNotPending, "hold settled concurrently").
				WithDetails(map[string]any{"status": "unknown"})
		}

		hold.Status = enums.HoldStatusReleased
		hold.ReleasedAt = &releasedAt
		canceled = hold
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("hold_cancel", string(pkgerrors.As(err).Code()))
		return nil, err
	}

	s.metrics.IncSuccess("hold_cancel")
	return canceled, nil
}

// lockPending loads the hold under a row lock and enforces that it is still
// actionable. A lapsed pending hold is expired durably before the error goes
// back, so the lazy expiry survives the rollback of nothing else.
func (s *service) lockPending(ctx context.Context, repo Repository, familyID, holdID uuid.UUID) (*models.Hold, error) {
	hold, err := repo.FindByIDForUpdate(ctx, familyID, holdID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find hold")
	}
	if hold == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "hold not found")
	}

	status := EffectiveStatus(hold, s.now())
	if status == enums.HoldStatusPending {
		return hold, nil
	}

	if hold.Status == enums.HoldStatusPending && status == enums.HoldStatusExpired {
		if _, err := repo.TransitionFrom(ctx, hold.ID, enums.HoldStatusPending, map[string]any{
			"status": enums.HoldStatusExpired,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire hold")
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeHoldNotPending, "hold is no longer pending").
		WithDetails(map[string]any{"status": string(status)})
}

func (s *service) Get(ctx context.Context, familyID, holdID uuid.UUID) (*models.Hold, error) {
	if familyID == uuid.Nil || holdID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id and hold id are required")
	}
	hold, err := s.repo.FindByID(ctx, familyID, holdID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find hold")
	}
	if hold == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "hold not found")
	}
	// Reads report the effective status without writing it.
	hold.Status = EffectiveStatus(hold, s.now())
	return hold, nil
}

func (s *service) Pending(ctx context.Context, familyID, userID uuid.UUID) ([]models.Hold, error) {
	if familyID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id and user id are required")
	}
	holds, err := s.repo.ListPending(ctx, familyID, userID, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending holds")
	}
	return holds, nil
}

func (s *service) PendingTotal(ctx context.Context, familyID, userID uuid.UUID) (int, error) {
	holds, err := s.Pending(ctx, familyID, userID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, hold := range holds {
		total += hold.QuotedAmount
	}
	return total, nil
}

// EffectiveStatus folds lapsed expiry into the stored status. The stored row
// only changes when a write path touches the hold.
func EffectiveStatus(hold *models.Hold, now time.Time) enums.HoldStatus {
	if hold.Status == enums.HoldStatusPending && hold.ExpiresAt != nil && !hold.ExpiresAt.After(now) {
		return enums.HoldStatusExpired
	}
	return hold.Status
}
