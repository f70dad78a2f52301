package captokens

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/famboard/famboard-backend/internal/ledger"
	"github.com/famboard/famboard-backend/pkg/captoken"
	"github.com/famboard/famboard-backend/pkg/db"
	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
	"github.com/famboard/famboard-backend/pkg/metrics"
)

// Service issues and consumes single-use scan tokens. Verification is pure;
// consumption burns the jti and applies the encoded point movement in one
// transaction, so a replayed token can never post twice.
type Service interface {
	Issue(ctx context.Context, input IssueInput) (*captoken.Signed, error)
	Consume(ctx context.Context, familyID uuid.UUID, actorID *uuid.UUID, token string) (*ScanResult, error)
}

// IssueInput mints a token encoding one future point movement.
type IssueInput struct {
	FamilyID uuid.UUID
	UserID   uuid.UUID
	Kind     enums.TokenKind
	Amount   int
	RewardID *uuid.UUID
	HoldID   *uuid.UUID
}

// ScanResult reports the movement a consumed token produced.
type ScanResult struct {
	Kind    enums.TokenKind
	Entry   *models.Entry
	Balance int
}

// ServiceParams wires the scan token service dependencies.
type ServiceParams struct {
	DB      *db.Client
	Repo    Repository
	Tokens  *captoken.Service
	Ledger  ledger.Service
	Metrics *metrics.LedgerMetrics
	Now     func() time.Time // defaults to time.Now
}

type service struct {
	db      *db.Client
	repo    Repository
	tokens  *captoken.Service
	ledger  ledger.Service
	metrics *metrics.LedgerMetrics
	now     func() time.Time
}

// NewService wires a scan token service with the provided collaborators.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("captokens db client required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("captokens repository required")
	}
	if params.Tokens == nil {
		return nil, fmt.Errorf("captoken signer required")
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
		tokens:  params.Tokens,
		ledger:  params.Ledger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) Issue(ctx context.Context, input IssueInput) (*captoken.Signed, error) {
	if input.FamilyID == uuid.Nil || input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id and user id are required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid token kind %q", input.Kind))
	}
	if input.Amount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token amount must be positive")
	}

	return s.tokens.Sign(s.now(), captoken.Payload{
		Kind:     input.Kind,
		FamilyID: input.FamilyID,
		UserID:   input.UserID,
		RewardID: input.RewardID,
		HoldID:   input.HoldID,
		Amount:   input.Amount,
	})
}

func (s *service) Consume(ctx context.Context, familyID uuid.UUID, actorID *uuid.UUID, token string) (*ScanResult, error) {
	if familyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id is required")
	}
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	verified, err := s.tokens.Verify(token)
	if err != nil {
		s.metrics.IncFailure("scan", string(pkgerrors.As(err).Code()))
		return nil, err
	}

	// A token minted for another family reads as a scope breach, not as a
	// bad token.
	if verified.Payload.FamilyID != familyID {
		return nil, pkgerrors.New(pkgerrors.CodeForbiddenFamily, "family scope not authorized")
	}

	var result *ScanResult
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		consumed := &models.ConsumedToken{
			JTI:      verified.JTI,
			Token:    token,
			Kind:     verified.Payload.Kind,
			FamilyID: verified.Payload.FamilyID,
			UserID:   &verified.Payload.UserID,
			RewardID: verified.Payload.RewardID,
		}
		if err := repo.Insert(ctx, consumed); err != nil {
			if db.IsUniqueViolation(err, "consumed_tokens_pkey") {
				return pkgerrors.New(pkgerrors.CodeTokenInvalid, "capability token rejected").
					WithDetails(map[string]any{"reason": captoken.ReasonReused})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "burn token")
		}

		verb := enums.EntryVerbEarn
		if verified.Payload.Kind == enums.TokenKindRedeem {
			verb = enums.EntryVerbRedeem
		}

		entry, err := s.ledger.PostInTx(ctx, tx, ledger.PostInput{
			FamilyID:     verified.Payload.FamilyID,
			UserID:       verified.Payload.UserID,
			ActorID:      actorID,
			Verb:         verb,
			Amount:       verified.Payload.Amount,
			ParentHoldID: verified.Payload.HoldID,
		})
		if err != nil {
			return err
		}

		result = &ScanResult{Kind: verified.Payload.Kind, Entry: entry, Balance: entry.BalanceAfter}
		return nil
	})
	if err != nil {
		s.metrics.IncFailure("scan", string(pkgerrors.As(err).Code()))
		return nil, err
	}

	s.metrics.IncSuccess("scan")
	return result, nil
}
