package hints

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/internal/holds"
	"github.com/famboard/famboard-backend/internal/ledger"
	"github.com/famboard/famboard-backend/internal/refunds"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
)

// StateHints is a read-only projection clients use to enable or disable
// actions without a round trip per button. Computing it never mutates state.
type StateHints struct {
	Balance           int                `json:"balance"`
	MaxRedeem         int                `json:"max_redeem"`
	PendingHoldCount  int                `json:"pending_hold_count"`
	PendingHoldTotal  int                `json:"pending_hold_total"`
	ActiveHoldID      *uuid.UUID         `json:"active_hold_id,omitempty"`
	ActiveHoldStatus  *string            `json:"active_hold_status,omitempty"`
	CanRefund         bool               `json:"can_refund"`
	MaxRefund         int                `json:"max_refund"`
	RefundableRedeems []RefundableRedeem `json:"refundable_redeems"`
	Features          Features           `json:"features"`
}

// RefundableRedeem points at one redeem that still has refundable value.
type RefundableRedeem struct {
	RedeemTxID   uuid.UUID `json:"redeem_tx_id"`
	Remaining    int       `json:"remaining"`
	WindowEndsAt time.Time `json:"window_ends_at"`
}

// Features reports which engine surfaces are live for the member.
type Features struct {
	Holds   bool `json:"holds"`
	Refunds bool `json:"refunds"`
	Scan    bool `json:"scan"`
}

// Service composes the ledger, hold and refund read paths into one view.
type Service interface {
	Hints(ctx context.Context, familyID, userID uuid.UUID) (*StateHints, error)
}

// ServiceParams wires the hint aggregator dependencies.
type ServiceParams struct {
	Ledger  ledger.Service
	Holds   holds.Service
	Refunds refunds.Service
}

type service struct {
	ledger  ledger.Service
	holds   holds.Service
	refunds refunds.Service
}

// NewService wires a hint aggregator over the three read paths.
func NewService(params ServiceParams) (Service, error) {
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Holds == nil {
		return nil, fmt.Errorf("holds service required")
	}
	if params.Refunds == nil {
		return nil, fmt.Errorf("refunds service required")
	}
	return &service{ledger: params.Ledger, holds: params.Holds, refunds: params.Refunds}, nil
}

func (s *service) Hints(ctx context.Context, familyID, userID uuid.UUID) (*StateHints, error) {
	if familyID == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "family id and user id are required")
	}

	balance, err := s.ledger.BalanceOf(ctx, familyID, userID)
	if err != nil {
		return nil, err
	}

	pending, err := s.holds.Pending(ctx, familyID, userID)
	if err != nil {
		return nil, err
	}

	refundables, err := s.refunds.Refundables(ctx, familyID, userID)
	if err != nil {
		return nil, err
	}

	result := &StateHints{
		Balance:           balance,
		MaxRedeem:         balance,
		PendingHoldCount:  len(pending),
		RefundableRedeems: []RefundableRedeem{},
		Features:          Features{Holds: true, Refunds: true, Scan: true},
	}

	for _, hold := range pending {
		result.PendingHoldTotal += hold.QuotedAmount
	}
	if len(pending) > 0 {
		// Most recent pending hold drives the client's "awaiting approval"
		// banner.
		latest := pending[len(pending)-1]
		result.ActiveHoldID = &latest.ID
		status := string(latest.Status)
		result.ActiveHoldStatus = &status
	}

	for _, refundable := range refundables {
		result.RefundableRedeems = append(result.RefundableRedeems, RefundableRedeem{
			RedeemTxID:   refundable.Entry.ID,
			Remaining:    refundable.Remaining,
			WindowEndsAt: refundable.WindowEndsAt,
		})
		if refundable.Remaining > result.MaxRefund {
			result.MaxRefund = refundable.Remaining
		}
	}
	result.CanRefund = result.MaxRefund > 0

	return result, nil
}
