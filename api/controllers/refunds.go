package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/api/responses"
	"github.com/famboard/famboard-backend/api/validators"
	"github.com/famboard/famboard-backend/internal/refunds"
	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/logger"
)

type refundRequest struct {
	UserID         string  `json:"user_id" validate:"required,uuid"`
	EntryID        string  `json:"entry_id" validate:"required,uuid"`
	Amount         int     `json:"amount" validate:"required,gt=0"`
	Reason         *string `json:"reason,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

type refundResponse struct {
	Entry     *models.Entry `json:"entry"`
	Balance   int           `json:"balance"`
	Remaining int           `json:"remaining"`
}

// RefundCreate reverses part or all of a redeem entry.
func RefundCreate(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload refundRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Refund(r.Context(), refunds.RefundInput{
			FamilyID:       familyID,
			UserID:         uuid.MustParse(payload.UserID),
			ActorID:        actorFromRequest(r),
			EntryID:        uuid.MustParse(payload.EntryID),
			Amount:         payload.Amount,
			Reason:         payload.Reason,
			Notes:          payload.Notes,
			IdempotencyKey: payload.IdempotencyKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, refundResponse{
			Entry:     result.Entry,
			Balance:   result.Balance,
			Remaining: result.Remaining,
		})
	}
}

// RefundRemaining reports how much of a redeem entry is still refundable.
func RefundRemaining(svc refunds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entryID, err := validators.UUIDParam(r, "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		remaining, err := svc.Remaining(r.Context(), familyID, entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"entry_id":  entryID,
			"remaining": remaining,
		})
	}
}
