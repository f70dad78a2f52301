package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/api/responses"
	"github.com/famboard/famboard-backend/api/validators"
	"github.com/famboard/famboard-backend/internal/hints"
	"github.com/famboard/famboard-backend/internal/ledger"
	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/enums"
	"github.com/famboard/famboard-backend/pkg/logger"
)

type pointMutationRequest struct {
	UserID         string  `json:"user_id" validate:"required,uuid"`
	Amount         int     `json:"amount" validate:"required,gt=0"`
	Reason         *string `json:"reason,omitempty"`
	IdempotencyKey *string `json:"idempotency_key,omitempty"`
}

type pointMutationResponse struct {
	Entry   *models.Entry `json:"entry"`
	Balance int           `json:"balance"`
	Deduped bool          `json:"deduped"`
}

// PointsEarn credits points to a family member.
func PointsEarn(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return postPoints(svc, logg, enums.EntryVerbEarn)
}

// PointsRedeem debits points from a family member, rejecting overdrafts.
func PointsRedeem(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return postPoints(svc, logg, enums.EntryVerbRedeem)
}

func postPoints(svc ledger.Service, logg *logger.Logger, verb enums.EntryVerb) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload pointMutationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID := uuid.MustParse(payload.UserID)

		result, err := svc.Post(r.Context(), ledger.PostInput{
			FamilyID:       familyID,
			UserID:         userID,
			ActorID:        actorFromRequest(r),
			Verb:           verb,
			Amount:         payload.Amount,
			Reason:         payload.Reason,
			IdempotencyKey: payload.IdempotencyKey,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Deduped {
			status = http.StatusOK
		}
		responses.WriteSuccessStatus(w, status, pointMutationResponse{
			Entry:   result.Entry,
			Balance: result.Balance,
			Deduped: result.Deduped,
		})
	}
}

// PointsBalance returns the member's current balance.
func PointsBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := validators.UUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.BalanceOf(r.Context(), familyID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"user_id": userID,
			"balance": balance,
		})
	}
}

// PointsHints returns the member's composed state hints.
func PointsHints(svc hints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := validators.UUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Hints(r.Context(), familyID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// PointsEntries returns the member's paginated entry history.
func PointsEntries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := validators.UUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.LimitQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListEntries(r.Context(), ledger.ListEntriesParams{
			FamilyID: familyID,
			UserID:   userID,
			Limit:    limit,
			Cursor:   r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"entries":     page.Entries,
			"next_cursor": page.NextCursor,
		})
	}
}
