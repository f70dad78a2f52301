package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/api/responses"
	"github.com/famboard/famboard-backend/api/validators"
	"github.com/famboard/famboard-backend/internal/hints"
	"github.com/famboard/famboard-backend/internal/holds"
	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/logger"
)

type holdCreateRequest struct {
	UserID   string `json:"user_id" validate:"required,uuid"`
	RewardID string `json:"reward_id" validate:"required,uuid"`
}

type holdApproveRequest struct {
	FinalAmount *int `json:"final_amount,omitempty" validate:"omitempty,gt=0"`
}

type holdResponse struct {
	Hold    *models.Hold      `json:"hold"`
	Entry   *models.Entry     `json:"entry,omitempty"`
	Balance *int              `json:"balance,omitempty"`
	Hints   *hints.StateHints `json:"hints,omitempty"`
}

// HoldCreate reserves a reward for a member without moving points.
func HoldCreate(svc holds.Service, hintSvc hints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload holdCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		hold, err := svc.Reserve(r.Context(), holds.ReserveInput{
			FamilyID: familyID,
			UserID:   uuid.MustParse(payload.UserID),
			ActorID:  actorFromRequest(r),
			RewardID: uuid.MustParse(payload.RewardID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, holdResponse{
			Hold:  hold,
			Hints: hintsFor(r, hintSvc, familyID, hold.UserID, logg),
		})
	}
}

// HoldApprove settles a pending hold into a redeem entry.
func HoldApprove(svc holds.Service, hintSvc hints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		holdID, err := validators.UUIDParam(r, "holdId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload holdApproveRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		result, err := svc.Approve(r.Context(), holds.ApproveInput{
			FamilyID:    familyID,
			HoldID:      holdID,
			ActorID:     actorFromRequest(r),
			FinalAmount: payload.FinalAmount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, holdResponse{
			Hold:    result.Hold,
			Entry:   result.Entry,
			Balance: &result.Balance,
			Hints:   hintsFor(r, hintSvc, familyID, result.Hold.UserID, logg),
		})
	}
}

// HoldCancel releases a pending hold without moving points.
func HoldCancel(svc holds.Service, hintSvc hints.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		holdID, err := validators.UUIDParam(r, "holdId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		hold, err := svc.Cancel(r.Context(), holds.CancelInput{
			FamilyID: familyID,
			HoldID:   holdID,
			ActorID:  actorFromRequest(r),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, holdResponse{
			Hold:  hold,
			Hints: hintsFor(r, hintSvc, familyID, hold.UserID, logg),
		})
	}
}

// HoldGet returns a hold with its effective status. Lapsed pending holds
// read as expired here without being rewritten.
func HoldGet(svc holds.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		holdID, err := validators.UUIDParam(r, "holdId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		hold, err := svc.Get(r.Context(), familyID, holdID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, holdResponse{Hold: hold})
	}
}

// hintsFor computes fresh hints for the response. Failures degrade to a nil
// hints block rather than failing the mutation that already committed.
func hintsFor(r *http.Request, svc hints.Service, familyID, userID uuid.UUID, logg *logger.Logger) *hints.StateHints {
	if svc == nil {
		return nil
	}
	view, err := svc.Hints(r.Context(), familyID, userID)
	if err != nil {
		if logg != nil {
			logg.Error(r.Context(), "hints.compose", err)
		}
		return nil
	}
	return view
}
