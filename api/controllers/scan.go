package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/api/responses"
	"github.com/famboard/famboard-backend/api/validators"
	"github.com/famboard/famboard-backend/internal/captokens"
	"github.com/famboard/famboard-backend/pkg/db/models"
	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
	"github.com/famboard/famboard-backend/pkg/logger"
)

type scanRequest struct {
	Token string `json:"token" validate:"required"`
}

type scanResponse struct {
	Kind    enums.TokenKind `json:"kind"`
	Entry   *models.Entry   `json:"entry"`
	Balance int             `json:"balance"`
}

// Scan verifies a capability token, burns its jti and applies the encoded
// point movement.
func Scan(svc captokens.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload scanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Consume(r.Context(), familyID, actorFromRequest(r), payload.Token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, scanResponse{
			Kind:    result.Kind,
			Entry:   result.Entry,
			Balance: result.Balance,
		})
	}
}

type scanIssueRequest struct {
	UserID   string  `json:"user_id" validate:"required,uuid"`
	Kind     string  `json:"kind" validate:"required,oneof=earn redeem"`
	Amount   int     `json:"amount" validate:"required,gt=0"`
	RewardID *string `json:"reward_id,omitempty" validate:"omitempty,uuid"`
	HoldID   *string `json:"hold_id,omitempty" validate:"omitempty,uuid"`
}

// ScanIssue mints a single-use token a kiosk can later redeem via Scan.
func ScanIssue(svc captokens.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload scanIssueRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseTokenKind(payload.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid token kind"))
			return
		}

		input := captokens.IssueInput{
			FamilyID: familyID,
			UserID:   uuid.MustParse(payload.UserID),
			Kind:     kind,
			Amount:   payload.Amount,
		}
		if payload.RewardID != nil {
			rewardID := uuid.MustParse(*payload.RewardID)
			input.RewardID = &rewardID
		}
		if payload.HoldID != nil {
			holdID := uuid.MustParse(*payload.HoldID)
			input.HoldID = &holdID
		}

		signed, err := svc.Issue(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"token":      signed.Token,
			"jti":        signed.JTI,
			"expires_at": signed.ExpiresAt,
		})
	}
}
