package controllers

import (
	"net/http"

	"github.com/famboard/famboard-backend/api/responses"
	"github.com/famboard/famboard-backend/internal/rewards"
	"github.com/famboard/famboard-backend/pkg/logger"
)

// RewardsList returns the family's active reward catalog.
func RewardsList(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		familyID, err := familyFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListActive(r.Context(), familyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"rewards": list})
	}
}
