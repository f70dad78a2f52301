package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/api/middleware"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
)

// familyFromRequest returns the family resolved by the scope middleware.
func familyFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := middleware.FamilyIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing family scope")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid family scope")
	}
	return id, nil
}

// actorFromRequest returns the authenticated caller, nil when absent.
func actorFromRequest(r *http.Request) *uuid.UUID {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
