package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/api/responses"
	"github.com/famboard/famboard-backend/internal/scope"
	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
	"github.com/famboard/famboard-backend/pkg/logger"
)

const familyHeader = "X-Family-Id"

// FamilyScope resolves the effective family for the request. Family admins
// are pinned to the family in their claims; masters must target a family
// explicitly through the X-Family-Id header. The resolved id replaces the
// claim value in the context so controllers never re-derive it.
func FamilyScope(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorRaw := UserIDFromContext(r.Context())
			actorID, err := uuid.Parse(actorRaw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}

			role, err := enums.ParseScopeRole(RoleFromContext(r.Context()))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "unknown actor role"))
				return
			}

			s := scope.Scope{ActorID: actorID, Role: role}
			if raw := FamilyIDFromContext(r.Context()); raw != "" {
				claimFamily, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid family claim"))
					return
				}
				s.FamilyID = claimFamily
			}

			requested := uuid.Nil
			if raw := strings.TrimSpace(r.Header.Get(familyHeader)); raw != "" {
				requested, err = uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid family id header"))
					return
				}
			}

			resolved, err := s.ResolveFamily(requested)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := scope.NewContext(r.Context(), s)
			ctx = WithFamilyID(ctx, resolved.String())
			if logg != nil {
				ctx = logg.WithFamilyID(ctx, resolved.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
