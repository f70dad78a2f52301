package middleware

import (
	"net/http"
	"strings"

	"github.com/famboard/famboard-backend/api/responses"
	pkgauth "github.com/famboard/famboard-backend/pkg/auth"
	"github.com/famboard/famboard-backend/pkg/config"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
	"github.com/famboard/famboard-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID.String())
			ctx = WithRole(ctx, string(claims.Role))

			if logg != nil {
				fields := map[string]any{
					"user_id":    claims.UserID.String(),
					"actor_role": string(claims.Role),
				}
				if claims.FamilyID != nil {
					fields["claim_family_id"] = claims.FamilyID.String()
				}
				ctx = logg.WithFields(ctx, fields)
			}

			if claims.FamilyID != nil {
				ctx = WithFamilyID(ctx, claims.FamilyID.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
