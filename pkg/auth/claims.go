package auth

import (
	"github.com/famboard/famboard-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
// Credential storage and role assignment live outside this service; the
// engine only consumes the resulting claims.
type AccessTokenPayload struct {
	UserID   uuid.UUID
	FamilyID *uuid.UUID
	Role     enums.ScopeRole
}

// AccessTokenClaims represents the typed JWT issued to admin clients.
type AccessTokenClaims struct {
	UserID   uuid.UUID       `json:"user_id"`
	FamilyID *uuid.UUID      `json:"family_id,omitempty"`
	Role     enums.ScopeRole `json:"role"`
	jwt.RegisteredClaims
}
