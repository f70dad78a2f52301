package scope

import (
	"context"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/pkg/enums"
	pkgerrors "github.com/famboard/famboard-backend/pkg/errors"
)

// DefaultFamilyID is the reserved bootstrap family. It is excluded from
// cross-tenant listings and may never be targeted explicitly.
var DefaultFamilyID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Scope is the caller's resolved tenant authority for one request.
type Scope struct {
	ActorID  uuid.UUID
	Role     enums.ScopeRole
	FamilyID uuid.UUID // bound family for family_admin, uuid.Nil for master
}

type ctxKey struct{}

// NewContext stores the resolved scope on the request context.
func NewContext(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the resolved scope, or a validation error when the
// auth collaborator never supplied one.
func FromContext(ctx context.Context) (Scope, error) {
	if ctx == nil {
		return Scope{}, pkgerrors.New(pkgerrors.CodeValidation, "missing family scope")
	}
	s, ok := ctx.Value(ctxKey{}).(Scope)
	if !ok || !s.Role.IsValid() {
		return Scope{}, pkgerrors.New(pkgerrors.CodeValidation, "missing family scope")
	}
	return s, nil
}

// ResolveFamily picks the effective family for a request. Family admins are
// pinned to their own family; masters must name a target explicitly and may
// never target the reserved default family.
func (s Scope) ResolveFamily(requested uuid.UUID) (uuid.UUID, error) {
	switch s.Role {
	case enums.ScopeRoleFamilyAdmin:
		if s.FamilyID == uuid.Nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing family scope")
		}
		if requested != uuid.Nil && requested != s.FamilyID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbiddenFamily, "family scope not authorized")
		}
		return s.FamilyID, nil

	case enums.ScopeRoleMaster:
		if requested == uuid.Nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing family scope")
		}
		if requested == DefaultFamilyID {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbiddenFamily, "default family may not be targeted")
		}
		return requested, nil

	default:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "missing family scope")
	}
}

// Authorize verifies the caller may act on the given family at all.
func (s Scope) Authorize(familyID uuid.UUID) error {
	resolved, err := s.ResolveFamily(familyID)
	if err != nil {
		return err
	}
	if resolved != familyID {
		return pkgerrors.New(pkgerrors.CodeForbiddenFamily, "family scope not authorized")
	}
	return nil
}
