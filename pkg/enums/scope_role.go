package enums

import "fmt"

// ScopeRole describes the caller's tenant authority.
type ScopeRole string

const (
	// ScopeRoleMaster may act across families when an explicit family target
	// is supplied.
	ScopeRoleMaster ScopeRole = "master"
	// ScopeRoleFamilyAdmin is restricted to exactly one family.
	ScopeRoleFamilyAdmin ScopeRole = "family_admin"
)

var validScopeRoles = []ScopeRole{
	ScopeRoleMaster,
	ScopeRoleFamilyAdmin,
}

// IsValid reports whether the value matches the canonical scope role enum.
func (r ScopeRole) IsValid() bool {
	for _, candidate := range validScopeRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseScopeRole converts raw input into ScopeRole.
func ParseScopeRole(value string) (ScopeRole, error) {
	for _, candidate := range validScopeRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scope role %q", value)
}
