package enums

import "fmt"

// HoldStatus maps to the hold_status_enum enum in Postgres.
//
// Transitions are monotonic: pending is the only non-terminal state and
// redeemed, released and expired are never left once written.
type HoldStatus string

const (
	HoldStatusPending  HoldStatus = "pending"
	HoldStatusRedeemed HoldStatus = "redeemed"
	HoldStatusReleased HoldStatus = "released"
	HoldStatusExpired  HoldStatus = "expired"
)

var validHoldStatuses = []HoldStatus{
	HoldStatusPending,
	HoldStatusRedeemed,
	HoldStatusReleased,
	HoldStatusExpired,
}

// IsValid reports whether the value matches the canonical hold status enum.
func (s HoldStatus) IsValid() bool {
	for _, candidate := range validHoldStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status can never transition again.
func (s HoldStatus) IsTerminal() bool {
	return s == HoldStatusRedeemed || s == HoldStatusReleased || s == HoldStatusExpired
}

// ParseHoldStatus converts raw input into HoldStatus.
func ParseHoldStatus(value string) (HoldStatus, error) {
	for _, candidate := range validHoldStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid hold status %q", value)
}
