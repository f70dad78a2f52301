package enums

import "fmt"

// TokenKind is the action a capability token authorizes.
type TokenKind string

const (
	TokenKindEarn   TokenKind = "earn"
	TokenKindRedeem TokenKind = "redeem"
)

var validTokenKinds = []TokenKind{
	TokenKindEarn,
	TokenKindRedeem,
}

// IsValid reports whether the value matches the canonical token kind enum.
func (k TokenKind) IsValid() bool {
	for _, candidate := range validTokenKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseTokenKind converts raw input into TokenKind.
func ParseTokenKind(value string) (TokenKind, error) {
	for _, candidate := range validTokenKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid token kind %q", value)
}
