package enums

import "fmt"

// EntryVerb maps to the entry_verb_enum enum in Postgres.
type EntryVerb string

const (
	EntryVerbEarn   EntryVerb = "earn"
	EntryVerbRedeem EntryVerb = "redeem"
	EntryVerbRefund EntryVerb = "refund"
	EntryVerbAdjust EntryVerb = "adjust"
)

var validEntryVerbs = []EntryVerb{
	EntryVerbEarn,
	EntryVerbRedeem,
	EntryVerbRefund,
	EntryVerbAdjust,
}

// IsValid reports whether the value matches the canonical entry verb enum.
func (v EntryVerb) IsValid() bool {
	for _, candidate := range validEntryVerbs {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseEntryVerb converts raw input into EntryVerb.
func ParseEntryVerb(value string) (EntryVerb, error) {
	for _, candidate := range validEntryVerbs {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entry verb %q", value)
}
