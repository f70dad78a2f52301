package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/pkg/enums"
)

// Entry records one immutable signed point movement for a family member.
// Rows are append-only: nothing mutates an entry after insert.
type Entry struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FamilyID       uuid.UUID       `gorm:"column:family_id;type:uuid;not null;index:idx_entries_family_user" json:"family_id"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index:idx_entries_family_user" json:"user_id"`
	ActorID        *uuid.UUID      `gorm:"column:actor_id;type:uuid" json:"actor_id,omitempty"`
	Verb           enums.EntryVerb `gorm:"column:verb;type:entry_verb_enum;not null" json:"verb"`
	Amount         int             `gorm:"column:amount;not null" json:"amount"`
	BalanceAfter   int             `gorm:"column:balance_after;not null" json:"balance_after"`
	Status         string          `gorm:"column:status;not null;default:posted" json:"status"`
	ParentHoldID   *uuid.UUID      `gorm:"column:parent_hold_id;type:uuid" json:"parent_hold_id,omitempty"`
	ParentEntryID  *uuid.UUID      `gorm:"column:parent_entry_id;type:uuid;index" json:"parent_entry_id,omitempty"`
	IdempotencyKey *string         `gorm:"column:idempotency_key;uniqueIndex:uniq_entries_idempotency_key" json:"idempotency_key,omitempty"`
	Reason         *string         `gorm:"column:reason" json:"reason,omitempty"`
	RefundReason   *string         `gorm:"column:refund_reason" json:"refund_reason,omitempty"`
	RefundNotes    *string         `gorm:"column:refund_notes" json:"refund_notes,omitempty"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// EntryStatusPosted is the only entry status today; kept as a column so a
// future voiding flow does not need a schema change.
const EntryStatusPosted = "posted"
