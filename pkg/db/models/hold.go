package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/pkg/enums"
)

// Hold is a pending reservation of a reward against a member's balance.
// Reservation is optimistic: nothing is debited until approval.
type Hold struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FamilyID     uuid.UUID        `gorm:"column:family_id;type:uuid;not null;index:idx_holds_family_user" json:"family_id"`
	UserID       uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index:idx_holds_family_user" json:"user_id"`
	RewardID     uuid.UUID        `gorm:"column:reward_id;type:uuid;not null" json:"reward_id"`
	QuotedAmount int              `gorm:"column:quoted_amount;not null" json:"quoted_amount"`
	FinalAmount  *int             `gorm:"column:final_amount" json:"final_amount,omitempty"`
	Status       enums.HoldStatus `gorm:"column:status;type:hold_status_enum;not null;default:pending" json:"status"`
	ExpiresAt    *time.Time       `gorm:"column:expires_at" json:"expires_at,omitempty"`
	RedeemedAt   *time.Time       `gorm:"column:redeemed_at" json:"redeemed_at,omitempty"`
	ReleasedAt   *time.Time       `gorm:"column:released_at" json:"released_at,omitempty"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
