package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/famboard/famboard-backend/pkg/enums"
)

// ConsumedToken blocks replay of a single-use capability token. The jti is
// the primary key; a second insert for the same token fails on the
// constraint.
type ConsumedToken struct {
	JTI       string          `gorm:"column:jti;primaryKey" json:"jti"`
	Token     string          `gorm:"column:token;not null" json:"token"`
	Kind      enums.TokenKind `gorm:"column:kind;not null" json:"kind"`
	FamilyID  uuid.UUID       `gorm:"column:family_id;type:uuid;not null" json:"family_id"`
	UserID    *uuid.UUID      `gorm:"column:user_id;type:uuid" json:"user_id,omitempty"`
	RewardID  *uuid.UUID      `gorm:"column:reward_id;type:uuid" json:"reward_id,omitempty"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
