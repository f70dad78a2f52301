package models

import (
	"time"

	"github.com/google/uuid"
)

// Family is the tenant boundary. Every entry, hold, reward and consumed
// token belongs to exactly one family.
type Family struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;not null" json:"name"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
