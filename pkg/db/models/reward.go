package models

import (
	"time"

	"github.com/google/uuid"
)

// Reward is the catalog item a hold reserves. Catalog CRUD lives outside the
// ledger engine; this model is the read side the hold manager consumes.
type Reward struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FamilyID  uuid.UUID `gorm:"column:family_id;type:uuid;not null;index" json:"family_id"`
	Title     string    `gorm:"column:title;not null" json:"title"`
	Cost      int       `gorm:"column:cost;not null" json:"cost"`
	Active    bool      `gorm:"column:active;not null;default:true" json:"active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
