package model

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultResourceCategory files resources created without a category.
const DefaultResourceCategory = "Other"

// Resource is a shared link (a document, a tool, an uploaded file's
// location) kept in the guild library next to the board.
type Resource struct {
	ID           int64                       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string                      `gorm:"size:200;not null" json:"title"`
	URL          string                      `gorm:"size:2048;not null" json:"url"`
	Category     string                      `gorm:"size:64;not null;index:idx_resource_category" json:"category"`
	Tags         datatypes.JSONSlice[string] `gorm:"not null" json:"tags"`
	Memo         string                      `gorm:"type:text" json:"memo"`
	Favorite     bool                        `gorm:"not null;default:false" json:"is_favorite"`
	ViewCount    int64                       `gorm:"not null;default:0" json:"view_count"`
	LastViewedAt *time.Time                  `json:"last_viewed_at"`
	CreatedBy    string                      `gorm:"size:64;not null" json:"created_by"`
	CreatedAt    time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
}
