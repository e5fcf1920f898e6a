package model

import "time"

// Adventurer is a display-name identity. Its level is derived from TotalXP
// on every read and is never persisted.
type Adventurer struct {
	Name      string    `gorm:"primaryKey;size:64" json:"name"`
	TotalXP   int64     `gorm:"not null;default:0" json:"total_xp"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
