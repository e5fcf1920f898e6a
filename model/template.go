package model

import "time"

// QuestTemplate prefills recurring kinds of quests.
type QuestTemplate struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title            string    `gorm:"size:200;not null" json:"title"`
	Description      string    `gorm:"type:text" json:"description"`
	Priority         int       `gorm:"not null" json:"priority"`
	EstimatedMinutes int       `gorm:"not null" json:"estimated_minutes"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
