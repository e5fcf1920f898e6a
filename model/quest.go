package model

import (
	"strings"
	"time"
)

// QuestStatus is a column of the board.
type QuestStatus string

const (
	StatusBacklog    QuestStatus = "Backlog"
	StatusInProgress QuestStatus = "InProgress"
	StatusReview     QuestStatus = "Review"
	StatusDone       QuestStatus = "Done"
)

// Statuses lists the workflow in board order.
var Statuses = []QuestStatus{StatusBacklog, StatusInProgress, StatusReview, StatusDone}

// ParseStatus accepts the canonical names case-insensitively, plus the
// spaced "In Progress" spelling used by older boards.
func ParseStatus(s string) (QuestStatus, bool) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	for _, st := range Statuses {
		if strings.ToLower(string(st)) == key {
			return st, true
		}
	}
	return "", false
}

// Valid reports whether s is exactly one of the four workflow states.
func (s QuestStatus) Valid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

const (
	MinPriority             = 1
	MaxPriority             = 5
	DefaultPriority         = 3
	DefaultEstimatedMinutes = 30
)

// MaxXPReward caps the reward of a single quest.
const MaxXPReward = 1_000_000

// Quest is a unit of work on the board.
type Quest struct {
	ID               int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title            string      `gorm:"size:200;not null" json:"title"`
	Description      string      `gorm:"type:text" json:"description"`
	Status           QuestStatus `gorm:"size:16;index:idx_quest_status;not null" json:"status"`
	Assignee         *string     `gorm:"size:64;index:idx_quest_assignee" json:"assignee"`
	Creator          string      `gorm:"size:64;not null" json:"creator"`
	XPReward         int         `gorm:"not null" json:"xp_reward"`
	Priority         int         `gorm:"not null" json:"priority"`
	EstimatedMinutes int         `gorm:"not null" json:"estimated_minutes"`
	StartDate        *time.Time  `gorm:"type:date" json:"start_date"`
	DueDate          *time.Time  `gorm:"type:date" json:"due_date"`
	// Rewarded is set together with the XP grant and never cleared.
	Rewarded    bool       `gorm:"not null" json:"-"`
	CreatedAt   time.Time  `gorm:"autoCreateTime:false;not null" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime:false;not null" json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// AssigneeName returns the assignee or "" when unclaimed.
func (q *Quest) AssigneeName() string {
	if q.Assignee == nil {
		return ""
	}
	return *q.Assignee
}

// HasSchedule reports whether both calendar dates are set.
func (q *Quest) HasSchedule() bool {
	return q.StartDate != nil && q.DueDate != nil
}
