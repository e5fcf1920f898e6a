package model

import "time"

// CommentKind separates user notes from entries written by the board itself.
type CommentKind string

const (
	CommentUser   CommentKind = "user"
	CommentSystem CommentKind = "system"
)

// SystemAuthor signs system entries.
const SystemAuthor = "System"

// Comment is one append-only entry in a quest's activity log. Attachment is
// an optional link or file location shared with the note.
type Comment struct {
	ID         int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	QuestID    int64       `gorm:"index:idx_comment_quest;not null" json:"quest_id"`
	Author     string      `gorm:"size:64;not null" json:"author"`
	Text       string      `gorm:"type:text;not null" json:"text"`
	Kind       CommentKind `gorm:"size:8;not null" json:"kind"`
	Attachment string      `gorm:"size:1024" json:"attachment,omitempty"`
	CreatedAt  time.Time   `gorm:"autoCreateTime:false;not null" json:"created_at"`
}
