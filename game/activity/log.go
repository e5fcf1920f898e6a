// Package activity is the append-only comment log attached to each quest.
package activity

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
	"go.uber.org/zap"
)

// Log records user comments.
type Log struct {
	store  store.Store
	logger *zap.Logger
}

func NewLog(st store.Store, logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{store: st, logger: logger}
}

// MaxAttachmentLen bounds a comment's attachment reference, in runes.
const MaxAttachmentLen = 1024

// AddComment appends text to the quest's log on behalf of author, who is
// created on first use. attachment may be empty.
func (l *Log) AddComment(ctx context.Context, questID int64, author, text, attachment string) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, store.Invalid("comment text is required")
	}
	attachment = strings.TrimSpace(attachment)
	if utf8.RuneCountInString(attachment) > MaxAttachmentLen {
		return nil, store.Invalid("attachment longer than %d characters", MaxAttachmentLen)
	}
	name, err := store.ValidName(author)
	if err != nil {
		return nil, err
	}

	c := &model.Comment{QuestID: questID, Author: name, Text: text, Kind: model.CommentUser, Attachment: attachment}
	err = l.store.Atomic(ctx, func(st store.Store) error {
		if _, err := st.GetQuest(ctx, questID); err != nil {
			return err
		}
		if _, err := st.GetOrCreateAdventurer(ctx, name); err != nil {
			return err
		}
		return st.AppendComment(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("comment added", zap.Int64("quest_id", questID), zap.String("author", name))
	return c, nil
}

// ListComments returns the quest's entries in the order they were written.
func (l *Log) ListComments(ctx context.Context, questID int64) ([]model.Comment, error) {
	if _, err := l.store.GetQuest(ctx, questID); err != nil {
		return nil, err
	}
	out, err := l.store.ListComments(ctx, questID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Comment{}
	}
	return out, nil
}

// System appends an entry signed by the board itself. Callers pass the
// transactional store so the entry commits with the change it describes.
func System(ctx context.Context, st store.Store, questID int64, text string) error {
	return st.AppendComment(ctx, &model.Comment{
		QuestID: questID,
		Author:  model.SystemAuthor,
		Text:    text,
		Kind:    model.CommentSystem,
	})
}
