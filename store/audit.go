package store

import (
	"context"

	"github.com/questboard/questboard/model"
)

// AuditFilter narrows ListAudit. Zero values match everything.
type AuditFilter struct {
	Actor   string
	QuestID int64
	Limit   int
}

// WriteAudit inserts a batch of audit records in one statement.
func (s *SQLStore) WriteAudit(ctx context.Context, batch []*model.AuditLog) error {
	if len(batch) == 0 {
		return nil
	}
	tx, cancel := s.conn(ctx)
	defer cancel()
	return s.classify(tx.Create(&batch).Error)
}

// ListAudit returns the newest audit records first.
func (s *SQLStore) ListAudit(ctx context.Context, f AuditFilter) ([]model.AuditLog, error) {
	tx, cancel := s.conn(ctx)
	defer cancel()
	q := tx.Model(&model.AuditLog{})
	if f.Actor != "" {
		q = q.Where("actor = ?", f.Actor)
	}
	if f.QuestID != 0 {
		q = q.Where("quest_id = ?", f.QuestID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []model.AuditLog
	err := q.Order("id DESC").Limit(limit).Find(&out).Error
	return out, s.classify(err)
}
