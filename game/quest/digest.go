package quest

import (
	"context"

	"github.com/questboard/questboard/game/board"
	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
	"go.uber.org/zap"
)

// DigestTaskName is the scheduler task that logs the daily overdue digest.
const DigestTaskName = "overdue_digest"

// Digest summarizes the board as of now and logs every overdue quest. It
// writes nothing.
func (svc *Service) Digest(ctx context.Context) (board.Summary, error) {
	list, err := svc.store.ListQuests(ctx, store.QuestFilter{})
	if err != nil {
		return board.Summary{}, err
	}
	sum := board.Summarize(list, svc.now())
	svc.logger.Info("board digest",
		zap.Int("total", sum.Total),
		zap.Int("open", sum.Total-sum.ByStatus[model.StatusDone]),
		zap.Int("overdue", len(sum.Overdue)))
	for _, q := range sum.Overdue {
		svc.logger.Warn("quest overdue",
			zap.Int64("quest_id", q.ID),
			zap.String("title", q.Title),
			zap.String("assignee", q.AssigneeName()),
			zap.Time("due", *q.DueDate))
	}
	return sum, nil
}

// DigestTask adapts Digest to the scheduler.
func (svc *Service) DigestTask(ctx context.Context) error {
	_, err := svc.Digest(ctx)
	return err
}
