// Package quest owns the quest lifecycle: posting, claiming, moving quests
// between workflow columns and editing them. Every mutation that can race is
// guarded by the quest's updated_at version.
package quest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/questboard/questboard/config"
	"github.com/questboard/questboard/game/activity"
	"github.com/questboard/questboard/game/reward"
	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
	"go.uber.org/zap"
)

// ErrActiveLimit is wrapped together with store.ErrInvalidInput when an
// adventurer already holds the maximum number of InProgress quests.
var ErrActiveLimit = errors.New("active quest limit reached")

const maxTitleLen = 200

// CreateInput describes a new quest. Zero Priority and nil EstimatedMinutes
// take their defaults (or the template's values); nil XPReward takes the
// suggested reward.
type CreateInput struct {
	Title            string
	Description      string
	XPReward         *int
	Priority         int
	EstimatedMinutes *int
	StartDate        *time.Time
	DueDate          *time.Time
	Creator          string
	TemplateID       int64
}

// EditInput replaces the editable fields of a quest. The reward and the
// creator are fixed at creation and cannot be edited.
type EditInput struct {
	Title            string
	Description      string
	Priority         int
	EstimatedMinutes int
	StartDate        *time.Time
	DueDate          *time.Time
	Actor            string
}

// Service handles all quest operations.
type Service struct {
	store     store.Store
	rewards   *reward.Engine
	maxActive int
	now       func() time.Time
	logger    *zap.Logger
}

// NewService creates a quest Service.
func NewService(st store.Store, rewards *reward.Engine, cfg config.QuestConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rewards == nil {
		rewards = reward.NewEngine(reward.DefaultLevelBase, logger)
	}
	return &Service{
		store:     st,
		rewards:   rewards,
		maxActive: cfg.MaxActive,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the time source used for completion timestamps.
func (svc *Service) SetClock(now func() time.Time) { svc.now = now }

// Create posts a quest to the Backlog, unassigned. The creator is created on
// first use.
func (svc *Service) Create(ctx context.Context, in CreateInput) (*model.Quest, error) {
	creator, err := store.ValidName(in.Creator)
	if err != nil {
		return nil, err
	}

	var q *model.Quest
	err = svc.store.Atomic(ctx, func(st store.Store) error {
		if in.TemplateID != 0 {
			tpl, err := st.GetTemplate(ctx, in.TemplateID)
			if err != nil {
				return err
			}
			applyTemplate(&in, tpl)
		}

		minutes := model.DefaultEstimatedMinutes
		if in.EstimatedMinutes != nil {
			minutes = *in.EstimatedMinutes
		}
		priority := in.Priority
		if priority == 0 {
			priority = model.DefaultPriority
		}
		fields := EditInput{
			Title:            in.Title,
			Description:      in.Description,
			Priority:         priority,
			EstimatedMinutes: minutes,
			StartDate:        in.StartDate,
			DueDate:          in.DueDate,
		}
		if err := validate(&fields); err != nil {
			return err
		}

		xp := reward.SuggestedReward(fields.Priority, fields.EstimatedMinutes)
		if in.XPReward != nil {
			xp = *in.XPReward
		}
		if xp < 0 {
			return store.Invalid("xp_reward must not be negative")
		}
		if xp > model.MaxXPReward {
			return store.Invalid("xp_reward must not exceed %d", model.MaxXPReward)
		}

		if _, err := st.GetOrCreateAdventurer(ctx, creator); err != nil {
			return err
		}
		q = &model.Quest{
			Title:            fields.Title,
			Description:      fields.Description,
			Status:           model.StatusBacklog,
			Creator:          creator,
			XPReward:         xp,
			Priority:         fields.Priority,
			EstimatedMinutes: fields.EstimatedMinutes,
			StartDate:        fields.StartDate,
			DueDate:          fields.DueDate,
		}
		return st.CreateQuest(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("quest created",
		zap.Int64("quest_id", q.ID),
		zap.String("creator", creator),
		zap.Int("xp_reward", q.XPReward))
	return q, nil
}

func applyTemplate(in *CreateInput, tpl *model.QuestTemplate) {
	if strings.TrimSpace(in.Title) == "" {
		in.Title = tpl.Title
	}
	if strings.TrimSpace(in.Description) == "" {
		in.Description = tpl.Description
	}
	if in.Priority == 0 {
		in.Priority = tpl.Priority
	}
	if in.EstimatedMinutes == nil {
		m := tpl.EstimatedMinutes
		in.EstimatedMinutes = &m
	}
}

// validate normalises and checks the editable fields in place.
func validate(in *EditInput) error {
	in.Title = strings.TrimSpace(in.Title)
	switch {
	case in.Title == "":
		return store.Invalid("title is required")
	case len([]rune(in.Title)) > maxTitleLen:
		return store.Invalid("title longer than %d characters", maxTitleLen)
	case in.Priority < model.MinPriority || in.Priority > model.MaxPriority:
		return store.Invalid("priority must be between %d and %d", model.MinPriority, model.MaxPriority)
	case in.EstimatedMinutes < 0:
		return store.Invalid("estimated_minutes must not be negative")
	}
	in.StartDate = CalendarDate(in.StartDate)
	in.DueDate = CalendarDate(in.DueDate)
	if in.StartDate != nil && in.DueDate != nil && in.DueDate.Before(*in.StartDate) {
		return store.Invalid("due date %s is before start date %s",
			in.DueDate.Format(time.DateOnly), in.StartDate.Format(time.DateOnly))
	}
	return nil
}

// CalendarDate drops the time of day, keeping the calendar date as written.
func CalendarDate(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	y, m, d := t.Date()
	out := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &out
}

// Get returns one quest.
func (svc *Service) Get(ctx context.Context, id int64) (*model.Quest, error) {
	return svc.store.GetQuest(ctx, id)
}

// List returns quests matching f in creation order.
func (svc *Service) List(ctx context.Context, f store.QuestFilter) ([]model.Quest, error) {
	out, err := svc.store.ListQuests(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Quest{}
	}
	return out, nil
}

// Claim assigns the quest to an existing adventurer from any status. A quest
// already held by someone else is silently reassigned.
func (svc *Service) Claim(ctx context.Context, questID int64, adventurer string) (*model.Quest, error) {
	name, err := store.ValidName(adventurer)
	if err != nil {
		return nil, err
	}

	var q *model.Quest
	err = svc.store.Atomic(ctx, func(st store.Store) error {
		var err error
		if q, err = st.GetQuest(ctx, questID); err != nil {
			return err
		}
		if _, err := st.GetAdventurer(ctx, name); err != nil {
			return err
		}
		prev := q.AssigneeName()
		if prev == name {
			return nil
		}
		q.Assignee = &name
		if err := st.UpdateQuest(ctx, q, q.UpdatedAt); err != nil {
			return err
		}
		return activity.System(ctx, st, q.ID, assigneeNote(prev, name))
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("quest claimed", zap.Int64("quest_id", questID), zap.String("adventurer", name))
	return q, nil
}

// Accept is the one-step pickup of a Backlog quest: the adventurer is
// created on first use, takes the quest and starts it. When a cap is
// configured the adventurer may hold at most that many InProgress quests.
func (svc *Service) Accept(ctx context.Context, questID int64, adventurer string) (*model.Quest, error) {
	name, err := store.ValidName(adventurer)
	if err != nil {
		return nil, err
	}

	var q *model.Quest
	err = svc.store.Atomic(ctx, func(st store.Store) error {
		var err error
		if q, err = st.GetQuest(ctx, questID); err != nil {
			return err
		}
		if q.Status != model.StatusBacklog {
			return store.Invalid("quest %d is %s, only Backlog quests can be accepted", q.ID, q.Status)
		}
		if _, err := st.GetOrCreateAdventurer(ctx, name); err != nil {
			return err
		}
		if svc.maxActive > 0 {
			n, err := st.CountQuests(ctx, store.QuestFilter{Status: model.StatusInProgress, Assignee: &name})
			if err != nil {
				return err
			}
			if n >= int64(svc.maxActive) {
				return fmt.Errorf("%w: %w: %s already has %d quests in progress",
					store.ErrInvalidInput, ErrActiveLimit, name, n)
			}
		}
		q.Assignee = &name
		q.Status = model.StatusInProgress
		if err := st.UpdateQuest(ctx, q, q.UpdatedAt); err != nil {
			return err
		}
		return activity.System(ctx, st, q.ID, fmt.Sprintf("%s accepted the quest", name))
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("quest accepted", zap.Int64("quest_id", questID), zap.String("adventurer", name))
	return q, nil
}

// SetStatus moves the quest to status when its stored version equals
// expected. The first entry into Done stamps completed_at and pays the
// reward to the assignee in the same transaction; later entries pay nothing.
// The returned award is nil when no XP was granted.
func (svc *Service) SetStatus(ctx context.Context, questID int64, status model.QuestStatus, actor string, expected time.Time) (*model.Quest, *reward.Award, error) {
	if !status.Valid() {
		return nil, nil, store.Invalid("unknown status %q", status)
	}
	actor = strings.TrimSpace(actor)

	var (
		q     *model.Quest
		award *reward.Award
	)
	err := svc.store.Atomic(ctx, func(st store.Store) error {
		var err error
		if q, err = st.GetQuest(ctx, questID); err != nil {
			return err
		}
		if err := checkVersion(q, expected); err != nil {
			return err
		}
		prev := q.Status
		q.Status = status

		if status == model.StatusDone && prev != model.StatusDone && q.CompletedAt == nil {
			done := store.Stamp(svc.now())
			q.CompletedAt = &done
			if award, err = svc.rewards.AwardOnCompletion(ctx, st, q); err != nil {
				return err
			}
		}
		if err := st.UpdateQuest(ctx, q, expected); err != nil {
			return err
		}
		if prev != status {
			if err := activity.System(ctx, st, q.ID, statusNote(actor, prev, status)); err != nil {
				return err
			}
		}
		if award != nil {
			return activity.System(ctx, st, q.ID,
				fmt.Sprintf("Quest complete! %s earned %d XP", award.Adventurer, award.XP))
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			svc.logger.Debug("status change lost race", zap.Int64("quest_id", questID))
		}
		return nil, nil, err
	}
	svc.logger.Info("quest status changed",
		zap.Int64("quest_id", questID),
		zap.String("status", string(status)),
		zap.Bool("rewarded", award != nil))
	if award.LeveledUp() {
		svc.logger.Info("adventurer leveled up",
			zap.String("adventurer", award.Adventurer),
			zap.Int("level", award.After.Level))
	}
	return q, award, nil
}

// Reassign hands the quest to another existing adventurer, or unassigns it
// when adventurer is empty.
func (svc *Service) Reassign(ctx context.Context, questID int64, adventurer string, expected time.Time) (*model.Quest, error) {
	var next *string
	if strings.TrimSpace(adventurer) != "" {
		name, err := store.ValidName(adventurer)
		if err != nil {
			return nil, err
		}
		next = &name
	}

	var q *model.Quest
	err := svc.store.Atomic(ctx, func(st store.Store) error {
		var err error
		if q, err = st.GetQuest(ctx, questID); err != nil {
			return err
		}
		if err := checkVersion(q, expected); err != nil {
			return err
		}
		if next != nil {
			if _, err := st.GetAdventurer(ctx, *next); err != nil {
				return err
			}
		}
		prev := q.AssigneeName()
		q.Assignee = next
		if err := st.UpdateQuest(ctx, q, expected); err != nil {
			return err
		}
		if prev == q.AssigneeName() {
			return nil
		}
		return activity.System(ctx, st, q.ID, assigneeNote(prev, q.AssigneeName()))
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("quest reassigned", zap.Int64("quest_id", questID), zap.String("assignee", q.AssigneeName()))
	return q, nil
}

// Edit replaces the quest's editable fields when its stored version equals
// expected.
func (svc *Service) Edit(ctx context.Context, questID int64, in EditInput, expected time.Time) (*model.Quest, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}

	var q *model.Quest
	err := svc.store.Atomic(ctx, func(st store.Store) error {
		var err error
		if q, err = st.GetQuest(ctx, questID); err != nil {
			return err
		}
		if err := checkVersion(q, expected); err != nil {
			return err
		}
		changed := changedFields(q, &in)
		q.Title = in.Title
		q.Description = in.Description
		q.Priority = in.Priority
		q.EstimatedMinutes = in.EstimatedMinutes
		q.StartDate = in.StartDate
		q.DueDate = in.DueDate
		if err := st.UpdateQuest(ctx, q, expected); err != nil {
			return err
		}
		if len(changed) == 0 {
			return nil
		}
		note := "Quest edited: " + strings.Join(changed, ", ")
		if actor := strings.TrimSpace(in.Actor); actor != "" {
			note = fmt.Sprintf("%s edited the quest: %s", actor, strings.Join(changed, ", "))
		}
		return activity.System(ctx, st, q.ID, note)
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("quest edited", zap.Int64("quest_id", questID))
	return q, nil
}

// checkVersion fails fast before any write when the caller's copy is stale.
// UpdateQuest repeats the check atomically.
func checkVersion(q *model.Quest, expected time.Time) error {
	if !store.Stamp(q.UpdatedAt).Equal(store.Stamp(expected)) {
		return fmt.Errorf("%w (quest %d)", store.ErrConflict, q.ID)
	}
	return nil
}

func changedFields(q *model.Quest, in *EditInput) []string {
	var out []string
	if q.Title != in.Title {
		out = append(out, "title")
	}
	if q.Description != in.Description {
		out = append(out, "description")
	}
	if q.Priority != in.Priority {
		out = append(out, "priority")
	}
	if q.EstimatedMinutes != in.EstimatedMinutes {
		out = append(out, "estimated minutes")
	}
	if !sameDate(q.StartDate, in.StartDate) {
		out = append(out, "start date")
	}
	if !sameDate(q.DueDate, in.DueDate) {
		out = append(out, "due date")
	}
	return out
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return CalendarDate(a).Equal(*CalendarDate(b))
}

func statusNote(actor string, from, to model.QuestStatus) string {
	if actor == "" {
		return fmt.Sprintf("Status changed: %s → %s", from, to)
	}
	return fmt.Sprintf("%s moved the quest: %s → %s", actor, from, to)
}

func assigneeNote(from, to string) string {
	switch {
	case from == "":
		return fmt.Sprintf("Claimed by %s", to)
	case to == "":
		return fmt.Sprintf("%s released the quest", from)
	default:
		return fmt.Sprintf("Assignee changed: %s → %s", from, to)
	}
}
