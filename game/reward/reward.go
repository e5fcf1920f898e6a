// Package reward turns completed quests into experience and experience
// into levels.
package reward

import (
	"context"
	"fmt"
	"math"

	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
	"go.uber.org/zap"
)

// DefaultLevelBase is the XP needed to go from level 1 to level 2.
const DefaultLevelBase = 100

// Level is the derived progression view of an adventurer's total XP.
type Level struct {
	Level       int   `json:"level"`
	CurrentXP   int64 `json:"current_xp"`
	LevelFloor  int64 `json:"level_floor"`
	NextLevelXP int64 `json:"next_level_xp"`
	ToNext      int64 `json:"to_next"`
}

// Curve is a quadratic level curve: reaching level L takes
// Base*L*(L-1)/2 cumulative XP, so each level costs Base more than the last.
type Curve struct {
	Base int64
}

// NewCurve returns a curve with the given base, falling back to
// DefaultLevelBase for non-positive values.
func NewCurve(base int) Curve {
	if base <= 0 {
		base = DefaultLevelBase
	}
	return Curve{Base: int64(base)}
}

// Floor returns the cumulative XP at which level starts. Levels whose floor
// does not fit in an int64 saturate at math.MaxInt64.
func (c Curve) Floor(level int) int64 {
	if level <= 1 {
		return 0
	}
	a, b := int64(level), int64(level-1)
	if a%2 == 0 {
		a /= 2
	} else {
		b /= 2
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	tri := a * b
	if tri > math.MaxInt64/c.Base {
		return math.MaxInt64
	}
	return c.Base * tri
}

// maxCorrection bounds the fix-up steps after the closed-form estimate.
const maxCorrection = 8

// LevelFor maps total XP to a level. It is pure and non-decreasing in
// totalXP; negative totals are treated as zero.
func (c Curve) LevelFor(totalXP int64) Level {
	if c.Base <= 0 {
		c = NewCurve(DefaultLevelBase)
	}
	if totalXP < 0 {
		totalXP = 0
	}
	// Closed-form estimate, then corrected for float rounding.
	lvl := int((1 + math.Sqrt(1+8*float64(totalXP)/float64(c.Base))) / 2)
	if lvl < 1 {
		lvl = 1
	}
	for i := 0; i < maxCorrection && lvl > 1 && c.Floor(lvl) > totalXP; i++ {
		lvl--
	}
	for i := 0; i < maxCorrection; i++ {
		next := c.Floor(lvl + 1)
		if next > totalXP || next == math.MaxInt64 {
			break
		}
		lvl++
	}
	next := c.Floor(lvl + 1)
	return Level{
		Level:       lvl,
		CurrentXP:   totalXP,
		LevelFloor:  c.Floor(lvl),
		NextLevelXP: next,
		ToNext:      next - totalXP,
	}
}

// SuggestedReward is the default XP for a quest that was created without an
// explicit reward.
func SuggestedReward(priority, estimatedMinutes int) int {
	if priority < 0 {
		priority = 0
	}
	if estimatedMinutes < 0 {
		estimatedMinutes = 0
	}
	return priority*20 + estimatedMinutes/10
}

// Award describes one XP grant.
type Award struct {
	QuestID    int64  `json:"quest_id"`
	Adventurer string `json:"adventurer"`
	XP         int64  `json:"xp"`
	TotalXP    int64  `json:"total_xp"`
	Before     Level  `json:"before"`
	After      Level  `json:"after"`
}

// LeveledUp reports whether the grant crossed at least one level boundary.
func (a *Award) LeveledUp() bool {
	return a != nil && a.After.Level > a.Before.Level
}

// Engine grants completion rewards.
type Engine struct {
	curve  Curve
	logger *zap.Logger
}

// NewEngine creates an Engine using a curve with the given base.
func NewEngine(levelBase int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{curve: NewCurve(levelBase), logger: logger}
}

// Curve returns the level curve in use.
func (e *Engine) Curve() Curve { return e.curve }

// LevelFor maps total XP to a level on the engine's curve.
func (e *Engine) LevelFor(totalXP int64) Level { return e.curve.LevelFor(totalXP) }

// AwardOnCompletion credits q's reward to its assignee and marks q as
// rewarded. It must run inside the same transaction that moves q into Done
// and persists the quest; the caller writes q afterwards. A quest that was
// already rewarded or has no assignee yields no award and no error.
func (e *Engine) AwardOnCompletion(ctx context.Context, st store.Store, q *model.Quest) (*Award, error) {
	if q == nil {
		return nil, store.Invalid("quest is required")
	}
	if q.Rewarded || q.Assignee == nil {
		return nil, nil
	}
	if q.XPReward < 0 || q.XPReward > model.MaxXPReward {
		return nil, store.Invalid("quest %d has xp_reward outside 0..%d", q.ID, model.MaxXPReward)
	}
	name := *q.Assignee

	before, err := st.GetAdventurer(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("award quest %d: %w", q.ID, err)
	}
	after, err := st.AddXP(ctx, name, int64(q.XPReward))
	if err != nil {
		return nil, fmt.Errorf("award quest %d: %w", q.ID, err)
	}
	q.Rewarded = true

	award := &Award{
		QuestID:    q.ID,
		Adventurer: name,
		XP:         int64(q.XPReward),
		TotalXP:    after.TotalXP,
		Before:     e.curve.LevelFor(before.TotalXP),
		After:      e.curve.LevelFor(after.TotalXP),
	}
	e.logger.Info("xp awarded",
		zap.Int64("quest_id", q.ID),
		zap.String("adventurer", name),
		zap.Int64("xp", award.XP),
		zap.Int64("total_xp", award.TotalXP),
		zap.Int("level", award.After.Level))
	return award, nil
}
