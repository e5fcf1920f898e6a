// Package ranking keeps the XP leaderboard and the recent-completions feed
// in the cache. Both are rebuildable from the store at any time.
package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/questboard/questboard/cache"
	"github.com/questboard/questboard/game/reward"
	"github.com/questboard/questboard/store"
	"go.uber.org/zap"
)

const (
	boardKey = "ranking:xp"
	feedKey  = "feed:completions"
	lockKey  = "ranking:refresh:lock"

	feedLen = 50
	lockTTL = 30 * time.Second

	// TaskName is the scheduler task that rebuilds the leaderboard.
	TaskName = "ranking_refresh"
)

// Entry is one row of the leaderboard.
type Entry struct {
	Rank    int    `json:"rank"`
	Name    string `json:"name"`
	TotalXP int64  `json:"total_xp"`
	Level   int    `json:"level"`
}

// FeedItem is one completion in the recent-completions feed.
type FeedItem struct {
	QuestID    int64     `json:"quest_id"`
	Adventurer string    `json:"adventurer"`
	XP         int64     `json:"xp"`
	Level      int       `json:"level"`
	LeveledUp  bool      `json:"leveled_up"`
	At         time.Time `json:"at"`
}

// Leaderboard serves rankings from the cache and falls back to the store.
type Leaderboard struct {
	store  store.Store
	cache  cache.Cache
	curve  reward.Curve
	top    int
	logger *zap.Logger
}

// New creates a Leaderboard holding at most top adventurers.
func New(st store.Store, c cache.Cache, curve reward.Curve, top int, logger *zap.Logger) *Leaderboard {
	if top <= 0 {
		top = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Leaderboard{store: st, cache: c, curve: curve, top: top, logger: logger}
}

// Refresh rebuilds the cached leaderboard from the store and returns the
// number of rows written. When another instance holds the refresh lock it
// returns 0 without doing anything.
func (lb *Leaderboard) Refresh(ctx context.Context) (int, error) {
	ok, err := lb.cache.SetNX(ctx, lockKey, "1", lockTTL)
	if err != nil {
		return 0, err
	}
	if !ok {
		lb.logger.Debug("ranking refresh skipped: lock held")
		return 0, nil
	}
	defer func() { _ = lb.cache.Del(context.WithoutCancel(ctx), lockKey) }()

	list, err := lb.store.ListAdventurers(ctx, lb.top)
	if err != nil {
		return 0, err
	}
	if err := lb.cache.Del(ctx, boardKey); err != nil {
		return 0, err
	}
	for _, a := range list {
		if err := lb.cache.ZAdd(ctx, boardKey, float64(a.TotalXP), a.Name); err != nil {
			return 0, err
		}
	}
	lb.logger.Info("ranking refreshed", zap.Int("rows", len(list)))
	return len(list), nil
}

// Task adapts Refresh to the scheduler.
func (lb *Leaderboard) Task(ctx context.Context) error {
	_, err := lb.Refresh(ctx)
	return err
}

// Top returns up to limit leaders, highest XP first, ties by name.
func (lb *Leaderboard) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > lb.top {
		limit = lb.top
	}
	rows, err := lb.cache.ZRevRange(ctx, boardKey, 0, -1)
	if err == nil && len(rows) == 0 {
		if _, err = lb.Refresh(ctx); err == nil {
			rows, err = lb.cache.ZRevRange(ctx, boardKey, 0, -1)
		}
	}
	if err != nil {
		lb.logger.Warn("ranking cache unavailable, reading store", zap.Error(err))
		return lb.fromStore(ctx, limit)
	}

	entries := make([]Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, Entry{Name: r.Member, TotalXP: int64(r.Score)})
	}
	return lb.finish(entries, limit), nil
}

func (lb *Leaderboard) fromStore(ctx context.Context, limit int) ([]Entry, error) {
	list, err := lb.store.ListAdventurers(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(list))
	for _, a := range list {
		entries = append(entries, Entry{Name: a.Name, TotalXP: a.TotalXP})
	}
	return lb.finish(entries, limit), nil
}

// finish orders ties by name, trims to limit and fills rank and level.
// Equal totals share a rank.
func (lb *Leaderboard) finish(entries []Entry, limit int) []Entry {
	sortEntries(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Level = lb.curve.LevelFor(entries[i].TotalXP).Level
		if i > 0 && entries[i].TotalXP == entries[i-1].TotalXP {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	return entries
}

// Record applies one award to the cached leaderboard and the feed. Cache
// failures are logged and swallowed; the next refresh repairs them.
func (lb *Leaderboard) Record(ctx context.Context, a *reward.Award) {
	if a == nil {
		return
	}
	// Awards may be recorded out of order; a stale total never lowers a score.
	if err := lb.cache.ZAddGT(ctx, boardKey, float64(a.TotalXP), a.Adventurer); err != nil {
		lb.logger.Warn("ranking update failed", zap.String("adventurer", a.Adventurer), zap.Error(err))
	}
	item, _ := json.Marshal(FeedItem{
		QuestID:    a.QuestID,
		Adventurer: a.Adventurer,
		XP:         a.XP,
		Level:      a.After.Level,
		LeveledUp:  a.LeveledUp(),
		At:         time.Now().UTC(),
	})
	if err := lb.cache.LPush(ctx, feedKey, string(item)); err != nil {
		lb.logger.Warn("feed update failed", zap.Error(err))
		return
	}
	if err := lb.cache.LTrim(ctx, feedKey, 0, feedLen-1); err != nil {
		lb.logger.Warn("feed trim failed", zap.Error(err))
	}
}

// Recent returns up to n feed items, newest first.
func (lb *Leaderboard) Recent(ctx context.Context, n int) ([]FeedItem, error) {
	if n <= 0 || n > feedLen {
		n = feedLen
	}
	raw, err := lb.cache.LRange(ctx, feedKey, 0, int64(n-1))
	if err != nil {
		return nil, err
	}
	out := make([]FeedItem, 0, len(raw))
	for _, s := range raw {
		var it FeedItem
		if err := json.Unmarshal([]byte(s), &it); err != nil {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

// ErrUnranked is returned by Position for adventurers outside the board.
var ErrUnranked = errors.New("adventurer is not on the leaderboard")

// Position returns the 1-based rank of name on the cached board.
func (lb *Leaderboard) Position(ctx context.Context, name string) (int, error) {
	r, err := lb.cache.ZRevRank(ctx, boardKey, name)
	if cache.IsNotFound(err) {
		return 0, ErrUnranked
	}
	if err != nil {
		return 0, err
	}
	return int(r) + 1, nil
}
