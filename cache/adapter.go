package cache

import (
	"context"
	"errors"
	"time"

	"github.com/questboard/questboard/cache/local"
	cacheredis "github.com/questboard/questboard/cache/redis"
	"github.com/questboard/questboard/config"
)

// ScoredMember is one leaderboard row.
type ScoredMember struct {
	Member string
	Score  float64
}

// Cache holds the board's derived, rebuildable state: session keys, the XP
// leaderboard and the recent-completions feed. The store stays the source
// of truth.
type Cache interface {
	// KV
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	// ZSet
	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZAddGT adds member or raises its score; a lower score is ignored.
	ZAddGT(ctx context.Context, key string, score float64, member string) error
	// ZRevRange returns members from highest to lowest score. stop < 0
	// means the end of the set.
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)
	ZScore(ctx context.Context, key, member string) (float64, error)
	// ZRevRank is the 0-based position of member from the top.
	ZRevRank(ctx context.Context, key, member string) (int64, error)

	// List
	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error

	Close() error
}

// IsNotFound reports whether err is a missing key or member from either
// implementation.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}

// NewCache returns a Cache backed by Redis if RedisAddr is set,
// otherwise returns an in-process LocalCache.
func NewCache(cfg config.CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		rc, err := cacheredis.NewCache(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return redisAdapter{rc}, nil
	}
	lc, err := local.NewCache(local.Config{GCInterval: cfg.LocalGCInterval})
	if err != nil {
		return nil, err
	}
	return localAdapter{lc}, nil
}

// ---- adapters to bridge sub-package score types to ScoredMember ----

type localAdapter struct {
	*local.LocalCache
}

func (a localAdapter) ZRevRange(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	rows, err := a.LocalCache.ZRevRange(ctx, key, start, stop)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredMember, len(rows))
	for i, r := range rows {
		out[i] = ScoredMember{Member: r.Member, Score: r.Score}
	}
	return out, nil
}

type redisAdapter struct {
	*cacheredis.RedisCache
}

func (a redisAdapter) ZRevRange(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	rows, err := a.RedisCache.ZRevRange(ctx, key, start, stop)
	if err != nil {
		return nil, err
	}
	out := make([]ScoredMember, len(rows))
	for i, r := range rows {
		out[i] = ScoredMember{Member: r.Member.(string), Score: r.Score}
	}
	return out, nil
}
