// Package store is the persistence contract for quests, adventurers and
// their activity log. A single implementation runs on either backend
// returned by db.Open; callers never learn which one is in use.
package store

import (
	"context"
	"time"

	"github.com/questboard/questboard/model"
)

// QuestFilter narrows ListQuests. Zero values match everything; a non-nil
// Assignee pointing at "" matches unclaimed quests.
type QuestFilter struct {
	Status   model.QuestStatus
	Assignee *string
}

// ResourceFilter narrows ListResources. Zero values match everything.
type ResourceFilter struct {
	Category      string
	FavoritesOnly bool
}

// Store is the uniform CRUD/query surface over both backends.
type Store interface {
	CreateQuest(ctx context.Context, q *model.Quest) error
	GetQuest(ctx context.Context, id int64) (*model.Quest, error)
	ListQuests(ctx context.Context, f QuestFilter) ([]model.Quest, error)
	CountQuests(ctx context.Context, f QuestFilter) (int64, error)
	// UpdateQuest writes every mutable column of q when the stored
	// updated_at equals expected, and stamps q with the new version.
	UpdateQuest(ctx context.Context, q *model.Quest, expected time.Time) error

	CreateAdventurer(ctx context.Context, a *model.Adventurer) error
	GetAdventurer(ctx context.Context, name string) (*model.Adventurer, error)
	GetOrCreateAdventurer(ctx context.Context, name string) (*model.Adventurer, error)
	ListAdventurers(ctx context.Context, limit int) ([]model.Adventurer, error)
	AddXP(ctx context.Context, name string, xp int64) (*model.Adventurer, error)

	AppendComment(ctx context.Context, c *model.Comment) error
	ListComments(ctx context.Context, questID int64) ([]model.Comment, error)

	CreateTemplate(ctx context.Context, t *model.QuestTemplate) error
	GetTemplate(ctx context.Context, id int64) (*model.QuestTemplate, error)
	ListTemplates(ctx context.Context) ([]model.QuestTemplate, error)
	UpdateTemplate(ctx context.Context, t *model.QuestTemplate) error
	DeleteTemplate(ctx context.Context, id int64) error

	CreateResource(ctx context.Context, r *model.Resource) error
	GetResource(ctx context.Context, id int64) (*model.Resource, error)
	ListResources(ctx context.Context, f ResourceFilter) ([]model.Resource, error)
	UpdateResource(ctx context.Context, r *model.Resource) error
	// TouchResource counts one view of the resource and returns it.
	TouchResource(ctx context.Context, id int64) (*model.Resource, error)
	DeleteResource(ctx context.Context, id int64) error
	ResourceCategories(ctx context.Context) ([]string, error)

	// Atomic runs fn against a transactional view of the store. Either every
	// write made through that view persists or none does.
	Atomic(ctx context.Context, fn func(Store) error) error

	Ping(ctx context.Context) error
	Mode() string
}

// NextVersion returns the updated_at that follows prev: the current time at
// millisecond precision, bumped past prev when the clock has not advanced.
func NextVersion(prev, now time.Time) time.Time {
	v := Stamp(now)
	if p := Stamp(prev); !v.After(p) {
		v = p.Add(time.Millisecond)
	}
	return v
}

// Stamp normalises t to the precision both backends store.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
