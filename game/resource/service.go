// Package resource is the guild library: shared links and file locations,
// filed by category and tag, with favourites and view counts.
package resource

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
	"go.uber.org/zap"
)

const (
	maxTitleLen    = 200
	maxURLLen      = 2048
	maxCategoryLen = 64
)

// Input carries the editable fields of a resource.
type Input struct {
	Title    string
	URL      string
	Category string
	Tags     []string
	Memo     string
}

// Filter narrows List. Query matches title, memo and tags without regard to
// case; a resource matches Tags when it carries any of them.
type Filter struct {
	Query         string
	Category      string
	Tags          []string
	FavoritesOnly bool
}

// Service manages the library.
type Service struct {
	store  store.Store
	logger *zap.Logger
}

func NewService(st store.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, logger: logger}
}

func (in *Input) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	in.Category = strings.TrimSpace(in.Category)
	if in.Category == "" {
		in.Category = model.DefaultResourceCategory
	}
	in.Tags = NormalizeTags(in.Tags)
	switch {
	case in.Title == "":
		return store.Invalid("title is required")
	case utf8.RuneCountInString(in.Title) > maxTitleLen:
		return store.Invalid("title longer than %d characters", maxTitleLen)
	case in.URL == "":
		return store.Invalid("url is required")
	case utf8.RuneCountInString(in.URL) > maxURLLen:
		return store.Invalid("url longer than %d characters", maxURLLen)
	case utf8.RuneCountInString(in.Category) > maxCategoryLen:
		return store.Invalid("category longer than %d characters", maxCategoryLen)
	}
	return nil
}

// NormalizeTags trims tags, drops blanks and repeats, and keeps the first
// spelling of each. A single comma-separated string is split.
func NormalizeTags(tags []string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, raw := range tags {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Create files a new resource on behalf of creator, who is created on first
// use.
func (svc *Service) Create(ctx context.Context, in Input, creator string) (*model.Resource, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	name, err := store.ValidName(creator)
	if err != nil {
		return nil, err
	}
	r := &model.Resource{
		Title:     in.Title,
		URL:       in.URL,
		Category:  in.Category,
		Tags:      in.Tags,
		Memo:      in.Memo,
		CreatedBy: name,
	}
	err = svc.store.Atomic(ctx, func(st store.Store) error {
		if _, err := st.GetOrCreateAdventurer(ctx, name); err != nil {
			return err
		}
		return st.CreateResource(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	svc.logger.Info("resource created",
		zap.Int64("resource_id", r.ID),
		zap.String("category", r.Category),
		zap.String("creator", name))
	return r, nil
}

func (svc *Service) Get(ctx context.Context, id int64) (*model.Resource, error) {
	return svc.store.GetResource(ctx, id)
}

// Open records a view and returns the resource.
func (svc *Service) Open(ctx context.Context, id int64) (*model.Resource, error) {
	return svc.store.TouchResource(ctx, id)
}

// Update replaces the editable fields. The favourite flag and view count are
// left as they are.
func (svc *Service) Update(ctx context.Context, id int64, in Input) (*model.Resource, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	var r *model.Resource
	err := svc.store.Atomic(ctx, func(st store.Store) error {
		var err error
		if r, err = st.GetResource(ctx, id); err != nil {
			return err
		}
		r.Title = in.Title
		r.URL = in.URL
		r.Category = in.Category
		r.Tags = in.Tags
		r.Memo = in.Memo
		if err := st.UpdateResource(ctx, r); err != nil {
			return err
		}
		r, err = st.GetResource(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ToggleFavorite flips the favourite flag and returns the updated resource.
func (svc *Service) ToggleFavorite(ctx context.Context, id int64) (*model.Resource, error) {
	var r *model.Resource
	err := svc.store.Atomic(ctx, func(st store.Store) error {
		var err error
		if r, err = st.GetResource(ctx, id); err != nil {
			return err
		}
		r.Favorite = !r.Favorite
		if err := st.UpdateResource(ctx, r); err != nil {
			return err
		}
		r, err = st.GetResource(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (svc *Service) Delete(ctx context.Context, id int64) error {
	if err := svc.store.DeleteResource(ctx, id); err != nil {
		return err
	}
	svc.logger.Info("resource deleted", zap.Int64("resource_id", id))
	return nil
}

// List returns the matching resources, favourites first, then the most
// viewed, then the newest.
func (svc *Service) List(ctx context.Context, f Filter) ([]model.Resource, error) {
	all, err := svc.store.ListResources(ctx, store.ResourceFilter{
		Category:      strings.TrimSpace(f.Category),
		FavoritesOnly: f.FavoritesOnly,
	})
	if err != nil {
		return nil, err
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))
	tags := NormalizeTags(f.Tags)
	out := make([]model.Resource, 0, len(all))
	for _, r := range all {
		if query != "" && !matchesQuery(r, query) {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(r, tags) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func matchesQuery(r model.Resource, query string) bool {
	return strings.Contains(strings.ToLower(r.Title), query) ||
		strings.Contains(strings.ToLower(r.Memo), query) ||
		strings.Contains(strings.ToLower(strings.Join(r.Tags, ",")), query)
}

func hasAnyTag(r model.Resource, tags []string) bool {
	for _, have := range r.Tags {
		for _, want := range tags {
			if have == want {
				return true
			}
		}
	}
	return false
}

// Categories lists the categories in use.
func (svc *Service) Categories(ctx context.Context) ([]string, error) {
	out, err := svc.store.ResourceCategories(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// Tags lists every tag in use, sorted.
func (svc *Service) Tags(ctx context.Context) ([]string, error) {
	all, err := svc.store.ListResources(ctx, store.ResourceFilter{})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range all {
		for _, t := range r.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
