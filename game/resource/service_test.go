package resource

import (
	"context"
	"strings"
	"testing"

	"github.com/questboard/questboard/store"
	"github.com/questboard/questboard/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *store.SQLStore) {
	t.Helper()
	st := testutil.SetupTestStore(t)
	return NewService(st, testutil.Logger()), st
}

func mustCreate(t *testing.T, svc *Service, in Input) int64 {
	t.Helper()
	r, err := svc.Create(context.Background(), in, "Aria")
	require.NoError(t, err)
	return r.ID
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"ops", "legal", "Ops"}, NormalizeTags([]string{" ops, legal ", "", "ops", "Ops"}))
	assert.Equal(t, []string{}, NormalizeTags(nil))
}

func TestCreate_DefaultsAndCreator(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	r, err := svc.Create(ctx, Input{Title: " Press kit ", URL: " https://example.com/press ", Tags: []string{"pr,brand"}}, "Aria")
	require.NoError(t, err)
	assert.Equal(t, "Press kit", r.Title)
	assert.Equal(t, "https://example.com/press", r.URL)
	assert.Equal(t, "Other", r.Category)
	assert.Equal(t, []string{"pr", "brand"}, []string(r.Tags))
	assert.Equal(t, "Aria", r.CreatedBy)
	assert.Equal(t, int64(0), r.ViewCount)

	_, err = st.GetAdventurer(ctx, "Aria")
	assert.NoError(t, err, "creator is created on first use")
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cases := map[string]Input{
		"no title":      {URL: "https://x"},
		"no url":        {Title: "x", URL: "  "},
		"long title":    {Title: strings.Repeat("t", maxTitleLen+1), URL: "https://x"},
		"long category": {Title: "x", URL: "https://x", Category: strings.Repeat("c", maxCategoryLen+1)},
	}
	for name, in := range cases {
		_, err := svc.Create(ctx, in, "Aria")
		assert.ErrorIs(t, err, store.ErrInvalidInput, name)
	}
	_, err := svc.Create(ctx, Input{Title: "x", URL: "https://x"}, "System")
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestUpdate_KeepsFavoriteAndViews(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, Input{Title: "Wiki", URL: "https://wiki", Category: "Docs"})
	_, err := svc.ToggleFavorite(ctx, id)
	require.NoError(t, err)
	_, err = svc.Open(ctx, id)
	require.NoError(t, err)

	r, err := svc.Update(ctx, id, Input{Title: "Team wiki", URL: "https://wiki/team", Tags: []string{"docs"}})
	require.NoError(t, err)
	assert.Equal(t, "Team wiki", r.Title)
	assert.Equal(t, "Other", r.Category)
	assert.Equal(t, []string{"docs"}, []string(r.Tags))
	assert.True(t, r.Favorite)
	assert.Equal(t, int64(1), r.ViewCount)

	_, err = svc.Update(ctx, 999, Input{Title: "x", URL: "https://x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Update(ctx, id, Input{Title: "", URL: "https://x"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestToggleFavorite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, Input{Title: "Logo", URL: "uploads/logo.svg"})

	r, err := svc.ToggleFavorite(ctx, id)
	require.NoError(t, err)
	assert.True(t, r.Favorite)
	r, err = svc.ToggleFavorite(ctx, id)
	require.NoError(t, err)
	assert.False(t, r.Favorite)

	_, err = svc.ToggleFavorite(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestList_Filters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	runbook := mustCreate(t, svc, Input{Title: "Runbook", URL: "https://rb", Category: "Ops", Tags: []string{"oncall"}})
	mustCreate(t, svc, Input{Title: "Contract", URL: "https://legal", Category: "Legal", Memo: "Vendor NDA template"})
	mustCreate(t, svc, Input{Title: "Palette", URL: "https://design", Category: "Design", Tags: []string{"brand", "colour"}})
	_, err := svc.ToggleFavorite(ctx, runbook)
	require.NoError(t, err)

	titles := func(f Filter) []string {
		list, err := svc.List(ctx, f)
		require.NoError(t, err)
		out := make([]string, len(list))
		for i, r := range list {
			out[i] = r.Title
		}
		return out
	}

	assert.Equal(t, "Runbook", titles(Filter{})[0], "favourites come first")
	assert.Equal(t, []string{"Contract"}, titles(Filter{Query: "nda"}))
	assert.Equal(t, []string{"Palette"}, titles(Filter{Query: "BRAND"}))
	assert.Equal(t, []string{"Contract"}, titles(Filter{Category: "Legal"}))
	assert.Equal(t, []string{"Runbook"}, titles(Filter{FavoritesOnly: true}))
	assert.ElementsMatch(t, []string{"Runbook", "Palette"}, titles(Filter{Tags: []string{"oncall", "colour"}}))
	assert.Empty(t, titles(Filter{Category: "Legal", Tags: []string{"brand"}}))
}

func TestCategoriesAndTags(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{}, cats)

	mustCreate(t, svc, Input{Title: "a", URL: "https://a", Category: "Tools", Tags: []string{"cli", "go"}})
	mustCreate(t, svc, Input{Title: "b", URL: "https://b", Category: "Docs", Tags: []string{"go", "api"}})

	cats, err = svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Docs", "Tools"}, cats)

	tags, err := svc.Tags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"api", "cli", "go"}, tags)
}

func TestOpenAndDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, Input{Title: "Tracker", URL: "https://t"})

	r, err := svc.Open(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ViewCount)
	require.NotNil(t, r.LastViewedAt)

	require.NoError(t, svc.Delete(ctx, id))
	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, id), store.ErrNotFound)
}
