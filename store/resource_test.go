package store_test

import (
	"context"
	"testing"

	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
	"github.com/questboard/questboard/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResource(title, category string, tags ...string) *model.Resource {
	return &model.Resource{
		Title:     title,
		URL:       "https://example.com/" + title,
		Category:  category,
		Tags:      tags,
		CreatedBy: "Aria",
	}
}

func TestResource_CRUD(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()

	r := newResource("guide", "Docs", "onboarding")
	require.NoError(t, s.CreateResource(ctx, r))
	assert.NotZero(t, r.ID)

	got, err := s.GetResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "guide", got.Title)
	assert.Equal(t, []string{"onboarding"}, []string(got.Tags))

	got.Title = "Guide v2"
	got.Tags = nil
	got.Favorite = true
	require.NoError(t, s.UpdateResource(ctx, got))
	got, err = s.GetResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Guide v2", got.Title)
	assert.Empty(t, got.Tags)
	assert.True(t, got.Favorite)

	require.NoError(t, s.DeleteResource(ctx, r.ID))
	_, err = s.GetResource(ctx, r.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteResource(ctx, r.ID), store.ErrNotFound)
	assert.ErrorIs(t, s.UpdateResource(ctx, &model.Resource{ID: r.ID}), store.ErrNotFound)
}

func TestTouchResource_CountsViews(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	r := newResource("tool", "Tools")
	require.NoError(t, s.CreateResource(ctx, r))
	assert.Nil(t, r.LastViewedAt)

	for i := 0; i < 3; i++ {
		_, err := s.TouchResource(ctx, r.ID)
		require.NoError(t, err)
	}
	got, err := s.GetResource(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ViewCount)
	assert.NotNil(t, got.LastViewedAt)

	_, err = s.TouchResource(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListResources_OrderAndFilter(t *testing.T) {
	s := testutil.SetupTestStore(t)
	ctx := context.Background()
	plain := newResource("plain", "Docs")
	viewed := newResource("viewed", "Docs")
	fav := newResource("fav", "Tools")
	fav.Favorite = true
	for _, r := range []*model.Resource{plain, viewed, fav} {
		require.NoError(t, s.CreateResource(ctx, r))
	}
	_, err := s.TouchResource(ctx, viewed.ID)
	require.NoError(t, err)

	all, err := s.ListResources(ctx, store.ResourceFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"fav", "viewed", "plain"}, []string{all[0].Title, all[1].Title, all[2].Title})

	docs, err := s.ListResources(ctx, store.ResourceFilter{Category: "Docs"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	favs, err := s.ListResources(ctx, store.ResourceFilter{FavoritesOnly: true})
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "fav", favs[0].Title)

	cats, err := s.ResourceCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Docs", "Tools"}, cats)
}
