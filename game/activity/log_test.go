package activity

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
	"github.com/questboard/questboard/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedQuest(t *testing.T, st store.Store) *model.Quest {
	t.Helper()
	ctx := context.Background()
	_, err := st.GetOrCreateAdventurer(ctx, "Guildmaster")
	require.NoError(t, err)
	q := &model.Quest{Title: "Map the caves", Status: model.StatusBacklog, Creator: "Guildmaster",
		Priority: model.DefaultPriority, EstimatedMinutes: model.DefaultEstimatedMinutes}
	require.NoError(t, st.CreateQuest(ctx, q))
	return q
}

func TestAddComment_CreatesAuthor(t *testing.T) {
	st := testutil.SetupTestStore(t)
	log := NewLog(st, testutil.Logger())
	q := seedQuest(t, st)

	c, err := log.AddComment(context.Background(), q.ID, " Bo ", "  found the entrance ", "")
	require.NoError(t, err)
	assert.Equal(t, "Bo", c.Author)
	assert.Equal(t, "found the entrance", c.Text)
	assert.Equal(t, model.CommentUser, c.Kind)
	assert.NotZero(t, c.ID)

	_, err = st.GetAdventurer(context.Background(), "Bo")
	assert.NoError(t, err)
}

func TestAddComment_Attachment(t *testing.T) {
	st := testutil.SetupTestStore(t)
	log := NewLog(st, testutil.Logger())
	q := seedQuest(t, st)
	ctx := context.Background()

	c, err := log.AddComment(ctx, q.ID, "Bo", "cave map", " uploads/1712000000_map.png ")
	require.NoError(t, err)
	assert.Equal(t, "uploads/1712000000_map.png", c.Attachment)

	_, err = log.AddComment(ctx, q.ID, "Bo", "too long", strings.Repeat("a", MaxAttachmentLen+1))
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	list, err := log.ListComments(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "uploads/1712000000_map.png", list[0].Attachment)
}

func TestAddComment_EmptyTextAppendsNothing(t *testing.T) {
	st := testutil.SetupTestStore(t)
	log := NewLog(st, testutil.Logger())
	q := seedQuest(t, st)

	_, err := log.AddComment(context.Background(), q.ID, "Bo", "   ", "")
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	list, err := log.ListComments(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddComment_Errors(t *testing.T) {
	st := testutil.SetupTestStore(t)
	log := NewLog(st, testutil.Logger())
	q := seedQuest(t, st)
	ctx := context.Background()

	_, err := log.AddComment(ctx, 999, "Bo", "hello", "")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = log.AddComment(ctx, q.ID, "", "hello", "")
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = log.AddComment(ctx, q.ID, model.SystemAuthor, "impersonation", "")
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	// The failed comment on a missing quest must not leave the author behind.
	_, err = st.GetAdventurer(ctx, "Bo")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListComments_PreservesOrder(t *testing.T) {
	st := testutil.SetupTestStore(t)
	frozen := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	st.SetClock(func() time.Time { return frozen })
	log := NewLog(st, testutil.Logger())
	q := seedQuest(t, st)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := log.AddComment(ctx, q.ID, "Bo", fmt.Sprintf("note %d", i), "")
		require.NoError(t, err)
	}
	require.NoError(t, System(ctx, st, q.ID, "Status changed"))

	list, err := log.ListComments(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, list, 6)
	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("note %d", i), list[i].Text)
	}
	assert.Equal(t, model.SystemAuthor, list[5].Author)
	assert.Equal(t, model.CommentSystem, list[5].Kind)
}

func TestListComments_MissingQuest(t *testing.T) {
	st := testutil.SetupTestStore(t)
	log := NewLog(st, testutil.Logger())
	_, err := log.ListComments(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
