package integration

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/questboard/questboard/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFullQuestLifecycle(t *testing.T) {
	ts := NewTestServer(t)
	hero := UniqueID("hero")
	token := ts.Login(t, hero)

	// 1. Create → Backlog with the suggested reward.
	q := ts.CreateQuest(t, token, map[string]interface{}{
		"title": "Clear the cellar", "priority": 5, "estimated_minutes": 60,
	})
	assert.Equal(t, "Backlog", q.Status)
	assert.Equal(t, 106, q.XPReward)

	// 2. Accept → InProgress, assigned to the caller.
	q = readQuest(t, ts.PostJSON(t, QuestPath(q.ID)+"/accept", nil, token))
	assert.Equal(t, "InProgress", q.Status)
	require.NotNil(t, q.Assignee)
	assert.Equal(t, hero, *q.Assignee)

	// 3. Review → Done pays once.
	q = readQuest(t, ts.Patch(t, QuestPath(q.ID)+"/status",
		map[string]interface{}{"status": "Review", "updated_at": q.UpdatedAt}, token))
	resp := ts.Patch(t, QuestPath(q.ID)+"/status",
		map[string]interface{}{"status": "Done", "updated_at": q.UpdatedAt}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var done map[string]interface{}
	ReadJSON(t, resp, &done)
	require.Contains(t, done, "award")
	assert.EqualValues(t, 106, done["award"].(map[string]interface{})["xp"])

	// 4. Profile reflects the XP and the level.
	var me map[string]interface{}
	ReadJSON(t, ts.Get(t, "/api/me", token), &me)
	adv := me["adventurer"].(map[string]interface{})
	assert.EqualValues(t, 106, adv["total_xp"])
	assert.EqualValues(t, 2, adv["level"].(map[string]interface{})["level"])

	// 5. The board shows the quest in Done.
	var board map[string]interface{}
	ReadJSON(t, ts.Get(t, "/api/board", ""), &board)
	cols := board["columns"].([]interface{})
	assert.Len(t, cols[3].(map[string]interface{})["quests"], 1)

	// 6. Mutations were audited against the quest.
	ts.Audit.Stop(context.Background())
	entries, err := ts.Store.ListAudit(context.Background(), store.AuditFilter{QuestID: q.ID})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "PATCH /api/quests/:id/status", entries[0].Action)
	assert.Equal(t, hero, entries[0].Actor)
	assert.NotEmpty(t, entries[0].TraceID)
}

func TestConcurrentCompletionPaysOnce(t *testing.T) {
	ts := NewTestServer(t)
	owner := ts.Login(t, UniqueID("owner"))
	other := ts.Login(t, UniqueID("other"))

	q := ts.CreateQuest(t, owner, map[string]interface{}{"title": "Race", "xp_reward": 40})
	q = readQuest(t, ts.PostJSON(t, QuestPath(q.ID)+"/accept", nil, owner))

	const racers = 6
	codes := make([]int, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := owner
			if i%2 == 1 {
				token = other
			}
			codes[i] = Drain(ts.Patch(t, QuestPath(q.ID)+"/status",
				map[string]interface{}{"status": "Done", "updated_at": q.UpdatedAt}, token))
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, racers-1, conflicts)

	adv, err := ts.Store.GetAdventurer(context.Background(), *q.Assignee)
	require.NoError(t, err)
	assert.EqualValues(t, 40, adv.TotalXP)
}

func TestAdminRoutes(t *testing.T) {
	ts := NewTestServer(t)
	ts.Login(t, UniqueID("aria"))

	assert.Equal(t, http.StatusUnauthorized, Drain(ts.Get(t, "/api/admin/status", "")))

	resp := ts.Do(t, http.MethodPost, "/api/admin/ranking/refresh", nil, "", "X-Admin-Key", AdminKey)
	require.Equal(t, http.StatusOK, Drain(resp))

	var top map[string]interface{}
	ReadJSON(t, ts.Get(t, "/api/ranking", ""), &top)
	assert.Len(t, top["ranking"], 1)
}

func TestHealth(t *testing.T) {
	ts := NewTestServer(t)
	var body map[string]interface{}
	ReadJSON(t, ts.Get(t, "/health", ""), &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "sqlite", body["store"])
}
