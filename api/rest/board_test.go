package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_Columns(t *testing.T) {
	s := newServer(t)
	token := login(t, s.r, "Aria")
	createQuest(t, s.r, token, map[string]interface{}{"title": "A"})
	q := createQuest(t, s.r, token, map[string]interface{}{"title": "B"})
	w := postJSON(s.r, "/api/quests/"+itoa(q.ID)+"/accept", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)

	w = get(s.r, "/api/board")
	require.Equal(t, http.StatusOK, w.Code)
	cols := decode(t, w)["columns"].([]interface{})
	require.Len(t, cols, 4)
	counts := map[string]int{}
	for _, c := range cols {
		col := c.(map[string]interface{})
		counts[col["status"].(string)] = len(col["quests"].([]interface{}))
	}
	assert.Equal(t, map[string]int{"Backlog": 1, "InProgress": 1, "Review": 0, "Done": 0}, counts)
}

func TestBoard_Schedule(t *testing.T) {
	s := newServer(t)
	token := login(t, s.r, "Aria")
	createQuest(t, s.r, token, map[string]interface{}{
		"title": "Siege", "start_date": "2026-02-26", "due_date": "2026-03-04",
	})
	createQuest(t, s.r, token, map[string]interface{}{"title": "Unscheduled"})

	w := get(s.r, "/api/schedule?from=2026-03-01&days=7")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, "2026-03-01", resp["from"])
	assert.Len(t, resp["entries"], 1)
	bars := resp["bars"].([]interface{})
	require.Len(t, bars, 1)
	bar := bars[0].(map[string]interface{})
	assert.EqualValues(t, 0, bar["offset"])
	assert.EqualValues(t, 4, bar["length"])

	assert.Equal(t, http.StatusBadRequest, get(s.r, "/api/schedule?from=tomorrow").Code)
	assert.Equal(t, http.StatusBadRequest, get(s.r, "/api/schedule?days=x").Code)
}

func TestBoard_Summary(t *testing.T) {
	s := newServer(t)
	token := login(t, s.r, "Aria")
	createQuest(t, s.r, token, map[string]interface{}{"title": "Late", "due_date": "2000-01-01"})
	createQuest(t, s.r, token, map[string]interface{}{"title": "Fine"})

	w := get(s.r, "/api/summary")
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.EqualValues(t, 2, resp["total"])
	assert.EqualValues(t, 2, resp["by_status"].(map[string]interface{})["Backlog"])
	overdue := resp["overdue"].([]interface{})
	require.Len(t, overdue, 1)
	assert.Equal(t, "Late", overdue[0].(map[string]interface{})["title"])
}
