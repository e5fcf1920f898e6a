package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplates_CRUD(t *testing.T) {
	s := newServer(t)
	token := login(t, s.r, "Aria")

	w := postJSON(s.r, "/api/templates", map[string]interface{}{"title": "Daily chores"}, bearer(token)...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	tpl := decode(t, w)["template"].(map[string]interface{})
	assert.EqualValues(t, 3, tpl["priority"])
	assert.EqualValues(t, 30, tpl["estimated_minutes"])
	path := "/api/templates/" + itoa(int64(tpl["id"].(float64)))

	w = doJSON(s.r, http.MethodPut, path, map[string]interface{}{"title": "Weekly chores", "priority": 2}, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Weekly chores", decode(t, w)["template"].(map[string]interface{})["title"])

	w = get(s.r, "/api/templates")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["templates"], 1)

	w = doJSON(s.r, http.MethodDelete, path, nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, get(s.r, path).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(s.r, http.MethodDelete, path, nil, bearer(token)...).Code)
}

func TestTemplates_Validation(t *testing.T) {
	s := newServer(t)
	token := login(t, s.r, "Aria")
	for _, body := range []map[string]interface{}{
		{"title": " "},
		{"title": "x", "priority": 6},
		{"title": "x", "estimated_minutes": -5},
	} {
		w := postJSON(s.r, "/api/templates", body, bearer(token)...)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", body)
	}
	w := postJSON(s.r, "/api/quests", map[string]interface{}{"template_id": 42}, bearer(token)...)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
