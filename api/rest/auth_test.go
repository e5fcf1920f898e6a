package rest_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_CreatesAdventurer(t *testing.T) {
	s := newServer(t)

	w := postJSON(s.r, "/api/auth/login", map[string]string{"name": "  Aria "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.NotEmpty(t, resp["token"])
	adv := resp["adventurer"].(map[string]interface{})
	assert.Equal(t, "Aria", adv["name"])
	assert.EqualValues(t, 0, adv["total_xp"])
	assert.EqualValues(t, 1, adv["level"].(map[string]interface{})["level"])

	// Second sign-in reuses the same identity.
	login(t, s.r, "Aria")
	list := decode(t, get(s.r, "/api/adventurers"))["adventurers"].([]interface{})
	assert.Len(t, list, 1)
}

func TestLogin_RejectsBadNames(t *testing.T) {
	s := newServer(t)
	for _, name := range []string{"", "   ", "System"} {
		w := postJSON(s.r, "/api/auth/login", map[string]string{"name": name})
		assert.Equal(t, http.StatusBadRequest, w.Code, "name %q", name)
	}
}

func TestMe(t *testing.T) {
	s := newServer(t)
	token := login(t, s.r, "Bo")

	w := get(s.r, "/api/me", bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	adv := decode(t, w)["adventurer"].(map[string]interface{})
	assert.Equal(t, "Bo", adv["name"])

	assert.Equal(t, http.StatusUnauthorized, get(s.r, "/api/me").Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	s := newServer(t)
	token := login(t, s.r, "Aria")

	w := postJSON(s.r, "/api/auth/logout", nil, bearer(token)...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusUnauthorized, get(s.r, "/api/me", bearer(token)...).Code)
}

func TestRefresh_RotatesToken(t *testing.T) {
	s := newServer(t)
	old := login(t, s.r, "Aria")

	w := postJSON(s.r, "/api/auth/refresh", nil, bearer(old)...)
	require.Equal(t, http.StatusOK, w.Code)
	fresh := decode(t, w)["token"].(string)
	assert.NotEqual(t, old, fresh)

	assert.Equal(t, http.StatusUnauthorized, get(s.r, "/api/me", bearer(old)...).Code)
	assert.Equal(t, http.StatusOK, get(s.r, "/api/me", bearer(fresh)...).Code)
}
