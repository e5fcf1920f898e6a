package rest_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/api/rest"
	"github.com/questboard/questboard/cache"
	"github.com/questboard/questboard/config"
	"github.com/questboard/questboard/game/activity"
	"github.com/questboard/questboard/game/quest"
	"github.com/questboard/questboard/game/ranking"
	"github.com/questboard/questboard/game/resource"
	"github.com/questboard/questboard/game/reward"
	"github.com/questboard/questboard/scheduler"
	"github.com/questboard/questboard/store"
	"github.com/questboard/questboard/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testAdminKey = "admin-secret"

type testServer struct {
	r     *gin.Engine
	store *store.SQLStore
	cache cache.Cache
	sched *scheduler.Scheduler
	board *ranking.Leaderboard
}

func init() { gin.SetMode(gin.TestMode) }

func newServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Security.JWTSecret = "test-secret"
	cfg.Security.JWTTTLH = 72 * time.Hour
	cfg.Server.AdminKey = testAdminKey
	cfg.Quest.MaxActive = 0
	for _, m := range mutate {
		m(cfg)
	}

	logger := zap.NewNop()
	st := testutil.SetupTestStore(t)
	c := testutil.SetupTestCache(t)
	rewards := reward.NewEngine(cfg.Reward.LevelBase, logger)
	lb := ranking.New(st, c, rewards.Curve(), cfg.Ranking.Top, logger)
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)
	sched.AddTicker(ranking.TaskName, time.Hour, lb.Task)

	quests := quest.NewService(st, rewards, cfg.Quest, logger)
	h := rest.Handlers{
		Auth:       rest.NewAuthHandler(st, c, cfg.Security, rewards, logger),
		Quests:     rest.NewQuestHandler(quests, activity.NewLog(st, logger), lb, logger),
		Board:      rest.NewBoardHandler(quests),
		Adventurer: rest.NewAdventurerHandler(st, rewards, lb),
		Ranking:    rest.NewRankingHandler(lb, logger),
		Templates:  rest.NewTemplateHandler(st),
		Resources:  rest.NewResourceHandler(resource.NewService(st, logger)),
		Admin:      rest.NewAdminHandler(st, st, sched, logger),
	}
	r := gin.New()
	rest.Register(r, h, cfg, c, logger)
	return &testServer{r: r, store: st, cache: c, sched: sched, board: lb}
}

func doJSON(r *gin.Engine, method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postJSON(r *gin.Engine, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodPost, path, body, headers...)
}

func get(r *gin.Engine, path string, headers ...string) *httptest.ResponseRecorder {
	return doJSON(r, http.MethodGet, path, nil, headers...)
}

func bearer(token string) []string {
	return []string{"Authorization", "Bearer " + token}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func login(t *testing.T, r *gin.Engine, name string) string {
	t.Helper()
	w := postJSON(r, "/api/auth/login", map[string]string{"name": name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

// questJSON is the subset of the quest payload the tests inspect.
type questJSON struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Status      string     `json:"status"`
	Assignee    *string    `json:"assignee"`
	Creator     string     `json:"creator"`
	XPReward    int        `json:"xp_reward"`
	Priority    int        `json:"priority"`
	StartDate   *time.Time `json:"start_date"`
	DueDate     *time.Time `json:"due_date"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

func decodeQuest(t *testing.T, w *httptest.ResponseRecorder) questJSON {
	t.Helper()
	var out struct {
		Quest questJSON `json:"quest"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out.Quest
}

func createQuest(t *testing.T, r *gin.Engine, token string, body map[string]interface{}) questJSON {
	t.Helper()
	w := postJSON(r, "/api/quests", body, bearer(token)...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeQuest(t, w)
}
