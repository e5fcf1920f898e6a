package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/questboard/questboard/api/rest"
	"github.com/questboard/questboard/audit"
	"github.com/questboard/questboard/cache"
	"github.com/questboard/questboard/config"
	"github.com/questboard/questboard/game/activity"
	"github.com/questboard/questboard/game/quest"
	"github.com/questboard/questboard/game/ranking"
	"github.com/questboard/questboard/game/resource"
	"github.com/questboard/questboard/game/reward"
	mw "github.com/questboard/questboard/middleware"
	"github.com/questboard/questboard/scheduler"
	"github.com/questboard/questboard/store"
	"github.com/questboard/questboard/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// AdminKey unlocks the admin routes of a TestServer.
const AdminKey = "integration-admin-key"

// TestServer wraps a real HTTP server with every subsystem wired together.
type TestServer struct {
	Store  *store.SQLStore
	Cache  cache.Cache
	Audit  *audit.Service
	Sched  *scheduler.Scheduler
	Board  *ranking.Leaderboard
	Server *httptest.Server
	URL    string // http://127.0.0.1:<port>
	Cfg    *config.Config
}

// NewTestServer creates a fully wired quest board for integration testing.
// It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	st := testutil.SetupTestStore(t)
	c := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	cfg := config.Default()
	cfg.Security.JWTSecret = "integration-test-secret"
	cfg.Security.RateLimitRPS = 1000
	cfg.Security.RateLimitBurst = 2000
	cfg.Server.AdminKey = AdminKey

	auditSvc := audit.New(st, logger)

	// ---- Services ----
	rewards := reward.NewEngine(cfg.Reward.LevelBase, logger)
	quests := quest.NewService(st, rewards, cfg.Quest, logger)
	board := ranking.New(st, c, rewards.Curve(), cfg.Ranking.Top, logger)

	sched := scheduler.New(logger)
	sched.AddTicker(ranking.TaskName, cfg.Ranking.RefreshInterval, board.Task)
	require.NoError(t, sched.AddCron(quest.DigestTaskName, cfg.Quest.DigestCron, quests.DigestTask))

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	r.Use(mw.Audit(auditSvc))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok", "store": st.Mode()})
	})

	apirest.Register(r, apirest.Handlers{
		Auth:       apirest.NewAuthHandler(st, c, cfg.Security, rewards, logger),
		Quests:     apirest.NewQuestHandler(quests, activity.NewLog(st, logger), board, logger),
		Board:      apirest.NewBoardHandler(quests),
		Adventurer: apirest.NewAdventurerHandler(st, rewards, board),
		Ranking:    apirest.NewRankingHandler(board, logger),
		Templates:  apirest.NewTemplateHandler(st),
		Resources:  apirest.NewResourceHandler(resource.NewService(st, logger)),
		Admin:      apirest.NewAdminHandler(st, st, sched, logger),
	}, cfg, c, logger)

	server := httptest.NewServer(r)
	ts := &TestServer{
		Store:  st,
		Cache:  c,
		Audit:  auditSvc,
		Sched:  sched,
		Board:  board,
		Server: server,
		URL:    server.URL,
		Cfg:    cfg,
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close stops the server and its background workers. Safe to call twice.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Sched.Stop()
	ts.Audit.Stop(context.Background())
}

// --- HTTP helpers ---

// Do sends a request with an optional JSON body, Bearer token and extra
// header pairs.
func (ts *TestServer) Do(t *testing.T, method, path string, body interface{}, token string, headers ...string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodPost, path, body, token)
}

// Patch sends a PATCH request with JSON body and optional Bearer token.
func (ts *TestServer) Patch(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodPatch, path, body, token)
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodGet, path, nil, token)
}

// ReadJSON decodes the response body and closes it.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// Drain discards and closes the response body, returning the status code.
func Drain(resp *http.Response) int {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode
}

// --- Quest helpers ---

// Quest is the subset of the quest payload the flows inspect.
type Quest struct {
	ID          int64      `json:"id"`
	Status      string     `json:"status"`
	Assignee    *string    `json:"assignee"`
	XPReward    int        `json:"xp_reward"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Login signs in by name (creating the adventurer on first use) and
// returns the token.
func (ts *TestServer) Login(t *testing.T, name string) string {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/login", map[string]string{"name": name}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	return result["token"].(string)
}

// CreateQuest posts a new quest and returns it.
func (ts *TestServer) CreateQuest(t *testing.T, token string, body map[string]interface{}) Quest {
	t.Helper()
	resp := ts.PostJSON(t, "/api/quests", body, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return readQuest(t, resp)
}

func readQuest(t *testing.T, resp *http.Response) Quest {
	t.Helper()
	var out struct {
		Quest Quest `json:"quest"`
	}
	ReadJSON(t, resp, &out)
	return out.Quest
}

// QuestPath returns the REST path of a quest.
func QuestPath(id int64) string {
	return fmt.Sprintf("/api/quests/%d", id)
}

var testCounter uint64

// UniqueID returns a unique string with the given prefix.
func UniqueID(prefix string) string {
	n := atomic.AddUint64(&testCounter, 1)
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%100000, n)
}
