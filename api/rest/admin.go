package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/game/ranking"
	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/scheduler"
	"github.com/questboard/questboard/store"
	"go.uber.org/zap"
)

// AuditLister reads back the audit trail.
type AuditLister interface {
	ListAudit(ctx context.Context, f store.AuditFilter) ([]model.AuditLog, error)
}

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by the AdminAuth middleware.
type AdminHandler struct {
	store  store.Store
	audit  AuditLister
	sched  *scheduler.Scheduler
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(st store.Store, audit AuditLister, sched *scheduler.Scheduler, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{store: st, audit: audit, sched: sched, logger: logger}
}

// Status returns backend and scheduler health.
// GET /api/admin/status
func (h *AdminHandler) Status(c *gin.Context) {
	resp := gin.H{"store_mode": h.store.Mode(), "store_ok": true}
	if err := h.store.Ping(c.Request.Context()); err != nil {
		resp["store_ok"] = false
		resp["store_error"] = err.Error()
	}
	resp["scheduler_tasks"] = h.sched.Tasks()
	c.JSON(http.StatusOK, resp)
}

// ListSchedulerTasks returns names of all registered ticker tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.ListTickers()})
}

// RunTask runs a scheduler task immediately.
// POST /api/admin/scheduler/:name/run
func (h *AdminHandler) RunTask(c *gin.Context) {
	h.runTask(c, c.Param("name"))
}

func (h *AdminHandler) runTask(c *gin.Context, name string) {
	if err := h.sched.RunNow(c.Request.Context(), name); err != nil {
		if errors.Is(err, scheduler.ErrUnknownTask) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	h.logger.Info("admin ran task", zap.String("task", name))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// RefreshRanking rebuilds the leaderboard now.
// POST /api/admin/ranking/refresh
func (h *AdminHandler) RefreshRanking(c *gin.Context) {
	h.runTask(c, ranking.TaskName)
}

// ListAudit returns recent audit entries.
// GET /api/admin/audit?actor=NAME&quest_id=N&limit=N
func (h *AdminHandler) ListAudit(c *gin.Context) {
	f := store.AuditFilter{Actor: c.Query("actor")}
	var ok bool
	if f.Limit, ok = queryInt(c, "limit", 0); !ok {
		return
	}
	qid, ok := queryInt(c, "quest_id", 0)
	if !ok {
		return
	}
	f.QuestID = int64(qid)
	list, err := h.audit.ListAudit(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": list})
}
