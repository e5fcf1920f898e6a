package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/game/activity"
	"github.com/questboard/questboard/game/quest"
	"github.com/questboard/questboard/game/ranking"
	"github.com/questboard/questboard/game/reward"
	mw "github.com/questboard/questboard/middleware"
	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
	"go.uber.org/zap"
)

// QuestHandler serves the quest lifecycle and the per-quest activity log.
type QuestHandler struct {
	quests *quest.Service
	log    *activity.Log
	board  *ranking.Leaderboard
	logger *zap.Logger
}

// NewQuestHandler creates a QuestHandler. board may be nil.
func NewQuestHandler(quests *quest.Service, log *activity.Log, board *ranking.Leaderboard, logger *zap.Logger) *QuestHandler {
	return &QuestHandler{quests: quests, log: log, board: board, logger: logger}
}

// List handles GET /api/quests?status=S&assignee=NAME.
// assignee=- selects unclaimed quests.
func (h *QuestHandler) List(c *gin.Context) {
	var f store.QuestFilter
	if s := c.Query("status"); s != "" {
		st, ok := model.ParseStatus(s)
		if !ok {
			badRequest(c, "invalid status")
			return
		}
		f.Status = st
	}
	if a, ok := c.GetQuery("assignee"); ok {
		if a == "-" {
			a = ""
		}
		f.Assignee = &a
	}
	list, err := h.quests.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quests": list})
}

type createQuestRequest struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	XPReward         *int    `json:"xp_reward"`
	Priority         int     `json:"priority"`
	EstimatedMinutes *int    `json:"estimated_minutes"`
	StartDate        *string `json:"start_date"`
	DueDate          *string `json:"due_date"`
	TemplateID       int64   `json:"template_id"`
}

// Create handles POST /api/quests. The caller becomes the creator.
func (h *QuestHandler) Create(c *gin.Context) {
	var req createQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		respondError(c, err)
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	q, err := h.quests.Create(c.Request.Context(), quest.CreateInput{
		Title:            req.Title,
		Description:      req.Description,
		XPReward:         req.XPReward,
		Priority:         req.Priority,
		EstimatedMinutes: req.EstimatedMinutes,
		StartDate:        start,
		DueDate:          due,
		Creator:          mw.GetAdventurer(c),
		TemplateID:       req.TemplateID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"quest": q})
}

// Get handles GET /api/quests/:id.
func (h *QuestHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, err := h.quests.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": q})
}

type editQuestRequest struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Priority         int       `json:"priority"`
	EstimatedMinutes int       `json:"estimated_minutes"`
	StartDate        *string   `json:"start_date"`
	DueDate          *string   `json:"due_date"`
	UpdatedAt        time.Time `json:"updated_at" binding:"required"`
}

// Edit handles PUT /api/quests/:id. updated_at must echo the version the
// client last read.
func (h *QuestHandler) Edit(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req editQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		respondError(c, err)
		return
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		respondError(c, err)
		return
	}
	q, err := h.quests.Edit(c.Request.Context(), id, quest.EditInput{
		Title:            req.Title,
		Description:      req.Description,
		Priority:         req.Priority,
		EstimatedMinutes: req.EstimatedMinutes,
		StartDate:        start,
		DueDate:          due,
		Actor:            mw.GetAdventurer(c),
	}, req.UpdatedAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": q})
}

type claimRequest struct {
	Adventurer string `json:"adventurer"`
}

// Claim handles POST /api/quests/:id/claim. An empty body claims the quest
// for the caller.
func (h *QuestHandler) Claim(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req claimRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	name := strings.TrimSpace(req.Adventurer)
	if name == "" {
		name = mw.GetAdventurer(c)
	}
	q, err := h.quests.Claim(c.Request.Context(), id, name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": q})
}

// Accept handles POST /api/quests/:id/accept for the caller.
func (h *QuestHandler) Accept(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	q, err := h.quests.Accept(c.Request.Context(), id, mw.GetAdventurer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": q})
}

type statusRequest struct {
	Status    string    `json:"status" binding:"required"`
	UpdatedAt time.Time `json:"updated_at" binding:"required"`
}

// SetStatus handles PATCH /api/quests/:id/status. The response carries the
// award when the move completed the quest for the first time.
func (h *QuestHandler) SetStatus(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, ok := model.ParseStatus(req.Status)
	if !ok {
		badRequest(c, "invalid status")
		return
	}
	q, award, err := h.quests.SetStatus(c.Request.Context(), id, st, mw.GetAdventurer(c), req.UpdatedAt)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"quest": q}
	if award != nil {
		resp["award"] = awardView(award)
		if h.board != nil {
			h.board.Record(c.Request.Context(), award)
		}
	}
	c.JSON(http.StatusOK, resp)
}

func awardView(a *reward.Award) gin.H {
	return gin.H{
		"adventurer": a.Adventurer,
		"xp":         a.XP,
		"total_xp":   a.TotalXP,
		"level":      a.After,
		"leveled_up": a.LeveledUp(),
	}
}

type assignRequest struct {
	Assignee  string    `json:"assignee"`
	UpdatedAt time.Time `json:"updated_at" binding:"required"`
}

// Assign handles PATCH /api/quests/:id/assignee. An empty assignee
// unassigns the quest.
func (h *QuestHandler) Assign(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	q, err := h.quests.Reassign(c.Request.Context(), id, req.Assignee, req.UpdatedAt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quest": q})
}

// Comments handles GET /api/quests/:id/comments.
func (h *QuestHandler) Comments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	list, err := h.log.ListComments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": list})
}

type commentRequest struct {
	Text       string `json:"text"`
	Attachment string `json:"attachment"`
}

// AddComment handles POST /api/quests/:id/comments.
func (h *QuestHandler) AddComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cm, err := h.log.AddComment(c.Request.Context(), id, mw.GetAdventurer(c), req.Text, req.Attachment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": cm})
}
