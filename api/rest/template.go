package rest

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
)

// TemplateHandler manages quest templates.
type TemplateHandler struct {
	store store.Store
}

// NewTemplateHandler creates a TemplateHandler.
func NewTemplateHandler(st store.Store) *TemplateHandler {
	return &TemplateHandler{store: st}
}

type templateRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	Priority         int    `json:"priority"`
	EstimatedMinutes *int   `json:"estimated_minutes"`
}

func (r *templateRequest) toModel() (*model.QuestTemplate, error) {
	t := &model.QuestTemplate{
		Title:            strings.TrimSpace(r.Title),
		Description:      r.Description,
		Priority:         r.Priority,
		EstimatedMinutes: model.DefaultEstimatedMinutes,
	}
	if t.Priority == 0 {
		t.Priority = model.DefaultPriority
	}
	if r.EstimatedMinutes != nil {
		t.EstimatedMinutes = *r.EstimatedMinutes
	}
	switch {
	case t.Title == "":
		return nil, store.Invalid("title is required")
	case utf8.RuneCountInString(t.Title) > 200:
		return nil, store.Invalid("title longer than 200 characters")
	case t.Priority < model.MinPriority || t.Priority > model.MaxPriority:
		return nil, store.Invalid("priority must be between %d and %d", model.MinPriority, model.MaxPriority)
	case t.EstimatedMinutes < 0:
		return nil, store.Invalid("estimated_minutes must not be negative")
	}
	return t, nil
}

// List handles GET /api/templates.
func (h *TemplateHandler) List(c *gin.Context) {
	list, err := h.store.ListTemplates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []model.QuestTemplate{}
	}
	c.JSON(http.StatusOK, gin.H{"templates": list})
}

// Create handles POST /api/templates.
func (h *TemplateHandler) Create(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := req.toModel()
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.store.CreateTemplate(c.Request.Context(), t); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"template": t})
}

// Get handles GET /api/templates/:id.
func (h *TemplateHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	t, err := h.store.GetTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": t})
}

// Update handles PUT /api/templates/:id.
func (h *TemplateHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	t, err := req.toModel()
	if err != nil {
		respondError(c, err)
		return
	}
	t.ID = id
	if err := h.store.UpdateTemplate(c.Request.Context(), t); err != nil {
		respondError(c, err)
		return
	}
	saved, err := h.store.GetTemplate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": saved})
}

// Delete handles DELETE /api/templates/:id.
func (h *TemplateHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.store.DeleteTemplate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
