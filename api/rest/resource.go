package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/game/resource"
	mw "github.com/questboard/questboard/middleware"
)

// ResourceHandler serves the guild library.
type ResourceHandler struct {
	resources *resource.Service
}

// NewResourceHandler creates a ResourceHandler.
func NewResourceHandler(resources *resource.Service) *ResourceHandler {
	return &ResourceHandler{resources: resources}
}

type resourceRequest struct {
	Title    string   `json:"title"`
	URL      string   `json:"url"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Memo     string   `json:"memo"`
}

func (r *resourceRequest) input() resource.Input {
	return resource.Input{
		Title:    r.Title,
		URL:      r.URL,
		Category: r.Category,
		Tags:     r.Tags,
		Memo:     r.Memo,
	}
}

// List handles GET /api/resources?q=&category=&tag=&favorites=.
func (h *ResourceHandler) List(c *gin.Context) {
	f := resource.Filter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Tags:     c.QueryArray("tag"),
	}
	if v := c.Query("favorites"); v != "" {
		fav, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "favorites must be true or false")
			return
		}
		f.FavoritesOnly = fav
	}
	list, err := h.resources.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": list})
}

// Categories handles GET /api/resources/categories.
func (h *ResourceHandler) Categories(c *gin.Context) {
	list, err := h.resources.Categories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

// Tags handles GET /api/resources/tags.
func (h *ResourceHandler) Tags(c *gin.Context) {
	list, err := h.resources.Tags(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": list})
}

func (h *ResourceHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.resources.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": r})
}

// Create handles POST /api/resources.
func (h *ResourceHandler) Create(c *gin.Context) {
	var req resourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := h.resources.Create(c.Request.Context(), req.input(), mw.GetAdventurer(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"resource": r})
}

// Update handles PUT /api/resources/:id.
func (h *ResourceHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req resourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	r, err := h.resources.Update(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": r})
}

// Open handles POST /api/resources/:id/open and counts a view.
func (h *ResourceHandler) Open(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.resources.Open(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": r})
}

// ToggleFavorite handles POST /api/resources/:id/favorite.
func (h *ResourceHandler) ToggleFavorite(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	r, err := h.resources.ToggleFavorite(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"resource": r})
}

// Delete handles DELETE /api/resources/:id.
func (h *ResourceHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.resources.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
