package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/game/ranking"
	"github.com/questboard/questboard/game/reward"
	mw "github.com/questboard/questboard/middleware"
	"github.com/questboard/questboard/model"
	"github.com/questboard/questboard/store"
)

type adventurerResponse struct {
	Name      string       `json:"name"`
	TotalXP   int64        `json:"total_xp"`
	Level     reward.Level `json:"level"`
	CreatedAt time.Time    `json:"created_at"`
}

func adventurerView(a *model.Adventurer, curve reward.Curve) adventurerResponse {
	return adventurerResponse{
		Name:      a.Name,
		TotalXP:   a.TotalXP,
		Level:     curve.LevelFor(a.TotalXP),
		CreatedAt: a.CreatedAt,
	}
}

// AdventurerHandler exposes adventurer profiles with their derived level.
type AdventurerHandler struct {
	store   store.Store
	rewards *reward.Engine
	board   *ranking.Leaderboard
}

// NewAdventurerHandler creates an AdventurerHandler.
func NewAdventurerHandler(st store.Store, rewards *reward.Engine, board *ranking.Leaderboard) *AdventurerHandler {
	return &AdventurerHandler{store: st, rewards: rewards, board: board}
}

// List handles GET /api/adventurers?limit=N.
func (h *AdventurerHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	list, err := h.store.ListAdventurers(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]adventurerResponse, 0, len(list))
	for i := range list {
		out = append(out, adventurerView(&list[i], h.rewards.Curve()))
	}
	c.JSON(http.StatusOK, gin.H{"adventurers": out})
}

// Get handles GET /api/adventurers/:name.
func (h *AdventurerHandler) Get(c *gin.Context) {
	h.respond(c, c.Param("name"))
}

// Me handles GET /api/me.
func (h *AdventurerHandler) Me(c *gin.Context) {
	h.respond(c, mw.GetAdventurer(c))
}

func (h *AdventurerHandler) respond(c *gin.Context, name string) {
	adv, err := h.store.GetAdventurer(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := gin.H{"adventurer": adventurerView(adv, h.rewards.Curve())}
	if h.board != nil {
		if pos, err := h.board.Position(c.Request.Context(), adv.Name); err == nil {
			resp["rank"] = pos
		}
	}
	c.JSON(http.StatusOK, resp)
}
