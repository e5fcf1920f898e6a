package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/game/ranking"
	"go.uber.org/zap"
)

// RankingHandler handles leaderboard REST endpoints.
type RankingHandler struct {
	board  *ranking.Leaderboard
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(board *ranking.Leaderboard, logger *zap.Logger) *RankingHandler {
	return &RankingHandler{board: board, logger: logger}
}

// Top handles GET /api/ranking?limit=N.
func (h *RankingHandler) Top(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return
	}
	list, err := h.board.Top(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ranking": list})
}

// Feed handles GET /api/ranking/feed?limit=N.
func (h *RankingHandler) Feed(c *gin.Context) {
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	items, err := h.board.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Warn("feed read failed", zap.Error(err))
		items = []ranking.FeedItem{}
	}
	c.JSON(http.StatusOK, gin.H{"feed": items})
}
