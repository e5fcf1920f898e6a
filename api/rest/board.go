package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/game/board"
	"github.com/questboard/questboard/game/quest"
	"github.com/questboard/questboard/store"
)

// BoardHandler serves the read-only views over the whole quest list.
type BoardHandler struct {
	quests *quest.Service
	now    func() time.Time
}

// NewBoardHandler creates a BoardHandler.
func NewBoardHandler(quests *quest.Service) *BoardHandler {
	return &BoardHandler{quests: quests, now: time.Now}
}

// SetClock replaces the source of "today".
func (h *BoardHandler) SetClock(now func() time.Time) { h.now = now }

// Board handles GET /api/board.
func (h *BoardHandler) Board(c *gin.Context) {
	list, err := h.quests.List(c.Request.Context(), store.QuestFilter{})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": board.GroupByStatus(list)})
}

// Schedule handles GET /api/schedule?from=YYYY-MM-DD&days=N. from defaults
// to today.
func (h *BoardHandler) Schedule(c *gin.Context) {
	from := h.now().UTC()
	if s := c.Query("from"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			badRequest(c, "invalid from")
			return
		}
		from = t
	}
	days, ok := queryInt(c, "days", board.DefaultWindowDays)
	if !ok {
		return
	}
	list, err := h.quests.List(c.Request.Context(), store.QuestFilter{})
	if err != nil {
		respondError(c, err)
		return
	}
	entries := board.ScheduleRange(list)
	c.JSON(http.StatusOK, gin.H{
		"from":    from.Format(time.DateOnly),
		"entries": entries,
		"bars":    board.Window(entries, from, days),
	})
}

// Summary handles GET /api/summary.
func (h *BoardHandler) Summary(c *gin.Context) {
	list, err := h.quests.List(c.Request.Context(), store.QuestFilter{})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, board.Summarize(list, h.now()))
}
