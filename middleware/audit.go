package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/audit"
)

const questRoutePrefix = "/api/quests/:id"

// Audit records every mutating request once its handler has finished.
// Reads are not audited.
func Audit(svc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		action := c.Request.Method + " " + c.FullPath()
		if c.FullPath() == "" {
			action = c.Request.Method + " " + c.Request.URL.Path
		}
		entry := audit.Entry{
			TraceID:    GetTraceID(c),
			Actor:      GetAdventurer(c),
			Action:     action,
			Response:   gin.H{"status": c.Writer.Status()},
			IP:         c.ClientIP(),
			DurationMs: int(time.Since(start).Milliseconds()),
		}
		if strings.HasPrefix(c.FullPath(), questRoutePrefix) {
			if id, err := strconv.ParseInt(c.Param("id"), 10, 64); err == nil && id > 0 {
				entry.QuestID = &id
			}
		}
		if len(c.Errors) > 0 {
			entry.Error = c.Errors.String()
		}
		svc.Log(entry)
	}
}
