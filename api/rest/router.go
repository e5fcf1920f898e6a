package rest

import (
	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/cache"
	"github.com/questboard/questboard/config"
	mw "github.com/questboard/questboard/middleware"
	"go.uber.org/zap"
)

// Handlers bundles every handler mounted under /api. A nil Admin leaves the
// admin routes unmounted.
type Handlers struct {
	Auth       *AuthHandler
	Quests     *QuestHandler
	Board      *BoardHandler
	Adventurer *AdventurerHandler
	Ranking    *RankingHandler
	Templates  *TemplateHandler
	Resources  *ResourceHandler
	Admin      *AdminHandler
}

// Register mounts the API routes on r.
func Register(r gin.IRouter, h Handlers, cfg *config.Config, c cache.Cache, logger *zap.Logger) {
	api := r.Group("/api")
	auth := mw.Auth(cfg.Security, c)

	authG := api.Group("/auth")
	authG.POST("/login", h.Auth.Login)
	authG.POST("/logout", auth, h.Auth.Logout)
	authG.POST("/refresh", auth, h.Auth.Refresh)

	// Reads are public; every write is made by a signed-in adventurer.
	api.GET("/quests", h.Quests.List)
	api.GET("/quests/:id", h.Quests.Get)
	api.GET("/quests/:id/comments", h.Quests.Comments)
	api.GET("/board", h.Board.Board)
	api.GET("/schedule", h.Board.Schedule)
	api.GET("/summary", h.Board.Summary)
	api.GET("/adventurers", h.Adventurer.List)
	api.GET("/adventurers/:name", h.Adventurer.Get)
	api.GET("/ranking", h.Ranking.Top)
	api.GET("/ranking/feed", h.Ranking.Feed)
	api.GET("/templates", h.Templates.List)
	api.GET("/templates/:id", h.Templates.Get)
	api.GET("/resources", h.Resources.List)
	api.GET("/resources/categories", h.Resources.Categories)
	api.GET("/resources/tags", h.Resources.Tags)
	api.GET("/resources/:id", h.Resources.Get)

	authed := api.Group("", auth)
	authed.GET("/me", h.Adventurer.Me)
	authed.POST("/quests", h.Quests.Create)
	authed.PUT("/quests/:id", h.Quests.Edit)
	authed.POST("/quests/:id/claim", h.Quests.Claim)
	authed.POST("/quests/:id/accept", h.Quests.Accept)
	authed.PATCH("/quests/:id/status", h.Quests.SetStatus)
	authed.PATCH("/quests/:id/assignee", h.Quests.Assign)
	authed.POST("/quests/:id/comments", h.Quests.AddComment)
	authed.POST("/templates", h.Templates.Create)
	authed.PUT("/templates/:id", h.Templates.Update)
	authed.DELETE("/templates/:id", h.Templates.Delete)
	authed.POST("/resources", h.Resources.Create)
	authed.PUT("/resources/:id", h.Resources.Update)
	authed.POST("/resources/:id/open", h.Resources.Open)
	authed.POST("/resources/:id/favorite", h.Resources.ToggleFavorite)
	authed.DELETE("/resources/:id", h.Resources.Delete)

	if h.Admin == nil {
		return
	}
	admin := api.Group("/admin")
	if len(cfg.Server.AdminIPs) > 0 {
		admin.Use(mw.IPWhitelist(cfg.Server.AdminIPs, logger))
	}
	admin.Use(mw.AdminAuth(cfg.Server.AdminKey))
	admin.GET("/status", h.Admin.Status)
	admin.GET("/scheduler", h.Admin.ListSchedulerTasks)
	admin.POST("/scheduler/:name/run", h.Admin.RunTask)
	admin.POST("/ranking/refresh", h.Admin.RefreshRanking)
	admin.GET("/audit", h.Admin.ListAudit)
}
