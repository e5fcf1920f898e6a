package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
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
	"github.com/questboard/questboard/logging"
	mw "github.com/questboard/questboard/middleware"
	"github.com/questboard/questboard/scheduler"
	"github.com/questboard/questboard/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	logger, err := logging.New(cfg.Server)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}
	if cfg.Security.JWTSecret == "" {
		logger.Fatal("security.jwt_secret must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Store ----
	st, err := store.Open(cfg.Database, logger)
	if err != nil {
		logger.Fatal("store", zap.Error(err))
	}
	defer st.Close()

	// ---- Audit ----
	auditSvc := audit.New(st, logger)
	defer auditSvc.Stop(context.Background())

	// ---- Cache ----
	c, err := cache.NewCache(cfg.Cache)
	if err != nil {
		logger.Fatal("cache", zap.Error(err))
	}
	defer c.Close()
	logger.Info("cache initialized", zap.Bool("redis", cfg.Cache.RedisAddr != ""))

	// ---- Services ----
	rewards := reward.NewEngine(cfg.Reward.LevelBase, logger)
	quests := quest.NewService(st, rewards, cfg.Quest, logger)
	comments := activity.NewLog(st, logger)
	board := ranking.New(st, c, rewards.Curve(), cfg.Ranking.Top, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()
	if cfg.Ranking.RefreshCron != "" {
		if err := sched.AddCron(ranking.TaskName, cfg.Ranking.RefreshCron, board.Task); err != nil {
			logger.Fatal("ranking.refresh_cron", zap.Error(err))
		}
	} else {
		sched.AddTicker(ranking.TaskName, cfg.Ranking.RefreshInterval, board.Task)
	}
	if cfg.Quest.DigestCron != "" {
		if err := sched.AddCron(quest.DigestTaskName, cfg.Quest.DigestCron, quests.DigestTask); err != nil {
			logger.Fatal("quest.digest_cron", zap.Error(err))
		}
	}
	if err := sched.RunNow(ctx, ranking.TaskName); err != nil {
		logger.Warn("initial ranking refresh failed", zap.Error(err))
	}

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))
	r.Use(mw.Audit(auditSvc))

	r.GET("/health", func(ctx *gin.Context) {
		if err := st.Ping(ctx.Request.Context()); err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": st.Mode()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "store": st.Mode()})
	})

	apirest.Register(r, apirest.Handlers{
		Auth:       apirest.NewAuthHandler(st, c, cfg.Security, rewards, logger),
		Quests:     apirest.NewQuestHandler(quests, comments, board, logger),
		Board:      apirest.NewBoardHandler(quests),
		Adventurer: apirest.NewAdventurerHandler(st, rewards, board),
		Ranking:    apirest.NewRankingHandler(board, logger),
		Templates:  apirest.NewTemplateHandler(st),
		Resources:  apirest.NewResourceHandler(resource.NewService(st, logger)),
		Admin:      apirest.NewAdminHandler(st, st, sched, logger),
	}, cfg, c, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", st.Mode()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
}
