package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/cache"
	"github.com/questboard/questboard/config"
	"github.com/questboard/questboard/game/reward"
	mw "github.com/questboard/questboard/middleware"
	"github.com/questboard/questboard/store"
	"go.uber.org/zap"
)

// AuthHandler handles sign-in by display name. Names are identities; there
// is no password.
type AuthHandler struct {
	store   store.Store
	cache   cache.Cache
	sec     config.SecurityConfig
	rewards *reward.Engine
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(st store.Store, c cache.Cache, sec config.SecurityConfig, rewards *reward.Engine, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{store: st, cache: c, sec: sec, rewards: rewards, logger: logger}
}

type loginRequest struct {
	Name string `json:"name" binding:"required"`
}

// Login handles POST /api/auth/login.
// The adventurer is created on first sign-in.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	name, err := store.ValidName(req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	adv, err := h.store.GetOrCreateAdventurer(c.Request.Context(), name)
	if err != nil {
		respondError(c, err)
		return
	}
	token, err := h.issue(c, adv.Name)
	if err != nil {
		return
	}
	c.Set(mw.AdventurerKey, adv.Name)
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"adventurer": adventurerView(adv, h.rewards.Curve()),
	})
}

func (h *AuthHandler) issue(c *gin.Context, name string) (string, error) {
	token, jti, err := mw.GenerateToken(name, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		h.logger.Error("token generation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return "", err
	}
	if err := mw.StartSession(c.Request.Context(), h.cache, jti, name, h.sec.JWTTTLH); err != nil {
		h.logger.Error("session store failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return "", err
	}
	return token, nil
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	_ = mw.EndSession(c.Request.Context(), h.cache, mw.GetTokenID(c))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	name := mw.GetAdventurer(c)
	_ = mw.EndSession(c.Request.Context(), h.cache, mw.GetTokenID(c))
	token, err := h.issue(c, name)
	if err != nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
