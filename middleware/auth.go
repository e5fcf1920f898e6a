package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/questboard/questboard/cache"
	"github.com/questboard/questboard/config"
)

const (
	AdventurerKey = "adventurer"
	TokenIDKey    = "token_id"
)

const cacheTimeout = 2 * time.Second

// SessionKey is the cache key holding the adventurer name for a token ID.
func SessionKey(jti string) string { return "session:" + jti }

// StartSession records a freshly issued token as a live session.
func StartSession(ctx context.Context, c cache.Cache, jti, name string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	return c.Set(ctx, SessionKey(jti), name, ttl)
}

// EndSession revokes a token before it expires.
func EndSession(ctx context.Context, c cache.Cache, jti string) error {
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	return c.Del(ctx, SessionKey(jti))
}

// Auth validates the Bearer JWT token and checks the session cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// Check session still valid in cache.
		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), cacheTimeout)
		defer cancel()
		name, err := c.Get(cacheCtx, SessionKey(claims.ID))
		if err != nil || name != claims.Name {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(AdventurerKey, claims.Name)
		ctx.Set(TokenIDKey, claims.ID)
		ctx.Next()
	}
}

// GetAdventurer retrieves the authenticated adventurer name from the Gin
// context, or "" when the request is anonymous.
func GetAdventurer(c *gin.Context) string {
	return c.GetString(AdventurerKey)
}

// GetTokenID retrieves the session token ID from the Gin context.
func GetTokenID(c *gin.Context) string {
	return c.GetString(TokenIDKey)
}
