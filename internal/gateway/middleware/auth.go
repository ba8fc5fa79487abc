package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"inventra-system/internal/ledger"
	"inventra-system/internal/utils"
)

const actorKey = "actor"

// JWTAuth validates the bearer token and stores the resulting ledger actor on
// the gin context.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "missing or malformed authorization header",
			})
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid or expired token",
			})
			return
		}

		c.Set(actorKey, ledger.Actor{
			ID:       claims.UserID,
			Username: claims.Username,
			Role:     claims.Role,
			BrandID:  claims.BrandID,
		})
		c.Next()
	}
}

// ActorFrom returns the authenticated actor set by JWTAuth.
func ActorFrom(c *gin.Context) (ledger.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return ledger.Actor{}, false
	}
	actor, ok := v.(ledger.Actor)
	return actor, ok
}

// SetActor is used by handler tests to inject an actor without a token.
func SetActor(c *gin.Context, actor ledger.Actor) {
	c.Set(actorKey, actor)
}
