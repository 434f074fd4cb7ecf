package middlewares

import (
	"net/http"
	"strings"

	"canteen-service/utils"

	"github.com/gin-gonic/gin"
)

const UsernameKey = "username"

// AuthMiddleware requires a bearer token and stores its username in the
// gin context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Missing bearer token"})
			return
		}

		username, err := utils.ParseToken(secret, token)
		if err != nil {
			Logger(c).Info("rejected token", "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token"})
			return
		}

		c.Set(UsernameKey, username)
		c.Next()
	}
}

// Username returns the authenticated username, if any.
func Username(c *gin.Context) (string, bool) {
	return c.GetString(UsernameKey), c.GetString(UsernameKey) != ""
}
