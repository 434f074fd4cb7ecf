package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Status reports server and database reachability.
func Status(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success":  false,
				"message":  "Database connection failed",
				"database": false,
				"server":   true,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"message":  "All systems operational",
			"database": true,
			"server":   true,
		})
	}
}
