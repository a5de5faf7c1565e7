package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ws "codeberg.org/codeshare/server/internal/ws"
)

// returns the server health status with live collaboration counts
func Handler(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, Response{
			Status:      "healthy",
			Service:     "codeshare",
			Sessions:    hub.RoomCount(),
			Connections: hub.ClientCount(),
		})
	}
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}
