package ws

import (
	"github.com/gin-gonic/gin"

	ws "codeberg.org/codeshare/server/internal/ws"
)

func RegisterRoutes(router *gin.RouterGroup, hub *ws.Hub) {
	router.GET("/ws", WebSocketHandler(hub))
}
