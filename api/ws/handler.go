package ws

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/codeshare/server/internal/errors"
	"codeberg.org/codeshare/server/internal/logger"
	ws "codeberg.org/codeshare/server/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     ws.CheckOrigin,
}

// handles WebSocket connections for real-time collaboration. a fresh
// connection belongs to no session; it creates or joins one through
// create_session / join_session events.
func WebSocketHandler(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ipAddress := c.ClientIP()

		clientID, err := ws.GenerateClientID()
		if err != nil {
			errors.InternalError(c, "failed to generate client ID", err)
			return
		}

		// upgrade HTTP connection to WebSocket
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.ErrorErr(err, "failed to upgrade connection",
				"ip", ipAddress,
			)

			return
		}

		client := ws.NewClient(clientID, ipAddress, conn, hub)

		hub.Register <- client

		go client.WritePump()
		go client.ReadPump()

		logger.Info("websocket connection established",
			"client_id", clientID,
			"ip", ipAddress,
		)
	}
}
