package sync

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler upgrades to a WebSocket subscribed to hub events. A token in
// the "token" query parameter also subscribes the socket to that user's
// private events.
func WSHandler(hub *Hub, auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID string
		if tok := c.Query("token"); tok != "" && auth != nil {
			uid, err := auth(tok)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			userID = uid
		}

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}

		// gorilla allows one writer; greet before the hub can write
		_ = ws.WriteMessage(websocket.TextMessage, hub.welcomeMessage("websocket", userID))
		hub.AddWS(ws, userID)
		hub.log.Debug("ws client connected", map[string]any{"user_id": userID})

		// incoming messages are ignored; reading detects the close
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				break
			}
		}

		hub.RemoveWS(ws)
		hub.log.Debug("ws client disconnected", map[string]any{"user_id": userID})
	}
}
