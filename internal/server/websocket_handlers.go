package server

import (
	"threadswap/internal/middleware"
	"threadswap/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketAuth authenticates the upgrade request. Browsers cannot attach an
// Authorization header to a WebSocket handshake, so the JWT arrives as a
// token query parameter instead.
func (s *Server) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Token required"))
	}

	userID, err := middleware.ParseUserToken(token)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired token"))
	}

	c.Locals("userID", userID)
	return c.Next()
}

// WebsocketHandler handles GET /ws, the one-way swap notification stream.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.Close()
			return
		}
		uid, ok := userIDVal.(uint)
		if !ok {
			_ = conn.Close()
			return
		}

		if s.hub == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"notifications unavailable"}`))
			_ = conn.Close()
			return
		}

		// Register connection with scaling guardrails
		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed", "user_id", uid, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		defer s.hub.UnregisterClient(client)

		// Start pumps; the read pump blocks until the peer disconnects
		go client.WritePump()
		client.ReadPump()
	})
}
