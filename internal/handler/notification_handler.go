package handler

import (
	"tarik-chat-be/internal/pkg/logger"
	"tarik-chat-be/internal/pkg/serverutils"
	internalWS "tarik-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type NotificationHandler struct {
	auth   serverutils.TokenAuthenticator
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewNotificationHandler(auth serverutils.TokenAuthenticator, hub *internalWS.Hub, log logger.ILogger) *NotificationHandler {
	return &NotificationHandler{
		auth:   auth,
		hub:    hub,
		logger: log,
	}
}

// Upgrade authenticates the handshake. Browsers cannot set headers on a
// websocket request, so the token may also come from the query string.
func (h *NotificationHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	tokenStr := serverutils.BearerToken(c)
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Missing token (query 'token' or header 'Authorization')"))
	}

	user, err := h.auth.Authenticate(c.UserContext(), tokenStr)
	if err != nil {
		h.logger.Warn("NotificationHandler", "Invalid token in websocket handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(401, "Invalid token"))
	}

	c.Locals(serverutils.LocalUserID, user.Id)
	return c.Next()
}

// ServeWs streams the user's notifications until the socket closes.
func (h *NotificationHandler) ServeWs(conn *websocket.Conn) {
	userID, _ := conn.Locals(serverutils.LocalUserID).(string)
	h.logger.Info("NotificationHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
	internalWS.ServeWs(h.hub, conn, userID)
	h.logger.Info("NotificationHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
}

func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notif := router.Group("/notification/v1")
	notif.Get("/ws", h.Upgrade, websocket.New(h.ServeWs))
}
