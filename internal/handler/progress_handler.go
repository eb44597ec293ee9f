package handler

import (
	"context"

	"medrag-be/internal/pkg/logger"
	"medrag-be/internal/pkg/serverutils"
	internalWS "medrag-be/internal/websocket"
	"medrag-be/pkg/apperror"
	"medrag-be/pkg/diagnosis"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type StatusReader interface {
	Status(ctx context.Context, sessionID string) (diagnosis.Status, error)
}

// ProgressHandler streams diagnosis progress frames over a websocket.
type ProgressHandler struct {
	hub         *internalWS.Hub
	jobs        StatusReader
	logger      logger.ILogger
	jwtSecret   string
	authEnabled bool
}

func NewProgressHandler(hub *internalWS.Hub, jobs StatusReader, log logger.ILogger, jwtSecret string, authEnabled bool) *ProgressHandler {
	return &ProgressHandler{
		hub:         hub,
		jobs:        jobs,
		logger:      log,
		jwtSecret:   jwtSecret,
		authEnabled: authEnabled,
	}
}

func (h *ProgressHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/diagnosis/:id/ws", h.ServeWs)
}

// ServeWs upgrades the connection after checking the session exists.
func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	if h.authEnabled {
		// Browsers cannot set headers on a websocket handshake, so the token may come as a query param
		tokenStr := c.Query("token")
		if tokenStr == "" {
			authHeader := c.Get("Authorization")
			if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
				tokenStr = authHeader[7:]
			}
		}
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Missing token (Query 'token' or Header 'Authorization')"))
		}
		if _, err := serverutils.ParseToken(tokenStr, h.jwtSecret); err != nil {
			h.logger.Warn("Hub", "Invalid token in websocket handshake", map[string]interface{}{"error": err.Error()})
			return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}
	}

	sessionID := c.Params("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		return apperror.Validation("invalid id", map[string]string{"id": "must be a valid UUID"})
	}
	if _, err := h.jobs.Status(c.UserContext(), sessionID); err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("Hub", "Progress stream opened", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(h.hub, conn, sessionID, func() (diagnosis.Status, error) {
			return h.jobs.Status(context.Background(), sessionID)
		})
		h.logger.Info("Hub", "Progress stream closed", map[string]interface{}{"session_id": sessionID})
	})(c)
}
