package api

import (
	domain "github.com/example/pulsechat/domain/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	if m.verifier != nil {
		app.Use("/ws", AuthMiddleware(m.verifier))
	}
	app.Get("/ws", websocket.New(m.handleWebSocket))

	v1 := app.Group("/api/v1")
	v1.Get("/presence", m.presenceHandler)
	v1.Get("/presence/:id", m.userPresenceHandler)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	ctx := c.UserContext()

	status := "healthy"
	modules := make(map[string]ModuleHealth, len(m.checks)+1)
	report := func(name string, h ModuleHealth) {
		modules[name] = h
		if !h.Healthy {
			status = "degraded"
		}
	}

	self := m.Health(ctx)
	report(m.Name(), ModuleHealth{Healthy: self.Healthy, Message: self.Message, Details: self.Details})
	for name, check := range m.checks {
		h := check.Health(ctx)
		report(name, ModuleHealth{Healthy: h.Healthy, Message: h.Message, Details: h.Details})
	}

	code := fiber.StatusOK
	if status != "healthy" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(HealthResponse{
		Status:  status,
		Modules: modules,
	})
}

// presenceHandler handles GET /api/v1/presence.
func (m *APIModule) presenceHandler(c *fiber.Ctx) error {
	online := m.hub.Snapshot()
	return c.JSON(PresenceResponse{
		OnlineUsers: online,
		Online:      len(online),
		Connections: m.hub.ConnectionCount(),
	})
}

// userPresenceHandler handles GET /api/v1/presence/:id. Online comes from
// the live registry; last_seen from the presence mirror, which may lag.
func (m *APIModule) userPresenceHandler(c *fiber.Ctx) error {
	userID := c.Params("id")
	if err := domain.ValidateUserID(userID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	resp := UserPresenceResponse{
		UserID: userID,
		Online: m.hub.IsOnline(userID),
	}

	mirrored, found, err := m.presence.GetPresence(c.UserContext(), userID)
	if err != nil {
		if !resp.Online {
			return fiber.NewError(fiber.StatusServiceUnavailable, "presence store unavailable")
		}
		m.logger.Warn("Presence lookup failed", "userID", userID, "error", err)
	}
	if found {
		lastSeen := mirrored.LastSeen.UTC()
		resp.LastSeen = &lastSeen
	}

	if !resp.Online && resp.LastSeen == nil {
		return fiber.NewError(fiber.StatusNotFound, "user not found")
	}
	return c.JSON(resp)
}
