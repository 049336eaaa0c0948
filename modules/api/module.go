package api

import (
	"context"
	"fmt"
	"log"
	"time"

	domain "github.com/example/pulsechat/domain/chat"
	"github.com/example/pulsechat/modules/broadcast"
	"github.com/example/pulsechat/modules/chat"
	"github.com/example/pulsechat/modules/store"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	nanoid "github.com/jaevor/go-nanoid"
)

// Config holds the HTTP and WebSocket settings.
type Config struct {
	Port               string
	CORSAllowedOrigins string
	// JWTSecret enables the upgrade guard when set.
	JWTSecret     string
	SendQueueSize int
}

// ChatProvider exposes the chat service once the chat module has started.
type ChatProvider interface {
	Service() *chat.Service
}

// PresenceLookup reads the mirrored presence of a single user.
type PresenceLookup interface {
	GetPresence(ctx context.Context, userID string) (*domain.Presence, bool, error)
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	app       *fiber.App
	config    Config
	hub       *broadcast.Hub
	chat      ChatProvider
	presence  PresenceLookup
	verifier  *TokenVerifier
	newHandle func() string
	checks    map[string]mono.HealthCheckableModule
	logger    types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(config Config, logger types.Logger) *APIModule {
	if config.Port == "" {
		config.Port = "3000"
	}
	if config.CORSAllowedOrigins == "" {
		config.CORSAllowedOrigins = "http://localhost:3000,http://localhost:8080"
	}
	if config.SendQueueSize <= 0 {
		config.SendQueueSize = broadcast.DefaultQueueSize
	}
	return &APIModule{
		config: config,
		checks: make(map[string]mono.HealthCheckableModule),
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"store"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "store" {
		m.presence = store.NewAdapter(container)
	}
}

// SetHub sets the broadcast hub (called from main.go).
func (m *APIModule) SetHub(hub *broadcast.Hub) {
	m.hub = hub
}

// SetChat sets the chat module (called from main.go).
func (m *APIModule) SetChat(provider ChatProvider) {
	m.chat = provider
}

// AddHealthCheck includes a module in the /health report.
func (m *APIModule) AddHealthCheck(name string, module mono.HealthCheckableModule) {
	m.checks[name] = module
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.hub == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}
	if m.chat == nil {
		return fmt.Errorf("chat dependency not set")
	}
	if m.presence == nil {
		return fmt.Errorf("store dependency not set")
	}

	gen, err := nanoid.Standard(21)
	if err != nil {
		return fmt.Errorf("failed to create handle generator: %w", err)
	}
	m.newHandle = gen

	if m.config.JWTSecret != "" {
		m.verifier = NewTokenVerifier(m.config.JWTSecret)
	}

	m.app = m.newApp()

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.config.Port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] HTTP server started on :%s (auth=%t)", m.config.Port, m.verifier != nil)
	return nil
}

func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "pulsechat",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			return c.Get(fiber.HeaderUpgrade) == "websocket"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.config.CORSAllowedOrigins,
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.setupRoutes(app)
	return app
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":         m.config.Port,
			"auth_enabled": m.verifier != nil,
		},
	}
}

// errorHandler handles errors globally.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
