package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/example/pulsechat/modules/api"
	"github.com/example/pulsechat/modules/broadcast"
	"github.com/example/pulsechat/modules/chat"
	"github.com/example/pulsechat/modules/store"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== pulsechat - presence and direct messaging over WebSocket ===")

	cfg := LoadConfig()

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// Create modules
	storeModule := store.NewModule(cfg.Store, logger.WithModule("store"))
	broadcastModule := broadcast.NewModule()
	chatModule := chat.NewModule(cfg.Chat, logger.WithModule("chat"))
	apiModule := api.NewModule(cfg.API, logger.WithModule("api"))

	// The hub is shared in-process state, not a ServiceContainer service.
	chatModule.SetRegistry(broadcastModule.GetHub())
	apiModule.SetHub(broadcastModule.GetHub())
	apiModule.SetChat(chatModule)
	apiModule.AddHealthCheck(storeModule.Name(), storeModule)
	apiModule.AddHealthCheck(broadcastModule.Name(), broadcastModule)

	// Register modules with the framework.
	// - store: message persistence + presence mirror (ServiceProviderModule + EventConsumerModule)
	// - broadcast: connection registry and rooms
	// - chat: presence and relays (depends on store, emits presence events)
	// - api: Fiber HTTP/WebSocket transport (depends on store for mirrored presence)
	app.Register(storeModule)
	app.Register(broadcastModule)
	app.Register(chatModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg Config) {
	redisAddr := cfg.Store.RedisAddr
	if redisAddr == "" {
		redisAddr = "disabled"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Printf("  - Message store: SQLite (%s)", cfg.Store.DBPath)
	log.Printf("  - Presence cache: Redis (%s)", redisAddr)
	log.Printf("  - Upgrade auth: %t", cfg.API.JWTSecret != "")
	log.Println("")
	log.Printf("HTTP Endpoints (http://localhost:%s):", cfg.API.Port)
	log.Println("  GET    /health            - Module health")
	log.Println("  GET    /api/v1/presence   - Online users and connection count")
	log.Println("  GET    /api/v1/presence/:id - Live status and last seen of one user")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", cfg.API.Port)
	log.Println(`  Frames: {"event": "<name>", "data": <payload>}`)
	log.Println("  Client events: user_online, join_room, leave_room, send_message,")
	log.Println("                 typing, stop_typing, mark_as_read")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
