package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/example/presence-chat/config"
	"github.com/example/presence-chat/modules/activity"
	"github.com/example/presence-chat/modules/api"
	"github.com/example/presence-chat/modules/broadcast"
	"github.com/example/presence-chat/modules/chat"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Presence Chat - rooms, presence and typing over WebSocket ===")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// LOG_LEVEL=error quiets the framework; anything else logs at info.
	logLevel := mono.LogLevelInfo
	if cfg.LogLevel == "error" {
		logLevel = mono.LogLevelError
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// Create modules
	chatModule := chat.NewModule(chat.Options{
		HistorySize:      cfg.HistorySize,
		TypingTimeout:    cfg.TypingTimeout,
		DefaultRooms:     cfg.DefaultRooms,
		StrictInvariants: cfg.StrictInvariants,
	}, logger.WithModule("chat"))
	broadcastModule := broadcast.NewModule(cfg.SendBuffer, logger.WithModule("broadcast"))
	activityModule := activity.NewModule(logger.WithModule("activity"))
	apiModule := api.NewModule(api.Options{
		Addr:           cfg.Addr(),
		AllowedOrigins: cfg.AllowedOrigins,
		RatePerSecond:  cfg.RatePerSecond,
		RateBurst:      cfg.RateBurst,
		MaxMessageSize: cfg.MaxMessageSize,
	}, logger.WithModule("api"))

	// The hub is not exposed via ServiceContainer: the router delivers to it
	// directly and the api module registers sockets with it.
	hub := broadcastModule.GetHub()
	chatModule.SetDeliverer(hub)
	apiModule.SetHub(hub)

	// Register modules with the framework.
	// - chat: router actor (ServiceProviderModule + EventEmitterModule)
	// - broadcast: websocket hub, per-client write pumps
	// - activity: event consumer keeping activity counters
	// - api: driving adapter (Fiber HTTP/WebSocket server, depends on chat and activity)
	app.Register(chatModule)
	app.Register(broadcastModule)
	app.Register(activityModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
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

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Printf("  - Environment: %s (strict invariants: %t)", cfg.Env, cfg.StrictInvariants)
	log.Printf("  - Default rooms: %s", strings.Join(cfg.DefaultRooms, ", "))
	log.Printf("  - History size: %d, typing timeout: %s", cfg.HistorySize, cfg.TypingTimeout)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", cfg.Port)
	log.Println("  GET    /health                    - Health check")
	log.Println("  GET    /api/v1/stats              - Connections, rooms and uptime")
	log.Println("  GET    /api/v1/rooms              - List all rooms")
	log.Println("  GET    /api/v1/rooms/:key/history - Get message history (?limit=)")
	log.Println("  GET    /api/v1/activity           - Activity counters")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%d/ws):", cfg.Port)
	log.Println(`  Frames: {"type": "<event>", "payload": {...}}`)
	log.Println("  Events: join, send-message, typing, stop-typing, switch-room, private-message")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
