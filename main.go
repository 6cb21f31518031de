package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"chatrelaygo/internal/auth"
	"chatrelaygo/internal/bus"
	"chatrelaygo/internal/config"
	"chatrelaygo/internal/database/db_client"
	"chatrelaygo/internal/http/http_server"
	"chatrelaygo/internal/presence"
	"chatrelaygo/internal/redis/redis_client"
	"chatrelaygo/internal/services/history"
	"chatrelaygo/internal/ws"

	"go.uber.org/zap"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	// 1. Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis: the shared broker behind presence and the event bus
	redisClient, err := redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// 4. Postgres: message history only, never on the fan-out path
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort,
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()

	// 5. Collaborators
	authService := auth.NewAuthService(cfg.JwtSecret)
	historyService := history.NewHistoryService(pgDb)

	// 6. Fan-out core: presence store, event bus, connection registry
	presenceStore := presence.NewPresenceStore(redisClient)
	eventBus := bus.NewEventBus(redisClient)
	registry := ws.NewRegistry()

	// 7. Gateway + the process-wide fan-out task
	wsSrv := ws.NewWsServer(registry, eventBus, presenceStore,
		authService, historyService, cfg.DefaultRoom)
	go wsSrv.RunFanout(ctx)

	// 8. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort,
		wsSrv, authService, historyService)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
