package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus"

	"pulse-lab/auth"
	"pulse-lab/domain"
	"pulse-lab/infrastructure/storage"
	"pulse-lab/infrastructure/tcp"
	"pulse-lab/internal"
	"pulse-lab/observability"
	"pulse-lab/runtime"
	"pulse-lab/runtime/workers"
	"pulse-lab/services"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// The pattern keeps 'defer' statements (like database cleanup) running before the
// program exits and decouples initialization from the main entry point.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Repositories
	userRepository, err := storage.NewUserRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer userRepository.Close()

	eventRepository, err := storage.NewEventRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer eventRepository.Close()

	friendshipRepository := storage.NewFriendshipRepository(db, logger)
	ackLedger := storage.NewAckLedger(db, logger)
	scoreStore := storage.NewScoreStore(db, logger)

	// 4. Core runtime: registry, fan-out, telemetry
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	tokenService := auth.NewTokenService(config.AuthSecret, config.AuthTokenDuration)
	registry := runtime.NewRegistry(logger, tokenService, metrics)
	fanout := workers.NewNotificationFanout(logger, registry, friendshipRepository,
		metrics, config.BufferSize, config.SinkTimeout)
	reporter := workers.NewTelemetryReporter(logger, registry, metrics,
		config.MetricInterval, os.Getpid())

	// 5. Services
	authService := services.NewAuthService(userRepository, tokenService)
	friendService := services.NewFriendService(userRepository, friendshipRepository)
	eventService := services.NewEventService(logger, userRepository, eventRepository,
		ackLedger, scoreStore, friendshipRepository, fanout, metrics)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.DebugPort > 0 {
		internal.StartDebugServer(db, config.DebugPort, StoreMapper)
		logger.Info("Debug server available",
			"url", fmt.Sprintf("http://localhost:%d/metrics", config.DebugPort))
	}

	// 7. Start the supervised engine
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	peerServer := tcp.NewServer(logger, address, registry, authService, friendService,
		eventService, config.ConnectionBufferSize, config.SinkTimeout)

	sup := workers.NewSupervisor(logger)
	sup.Add(fanout, reporter, peerServer)

	logger.Info("Starting pulse server", "address", address)
	go sup.Run(ctx)

	// 8. Wait for Stop
	<-ctx.Done()
	logger.Info("Shutdown signal received")
	sup.Stop()

	return exitOK, nil
}

// StoreMapper renders store entries for the /inspect endpoint.
func StoreMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	switch {
	case strings.HasPrefix(key, "event:"):
		var event domain.Event
		if err := json.Unmarshal(val, &event); err == nil {
			row.Type = "EVENT"
			row.Detail = event.Title
		}
	case strings.HasPrefix(key, "ack:"):
		var ack domain.Acknowledgment
		if err := json.Unmarshal(val, &ack); err == nil {
			row.Type = "ACK"
			row.Detail = fmt.Sprintf("position=%d points=%d", ack.Position, ack.Points)
		}
	case strings.HasPrefix(key, "user:id:"):
		var user domain.User
		if err := json.Unmarshal(val, &user); err == nil {
			row.Type = "USER"
			row.Detail = user.Email
		}
	case strings.HasPrefix(key, "bucket:"), strings.HasPrefix(key, "total:"):
		row.Type = "SCORE"
		row.Detail = string(val)
	}
	return row
}
