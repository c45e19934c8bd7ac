package main

import (
	"channel-chat/auth"
	"channel-chat/infrastructure/api"
	"channel-chat/infrastructure/storage"
	"channel-chat/internal"
	"channel-chat/moderation"
	"channel-chat/observability"
	"channel-chat/runtime"
	"channel-chat/runtime/workers"
	"channel-chat/services"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the development server.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 5 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle and centralizes error reporting,
// every defer runs before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.ServerConfig
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	channels := storage.NewChannelRepository(db, log)
	messages := storage.NewMessageRepository(db, log)
	if config.SeedFile != "" {
		if err := seed(log, channels, config.SeedFile); err != nil {
			return exitConfig, err
		}
	}

	var opts []services.Option
	if words := config.CensoredWordList(); len(words) > 0 {
		filter, err := moderation.NewWordFilter(log, words, config.Mask())
		if err != nil {
			return exitConfig, fmt.Errorf("word filter error: %w", err)
		}
		log.Info("Message censoring enabled", "words", len(words))
		opts = append(opts, services.WithCensor(filter))
	}

	if config.DebugPort > 0 {
		endpoint := "/inspect"
		log.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, storage.InspectMapper)
	}

	// 3. Supervision & Orchestration
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()
	orchestrator := runtime.NewOrchestrator(log,
		workers.NewSupervisor(log, config.RestartInterval),
		runtime.NewRegistry(),
		metrics,
		config.BufferSize,
		config.SinkTimeout,
	)
	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		orchestrator.Start(ctx)
	}()

	service := services.NewChatService(log, channels, messages, orchestrator.Publisher(), opts...)
	issuer := auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration)
	server := api.NewServer(log, service, issuer, orchestrator, metrics, config.APIConfig())

	// 4. HTTP Server
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           server.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Development chat server listening", "address", httpServer.Addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	// 5. Wait for a signal or a server failure
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serveErr:
		if !stderrors.Is(err, http.ErrServerClosed) {
			orchestrator.Stop()
			<-orchestratorDone
			return exitRuntime, fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	orchestrator.Stop()
	<-orchestratorDone
	return exitOK, nil
}

// seed stores the channels of the seed file, existing channels are left untouched.
func seed(log *slog.Logger, channels storage.IChannelRepository, path string) error {
	file, err := internal.LoadSeed(path)
	if err != nil {
		return err
	}
	for _, channel := range file.Domain() {
		if _, err := channels.Get(channel.ID); err == nil {
			continue
		}
		if err := channels.Save(channel); err != nil {
			return fmt.Errorf("seed channel %s: %w", channel.ID, err)
		}
		log.Info("Channel seeded", "channel_id", channel.ID, "name", channel.Name)
	}
	return nil
}
