package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"presence-chat/auth"
	grpcserver "presence-chat/infrastructure/grpc/server"
	httpserver "presence-chat/infrastructure/http/server"
	"presence-chat/internal"
	"presence-chat/moderation"
	"presence-chat/repositories"
	"presence-chat/runtime"
	"presence-chat/runtime/workers"
	"presence-chat/services"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and owns the process lifecycle, so deferred
// cleanups always execute before main exits.
func run() error {
	// 1. Configuration & Logger
	// A missing .env file is fine, the environment may already be populated.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return fmt.Errorf("message repository failed: %w", err)
	}
	defer func() { _ = messageRepository.Close() }()
	participantRepository := repositories.NewParticipantRepository(db, log, messageRepository)

	// 3. Domain services
	mask, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(config.Words(), mask)
	if err != nil {
		return fmt.Errorf("moderator failed: %w", err)
	}
	feed := runtime.NewFeed(log, config.ConnectionBufferSize)
	tokens := auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration)
	chatService := services.NewChatService(log, participantRepository, messageRepository, moderator, time.Now).
		WithPublisher(feed).
		WithSessions(tokens)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers under supervision
	healthServer := grpcserver.NewHealthServer(log, config.HealthAddress())
	sweeper := workers.NewPresenceSweeper(log, chatService, healthServer,
		config.SweepInterval, config.StalenessThreshold, config.SweepWorkers, time.Now)
	monitor := workers.NewProcessMonitorWorker(log, config.MetricInterval)

	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(sweeper, healthServer, monitor)
	supervisorDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(supervisorDone)
	}()

	// 6. HTTP Server Setup
	chatServer := httpserver.NewChatServer(log, chatService, tokens, config.RequireToken, feed)
	server := httpserver.CreateServer(config.Address(), chatServer.Routes())

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", server.Addr, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case runErr = <-errChan:
	}

	// 8. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	// Hijacked feed connections are not tracked by Shutdown.
	feed.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", "error", err)
	}
	healthServer.Shutdown()
	sup.Stop()
	<-supervisorDone
	log.Info("Program stopped cleanly")

	return runErr
}
