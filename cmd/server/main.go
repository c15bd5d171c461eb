package main

import (
	"chatcode/auth"
	"chatcode/infrastructure/grpc/server"
	"chatcode/infrastructure/search"
	"chatcode/infrastructure/storage"
	"chatcode/internal"
	"chatcode/moderation"
	"chatcode/runtime"
	"chatcode/runtime/workers"
	"chatcode/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	grpc3 "github.com/mama165/sdk-go/grpc"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownGrace = 5 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a server failure.
// Deferred cleanups run before main exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage (Badger) and search index (Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if config.DebugPort > 0 {
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available", "url", fmt.Sprintf("http://localhost:%d%s", config.DebugPort, endpoint))
		database.StartDebugServer(db, config.DebugPort, endpoint, internal.RecordMapper)
	}

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing search index...")
		_ = writer.Close()
	}()

	// 3. Moderation
	censored, err := runtime.NewEmbeddedCensoredLoader().LoadAll(runtime.CensoredDir)
	if err != nil {
		return exitConfig, fmt.Errorf("censored words loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(censored.Words, charReplacement, logger)
	if err != nil {
		return exitConfig, err
	}
	logger.Info("Moderation ready", "words", len(censored.Words), "languages", censored.Languages)

	// 4. Repositories, orchestration and services
	rooms := storage.NewRoomRepository(db, logger)
	messages := storage.NewMessageRepository(db, logger, config.LimitMessages)
	users := storage.NewUserRepository(db)
	index := search.NewMessageIndex(writer, logger)
	feedService := services.NewFeedService(logger, rooms, messages)

	orchestrator := runtime.NewOrchestrator(logger,
		workers.NewSupervisor(logger, config.RestartInterval),
		runtime.NewRegistry(), feedService,
		config.NumberOfRunners, config.BufferSize, config.SinkTimeout, config.ExecutionDelay)
	orchestrator.Add(index)
	if config.MetricInterval > 0 {
		orchestrator.Monitor(config.MetricInterval, config.LowCapacityThreshold)
	}

	authService := services.NewAuthService(logger, users, auth.NewTokenIssuer(config.JWTSecret, config.AuthTokenDuration))
	roomFeedServer := server.NewRoomFeedServer(logger,
		authService,
		services.NewRoomService(logger, rooms, messages, orchestrator),
		services.NewChatService(logger, rooms, messages, index, moderator, orchestrator, config.MaxContentLength),
		services.NewCodeService(logger, rooms, orchestrator),
		func() *runtime.FeedView {
			return orchestrator.NewFeedView(config.SnapshotTimeout, config.SubscribeBackoff, config.BufferSize)
		},
	)

	// 5. Start the orchestrator (fanout and code runners)
	done := make(chan struct{})
	go func() {
		defer close(done)
		orchestrator.Start(ctx)
	}()

	// 6. gRPC Server Setup
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		stop()
		<-done
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpc3.UnaryLoggingInterceptor(logger),
			server.UnaryAuthInterceptor(authService),
		),
		grpc.ChainStreamInterceptor(server.StreamAuthInterceptor(authService)),
	)
	server.RegisterRoomFeedServer(s, roomFeedServer)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting gRPC server", "address", address, "at", time.Now().UTC())
		for serviceName := range s.GetServiceInfo() {
			logger.Debug("gRPC exposed services", "name", serviceName)
		}
		if err := s.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		stop()
		<-done
		return exitRuntime, err
	}

	// 8. Graceful shutdown: streams end first, then the workers drain
	logger.Info("Shutting down gracefully...")
	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(shutdownGrace):
		// Watch streams stay open until their client leaves
		logger.Warn("Grace period elapsed, closing remaining streams")
		s.Stop()
	}
	orchestrator.Stop()
	<-done
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
