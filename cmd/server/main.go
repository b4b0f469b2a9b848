// Command blog-server starts the blog platform HTTP server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DavidBGG/YaballeBlog/internal/migrate"
	httpserver "github.com/DavidBGG/YaballeBlog/internal/server/http"
	"github.com/DavidBGG/YaballeBlog/internal/service"
	"github.com/DavidBGG/YaballeBlog/internal/storage"
	"github.com/DavidBGG/YaballeBlog/internal/storage/jsonfile"
	"github.com/DavidBGG/YaballeBlog/internal/storage/postgres"
	"github.com/DavidBGG/YaballeBlog/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main parses configuration, picks a storage backend, and serves HTTP until
// interrupted.
func main() {
	// Flags
	addr := flag.String("addr", ":8000", "listen address")
	dataDir := flag.String("data", "./data", "directory for JSON-file storage")
	dsn := flag.String("dsn", "", "PostgreSQL DSN (empty: JSON-file storage)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if *dsn != "" {
		if err := migrate.Up(ctx, *dsn); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		db, err := postgres.New(ctx, *dsn)
		if err != nil {
			logger.Fatal("postgres.New", zap.Error(err))
		}
		defer db.Close()
		store = postgres.NewStore(db)
		logger.Info("storage backend", zap.String("kind", "postgres"))
	} else {
		fs, err := jsonfile.New(*dataDir)
		if err != nil {
			logger.Fatal("jsonfile.New", zap.Error(err))
		}
		store = fs
		logger.Info("storage backend", zap.String("kind", "jsonfile"), zap.String("dir", *dataDir))
	}

	// Token registry lives for the process lifetime: restart invalidates all sessions.
	registry := token.NewRegistry()

	authSvc := service.NewAuthService(store, registry)
	postSvc := service.NewPostService(store, registry)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           httpserver.New(authSvc, postSvc, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	// Wait for stop
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
