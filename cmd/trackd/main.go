package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"trackd/internal/auth"
	"trackd/internal/config"
	"trackd/internal/events"
	"trackd/internal/gemini"
	httpserver "trackd/internal/http"
	"trackd/internal/services"
	"trackd/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return err
	}

	extractor, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return err
	}

	// Event publishing is best-effort: a broker that is down at startup
	// must not keep the API from serving.
	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("Event publishing disabled, broker unreachable", "error", err)
			publisher = nil
		}
	}

	authSvc := auth.NewService(repo, cfg.TokenSecret, cfg.TokenTTL, cfg.AuthAllowAny)
	if cfg.AuthAllowAny {
		slog.Warn("AUTH_ALLOW_ANY is enabled: login does not verify passwords")
	}

	expenseSvc := services.NewExpenseService(repo, extractor, publisher, cfg.UploadDir)
	defer func() {
		if err := expenseSvc.Close(); err != nil {
			slog.Error("Failed to close expense service", "error", err)
		}
	}()

	server := httpserver.NewServer(":"+cfg.Port, expenseSvc, authSvc)
	server.ReadHeaderTimeout = 10 * time.Second
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 60 * time.Second
	server.IdleTimeout = 120 * time.Second

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
