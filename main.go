package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chat_back_end_go/config"
	"chat_back_end_go/db"
	"chat_back_end_go/logger"
	"chat_back_end_go/routes"
	"chat_back_end_go/services"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env, cfg.LogLevel)
	if cfg.Env == config.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		log.Info("closing store")
		_ = store.Close()
	}()
	log.Info("store ready", slog.String("driver", cfg.StoreDriver))

	if cfg.SeedChats {
		if _, err := db.SeedChats(ctx, store, log); err != nil {
			return err
		}
	}

	hub := services.NewHub(log)
	chatService := services.NewChatService(store, log)
	replier := services.NewAutoReplier(chatService, hub, cfg.AutoReplyDelay, log)
	generator := services.NewRandomMessenger(chatService, hub, cfg.RandomMessagePeriod, cfg.RandomMessageText, log)

	router := routes.NewRouter(routes.Dependencies{
		Chats:        chatService,
		Replies:      replier,
		Generator:    generator,
		Hub:          hub,
		AllowOrigins: cfg.AllowOrigins(),
		Log:          log,
	})

	server := &http.Server{
		Addr:    cfg.Address(),
		Handler: router,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("server running", slog.String("address", cfg.Address()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", logger.Err(err))
	}

	generator.Stop()
	replier.Stop()

	log.Info("application stopped")
	return nil
}
