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

	"github.com/l-t-m-f/XO-TicTacToe/internal/api/controller"
	apirepository "github.com/l-t-m-f/XO-TicTacToe/internal/api/repository"
	"github.com/l-t-m-f/XO-TicTacToe/internal/api/service"
	"github.com/l-t-m-f/XO-TicTacToe/internal/config"
	"github.com/l-t-m-f/XO-TicTacToe/internal/db"
	"github.com/l-t-m-f/XO-TicTacToe/internal/hub"
	"github.com/l-t-m-f/XO-TicTacToe/internal/logger"
	"github.com/l-t-m-f/XO-TicTacToe/internal/repository"
	"github.com/l-t-m-f/XO-TicTacToe/internal/server"
	"github.com/l-t-m-f/XO-TicTacToe/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.MustLoad()
	logger.Init(cfg.LogLevel)

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.Telemetry)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down telemetry", "error", err)
		}
	}()

	// Initialize Redis
	rdb, err := db.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("failed to initialize redis", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite DB
	sqlDB, err := db.Connect(cfg.SQLite.Path)
	if err != nil {
		slog.Error("failed to initialize sqlite db", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Create repositories
	gameRepo := repository.NewGameRepository(rdb)
	playerRepo := repository.NewPlayerRepository(rdb)
	userRepo := apirepository.NewUserRepository(sqlDB)
	statsRepo := apirepository.NewStatsRepository(sqlDB)

	// Create services
	userService := service.NewUserService(userRepo, cfg.Auth)
	statsService := service.NewStatsService(statsRepo)

	// Create controllers
	userController := controller.NewUserController(userService)
	statsController := controller.NewStatsController(statsService)

	// Create hub
	h := hub.NewHub(rdb, gameRepo, playerRepo, statsService, cfg.Bot.ThinkDelay)
	go h.Run(ctx)

	// Create the Gin-based server
	srv := server.NewServer(h, userController, statsController, cfg.Auth)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("http server started", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ListenAndServe", "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	slog.Info("Shutting down server...")

	// Stop the hub first so rooms close before the listener goes away.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exiting")
}
