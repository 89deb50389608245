package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mediguide/backend/config"
	"github.com/mediguide/backend/internal/api"
	"github.com/mediguide/backend/internal/database"
	"github.com/mediguide/backend/internal/router"
	"github.com/mediguide/backend/internal/seed"
	"github.com/mediguide/backend/internal/server"
	"github.com/mediguide/backend/internal/service"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	if err := seed.Medicines(db, cfg.MedicineDataPath, logger); err != nil {
		logger.Fatal("failed to seed medicines", zap.Error(err))
	}

	// The knowledge-base cache is an optimization; the app runs
	// without Redis, just re-reading the CSV per consult.
	redisClient, err := database.NewRedisClient(cfg, logger)
	if err != nil {
		logger.Warn("Redis unavailable, knowledge base caching disabled", zap.Error(err))
		redisClient = nil
	}

	authService := service.NewAuthService(db, cfg.JWTSecret)
	cabinetService := service.NewCabinetService(db)
	taskService := service.NewTaskService(db)
	knowledgeService := service.NewKnowledgeService(cfg.KnowledgeBasePath, redisClient)
	llmService := service.NewLLMService(cfg, knowledgeService, logger)

	r := router.SetupRouter(
		api.NewAuthHandler(authService),
		api.NewCabinetHandler(cabinetService),
		api.NewTaskHandler(taskService),
		api.NewAIHandler(llmService, logger),
		authService,
	)

	srv := server.New(r, cfg.ServerHost, cfg.ServerPort, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-quit:
		logger.Info("received signal", zap.String("signal", sig.String()))
	}

	logger.Info("shutting down server")
	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Fatal("server shutdown error", zap.Error(err))
	}
	logger.Info("server stopped")
}
