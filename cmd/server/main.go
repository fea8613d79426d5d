package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/marketplace-backend/internal/config"
	"github.com/ignatzorin/marketplace-backend/internal/db"
	httpHandlers "github.com/ignatzorin/marketplace-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/marketplace-backend/internal/http/router"
	"github.com/ignatzorin/marketplace-backend/internal/logger"
	"github.com/ignatzorin/marketplace-backend/internal/notify"
	"github.com/ignatzorin/marketplace-backend/internal/repository"
	"github.com/ignatzorin/marketplace-backend/internal/service"
	"github.com/ignatzorin/marketplace-backend/internal/storage"
	"github.com/ignatzorin/marketplace-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: конфигурация: %v", err)
	}

	if cfg.IsProduction() {
		logger.Init(cfg.LogLevel)
	} else {
		// В разработке читаемый текстовый вывод и debug уровень.
		logger.Init("debug")
		logger.SetTextFormatter()
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: postgres: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: миграции: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	cacheService := service.NewCacheService()

	attachmentStorage, err := storage.NewAttachmentStorage(cfg.AttachmentsPath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn)
	milestoneRepo := repository.NewMilestoneRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Вебсокеты и уведомления.
	hub := ws.NewHub()
	go hub.Run(ctx)

	center := notify.NewCenter(notificationRepo)
	dispatcher := notify.NewDispatcher(notificationRepo, center, hub, logger.Log)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	completionService := service.NewCompletionService(milestoneRepo, paymentRepo, cacheService, cfg.EligibilityCacheTTL)
	ledgerService := service.NewLedgerService(paymentRepo)
	milestoneService := service.NewMilestoneService(milestoneRepo, paymentRepo, projectRepo, dispatcher, cacheService)
	paymentService := service.NewPaymentService(paymentRepo, milestoneRepo, projectRepo)
	projectService := service.NewProjectService(projectRepo, completionService, dispatcher, cacheService)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	milestoneHandler := httpHandlers.NewMilestoneHandler(milestoneService, attachmentStorage)
	paymentHandler := httpHandlers.NewPaymentHandler(paymentService, ledgerService)
	projectHandler := httpHandlers.NewProjectHandler(projectService)
	notificationHandler := httpHandlers.NewNotificationHandler(center)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn, hub)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, milestoneHandler, paymentHandler, projectHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// По сигналу даём серверу время дослужить открытые запросы.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("main: shutdown http сервера: %v", err)
		}
	}()

	logger.Log.Infof("main: слушаем порт %s (%s)", cfg.HTTPPort, cfg.Env)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("main: http сервер: %v", err)
	}
}

func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.Log.Errorf("main: закрытие базы: %v", err)
	}
}
