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

	"github.com/secondhand/marketplace-backend/internal/config"
	"github.com/secondhand/marketplace-backend/internal/db"
	httpHandlers "github.com/secondhand/marketplace-backend/internal/http/handlers"
	httpRouter "github.com/secondhand/marketplace-backend/internal/http/router"
	"github.com/secondhand/marketplace-backend/internal/logger"
	"github.com/secondhand/marketplace-backend/internal/repository"
	"github.com/secondhand/marketplace-backend/internal/scheduler"
	"github.com/secondhand/marketplace-backend/internal/service"
	"github.com/secondhand/marketplace-backend/internal/storage"
	"github.com/secondhand/marketplace-backend/internal/validation"
	"github.com/secondhand/marketplace-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logger.Init(cfg.LogLevel)
	if cfg.Env == "development" {
		logger.SetTextFormatter()
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.DefaultPoolOptions)
	if err != nil {
		logger.L().WithError(err).Fatal("main: ошибка подключения к базе")
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.L().WithError(err).Fatal("main: ошибка миграций")
	}

	if err := validation.RegisterBindingRules(); err != nil {
		logger.L().WithError(err).Fatal("main: не удалось зарегистрировать правила валидации")
	}

	// Хранилище файлов.
	blobs, err := newBlobStorage(cfg)
	if err != nil {
		logger.L().WithError(err).Fatal("main: не удалось подготовить файловое хранилище")
	}

	// Сессии: Redis, если задан REDIS_URL, иначе память процесса.
	sessions, closeSessions := newSessionStore(ctx, cfg)
	defer closeSessions()

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	categoryRepo := repository.NewCategoryRepository(dbConn)
	productRepo := repository.NewProductRepository(dbConn)
	imageRepo := repository.NewProductImageRepository(dbConn)
	offerRepo := repository.NewOfferRepository(dbConn)
	transactionRepo := repository.NewTransactionRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	blobDeletionRepo := repository.NewBlobDeletionRepository(dbConn)

	// Вебсокеты и уведомления.
	notificationService := service.NewNotificationService(notificationRepo)
	hub := ws.NewHub()
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))
	go hub.Run(ctx)

	// Сервисы.
	cache := service.NewCacheService()
	go cache.Run(ctx, time.Minute)

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL)
	cleaner := service.NewBlobCleaner(blobs, blobDeletionRepo)
	uploader := service.NewImageUploader(blobs, cleaner, cfg.MaxImageBytes())

	authService := service.NewAuthService(userRepo, tokenManager, sessions)
	userService := service.NewUserService(userRepo, uploader, cleaner)
	productService := service.NewProductService(productRepo, imageRepo, categoryRepo, reviewRepo, uploader, cleaner, cfg.MaxImagesPerListing).
		WithCache(cache)
	offerService := service.NewOfferService(offerRepo, productRepo, hub, service.AcceptMode(cfg.OfferAcceptMode))
	reviewService := service.NewReviewService(reviewRepo, transactionRepo, productRepo, hub).WithCache(cache)
	transactionService := service.NewTransactionService(transactionRepo, hub)

	logger.L().WithField("accept_mode", offerService.Mode()).Info("main: режим принятия предложений")

	// Фоновые задачи.
	jobs := scheduler.New(2 * time.Minute)
	if err := jobs.AddBlobCleanup(cfg.BlobCleanupSchedule, cleaner); err != nil {
		logger.L().WithError(err).Fatal("main: ошибка настройки планировщика")
	}
	jobs.Start()

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Health:        httpHandlers.NewHealthHandler(dbConn),
		Auth:          httpHandlers.NewAuthHandler(authService, cfg.CookieSecure),
		User:          httpHandlers.NewUserHandler(userService),
		Product:       httpHandlers.NewProductHandler(productService),
		Offer:         httpHandlers.NewOfferHandler(offerService),
		Review:        httpHandlers.NewReviewHandler(reviewService),
		Transaction:   httpHandlers.NewTransactionHandler(transactionService),
		Notification:  httpHandlers.NewNotificationHandler(notificationService),
		WS:            httpHandlers.NewWSHandler(hub, authService, cfg.AllowedOrigins),
		Authenticator: authService,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L().WithError(err).Error("main: ошибка остановки http сервера")
		}
		jobs.Stop(shutdownCtx)
	}()

	logger.L().WithField("port", cfg.HTTPPort).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L().WithError(err).Fatal("main: сервер завершился с ошибкой")
	}
}

// newBlobStorage выбирает драйвер хранилища по конфигурации.
func newBlobStorage(cfg *config.Config) (storage.BlobStorage, error) {
	if cfg.StorageDriver == config.StorageDriverRemote {
		return storage.NewRemoteStorage(cfg.ObjectStorageURL, cfg.ObjectStorageBucket, cfg.ObjectStorageKey), nil
	}
	return storage.NewLocalStorage(cfg.MediaStoragePath, cfg.PublicBaseURL+"/media", cfg.MaxImageBytes())
}

// newSessionStore подключает Redis или откатывается на хранилище в памяти.
func newSessionStore(ctx context.Context, cfg *config.Config) (service.SessionStore, func()) {
	if cfg.RedisURL == "" {
		logger.L().Warn("main: REDIS_URL не задан, отозванные сессии хранятся в памяти процесса")
		return service.NewMemorySessionStore(), func() {}
	}

	client, err := service.NewRedisClient(cfg.RedisURL)
	if err == nil {
		err = client.Ping(ctx).Err()
	}
	if err != nil {
		logger.L().WithError(err).Warn("main: Redis недоступен, отозванные сессии хранятся в памяти процесса")
		if client != nil {
			_ = client.Close()
		}
		return service.NewMemorySessionStore(), func() {}
	}

	return service.NewRedisSessionStore(client), func() {
		if err := client.Close(); err != nil {
			logger.L().WithError(err).Warn("main: ошибка закрытия Redis")
		}
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.L().WithError(err).Error("main: ошибка закрытия базы")
	}
}
