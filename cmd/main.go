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
	"time"

	"github.com/CustomZone1/customzone/config"
	"github.com/CustomZone1/customzone/db"
	"github.com/CustomZone1/customzone/handlers"
	"github.com/CustomZone1/customzone/repositories"
	api "github.com/CustomZone1/customzone/routes"
	"github.com/CustomZone1/customzone/services"
	"github.com/CustomZone1/customzone/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const reconcileInterval = 1 * time.Minute

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Создание схемы, если её ещё нет
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Setup(setupCtx, dbConn); err != nil {
		cancelSetup()
		logger.Error("failed to set up database schema", slog.Any("error", err))
		os.Exit(1)
	}
	cancelSetup()
	logger.Info("database schema ready")

	// Загрузчик файлов (Cloudflare R2) опционален: без него недоступна
	// только загрузка баннеров.
	var uploader storage.FileUploader
	if cfg.R2AccountID != "" {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("Cloudflare R2 uploader disabled, banner uploads unavailable")
	}

	// Инициализация репозиториев
	transactor := repositories.NewSQLTransactor(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	walletRepo := repositories.NewPostgresWalletRepository(dbConn)
	depositRepo := repositories.NewPostgresDepositRepository(dbConn)
	withdrawalRepo := repositories.NewPostgresWithdrawalRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	bookingRepo := repositories.NewPostgresBookingRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	notificationService := services.NewNotificationService(notificationRepo, logger)
	walletService := services.NewWalletService(transactor, walletRepo, notificationService)
	authService := services.NewAuthService(userRepo, walletService, cfg.ReferralBonusAmount)
	depositService := services.NewDepositService(transactor, depositRepo, walletService, notificationService)
	withdrawalService := services.NewWithdrawalService(transactor, withdrawalRepo, walletService, notificationService, cfg.WithdrawalMinAmount)
	tournamentService := services.NewTournamentService(transactor, tournamentRepo, bookingRepo, uploader, notificationService, logger)
	bookingService := services.NewBookingService(transactor, bookingRepo, tournamentRepo, walletService, tournamentService, notificationService)
	logger.Info("services initialized")

	// Периодическая сверка кешированных счётчиков турниров
	scheduler, err := tournamentService.StartReconcileScheduler(reconcileInterval)
	if err != nil {
		logger.Error("failed to start reconcile scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := scheduler.Shutdown(); err != nil {
			logger.Error("failed to shut down reconcile scheduler", slog.Any("error", err))
		}
	}()
	logger.Info("reconcile scheduler started", slog.Duration("interval", reconcileInterval))

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	walletHandler := handlers.NewWalletHandler(walletService, depositService)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	adminHandler := handlers.NewAdminHandler(depositService, withdrawalService)
	logger.Info("HTTP handlers initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		[]byte(cfg.JWTSecretKey),
		authHandler,
		walletHandler,
		withdrawalHandler,
		tournamentHandler,
		bookingHandler,
		notificationHandler,
		adminHandler,
	)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
