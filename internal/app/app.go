package app

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"relief_backend/database"
	"relief_backend/internal/auth"
	"relief_backend/internal/config"
	"relief_backend/internal/email"
	"relief_backend/internal/handlers"
	"relief_backend/internal/imageprocessor"
	"relief_backend/internal/logger"
	"relief_backend/internal/middleware"
	"relief_backend/internal/ratelimit"
	"relief_backend/internal/repositories"
	"relief_backend/internal/routes"
	"relief_backend/internal/services"
	"relief_backend/internal/storage"
	"relief_backend/internal/validator"
	"relief_backend/internal/workers"
	"relief_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Dependencies - внешние зависимости, которые можно подменить (тесты, локальная разработка).
// Пустые поля строятся из конфигурации.
type Dependencies struct {
	Email   email.Provider
	Storage storage.Storage
	Limiter ratelimit.Limiter
}

// Application - собранное приложение: роутер, сервисы и фоновые компоненты
type Application struct {
	Router    *gin.Engine
	Services  *services.ServiceContainer
	WSManager *ws.WebSocketManager
	Limiter   ratelimit.Limiter
	Tokens    *auth.TokenService

	cfg      *config.Config
	db       *gorm.DB
	userRepo repositories.UserRepository
}

func Run() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}
	logger.Info("Database connected")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := SetupRouter(cfg, gormDB, Dependencies{})
	if err != nil {
		logger.Fatal("Failed to build application", "error", err)
	}

	// Без админа некому проверять респондентов, поэтому ошибка фатальна
	if err := application.Services.AuthService.SeedFirstAdmin(ctx, gormDB, cfg.FirstAdminEmail, cfg.FirstAdminPassword); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	application.Start(ctx)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              address,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Server starting", "address", address)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("Server startup error", "error", err)
	}
	application.Services.EmailService.Close()
	logger.Info("Server stopped")
}

// SetupRouter собирает сервисы, хэндлеры и маршруты. Фоновые компоненты запускает Start.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB, deps Dependencies) (*Application, error) {
	if deps.Storage == nil {
		storageInstance, err := storage.NewStorage(storage.Config{
			Type:       cfg.Storage.Type,
			BasePath:   cfg.Storage.BasePath,
			BaseURL:    cfg.Storage.BaseURL,
			Bucket:     cfg.Storage.Bucket,
			Region:     cfg.Storage.Region,
			AccessKey:  cfg.Storage.AccessKey,
			SecretKey:  cfg.Storage.SecretKey,
			Endpoint:   cfg.Storage.Endpoint,
			PublicRead: cfg.Storage.PublicRead,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		deps.Storage = storageInstance
		logger.Info("Storage initialized", "type", cfg.Storage.Type)
	}

	if deps.Email == nil {
		provider, err := newEmailProvider(cfg)
		if err != nil {
			return nil, err
		}
		deps.Email = provider
	}

	if deps.Limiter == nil {
		deps.Limiter = newLimiter(cfg)
	}

	wsManager := ws.NewWebSocketManager()
	userRepo := repositories.NewUserRepository()

	// Один TokenService выпускает токены и проверяет их в middleware
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWTTTL())

	// 1. Сервисы
	serviceContainer := initializeServices(cfg, userRepo, tokens, deps, wsManager)

	// 2. Хэндлеры
	authn := middleware.NewAuthenticator(tokens, userRepo)
	appHandlers := initializeHandlers(cfg, serviceContainer, authn, deps.Limiter)
	wsHandler := ws.NewWebSocketHandler(wsManager, cfg.Server.AllowedOrigins)

	// 3. Gin
	ginRouter := initializeGinRouter(cfg, gormDB)
	routes.RegisterRoutes(ginRouter, appHandlers, wsHandler, authn)

	staticDir := ""
	if cfg.Storage.Type == "" || cfg.Storage.Type == "local" {
		staticDir = cfg.Storage.BasePath
	}
	routes.SetupPublicRoutes(ginRouter, gormDB, cfg.Storage.BaseURL, staticDir)

	return &Application{
		Router:    ginRouter,
		Services:  serviceContainer,
		WSManager: wsManager,
		Limiter:   deps.Limiter,
		Tokens:    tokens,
		cfg:       cfg,
		db:        gormDB,
		userRepo:  userRepo,
	}, nil
}

// Start запускает websocket-менеджер и воркеры до отмены ctx
func (a *Application) Start(ctx context.Context) {
	go a.WSManager.Run(ctx)

	workers.NewOTPCleanupWorker(
		a.db,
		a.userRepo,
		time.Duration(a.cfg.OTP.CleanupInterval)*time.Minute,
		time.Duration(a.cfg.OTP.CleanupGraceHour)*time.Hour,
	).Start(ctx)

	if cleaner, ok := a.Limiter.(workers.Cleaner); ok {
		workers.NewLimiterCleanupWorker(cleaner, 10*time.Minute, time.Hour).Start(ctx)
	}
}

func initializeServices(cfg *config.Config, userRepo repositories.UserRepository, tokens *auth.TokenService, deps Dependencies, wsManager *ws.WebSocketManager) *services.ServiceContainer {
	// --- Репозитории ---
	incidentRepo := repositories.NewIncidentRepository()
	allocationRepo := repositories.NewAllocationRepository()
	responseRepo := repositories.NewResponseRepository()
	notificationRepo := repositories.NewNotificationRepository()
	supportRepo := repositories.NewSupportRepository()

	// --- Сервисы ---
	notificationService := services.NewNotificationService(notificationRepo, wsManager)

	uploadConfig := services.GetDefaultUploadConfig()
	uploadConfig.MaxFileSize = cfg.Upload.MaxSize
	uploadConfig.AllowedTypes = cfg.Upload.AllowedTypes

	return &services.ServiceContainer{
		AuthService:         services.NewAuthService(userRepo, deps.Email, tokens, cfg.OTPTTL()),
		UserService:         services.NewUserService(userRepo, notificationService),
		IncidentService:     services.NewIncidentService(incidentRepo, allocationRepo, responseRepo, notificationService),
		AllocationService:   services.NewAllocationService(allocationRepo, incidentRepo, userRepo, notificationService, deps.Email),
		NotificationService: notificationService,
		StatsService:        services.NewStatsService(incidentRepo, allocationRepo, userRepo),
		UploadService:       services.NewUploadService(deps.Storage, uploadConfig, imageprocessor.NewProcessor(85)),
		SupportService:      services.NewSupportService(supportRepo, deps.Email, cfg.Email.SupportInbox),
		EmailService:        deps.Email,
	}
}

func initializeHandlers(cfg *config.Config, services *services.ServiceContainer, authn *middleware.Authenticator, limiter ratelimit.Limiter) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(validator.New(), authn)

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, services.AuthService, limiter, !cfg.IsDevelopment()),
		UserHandler:         handlers.NewUserHandler(baseHandler, services.UserService),
		IncidentHandler:     handlers.NewIncidentHandler(baseHandler, services.IncidentService, services.StatsService),
		AllocationHandler:   handlers.NewAllocationHandler(baseHandler, services.AllocationService),
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, services.NotificationService),
		UploadHandler:       handlers.NewUploadHandler(baseHandler, services.UploadService),
		SupportHandler:      handlers.NewSupportHandler(baseHandler, services.SupportService),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// Несколько файлов до 10MB в одном запросе
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))
	router.Use(middleware.DBMiddleware(db))
	return router
}

func newEmailProvider(cfg *config.Config) (email.Provider, error) {
	renderer, err := email.NewDefaultTemplateManager(cfg.Email.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}

	smtpConfig := &email.SMTPConfig{
		Host:      cfg.Email.SMTPHost,
		Port:      cfg.Email.SMTPPort,
		Username:  cfg.Email.SMTPUsername,
		Password:  cfg.Email.SMTPPassword,
		FromEmail: cfg.Email.FromEmail,
		FromName:  cfg.Email.FromName,
		UseTLS:    cfg.Email.UseTLS,
		Timeout:   30 * time.Second,
	}
	if !smtpConfig.IsConfigured() {
		logger.Warn("SMTP is not configured, emails will be written to the log")
		return email.NewLogProvider(renderer), nil
	}

	provider := email.NewSMTPProvider(smtpConfig, renderer)
	if err := provider.Validate(); err != nil {
		return nil, fmt.Errorf("invalid smtp configuration: %w", err)
	}
	return provider, nil
}

// newLimiter - Redis при наличии REDIS_URL, иначе лимит в памяти процесса
func newLimiter(cfg *config.Config) ratelimit.Limiter {
	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second

	if cfg.Redis.URL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis.URL)
		if err == nil {
			logger.Info("Rate limiter uses redis")
			return ratelimit.NewRedisLimiter(client, cfg.RateLimit.Requests, window)
		}
		logger.Warn("Redis unavailable, falling back to in-memory rate limiter", "error", err.Error())
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, window)
}
