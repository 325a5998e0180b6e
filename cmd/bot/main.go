package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trainingbot/internal/config"
	"trainingbot/internal/dispatcher"
	"trainingbot/internal/fsm"
	"trainingbot/internal/handler"
	"trainingbot/internal/middleware"
	"trainingbot/internal/repository/postgres"
	"trainingbot/internal/service"
	"trainingbot/internal/session"
	"trainingbot/internal/throttle"

	"github.com/golang-migrate/migrate/v4"
	postgresdb "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting training bot")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Configuration loaded successfully")

	// Connect to database with retries
	db, err := connectDatabase(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connection established")

	// Run migrations
	if err := runMigrations(db, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	logger.Info("Database migrations completed")

	// Connect to Redis
	rdb, err := connectRedis(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer rdb.Close()

	logger.Info("Redis connection established")

	// Initialize repositories
	userRepo := postgres.NewUserRepo(db)
	activityRepo := postgres.NewActivityRepo(db)
	contentRepo := postgres.NewContentRepo(db)
	quizRepo := postgres.NewQuizRepo(db)
	adminLogRepo := postgres.NewAdminLogRepo(db)
	broadcastRepo := postgres.NewBroadcastRepo(db)
	settingsRepo := postgres.NewSettingsRepo(db)

	// Initialize Redis-backed components
	sessionStore := session.NewStore(rdb, "training", cfg.SessionTTL, logger)
	limiter := throttle.NewLimiter(rdb, throttle.Config{
		Window:         cfg.ThrottleWindow,
		MessageBudget:  cfg.MessageBudget,
		CallbackBudget: cfg.CallbackBudget,
	}, logger)

	// Initialize services
	authService := service.NewAdminAuthService(rdb, adminLogRepo,
		service.DefaultAdminAuthConfig(cfg.AdminPasswordHash), logger)
	adminService := service.NewAdminService(userRepo, activityRepo, contentRepo,
		broadcastRepo, adminLogRepo, logger)
	settingsService := service.NewSettingsService(settingsRepo, logger)

	// Runtime overrides from system_settings; env values are the defaults
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 5*time.Second)
	passScore := settingsService.Float(bootCtx, "quiz_pass_score", cfg.QuizPassScore)
	broadcastInterval := settingsService.Duration(bootCtx, "broadcast_interval", cfg.BroadcastInterval)
	bootCancel()

	// Initialize the conversation machine and dispatcher
	machine := fsm.NewMachine(quizRepo, contentRepo, authService, adminService,
		passScore, logger)
	disp := dispatcher.NewDispatcher(machine, userRepo, activityRepo, quizRepo,
		sessionStore, limiter, cfg.LockWait, logger)

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	bot.Use(middleware.Recover(logger))
	bot.Use(middleware.RequestLogger(logger))

	logger.Info("Telegram bot initialized")

	// Initialize handler
	h := handler.NewHandler(bot, disp, cfg.HandlerTimeout, logger)
	h.RegisterHandlers()

	logger.Info("Handlers registered")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start broadcast worker in background
	worker := service.NewBroadcastWorker(broadcastRepo, userRepo,
		handler.NewTelegramSender(bot), broadcastInterval, logger)
	go worker.Run(ctx)

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan

	logger.Info("Shutdown signal received, stopping bot...")

	// Graceful shutdown
	bot.Stop()
	cancel()

	logger.Info("Bot stopped gracefully")
}

// connectDatabase connects to PostgreSQL with retries
func connectDatabase(dsn string, logger *zap.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error

	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			logger.Warn("Failed to open database connection",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			time.Sleep(retryDelay)
			continue
		}

		// Test connection
		if err = db.Ping(); err != nil {
			logger.Warn("Failed to ping database",
				zap.Int("attempt", i+1),
				zap.Error(err),
			)
			db.Close()
			time.Sleep(retryDelay)
			continue
		}

		// Connection successful
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		return db, nil
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB, logger *zap.Logger) error {
	driver, err := postgresdb.WithInstance(db, &postgresdb.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if err == migrate.ErrNoChange {
			logger.Info("No new migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Migrations applied successfully")
	return nil
}

// connectRedis connects to Redis and verifies the connection
func connectRedis(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger.Info("Redis ping successful", zap.String("addr", cfg.Addr()))
	return rdb, nil
}
