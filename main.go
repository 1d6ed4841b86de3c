// File: bookio/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookio/config"
	"bookio/cron"
	"bookio/database"
	recordsRepo "bookio/database/repository/records"
	"bookio/handlers"
	"bookio/middleware"
	"bookio/models"
	"bookio/routes"
	"bookio/services/dialogue"
	"bookio/services/notification"
	"bookio/services/oracle"
	"bookio/services/session"
	"bookio/services/tasks"
	"bookio/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	required := requiredSlots()
	if len(required) == 0 {
		logger.Sugar().Fatal("main: REQUIRED_SLOTS resolved to an empty list")
	}

	sessionTTL := time.Duration(config.AppConfig.SessionTTLSeconds) * time.Second
	oracleTimeout := time.Duration(config.AppConfig.OracleTimeoutSeconds) * time.Second

	// Session store.
	var store session.Store
	var redisClients []*redis.Client
	if config.AppConfig.SessionStore == "redis" {
		utils.InitSessionCache()
		redisClients = append(redisClients, utils.GetSessionCacheClient())
		store = session.NewRedisStore(utils.GetSessionCacheClient(), sessionTTL)
	} else {
		store = session.NewMemoryStore(sessionTTL)
	}

	// Extraction oracle.
	if config.AppConfig.GeminiAPIKey == "" {
		logger.Sugar().Fatal("main: GEMINI_API_KEY is not configured")
	}
	extractor, err := oracle.NewGeminiExtractor(
		config.AppConfig.GeminiAPIKey,
		config.AppConfig.GeminiModel,
		oracleTimeout,
	)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize Gemini extractor: %v", err)
	}

	// Notification sink.
	var sink notification.Service
	if config.AppConfig.NotifyWebhookURL != "" {
		sink = notification.NewWebhookNotificationService(config.AppConfig.NotifyWebhookURL)
	} else {
		sink = &notification.LogNotificationService{}
	}

	// Optional booking archive.
	var records recordsRepo.BookingRecordRepository
	if config.AppConfig.DatabaseURL != "" {
		database.InitDB()
		records = recordsRepo.NewMongoRecordRepo()
	}

	// Optional appointment reminders.
	var reminders *tasks.ReminderScheduler
	if config.AppConfig.RemindersEnabled {
		queueClient := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     config.AppConfig.RedisAddr,
			Password: config.AppConfig.RedisPassword,
			DB:       config.AppConfig.RedisQueueDB,
		})
		defer queueClient.Close()
		reminders = &tasks.ReminderScheduler{
			Client: queueClient,
			Lead:   time.Duration(config.AppConfig.ReminderLeadMinutes) * time.Minute,
		}
		cron.InitReminderWorker(sink)
	}

	engine := &dialogue.Engine{
		Store:     store,
		Extractor: extractor,
		Sink:      sink,
		Required:  required,
		Records:   records,
		Reminders: reminders,
	}

	utils.StartHealthMonitor(redisClients, database.MongoClient)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(routes.CORSMiddleware())
	router.Use(middleware.RateLimitMiddleware())

	chatHandler := handlers.NewChatHandler(engine, logger)
	routes.RegisterRoutes(router, chatHandler)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

// requiredSlots resolves the configured slot order, skipping anything the
// system does not know how to collect.
func requiredSlots() []models.Slot {
	logger := utils.GetLogger()
	var out []models.Slot
	for _, name := range config.AppConfig.RequiredSlots {
		slot, ok := models.ParseSlot(name)
		if !ok {
			logger.Sugar().Warnf("main: ignoring unknown required slot %q", name)
			continue
		}
		out = append(out, slot)
	}
	return out
}
