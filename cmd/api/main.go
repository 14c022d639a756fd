package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buddysurf-chat/internal/chat"
	"buddysurf-chat/internal/config"
	"buddysurf-chat/internal/handlers"
	"buddysurf-chat/internal/middleware"
	"buddysurf-chat/internal/notifications"
	"buddysurf-chat/internal/realtime"
	"buddysurf-chat/internal/reconcile"
	"buddysurf-chat/internal/repository"
	"buddysurf-chat/internal/server"
	"buddysurf-chat/internal/services"
	"buddysurf-chat/internal/session"
	"buddysurf-chat/pkg/database"
	"buddysurf-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Server.Environment)
	defer appLogger.Sync()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		appLogger.Errorf("failed to connect to database: %v", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		appLogger.Errorf("failed to run migrations: %v", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		appLogger.Errorf("failed to connect to redis: %v", err)
		os.Exit(1)
	}

	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	broker := realtime.NewRedisBroker(redisClient, appLogger)
	registry := realtime.NewRegistry(broker, messageRepo, appLogger)
	feedCache := chat.NewFeedCache(8)

	chatService := services.NewChatService(conversationRepo, messageRepo, broker, appLogger)
	notificationService := notifications.NewService(notificationRepo, appLogger)
	sess := session.New(cfg.Auth.JWTSecret)

	sweeper := reconcile.NewWorker(conversationRepo, cfg.Reconcile.Grace, appLogger)
	runner, err := reconcile.NewRunner(cfg.Redis, cfg.Reconcile, sweeper, appLogger)
	if err != nil {
		appLogger.Errorf("failed to build reconcile runner: %v", err)
		os.Exit(1)
	}
	if err := runner.Start(); err != nil {
		appLogger.Errorf("failed to start reconcile runner: %v", err)
		os.Exit(1)
	}
	defer runner.Stop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	chatHandler := handlers.NewChatHandler(chatService, notificationService, appLogger)
	feedServer := server.NewFeedServer(chatService, registry, feedCache, appLogger)

	authed := router.Group("/api", middleware.Auth(sess))
	chatHandler.RegisterRoutes(authed)
	authed.GET("/ws/conversations/:id", feedServer.Handle)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Errorf("server error: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Errorf("forced shutdown: %v", err)
	}
	if err := redisClient.Close(); err != nil {
		appLogger.Warnf("redis close: %v", err)
	}
}
