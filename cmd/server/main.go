package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mateusbentes/proof/internal/config"
	"github.com/mateusbentes/proof/internal/handler"
	"github.com/mateusbentes/proof/internal/middleware"
	"github.com/mateusbentes/proof/internal/model"
	"github.com/mateusbentes/proof/internal/repository"
	"github.com/mateusbentes/proof/internal/service"
	"github.com/mateusbentes/proof/internal/ws"
	"github.com/mateusbentes/proof/migrations"
	"github.com/mateusbentes/proof/pkg/auth"
	"github.com/mateusbentes/proof/pkg/notification"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// @title           Proof Chat API
// @version         1.0
// @description     Real-time threaded messaging service: threads, messages, WebSocket rooms and push notifications.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting Proof Chat Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		// Fallback to AutoMigrate if migration files fail
		if err := db.AutoMigrate(
			&model.User{},
			&model.Thread{},
			&model.ThreadParticipant{},
			&model.Message{},
			&model.UserDevice{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("⚠️  Redis unavailable: %v (single-instance delivery only)", err)
		rdb = nil
	} else {
		log.Println("✅ Connected to Redis")
	}

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	threadRepo := repository.NewThreadRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)

	// Push dispatcher (FCM); runs disabled when no credentials are configured
	dispatcher := notification.NewDispatcher(
		cfg.Firebase.CredentialsFile,
		threadRepo, deviceRepo, userRepo,
		cfg.Push.Workers, cfg.Push.QueueSize,
	)
	dispatcherCtx, dispatcherCancel := context.WithCancel(context.Background())
	defer dispatcherCancel()
	go dispatcher.Run(dispatcherCtx)

	// Services
	chatService := service.NewChatService(threadRepo, msgRepo, userRepo, dispatcher)
	deviceService := service.NewDeviceService(deviceRepo)

	// WebSocket Hub (with Redis Pub/Sub for horizontal scaling)
	hub := ws.NewHub(rdb)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Handlers
	chatHandler := handler.NewChatHandler(chatService, hub)
	deviceHandler := handler.NewDeviceHandler(deviceService)
	wsHandler := handler.NewWSHandler(hub, chatService, jwtManager)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger configuration
	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "proof-chat",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager))
		{
			// Threads
			protected.GET("/chat/threads", chatHandler.GetThreads)
			protected.POST("/chat/threads", chatHandler.CreateThread)
			protected.PUT("/chat/threads/:id", chatHandler.UpdateThread)
			protected.DELETE("/chat/threads/:id", chatHandler.LeaveThread)

			// Messages
			protected.GET("/chat/threads/:id/messages", chatHandler.GetMessages)
			protected.POST("/chat/threads/:id/messages", chatHandler.SendMessage)
			protected.POST("/chat/threads/:id/read", chatHandler.MarkAsRead)

			// Participants
			protected.POST("/chat/threads/:id/participants", chatHandler.AddParticipant)
			protected.DELETE("/chat/threads/:id/participants/:userId", chatHandler.RemoveParticipant)

			// Devices
			protected.POST("/devices", deviceHandler.RegisterDevice)
			protected.DELETE("/devices/:token", deviceHandler.UnregisterDevice)
		}
	}

	// WebSocket endpoint (auth via query parameter)
	router.GET("/ws", wsHandler.HandleWebSocket)

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 Proof Chat API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws?token=<jwt>", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	hubCancel()
	dispatcherCancel()
	log.Println("✅ Server exited gracefully")
}
