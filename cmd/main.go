package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnsphere/chat-service/internal/cache"
	"github.com/learnsphere/chat-service/internal/config"
	"github.com/learnsphere/chat-service/internal/handler"
	"github.com/learnsphere/chat-service/internal/hub"
	"github.com/learnsphere/chat-service/internal/identity"
	"github.com/learnsphere/chat-service/internal/kafka"
	chatpubsub "github.com/learnsphere/chat-service/internal/pubsub"
	"github.com/learnsphere/chat-service/internal/repository"
	"github.com/learnsphere/chat-service/internal/service"
	"github.com/learnsphere/chat-service/pkg/database"
	"github.com/learnsphere/chat-service/pkg/jwt"
	pkglog "github.com/learnsphere/chat-service/pkg/log"
	"github.com/learnsphere/chat-service/pkg/middleware"
	pkgpubsub "github.com/learnsphere/chat-service/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "chat-service",
	})
	logger := pkglog.L()

	// Connect to the actor store using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to actor store")
	}

	if err := database.AutoMigrate(db, &identity.StudentModel{}, &identity.TutorModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate actor store")
	}

	// Connect to the chat room collection
	roomRepo, err := repository.NewMongoRoomRepository(cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	logger.Info().Str("database", cfg.Mongo.Database).Str("collection", cfg.Mongo.Collection).Msg("mongodb connected")

	// Identity resolver with redis cache in front
	actorCache, err := cache.NewRedisActorCache(cfg.Redis, cfg.Cache.Prefix)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer actorCache.Close()
	resolver := identity.NewCachedResolver(identity.NewGormResolver(db), actorCache, cfg.Cache.TTL)

	// Room fan-out bus
	busCfg := pkgpubsub.DefaultRedisConfig()
	busCfg.Address = cfg.Redis.Address
	busCfg.Password = cfg.Redis.Password
	busCfg.DB = cfg.Redis.DB
	bus, err := pkgpubsub.NewRedisPubSub(busCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis pubsub")
	}
	defer bus.Close()

	// Kafka event stream producer
	producer, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize kafka producer")
	}
	logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka connected")

	// Hub and the bus-to-hub bridge
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriber := chatpubsub.NewSubscriber(bus, wsHub)
	if err := subscriber.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start room event subscriber")
	}
	defer subscriber.Stop()

	// Chat service
	chatSvc := service.NewChatService(roomRepo, resolver, bus, producer)
	defer chatSvc.Stop()

	// Auth middleware
	jwtManager := jwt.NewManager(cfg.Auth.Secret, cfg.Auth.TokenDuration, cfg.Auth.Issuer)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// Handlers
	httpHandler := handler.NewHTTPHandler(chatSvc, authMiddleware)
	wsHandler := handler.NewWSHandler(wsHub, chatSvc, cfg.WebSocket)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	httpHandler.RegisterRoutes(r)
	wsHandler.RegisterRoutes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("chat-service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down chat-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shutdown")
	}

	if err := roomRepo.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("failed to close mongodb client")
	}

	logger.Info().Msg("chat-service stopped")
}
