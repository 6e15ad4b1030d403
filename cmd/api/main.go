package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/nobody-social/nobody-api/internal/config"
	"github.com/nobody-social/nobody-api/internal/database"
	"github.com/nobody-social/nobody-api/internal/handler"
	"github.com/nobody-social/nobody-api/internal/middleware"
	"github.com/nobody-social/nobody-api/internal/models"
	"github.com/nobody-social/nobody-api/internal/observability"
	"github.com/nobody-social/nobody-api/internal/repository"
	"github.com/nobody-social/nobody-api/internal/router"
	"github.com/nobody-social/nobody-api/internal/service"
	"github.com/nobody-social/nobody-api/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Profile{},
		&models.Post{},
		&models.Like{},
		&models.ChatRoom{},
		&models.ChatParticipant{},
		&models.Message{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	observability.RegisterMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())

	profileRepo := repository.NewProfileRepository(db)
	postRepo := repository.NewPostRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	authService := service.NewAuthService(profileRepo, validate, cfg.JWTSecret, cfg.TokenTTL, logger)
	feedService := service.NewFeedService(postRepo, likeRepo, redisClient, cfg.ChannelBase, validate, logger)
	chatService := service.NewChatService(roomRepo, messageRepo, redisClient, cfg.ChannelBase, natsConn, validate, logger)
	matchService := service.NewMatchService(roomRepo, logger)
	cleanupService := service.NewCleanupService(postRepo, messageRepo, cfg.CleanupInterval, logger)

	var responder ai.Responder
	if cfg.AIEnabled() {
		openAI, err := ai.NewOpenAIResponder(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create openai responder: %v", err)
		}
		responder = openAI
	} else {
		logger.Warn().Msg("openai key missing, persona completions disabled")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	chatService.Start(runCtx)
	cleanupService.Start(runCtx)

	authHandler := handler.NewAuthHandler(authService, logger)
	feedHandler := handler.NewFeedHandler(feedService, logger)
	chatHandler := handler.NewChatHandler(chatService, matchService, authService, validate, logger)
	aiHandler := handler.NewAIHandler(responder, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:   authHandler,
		FeedHandler:   feedHandler,
		ChatHandler:   chatHandler,
		AIHandler:     aiHandler,
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func waitForShutdown(app *fiber.App, cancel context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	cancel()

	ctx, timeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeout()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
