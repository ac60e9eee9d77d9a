package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"chat-front/internal/chatapi"
	"chat-front/internal/config"
	"chat-front/internal/domain"
	apihttp "chat-front/internal/http"
	"chat-front/internal/session"
	"chat-front/internal/settings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	api := chatapi.NewHTTPClient(cfg.ChatAPIURL, cfg.ChatAPITimeout, logger)
	directory := session.NewDirectory(api, cfg.CacheStaleTime, cfg.HistoryLimit, logger)

	store := settings.NewMemoryStore()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, settings kept in memory", zap.Error(err))
		} else {
			store = settings.NewRedisStore(redisClient)
		}
		cancel()
	}
	if cfg.SettingsSecret == "" {
		logger.Warn("settings secret not configured, api keys stored unsealed")
	}
	settingsSvc := settings.NewService(store, cfg.SettingsSecret, domain.APIKeys{
		OpenAI:    cfg.OpenAIAPIKey,
		Gemini:    cfg.GeminiAPIKey,
		Anthropic: cfg.AnthropicAPIKey,
		Grok:      cfg.GrokAPIKey,
	}, logger)

	hub := apihttp.NewEventHub()
	ctrl, err := session.NewController(session.Options{
		Remote:         api,
		History:        directory,
		Invalidator:    directory,
		Keys:           settingsSvc,
		Notifier:       hub,
		Logger:         logger,
		Model:          cfg.DefaultModel,
		RequireAPIKeys: cfg.RequireAPIKeys,
	})
	if err != nil {
		logger.Fatal("controller init", zap.Error(err))
	}
	ctrl.Subscribe(hub.PublishState)

	chatHandler := apihttp.NewChatHandler(logger, ctrl, directory, hub)
	settingsHandler := apihttp.NewSettingsHandler(logger, settingsSvc, api, ctrl, cfg.DefaultModel)
	router := apihttp.NewRouter(logger, chatHandler, settingsHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("chat_api", cfg.ChatAPIURL),
		zap.String("model", cfg.DefaultModel),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
