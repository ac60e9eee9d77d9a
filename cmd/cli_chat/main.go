package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"chat-front/internal/chatapi"
	"chat-front/internal/config"
	"chat-front/internal/domain"
	"chat-front/internal/session"
	"chat-front/internal/settings"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	// Los logs van a archivo: stdout es la conversación.
	logger := newFileLogger(cfg.LogFile)
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
	settingsSvc := settings.NewService(store, cfg.SettingsSecret, domain.APIKeys{
		OpenAI:    cfg.OpenAIAPIKey,
		Gemini:    cfg.GeminiAPIKey,
		Anthropic: cfg.AnthropicAPIKey,
		Grok:      cfg.GrokAPIKey,
	}, logger)

	out := os.Stdout
	ctrl, err := session.NewController(session.Options{
		Remote:      api,
		History:     directory,
		Invalidator: directory,
		Keys:        settingsSvc,
		Notifier: session.NotifierFunc(func(n session.Notification) {
			printNotification(out, n)
		}),
		Logger:         logger,
		Model:          cfg.DefaultModel,
		RequireAPIKeys: cfg.RequireAPIKeys,
	})
	if err != nil {
		log.Fatal(err)
	}

	sh := newShell(ctrl, directory, settingsSvc, cfg.DefaultModel, out)
	if err := sh.run(ctx, os.Stdin); err != nil {
		fmt.Fprintf(os.Stderr, "error leyendo entrada: %v\n", err)
		os.Exit(1)
	}
}

func newFileLogger(path string) *zap.Logger {
	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
	})
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, zap.InfoLevel)
	return zap.New(core)
}
