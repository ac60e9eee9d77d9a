package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del front-end de chat.
type Config struct {
	HTTPPort       string        `env:"HTTP_PORT" envDefault:"8080"`
	ChatAPIURL     string        `env:"CHAT_API_URL" envDefault:"http://localhost:5000/api"`
	ChatAPITimeout time.Duration `env:"CHAT_API_TIMEOUT" envDefault:"60s"`
	HistoryLimit   int           `env:"HISTORY_LIMIT" envDefault:"50"`
	DefaultModel   string        `env:"DEFAULT_MODEL" envDefault:"chatgpt"`
	CacheStaleTime time.Duration `env:"CACHE_STALE_TIME" envDefault:"5s"`
	RequireAPIKeys bool          `env:"REQUIRE_API_KEYS" envDefault:"false"`

	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	GrokAPIKey      string `env:"GROK_API_KEY"`

	RedisAddr      string `env:"REDIS_ADDR"`
	RedisPassword  string `env:"REDIS_PASSWORD"`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	SettingsSecret string `env:"SETTINGS_SECRET"`

	LogFile string `env:"LOG_FILE" envDefault:"logs/cli_chat.log"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &cfg, nil
}
