package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress        string        `env:"RUN_ADDRESS"`
	DatabaseDSN       string        `env:"DATABASE_URI"`
	MigrationsDir     string        `env:"MIGRATIONS_DIR"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	ProviderAPIURL    string        `env:"PROVIDER_API_URL"`
	ProviderAPIKey    string        `env:"PROVIDER_API_KEY"`
	JWTUserSecret     string        `env:"JWT_USER_SECRET"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	TelegramBotToken  string        `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID    string        `env:"TELEGRAM_CHAT_ID"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL"`
}

func LoadConfig() (*Config, error) {
	// .env опционален, в проде конфиг приходит из окружения.
	_ = godotenv.Load()

	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	loadFlags(&flagsConfig)

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.ProviderAPIURL == "" {
		return nil, errors.New("provider API URL is not set")
	}
	if conf.JWTUserSecret == "" {
		return nil, errors.New("JWT user secret is not set")
	}
	if conf.WebhookSecret == "" {
		return nil, errors.New("webhook secret is not set")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(flagConfig *Config) {
	flag.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flag.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	flag.StringVar(&flagConfig.MigrationsDir, "m", "migrations", "Database migrations directory")
	flag.StringVar(&flagConfig.RedisAddr, "r", "", "Redis address in format host:port (optional)")
	flag.StringVar(&flagConfig.ProviderAPIURL, "p", "", "Provider API base URL")
	flag.DurationVar(&flagConfig.ReconcileInterval, "i", 15*time.Second, "Reconcile interval") //nolint:mnd

	flag.Parse()
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	interval := envConfig.ReconcileInterval
	if interval == 0 {
		interval = flagsConfig.ReconcileInterval
	}

	return &Config{
		RunAddress:        defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:       defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:     defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		RedisAddr:         defaultIfBlank(envConfig.RedisAddr, flagsConfig.RedisAddr),
		ProviderAPIURL:    defaultIfBlank(envConfig.ProviderAPIURL, flagsConfig.ProviderAPIURL),
		ProviderAPIKey:    envConfig.ProviderAPIKey,
		JWTUserSecret:     envConfig.JWTUserSecret,
		WebhookSecret:     envConfig.WebhookSecret,
		TelegramBotToken:  envConfig.TelegramBotToken,
		TelegramChatID:    envConfig.TelegramChatID,
		ReconcileInterval: interval,
	}
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
