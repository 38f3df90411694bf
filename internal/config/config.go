// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Username string  `yaml:"username"`
	Mode     string  `yaml:"mode"` // polling | webhook
	Workers  int     `yaml:"workers"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

type WebhookConfig struct {
	URL    string `yaml:"url"`    // public base URL; /webhook is appended
	Secret string `yaml:"secret"` // X-Telegram-Bot-Api-Secret-Token value
}

type GroupConfig struct {
	ID   int64  `yaml:"id"`
	Link string `yaml:"link"`
	Name string `yaml:"name"`
}

type RewardConfig struct {
	Referral int64 `yaml:"referral"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"` // admin API bearer auth
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // membership cache TTL
}

type Config struct {
	Bot        BotConfig      `yaml:"bot"`
	Webhook    WebhookConfig  `yaml:"webhook"`
	Group      GroupConfig    `yaml:"group"`
	Reward     RewardConfig   `yaml:"reward"`
	MiniAppURL string         `yaml:"mini_app_url"`
	Log        LogConfig      `yaml:"log"`
	Server     ServerConfig   `yaml:"server"`
	Database   DatabaseConfig `yaml:"database"`
	Redis      RedisConfig    `yaml:"redis"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file (if present), then applies environment
// overrides, defaults and minimal validation. A missing file is not an error
// as long as the environment provides the required values: hosted deploys
// configure everything through env vars.
func LoadConfig(path string, dev bool) (*Config, error) {
	// Best-effort .env load for local runs; hosted envs inject real vars.
	_ = godotenv.Load()

	var cfg Config
	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Reward.Referral <= 0 {
		cfg.Reward.Referral = 2
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required (BOT_TOKEN)")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required (DATABASE_URL)")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required (REDIS_URL)")
	}
	if cfg.Group.ID == 0 {
		return nil, errors.New("group.id is required (REQUIRED_GROUP_ID)")
	}
	if cfg.Bot.Mode == "webhook" && cfg.Webhook.URL == "" {
		return nil, errors.New("webhook.url is required in webhook mode (WEBHOOK_URL)")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// applyEnv maps the environment variable names the deployment guide documents
// onto the config struct. Env always wins over the YAML file.
func applyEnv(cfg *Config) {
	setStr(&cfg.Bot.Token, "BOT_TOKEN")
	setStr(&cfg.Bot.Username, "BOT_USERNAME")
	setStr(&cfg.Webhook.URL, "WEBHOOK_URL")
	setStr(&cfg.Webhook.Secret, "WEBHOOK_SECRET")
	setStr(&cfg.Group.Link, "REQUIRED_GROUP_LINK")
	setStr(&cfg.Group.Name, "REQUIRED_GROUP_NAME")
	setStr(&cfg.MiniAppURL, "MINI_APP_URL")
	setStr(&cfg.Database.URL, "DATABASE_URL")
	setStr(&cfg.Redis.URL, "REDIS_URL")
	setStr(&cfg.Server.JWTSecret, "ADMIN_JWT_SECRET")

	if v := getenv("REQUIRED_GROUP_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Group.ID = id
		}
	}
	if v := getenv("REFERRAL_REWARD"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Reward.Referral = n
		}
	}
	if v := getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	// Hosted platforms set RAILWAY_ENVIRONMENT; production runs use the
	// webhook, local runs poll.
	if getenv("RAILWAY_ENVIRONMENT") != "" {
		cfg.Bot.Mode = "webhook"
	}
}

func setStr(dst *string, key string) {
	if v := getenv(key); v != "" {
		*dst = v
	}
}

// getenv trims whitespace and strips NUL bytes; dashboard copy-paste
// occasionally embeds them and they break the Telegram client.
func getenv(key string) string {
	v := os.Getenv(key)
	if strings.ContainsRune(v, '\x00') {
		v = strings.ReplaceAll(v, "\x00", "")
	}
	return strings.TrimSpace(v)
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Minute
	}
	return d
}
