package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "FOODBOT"

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Operator OperatorConfig `mapstructure:"operator"`
	Shop     ShopConfig     `mapstructure:"shop"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token         string        `mapstructure:"token"`
	WebhookURL    string        `mapstructure:"webhook_url"`
	WebhookPath   string        `mapstructure:"webhook_path"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout"`
	Debug         bool          `mapstructure:"debug"`
}

type AdminConfig struct {
	Password string `mapstructure:"password"`
}

type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type OperatorConfig struct {
	Addr           string   `mapstructure:"addr"`
	Secret         string   `mapstructure:"secret"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type ShopConfig struct {
	Currency               string `mapstructure:"currency"`
	StrictTransitions      bool   `mapstructure:"strict_transitions"`
	ClearTableOnAnyPayment bool   `mapstructure:"clear_table_on_any_payment"`
	EnforceMinOrder        bool   `mapstructure:"enforce_min_order"`
	HistoryLimit           int    `mapstructure:"history_limit"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.webhook_url", "")
	v.SetDefault("telegram.webhook_path", "/telegram/webhook")
	v.SetDefault("telegram.webhook_secret", "")
	v.SetDefault("telegram.poll_timeout", 60*time.Second)
	v.SetDefault("telegram.debug", false)

	v.SetDefault("admin.password", "")

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite_path", "./data/foodbot.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "foodbot")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "food-orders")

	v.SetDefault("operator.addr", ":8080")
	v.SetDefault("operator.secret", "")
	v.SetDefault("operator.allowed_origins", []string{"*"})

	v.SetDefault("shop.currency", "₴")
	v.SetDefault("shop.strict_transitions", false)
	v.SetDefault("shop.clear_table_on_any_payment", true)
	v.SetDefault("shop.enforce_min_order", false)
	v.SetDefault("shop.history_limit", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
}

// Load reads the optional YAML file at configPath and applies FOODBOT_*
// environment overrides, e.g. FOODBOT_TELEGRAM_TOKEN.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.Token == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if c.Admin.Password == "" {
		errs = append(errs, errors.New("admin.password is required"))
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of sqlite, redis", c.Storage.Driver))
	}
	if c.Telegram.WebhookURL != "" && c.Operator.Addr == "" {
		errs = append(errs, errors.New("operator.addr is required in webhook mode"))
	}
	return errors.Join(errs...)
}

// WebhookMode reports whether updates arrive by webhook instead of polling.
func (c *Config) WebhookMode() bool {
	return c.Telegram.WebhookURL != ""
}
