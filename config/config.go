// config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PathEnv names an explicit config file, bypassing the search paths.
const PathEnv = "DIET_PLANNER_CONFIG"

type DBConfig struct {
	URL          string
	Host         string
	Port         string
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration
}

type StripeConfig struct {
	SecretKey  string
	PublicKey  string
	WebhookKey string
	ProductID  string
	PriceID    string
	Amount     int64
	Currency   string
}

// Enabled reports whether plan generation sits behind a checkout.
func (s StripeConfig) Enabled() bool {
	return s.SecretKey != "" && s.PriceID != ""
}

type GPTConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

type PlannerConfig struct {
	Endpoint         string
	FallbackEndpoint string
	Timeout          time.Duration
}

type Config struct {
	Telegram struct {
		Token string
	}
	DB      DBConfig
	Stripe  StripeConfig
	GPT     GPTConfig
	Planner PlannerConfig
	Server  struct {
		Port           string
		AllowedOrigins []string
	}
	Log struct {
		Level       string
		Development bool
	}
	ShutdownTimeout time.Duration

	v *viper.Viper
}

// legacyEnv keeps the flat variable names older deployments use.
var legacyEnv = map[string]string{
	"Telegram.Token":           "TELEGRAM_TOKEN",
	"DB.URL":                   "DATABASE_URL",
	"DB.Host":                  "DB_HOST",
	"DB.Port":                  "DB_PORT",
	"DB.User":                  "DB_USER",
	"DB.Password":              "DB_PASSWORD",
	"DB.DBName":                "DB_NAME",
	"DB.SSLMode":               "DB_SSL_MODE",
	"Stripe.SecretKey":         "STRIPE_SECRET_KEY",
	"Stripe.PublicKey":         "STRIPE_PUBLIC_KEY",
	"Stripe.WebhookKey":        "STRIPE_WEBHOOK_KEY",
	"Stripe.ProductID":         "STRIPE_PRODUCT_ID",
	"Stripe.PriceID":           "STRIPE_PRICE_ID",
	"GPT.APIKey":               "GPT_API_KEY",
	"GPT.Model":                "GPT_MODEL",
	"GPT.BaseURL":              "GPT_BASE_URL",
	"Planner.Endpoint":         "PLANNER_ENDPOINT",
	"Planner.FallbackEndpoint": "PLANNER_FALLBACK_ENDPOINT",
	"Server.Port":              "SERVER_PORT",
	"Log.Level":                "LOG_LEVEL",
}

// Load reads .env, then an optional config file, then the environment.
// A missing config file is not an error; a malformed one is.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if path := os.Getenv(PathEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("$HOME/.diet-planner")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	expandEnvRefs(v)

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("Telegram.Token", "")
	v.SetDefault("DB.URL", "")
	v.SetDefault("DB.Host", "localhost")
	v.SetDefault("DB.Port", "5432")
	v.SetDefault("DB.User", "postgres")
	v.SetDefault("DB.Password", "postgres")
	v.SetDefault("DB.DBName", "diet_planner")
	v.SetDefault("DB.SSLMode", "disable")
	v.SetDefault("DB.MaxOpenConns", 20)
	v.SetDefault("DB.MaxIdleConns", 2)
	v.SetDefault("DB.ConnLifetime", 5*time.Minute)
	v.SetDefault("Stripe.SecretKey", "")
	v.SetDefault("Stripe.PublicKey", "")
	v.SetDefault("Stripe.WebhookKey", "")
	v.SetDefault("Stripe.ProductID", "")
	v.SetDefault("Stripe.PriceID", "")
	v.SetDefault("Stripe.Amount", 499)
	v.SetDefault("Stripe.Currency", "eur")
	v.SetDefault("GPT.APIKey", "")
	v.SetDefault("GPT.Model", "gpt-4o-mini")
	v.SetDefault("GPT.BaseURL", "")
	v.SetDefault("GPT.Temperature", 0.9)
	v.SetDefault("GPT.MaxTokens", 8000)
	v.SetDefault("Planner.Endpoint", "http://localhost:8080/api/ai")
	v.SetDefault("Planner.FallbackEndpoint", "")
	v.SetDefault("Planner.Timeout", 2*time.Minute)
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("Server.AllowedOrigins", []string{"*"})
	v.SetDefault("Log.Level", "info")
	v.SetDefault("Log.Development", false)
	v.SetDefault("ShutdownTimeout", 10*time.Second)
}

// expandEnvRefs replaces "${VAR}" values with the variable's content.
func expandEnvRefs(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.v = v
	return &cfg, nil
}

// File returns the config file in use, or "" when running from env only.
func (c *Config) File() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// Watch calls onChange with the reloaded config whenever the config file
// changes. It is a no-op without a config file.
func (c *Config) Watch(onChange func(*Config, error)) {
	if c.File() == "" {
		return
	}
	c.v.OnConfigChange(func(fsnotify.Event) {
		expandEnvRefs(c.v)
		onChange(unmarshal(c.v))
	})
	c.v.WatchConfig()
}
