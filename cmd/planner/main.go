// cmd/planner/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diet-planner/config"
	"diet-planner/internal/bot"
	"diet-planner/internal/db"
	"diet-planner/internal/gpt"
	"diet-planner/internal/payment"
	"diet-planner/internal/planclient"
	"diet-planner/internal/server"
	"diet-planner/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalw("Failed to load config", "error", err)
	}

	l := logger.New(cfg.Log.Level)
	if cfg.Log.Development {
		l = logger.NewDevelopment()
	}
	defer l.Sync()
	l.Infow("Starting diet planner", "config_file", cfg.File())

	cfg.Watch(func(c *config.Config, err error) {
		if err != nil {
			l.Errorw("Failed to reload config", "error", err)
			return
		}
		if err := l.SetLevel(c.Log.Level); err != nil {
			l.Warnw("Ignoring invalid log level", "level", c.Log.Level, "error", err)
			return
		}
		l.Infow("Log level changed", "level", l.Level())
	})

	if cfg.GPT.APIKey == "" {
		l.Warn("GPT API key is not configured; plan requests will fail with a configuration error")
	}

	gptClient := gpt.NewClient(cfg.GPT.APIKey, cfg.GPT.BaseURL).
		WithModel(cfg.GPT.Model).
		WithTemperature(cfg.GPT.Temperature).
		WithMaxTokens(cfg.GPT.MaxTokens)

	var telegramBot *bot.TelegramBot
	opts := server.Options{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}

	if cfg.Telegram.Token != "" {
		database := connectDB(cfg.DB, l)
		defer database.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.Migrate(ctx); err != nil {
			l.Fatalw("Failed to migrate database", "error", err)
		}
		cancel()

		planner := planclient.New(cfg.Planner.Endpoint,
			planclient.WithFallbackEndpoint(cfg.Planner.FallbackEndpoint),
			planclient.WithTimeout(cfg.Planner.Timeout),
			planclient.WithLogger(l),
		)

		if cfg.Stripe.Enabled() {
			l.Infow("Checkout enabled", "price_id", cfg.Stripe.PriceID)
			telegramBot, err = bot.NewTelegramBot(cfg.Telegram.Token, database, planner, payment.NewStripeClient(cfg.Stripe), l)
		} else {
			telegramBot, err = bot.NewTelegramBot(cfg.Telegram.Token, database, planner, nil, l)
		}
		if err != nil {
			l.Fatalw("Failed to create Telegram bot", "error", err)
		}
		if cfg.Stripe.Enabled() {
			opts.StripeWebhook = telegramBot.HandleStripeWebhook
		}
	} else {
		l.Warn("Telegram token is not configured; serving the plan endpoint only")
	}

	httpServer := server.NewServer(opts, gptClient, l)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if telegramBot != nil {
		if err := telegramBot.Start(ctx); err != nil {
			l.Fatalw("Failed to start Telegram bot", "error", err)
		}
		l.Info("Telegram bot started successfully")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during HTTP server shutdown", "error", err)
	}

	if telegramBot != nil {
		if err := telegramBot.Stop(shutdownCtx); err != nil {
			l.Errorw("Error during bot shutdown", "error", err)
		}
	}
	stop()

	l.Info("Stopped")
}

// connectDB retries with a linear backoff while the database starts up.
func connectDB(cfg config.DBConfig, l *logger.Logger) *db.PostgresDB {
	const maxRetries = 5

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		database, err := db.NewPostgresDB(cfg)
		if err == nil {
			return database
		}
		lastErr = err
		l.Warnw("Failed to connect to database, retrying...", "attempt", i+1, "error", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	l.Fatalw("Failed to connect to database after multiple attempts", "error", lastErr)
	return nil
}
