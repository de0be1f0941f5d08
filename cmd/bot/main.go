package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/foodorderpro/food-bot/internal/bot"
	"github.com/foodorderpro/food-bot/internal/config"
	"github.com/foodorderpro/food-bot/internal/db"
	"github.com/foodorderpro/food-bot/internal/events"
	"github.com/foodorderpro/food-bot/internal/logger"
	"github.com/foodorderpro/food-bot/internal/operator"
	"github.com/foodorderpro/food-bot/internal/ordering"
)

type publisher interface {
	ordering.Publisher
	Close() error
}

func main() {
	configPath := flag.String("config", os.Getenv("FOODBOT_CONFIG"), "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Bot stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting food ordering bot", zap.String("storage", cfg.Storage.Driver))

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var pub publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), log.Named("events"))
		log.Info("Publishing order events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Warn("Failed to close event publisher", zap.Error(err))
		}
	}()

	svc := ordering.NewService(store, pub, ordering.Config{
		Policy: ordering.Policy{
			StrictTransitions:      cfg.Shop.StrictTransitions,
			ClearTableOnAnyPayment: cfg.Shop.ClearTableOnAnyPayment,
			EnforceMinOrder:        cfg.Shop.EnforceMinOrder,
		},
		HistoryLimit: cfg.Shop.HistoryLimit,
	}, log)

	telegramBot, err := bot.New(bot.Config{
		Token:         cfg.Telegram.Token,
		WebhookURL:    cfg.Telegram.WebhookURL,
		WebhookPath:   cfg.Telegram.WebhookPath,
		WebhookSecret: cfg.Telegram.WebhookSecret,
		PollTimeout:   cfg.Telegram.PollTimeout,
		Debug:         cfg.Telegram.Debug,
		AdminPassword: cfg.Admin.Password,
		Currency:      cfg.Shop.Currency,
	}, svc, log.Named("bot"))
	if err != nil {
		return err
	}

	server := operator.New(operator.Config{
		Addr:           cfg.Operator.Addr,
		Secret:         cfg.Operator.Secret,
		AllowedOrigins: cfg.Operator.AllowedOrigins,
		BotUsername:    telegramBot.Username(),
	}, svc, log.Named("operator"))
	if cfg.WebhookMode() {
		server.MountWebhook(telegramBot.WebhookPath(), telegramBot.WebhookHandler())
	}

	serverErr := make(chan error, 1)
	if cfg.Operator.Addr != "" {
		go func() {
			err := server.ListenAndServe(ctx)
			if err != nil {
				stop()
			}
			serverErr <- err
		}()
	} else {
		close(serverErr)
	}

	log.Info("Bot is running. Press Ctrl+C to stop.")
	botErr := telegramBot.Run(ctx)
	stop()

	return errors.Join(botErr, <-serverErr)
}

func openStore(ctx context.Context, cfg *config.Config) (ordering.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store, err := db.NewRedis(ctx, client, cfg.Redis.Prefix)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil

	default:
		if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		store, err := db.New(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
}
