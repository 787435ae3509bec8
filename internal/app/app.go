// Package app builds the process-wide collaborators from configuration. The
// serve, worker and CLI commands share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmehdipour/salon-campaigns/internal/config"
	"github.com/jmehdipour/salon-campaigns/internal/db"
	"github.com/jmehdipour/salon-campaigns/internal/delivery"
	"github.com/jmehdipour/salon-campaigns/internal/dispatcher"
	"github.com/jmehdipour/salon-campaigns/internal/generator"
	"github.com/jmehdipour/salon-campaigns/internal/logger"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bootstrap loads .env (if present), the config file and initializes the logger.
func Bootstrap(cfgPath string) (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	return cfg, nil
}

func sqlOpts(c config.DatabaseConfig) db.SQLOpts {
	return db.SQLOpts{
		DSN:             c.DSN,
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		PingTimeout:     c.PingTimeout,
	}
}

func MySQL(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dbx, err := db.NewMySQLConnection(ctx, sqlOpts(cfg.MySQL))
	if err != nil {
		return nil, fmt.Errorf("mysql connect: %w", err)
	}
	return dbx, nil
}

func ClickHouse(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	chDB, err := db.NewClickHouseConnection(ctx, sqlOpts(cfg.ClickHouse))
	if err != nil {
		return nil, fmt.Errorf("clickhouse connect: %w", err)
	}
	return chDB, nil
}

func Redis(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	rdb, err := db.NewRedisClient(ctx, db.RedisOpts{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return rdb, nil
}

// Generator returns nil (and no error) when no API key is configured, so
// template campaigns with a stored text keep working without one.
func Generator(ctx context.Context, cfg config.Config) (dispatcher.TextGenerator, error) {
	gc := cfg.Generator
	if strings.TrimSpace(gc.APIKey) == "" {
		logger.Log.Warn("generator api key not set, text generation disabled")
		return nil, nil
	}

	m, err := generator.NewGenAIModel(ctx, generator.GenAIOpts{
		APIKey:  gc.APIKey,
		Model:   gc.Model,
		Timeout: gc.Timeout,
	})
	if err != nil {
		return nil, err
	}

	return generator.New(m, generator.Options{
		Language: gc.Language,
		Tones:    generator.NewRandomTones(gc.ToneSeed),
		Retry:    generator.RetryPolicy{Attempts: gc.MaxAttempts, Wait: gc.RetryWait},
	}), nil
}

// Gateways builds the real-mode gateway factory from the enabled providers.
func Gateways(cfg config.Config) delivery.Factory {
	var https []delivery.HTTPOpts
	for _, pc := range cfg.Gateway.Providers {
		if !pc.Enabled {
			continue
		}
		https = append(https, delivery.HTTPOpts{
			Name:          pc.Name,
			BaseURL:       strings.TrimRight(pc.BaseURL, "/"),
			Path:          pc.Path,
			Token:         pc.Token,
			From:          pc.From,
			TimeoutMs:     pc.TimeoutMs,
			FailThreshold: pc.Breaker.FailThreshold,
			OpenForMs:     pc.Breaker.OpenForMs,
		})
	}
	tw := cfg.Gateway.Twilio
	return delivery.NewFactory(cfg.Gateway.Provider, delivery.TwilioOpts{
		AccountSID: tw.AccountSID,
		AuthToken:  tw.AuthToken,
		From:       tw.From,
	}, https)
}

func Dispatcher(cfg config.Config, log *zap.Logger) *dispatcher.Dispatcher {
	return dispatcher.New(Gateways(cfg), dispatcher.Options{
		Pace: cfg.Dispatcher.Pace,
		Log:  log,
	})
}
