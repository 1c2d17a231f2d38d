package main

import (
	"context"
	"fmt"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/account"
	"github.com/MrEthical07/goAuthClient/internal/config"
	"github.com/MrEthical07/goAuthClient/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	client   *goAuthClient.Client
	accounts *account.Service
	cleanup  []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	a.cleanup = append(a.cleanup, func() { _ = logger.Sync() })

	b := goAuthClient.New().
		WithConfig(cfg.ClientConfig()).
		WithLogger(logger)

	switch cfg.Storage.Backend {
	case config.BackendFile:
		fs, err := storage.NewFile(cfg.Storage.Dir)
		if err != nil {
			a.close()
			return nil, err
		}
		b.WithStorage(fs)
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		a.cleanup = append(a.cleanup, func() { _ = rdb.Close() })
		if err := storage.NewRedis(rdb, cfg.Storage.RedisPrefix).Ping(ctx); err != nil {
			a.close()
			return nil, err
		}
		b.WithRedis(rdb)
	}

	client, err := b.BuildContext(ctx)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("build client: %w", err)
	}
	a.client = client
	a.cleanup = append(a.cleanup, client.Close)
	a.accounts = account.NewService(client, account.Config{Logger: logger.Named("account")})

	return a, nil
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
