package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/lumashape/insert-pricing/internal/cache"
	"github.com/lumashape/insert-pricing/internal/config"
	"github.com/lumashape/insert-pricing/internal/db"
	"github.com/lumashape/insert-pricing/internal/events"
	"github.com/lumashape/insert-pricing/internal/metrics"
	"github.com/lumashape/insert-pricing/internal/migrations"
	"github.com/lumashape/insert-pricing/internal/orders"
	"github.com/lumashape/insert-pricing/internal/seed"
	"github.com/lumashape/insert-pricing/internal/store"
)

// app is the wired service graph shared by the serve and verify commands.
type app struct {
	db       *sql.DB
	registry *prometheus.Registry
	service  *orders.Service
	closers  []func() error
}

func openApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	database, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{db: database, closers: []func() error{database.Close}}

	if err := migrations.Up(ctx, database, logger); err != nil {
		_ = a.close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if _, err := seed.Run(ctx, database, seed.Config{Parameters: cfg.Parameters}, logger); err != nil {
		_ = a.close()
		return nil, fmt.Errorf("seed database: %w", err)
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(a.registry)

	var publisher orders.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka := events.NewKafkaPublisher(cfg.Kafka, logger)
		a.closers = append(a.closers, kafka.Close)
		publisher = kafka
		logger.Info("order events enabled", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.OrdersTopic))
	}

	var opts []orders.Option
	if cfg.Redis.Addr != "" {
		quotes := cache.NewRedisQuoteCache(cfg.Redis, logger)
		a.closers = append(a.closers, quotes.Close)
		opts = append(opts, orders.WithQuoteCache(quotes))
		logger.Info("quote cache enabled", zap.String("addr", cfg.Redis.Addr), zap.Duration("ttl", cfg.Redis.TTL))
	}

	a.service = orders.NewService(
		store.NewOrders(database),
		store.NewParametersStore(database),
		publisher,
		m,
		logger,
		opts...,
	)
	return a, nil
}

// close releases resources in reverse order of acquisition.
func (a *app) close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
