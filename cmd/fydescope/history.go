package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fydeScope/internal/cache"
	"fydeScope/internal/history"
	"fydeScope/internal/storage"
	"fydeScope/internal/storage/kafka"
	"fydeScope/internal/storage/postgres"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Reconcile relayer requests with vault settlements into user actions",
		RunE:  runHistory,
	}
	cmd.Flags().Uint64("from", 0, "start block (inclusive)")
	cmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	cmd.Flags().Int("meta-concurrency", 8, "concurrent transaction lookups")
	cmd.Flags().String("out", "./data/user_actions.jsonl", "output JSONL path")
	cmd.Flags().String("pg-dsn", "", "also upsert actions into Postgres")
	cmd.Flags().String("redis-addr", "", "cache transaction metadata in Redis")
	cmd.Flags().Duration("redis-ttl", 24*time.Hour, "Redis cache entry lifetime")
	cmd.Flags().StringSlice("kafka-brokers", nil, "also publish actions to Kafka (comma-separated)")
	cmd.Flags().String("kafka-topic", "fydescope.user-actions", "Kafka topic for user actions")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, ctx, closeApp, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeApp()
	cfg := a.cfg

	var resolver history.MetaResolver = a.client
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.logger.Warn("redis unavailable, metadata cache disabled", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			metaCache, err := cache.NewMetaCache(rdb, a.client, a.chainID, cfg.RedisTTL, a.logger)
			if err != nil {
				return err
			}
			resolver = metaCache
		}
	}

	reconciler, err := history.NewReconciler(a.fetcher, resolver, history.Config{
		Relayer:         cfg.Network.Relayer,
		LiquidVault:     cfg.Network.LiquidVault,
		MetaConcurrency: cfg.MetaConcurrency,
		Retry:           a.retry,
		Logger:          a.logger,
	})
	if err != nil {
		return err
	}

	sinks, closeSinks, err := openSinks(ctx, cfgSinks{
		out:          cfg.Out,
		pgDSN:        cfg.PGDSN,
		kafkaBrokers: cfg.KafkaBrokers,
		kafkaTopic:   cfg.KafkaTopic,
	})
	if err != nil {
		return err
	}
	defer closeSinks()

	a.logger.Info("history start",
		zap.String("network", cfg.Network.Name),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Uint64("block_batch_size", cfg.BlockBatchSize),
		zap.Int("sinks", len(sinks)),
	)

	actions, err := reconciler.Reconcile(ctx, cfg.FromBlock, cfg.ToBlock)
	if err != nil {
		return err
	}
	if err := sinks.PutUserActions(ctx, actions); err != nil {
		return err
	}
	a.logger.Info("history done", zap.Int("actions", len(actions)), zap.String("out", cfg.Out))
	return nil
}

type cfgSinks struct {
	out          string
	pgDSN        string
	kafkaBrokers []string
	kafkaTopic   string
}

func openSinks(ctx context.Context, c cfgSinks) (storage.Multi, func(), error) {
	var closers []func()
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}

	sinks := storage.Multi{{Name: "jsonl", Sink: storage.NewJsonlStorage(c.out)}}
	if c.pgDSN != "" {
		store, err := postgres.NewStore(ctx, c.pgDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		closers = append(closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, storage.Named{Name: "postgres", Sink: store})
	}
	if len(c.kafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(c.kafkaBrokers, c.kafkaTopic)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = publisher.Close() })
		sinks = append(sinks, storage.Named{Name: "kafka", Sink: publisher})
	}
	return sinks, closeAll, nil
}
