package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fydeScope/internal/chain"
	"fydeScope/internal/config"
	"fydeScope/internal/indexer"
	"fydeScope/internal/multicall"
	"fydeScope/internal/observability"
)

func main() {
	root := &cobra.Command{
		Use:          "fydescope",
		Short:        "Fyde protocol history and state reader",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "Ethereum RPC URL")
	flags.String("network", "mainnet", "contract address book (mainnet, sepolia)")
	flags.Uint64("block-batch-size", 2000, "blocks per eth_getLogs request")
	flags.Int("max-retries", 5, "maximum retry attempts for transport failures")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Duration("timeout", 5*time.Minute, "overall command timeout")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newHistoryCmd(),
		newRebalanceCmd(),
		newGovernanceCmd(),
		newVeFydeCmd(),
		newVaultCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the clients shared by every command.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	client  *chain.Client
	reader  *multicall.Reader
	fetcher *indexer.Fetcher
	retry   indexer.RetryPolicy
	chainID uint64
}

// setup loads configuration, connects to the RPC and returns a context bound
// to the command timeout and process signals. close must always be called.
func setup(cmd *cobra.Command) (*app, context.Context, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cancel := func() {}
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
	}
	stopMetrics := serveMetrics(cfg.MetricsAddr, logger)

	closers := []func(){stopMetrics, cancel, stop, func() { _ = logger.Sync() }}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		closeAll()
		return nil, nil, nil, fmt.Errorf("connect rpc: %w", err)
	}
	closers = append([]func(){client.Close}, closers...)

	chainID, err := client.GetChainID(ctx)
	if err != nil {
		closeAll()
		return nil, nil, nil, err
	}
	if cfg.Network.ChainID != 0 && chainID.Uint64() != cfg.Network.ChainID {
		closeAll()
		return nil, nil, nil, fmt.Errorf("rpc chain id %s does not match network %s (%d)", chainID, cfg.Network.Name, cfg.Network.ChainID)
	}

	reader, err := multicall.NewReader(client, multicall.Config{Address: cfg.Network.Multicall, Logger: logger})
	if err != nil {
		closeAll()
		return nil, nil, nil, err
	}
	retry := indexer.RetryPolicy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBackoff}
	fetcher, err := indexer.NewFetcher(client, indexer.FetcherConfig{
		BlockBatchSize: cfg.BlockBatchSize,
		Retry:          retry,
		Logger:         logger,
	})
	if err != nil {
		closeAll()
		return nil, nil, nil, err
	}

	logger.Debug("connected",
		zap.String("network", cfg.Network.Name),
		zap.Uint64("chain_id", chainID.Uint64()),
	)
	return &app{
		cfg:     cfg,
		logger:  logger,
		client:  client,
		reader:  reader,
		fetcher: fetcher,
		retry:   retry,
		chainID: chainID.Uint64(),
	}, ctx, closeAll, nil
}

func serveMetrics(addr string, logger *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
