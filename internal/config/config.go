package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL          string
	Network         Network
	FromBlock       uint64
	ToBlock         uint64
	BlockBatchSize  uint64
	MaxRetries      int
	RetryBackoff    time.Duration
	MetaConcurrency int
	Timeout         time.Duration
	LogLevel        string
	Out             string
	PGDSN           string
	RedisAddr       string
	RedisTTL        time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
	MetricsAddr     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FYDESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", "mainnet")
	v.SetDefault("block-batch-size", uint64(2000))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("meta-concurrency", 8)
	v.SetDefault("timeout", 5*time.Minute)
	v.SetDefault("log-level", "info")
	v.SetDefault("out", "./data/user_actions.jsonl")
	v.SetDefault("redis-ttl", 24*time.Hour)
	v.SetDefault("kafka-topic", "fydescope.user-actions")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	network, err := resolveNetwork(v, v.GetString("network"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:          v.GetString("rpc"),
		Network:         network,
		FromBlock:       v.GetUint64("from"),
		ToBlock:         v.GetUint64("to"),
		BlockBatchSize:  v.GetUint64("block-batch-size"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		MetaConcurrency: v.GetInt("meta-concurrency"),
		Timeout:         v.GetDuration("timeout"),
		LogLevel:        v.GetString("log-level"),
		Out:             v.GetString("out"),
		PGDSN:           v.GetString("pg-dsn"),
		RedisAddr:       v.GetString("redis-addr"),
		RedisTTL:        v.GetDuration("redis-ttl"),
		KafkaBrokers:    getStringSlice(v, "kafka-brokers"),
		KafkaTopic:      v.GetString("kafka-topic"),
		MetricsAddr:     v.GetString("metrics-addr"),
	}

	return cfg, nil
}

// Validate checks the values every command needs.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.BlockBatchSize == 0 {
		return fmt.Errorf("block batch size must be greater than zero")
	}
	if c.ToBlock != 0 && c.FromBlock > c.ToBlock {
		return fmt.Errorf("from block %d is after to block %d", c.FromBlock, c.ToBlock)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative")
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
