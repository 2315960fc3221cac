package indexer

import (
	"context"
	"fmt"
	"iter"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"fydeScope/internal/model"
	"fydeScope/internal/observability"
	"fydeScope/internal/protocol"
)

// LogFilterer is the subset of the chain client the fetcher needs.
type LogFilterer interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// FetcherConfig configures log pagination and retries.
type FetcherConfig struct {
	BlockBatchSize uint64
	Retry          RetryPolicy
	Logger         *zap.Logger
}

// Fetcher streams decoded contract events in chain order.
type Fetcher struct {
	client    LogFilterer
	batchSize uint64
	retry     RetryPolicy
	logger    *zap.Logger
}

// Query selects the logs of one contract. ToBlock zero means the latest block.
type Query struct {
	Contract  common.Address
	Decoder   protocol.Decoder
	FromBlock uint64
	ToBlock   uint64
}

// Entry is one log in the stream. Event holds the decoded model value, or nil
// for logs the decoder ignores. Err is set instead when the log is malformed.
type Entry struct {
	Ref   model.LogRef
	Event interface{}
	Err   *model.DecodeError
}

func NewFetcher(client LogFilterer, cfg FetcherConfig) (*Fetcher, error) {
	if client == nil {
		return nil, fmt.Errorf("log filterer is nil")
	}
	if cfg.BlockBatchSize == 0 {
		return nil, fmt.Errorf("block batch size must be greater than zero")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, batchSize: cfg.BlockBatchSize, retry: cfg.Retry, logger: logger}, nil
}

// Stream returns a lazy sequence of entries ordered by (block number, log index).
// Each block chunk is requested only when iteration reaches it, with one
// eth_getLogs call covering every topic the decoder selects. A non-nil error
// ends the sequence and is always a transport or range failure.
func (f *Fetcher) Stream(ctx context.Context, q Query) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if q.Decoder == nil {
			yield(Entry{}, fmt.Errorf("query decoder is nil"))
			return
		}
		toBlock := q.ToBlock
		if toBlock == 0 {
			err := WithRetry(ctx, f.retry, "eth_blockNumber", func(ctx context.Context) error {
				var err error
				toBlock, err = f.client.LatestBlockNumber(ctx)
				return err
			})
			if err != nil {
				yield(Entry{}, fmt.Errorf("resolve latest block: %w", err))
				return
			}
		}
		if q.FromBlock > toBlock {
			return
		}

		chunks, err := SplitRange(q.FromBlock, toBlock, f.batchSize)
		if err != nil {
			yield(Entry{}, err)
			return
		}
		topics := q.Decoder.Topics()
		addresses := []common.Address{q.Contract}

		for r := range chunks {
			var logs []types.Log
			err := WithRetry(ctx, f.retry, "eth_getLogs", func(ctx context.Context) error {
				var err error
				logs, err = f.client.FilterLogs(ctx, r.From, r.To, addresses, topics)
				return err
			})
			if err != nil {
				yield(Entry{}, fmt.Errorf("filter logs %s: %w", r, err))
				return
			}
			observability.RecordLogsFetched(len(logs))
			f.logger.Debug("fetched logs",
				zap.String("contract", q.Contract.Hex()),
				zap.Uint64("from", r.From),
				zap.Uint64("to", r.To),
				zap.Int("logs", len(logs)),
			)

			sort.SliceStable(logs, func(i, j int) bool {
				if logs[i].BlockNumber != logs[j].BlockNumber {
					return logs[i].BlockNumber < logs[j].BlockNumber
				}
				return logs[i].Index < logs[j].Index
			})

			for _, log := range logs {
				if log.Removed {
					continue
				}
				if !yield(decodeEntry(q.Decoder, log), nil) {
					return
				}
			}
		}
	}
}

func decodeEntry(decoder protocol.Decoder, log types.Log) Entry {
	ref := model.LogRef{BlockNumber: log.BlockNumber, TxHash: log.TxHash, LogIndex: uint64(log.Index)}
	event, err := decoder.Decode(log)
	if err == nil {
		return Entry{Ref: ref, Event: event}
	}

	topic0 := ""
	if len(log.Topics) > 0 {
		topic0 = log.Topics[0].Hex()
	}
	observability.RecordDecodeError(topic0)
	return Entry{Ref: ref, Err: &model.DecodeError{
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Address:     log.Address.Hex(),
		Topic0:      topic0,
		Reason:      err.Error(),
		Err:         err,
	}}
}

// Collect drains a stream into the decoded events, skipping ignored logs.
// With failOnDecode the first malformed log aborts collection; otherwise
// malformed logs are returned separately.
func Collect(stream iter.Seq2[Entry, error], failOnDecode bool) ([]interface{}, []*model.DecodeError, error) {
	var events []interface{}
	var decodeErrs []*model.DecodeError
	for entry, err := range stream {
		if err != nil {
			return nil, nil, err
		}
		if entry.Err != nil {
			if failOnDecode {
				return nil, nil, entry.Err
			}
			decodeErrs = append(decodeErrs, entry.Err)
			continue
		}
		if entry.Event != nil {
			events = append(events, entry.Event)
		}
	}
	return events, decodeErrs, nil
}
