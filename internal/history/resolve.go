package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fydeScope/internal/indexer"
	"fydeScope/internal/model"
	"fydeScope/internal/observability"
)

// MetaResolver resolves the block metadata of a transaction.
type MetaResolver interface {
	TransactionMeta(ctx context.Context, txHash common.Hash) (model.BlockMeta, error)
}

// MetaInvalidator is implemented by resolvers that memoise lookups. A stale
// entry is dropped and looked up again before a reorg is reported.
type MetaInvalidator interface {
	InvalidateTransactionMeta(ctx context.Context, txHash common.Hash) error
}

// resolveMeta fills Timestamp, BlockNumber and Requestor of every request from
// its transaction. Lookups run concurrently, one per distinct transaction, and
// results are joined back by position.
func (r *Reconciler) resolveMeta(ctx context.Context, requests []model.RequestEvent) error {
	hashes := make([]common.Hash, 0, len(requests))
	slot := make(map[common.Hash]int, len(requests))
	for _, req := range requests {
		if _, ok := slot[req.TxHash]; ok {
			continue
		}
		slot[req.TxHash] = len(hashes)
		hashes = append(hashes, req.TxHash)
	}

	metas := make([]model.BlockMeta, len(hashes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, hash := range hashes {
		g.Go(func() error {
			meta, err := r.lookupMeta(gctx, hash)
			if err != nil {
				return err
			}
			metas[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("resolve block metadata: %w", err)
	}

	for i := range requests {
		meta, err := r.freshMeta(ctx, metas[slot[requests[i].TxHash]], requests[i])
		if err != nil {
			return fmt.Errorf("resolve block metadata: %w", err)
		}
		metas[slot[requests[i].TxHash]] = meta
		if meta.BlockNumber != requests[i].BlockNumber {
			// The node now places the transaction in another block: the range was reorged under us.
			return fmt.Errorf("resolve block metadata: tx %s: log block %d, transaction block %d: %w",
				requests[i].TxHash.Hex(), requests[i].BlockNumber, meta.BlockNumber, model.ErrNotFound)
		}
		requests[i].Timestamp = meta.Timestamp
		requests[i].Requestor = meta.Sender
	}
	return nil
}

func (r *Reconciler) lookupMeta(ctx context.Context, hash common.Hash) (model.BlockMeta, error) {
	var meta model.BlockMeta
	err := indexer.WithRetry(ctx, r.retry, "eth_getTransactionByHash", func(ctx context.Context) error {
		var err error
		meta, err = r.resolver.TransactionMeta(ctx, hash)
		return err
	})
	switch {
	case err == nil:
		observability.RecordMetaLookup("ok")
	case errors.Is(err, model.ErrNotFound):
		observability.RecordMetaLookup("not_found")
	default:
		observability.RecordMetaLookup("error")
	}
	return meta, err
}

// freshMeta re-resolves meta once through an invalidating resolver when it
// disagrees with the log's block. Otherwise meta is returned unchanged.
func (r *Reconciler) freshMeta(ctx context.Context, meta model.BlockMeta, req model.RequestEvent) (model.BlockMeta, error) {
	if meta.BlockNumber == req.BlockNumber {
		return meta, nil
	}
	inv, ok := r.resolver.(MetaInvalidator)
	if !ok {
		return meta, nil
	}
	if err := inv.InvalidateTransactionMeta(ctx, req.TxHash); err != nil {
		return model.BlockMeta{}, fmt.Errorf("invalidate tx %s: %w", req.TxHash.Hex(), err)
	}
	r.logger.Debug("re-resolving transaction after block mismatch",
		zap.String("tx", req.TxHash.Hex()),
		zap.Uint64("log_block", req.BlockNumber),
		zap.Uint64("meta_block", meta.BlockNumber),
	)
	return r.lookupMeta(ctx, req.TxHash)
}
