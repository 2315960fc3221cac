// Package history reconciles relayer requests with liquid vault settlements
// into an ordered user action history.
package history

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fydeScope/internal/indexer"
	"fydeScope/internal/model"
	"fydeScope/internal/observability"
	"fydeScope/internal/protocol"
)

// EventStreamer streams decoded contract events in chain order.
type EventStreamer interface {
	Stream(ctx context.Context, q indexer.Query) iter.Seq2[indexer.Entry, error]
}

// Config configures a Reconciler.
type Config struct {
	Relayer     common.Address
	LiquidVault common.Address
	// MetaConcurrency bounds concurrent transaction lookups.
	MetaConcurrency int
	Retry           indexer.RetryPolicy
	Logger          *zap.Logger
}

// Reconciler joins request and settlement events by request id.
type Reconciler struct {
	streamer    EventStreamer
	resolver    MetaResolver
	relayer     common.Address
	vault       common.Address
	requests    protocol.Decoder
	settlements protocol.Decoder
	concurrency int
	retry       indexer.RetryPolicy
	logger      *zap.Logger
}

func NewReconciler(streamer EventStreamer, resolver MetaResolver, cfg Config) (*Reconciler, error) {
	if streamer == nil || resolver == nil {
		return nil, fmt.Errorf("streamer and resolver are required")
	}
	if cfg.Relayer == (common.Address{}) || cfg.LiquidVault == (common.Address{}) {
		return nil, fmt.Errorf("relayer and liquid vault addresses are required")
	}
	requests, err := protocol.NewRelayerDecoder()
	if err != nil {
		return nil, err
	}
	settlements, err := protocol.NewLiquidVaultDecoder(protocol.SettlementEvents...)
	if err != nil {
		return nil, err
	}
	concurrency := cfg.MetaConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		streamer:    streamer,
		resolver:    resolver,
		relayer:     cfg.Relayer,
		vault:       cfg.LiquidVault,
		requests:    requests,
		settlements: settlements,
		concurrency: concurrency,
		retry:       cfg.Retry,
		logger:      logger,
	}, nil
}

// Reconcile returns the user actions whose requests fall in [fromBlock, toBlock],
// ordered by the request's (block number, log index). toBlock zero means latest.
//
// Every request must have exactly one settlement of the same kind in the range
// and every settlement must belong to a request; anything else is reported as
// a *model.IntegrityError.
func (r *Reconciler) Reconcile(ctx context.Context, fromBlock, toBlock uint64) ([]model.UserAction, error) {
	requests, err := r.fetchRequests(ctx, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	r.logger.Info("requests fetched", zap.Int("requests", len(requests)), zap.Uint64("from", fromBlock))

	if err := r.resolveMeta(ctx, requests); err != nil {
		return nil, err
	}

	settlements, order, err := r.fetchSettlements(ctx, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}
	r.logger.Info("settlements fetched", zap.Int("settlements", len(settlements)))

	actions, err := join(requests, settlements, order)
	if err != nil {
		var integrity *model.IntegrityError
		if errors.As(err, &integrity) {
			observability.RecordIntegrityError(string(integrity.Reason))
			r.logger.Warn("history integrity violation",
				zap.String("reason", string(integrity.Reason)),
				zap.Uint64("request_id", integrity.RequestID),
				zap.String("detail", integrity.Detail),
			)
		}
		return nil, err
	}
	for _, a := range actions {
		observability.RecordActionReconciled(string(a.Meta().Kind))
	}
	return actions, nil
}

func (r *Reconciler) fetchRequests(ctx context.Context, fromBlock, toBlock uint64) ([]model.RequestEvent, error) {
	var requests []model.RequestEvent
	stream := r.streamer.Stream(ctx, indexer.Query{Contract: r.relayer, Decoder: r.requests, FromBlock: fromBlock, ToBlock: toBlock})
	for entry, err := range stream {
		if err != nil {
			return nil, fmt.Errorf("fetch requests: %w", err)
		}
		if entry.Err != nil {
			return nil, fmt.Errorf("fetch requests: %w", entry.Err)
		}
		if req, ok := entry.Event.(model.RequestEvent); ok {
			requests = append(requests, req)
		}
	}
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].LogRef.Before(requests[j].LogRef)
	})
	return requests, nil
}

func (r *Reconciler) fetchSettlements(ctx context.Context, fromBlock, toBlock uint64) (map[uint64]model.SettlementEvent, []model.SettlementEvent, error) {
	byID := make(map[uint64]model.SettlementEvent)
	var order []model.SettlementEvent
	stream := r.streamer.Stream(ctx, indexer.Query{Contract: r.vault, Decoder: r.settlements, FromBlock: fromBlock, ToBlock: toBlock})
	for entry, err := range stream {
		if err != nil {
			return nil, nil, fmt.Errorf("fetch settlements: %w", err)
		}
		if entry.Err != nil {
			return nil, nil, fmt.Errorf("fetch settlements: %w", entry.Err)
		}
		settlement, ok := entry.Event.(model.SettlementEvent)
		if !ok {
			continue
		}
		if prev, dup := byID[settlement.ID()]; dup {
			return nil, nil, &model.IntegrityError{
				Reason:    model.ReasonDuplicateSettlement,
				RequestID: settlement.ID(),
				Detail: fmt.Sprintf("settled at block %d log %d and block %d log %d",
					prev.Ref().BlockNumber, prev.Ref().LogIndex, settlement.Ref().BlockNumber, settlement.Ref().LogIndex),
			}
		}
		byID[settlement.ID()] = settlement
		order = append(order, settlement)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Ref().Before(order[j].Ref())
	})
	return byID, order, nil
}

// join walks requests in chain order and pairs each with its settlement.
func join(requests []model.RequestEvent, settlements map[uint64]model.SettlementEvent, order []model.SettlementEvent) ([]model.UserAction, error) {
	actions := make([]model.UserAction, 0, len(requests))
	claimed := make(map[uint64]struct{}, len(requests))

	for _, req := range requests {
		if _, dup := claimed[req.RequestID]; dup {
			return nil, &model.IntegrityError{
				Reason:    model.ReasonDuplicateRequest,
				RequestID: req.RequestID,
				Detail:    fmt.Sprintf("tx %s", req.TxHash.Hex()),
			}
		}
		claimed[req.RequestID] = struct{}{}

		settlement, ok := settlements[req.RequestID]
		if !ok {
			return nil, &model.IntegrityError{
				Reason:    model.ReasonMissingSettlement,
				RequestID: req.RequestID,
				Detail:    fmt.Sprintf("%s request in tx %s", req.Kind, req.TxHash.Hex()),
			}
		}
		if settlement.Kind() != req.Kind {
			return nil, &model.IntegrityError{
				Reason:    model.ReasonKindMismatch,
				RequestID: req.RequestID,
				Detail:    fmt.Sprintf("%s request settled as %s", req.Kind, settlement.Kind()),
			}
		}
		if shapeErr := checkShape(req); shapeErr != nil {
			return nil, shapeErr
		}

		action, err := merge(req, settlement)
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}

	for _, settlement := range order {
		if _, ok := claimed[settlement.ID()]; !ok {
			return nil, &model.IntegrityError{
				Reason:    model.ReasonOrphanSettlement,
				RequestID: settlement.ID(),
				Detail:    fmt.Sprintf("%s settlement in tx %s has no request in range", settlement.Kind(), settlement.Ref().TxHash.Hex()),
			}
		}
	}
	return actions, nil
}
