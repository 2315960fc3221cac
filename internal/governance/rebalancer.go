// Package governance reads the governance module: participant imbalances,
// rebalance priority and per-user governance positions.
package governance

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fydeScope/internal/model"
	"fydeScope/internal/multicall"
	"fydeScope/internal/protocol"
)

// BatchReader executes contract view calls, singly or as one batch.
type BatchReader interface {
	Call(ctx context.Context, call multicall.Call) ([]interface{}, error)
	Strict(ctx context.Context, calls []multicall.Call) ([][]interface{}, error)
	Tolerant(ctx context.Context, calls []multicall.Call) ([]model.Outcome, error)
}

// Rebalancer reads the governance module contract.
type Rebalancer struct {
	reader    BatchReader
	module    common.Address
	moduleABI abi.ABI
	logger    *zap.Logger
}

func NewRebalancer(reader BatchReader, module common.Address, logger *zap.Logger) (*Rebalancer, error) {
	if reader == nil {
		return nil, fmt.Errorf("batch reader is nil")
	}
	moduleABI, err := protocol.GovernanceModuleABI()
	if err != nil {
		return nil, fmt.Errorf("parse governance module abi: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rebalancer{reader: reader, module: module, moduleABI: moduleABI, logger: logger}, nil
}

func (r *Rebalancer) call(method string, args ...interface{}) multicall.Call {
	return multicall.Call{Target: r.module, ABI: r.moduleABI, Method: method, Args: args}
}

// Participants returns every current governance user.
func (r *Rebalancer) Participants(ctx context.Context) ([]common.Address, error) {
	values, err := r.reader.Call(ctx, r.call("getAllGovUsers"))
	if err != nil {
		return nil, fmt.Errorf("get governance users: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("get governance users: unexpected values: %d", len(values))
	}
	users, err := protocol.AsAddresses(values[0])
	if err != nil {
		return nil, fmt.Errorf("get governance users: %w", err)
	}
	return users, nil
}

// Imbalances fetches every participant's signed imbalance for asset in one
// strict batch, in participant order.
func (r *Rebalancer) Imbalances(ctx context.Context, asset common.Address) ([]model.GovernanceImbalance, error) {
	users, err := r.Participants(ctx)
	if err != nil {
		return nil, err
	}
	calls := make([]multicall.Call, len(users))
	for i, user := range users {
		calls[i] = r.call("getTokenUnbalance", user, asset)
	}
	results, err := r.reader.Strict(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("get token unbalance: %w", err)
	}

	out := make([]model.GovernanceImbalance, len(users))
	for i, user := range users {
		delta, err := protocol.AsBigInt(results[i][0])
		if err != nil {
			return nil, &model.CallError{Index: i, Method: "getTokenUnbalance", Err: err}
		}
		out[i] = model.GovernanceImbalance{User: user, Delta: delta}
	}
	return out, nil
}

// ProxiesToRebalance returns the governance users holding asset ordered from
// most under-funded to most over-funded. Balanced users are omitted.
func (r *Rebalancer) ProxiesToRebalance(ctx context.Context, asset common.Address) ([]common.Address, error) {
	imbalances, err := r.Imbalances(ctx, asset)
	if err != nil {
		return nil, err
	}
	ranked := Rank(imbalances)
	r.logger.Info("governance imbalances ranked",
		zap.String("asset", asset.Hex()),
		zap.Int("participants", len(imbalances)),
		zap.Int("actionable", len(ranked)),
	)
	return ranked, nil
}

// Rank drops zero deltas and sorts ascending by delta. Ties keep input order.
func Rank(imbalances []model.GovernanceImbalance) []common.Address {
	actionable := make([]model.GovernanceImbalance, 0, len(imbalances))
	for _, im := range imbalances {
		if im.Delta == nil || im.Delta.Sign() == 0 {
			continue
		}
		actionable = append(actionable, im)
	}
	sort.SliceStable(actionable, func(i, j int) bool {
		return actionable[i].Delta.Cmp(actionable[j].Delta) < 0
	})

	out := make([]common.Address, len(actionable))
	for i, im := range actionable {
		out[i] = im.User
	}
	return out
}
