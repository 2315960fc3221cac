package governance

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fydeScope/internal/model"
	"fydeScope/internal/multicall"
	"fydeScope/internal/protocol"
)

// userFields are read per asset, in this order.
var userFields = []struct {
	method string
	set    func(*model.AssetGovernance, string)
}{
	{"strsyBalance", func(a *model.AssetGovernance, v string) { a.StTrsyBalance = v }},
	{"proxyBalance", func(a *model.AssetGovernance, v string) { a.CurrentGovernanceRights = v }},
	{"getUserGTAllowance", func(a *model.AssetGovernance, v string) { a.TotalVotingRights = v }},
}

// ProxyOf returns the governance proxy of user, or false when none is set.
func (r *Rebalancer) ProxyOf(ctx context.Context, user common.Address) (common.Address, bool, error) {
	values, err := r.reader.Call(ctx, r.call("userToProxy", user))
	if err != nil {
		return common.Address{}, false, fmt.Errorf("get user proxy: %w", err)
	}
	if len(values) != 1 {
		return common.Address{}, false, fmt.Errorf("get user proxy: unexpected values: %d", len(values))
	}
	proxy, err := protocol.AsAddress(values[0])
	if err != nil {
		return common.Address{}, false, fmt.Errorf("get user proxy: %w", err)
	}
	if proxy == (common.Address{}) {
		return common.Address{}, false, nil
	}
	return proxy, true, nil
}

func (r *Rebalancer) userCalls(user common.Address, assets []common.Address) []multicall.Call {
	calls := make([]multicall.Call, 0, len(assets)*len(userFields))
	for _, asset := range assets {
		for _, f := range userFields {
			calls = append(calls, r.call(f.method, user, asset))
		}
	}
	return calls
}

func newGovernanceData(user common.Address, assets []common.Address) model.GovernanceData {
	data := model.GovernanceData{User: user.Hex(), Assets: make([]model.AssetGovernance, len(assets))}
	for i, asset := range assets {
		data.Assets[i].Asset = asset.Hex()
	}
	return data
}

// UserGovernanceData reads stTRSY balance, current governance rights and total
// voting rights of user for each asset in one strict batch.
func (r *Rebalancer) UserGovernanceData(ctx context.Context, user common.Address, assets []common.Address) (model.GovernanceData, error) {
	results, err := r.reader.Strict(ctx, r.userCalls(user, assets))
	if err != nil {
		return model.GovernanceData{}, fmt.Errorf("get governance data: %w", err)
	}

	data := newGovernanceData(user, assets)
	for i := range assets {
		for j, f := range userFields {
			idx := i*len(userFields) + j
			amount, err := protocol.AsBigInt(results[idx][0])
			if err != nil {
				return model.GovernanceData{}, &model.CallError{Index: idx, Method: f.method, Err: err}
			}
			f.set(&data.Assets[i], amount.String())
		}
	}
	return data, nil
}

// UserGovernanceDataTolerant reads the same fields as UserGovernanceData but
// keeps going when individual calls fail, listing the failed fields per asset.
func (r *Rebalancer) UserGovernanceDataTolerant(ctx context.Context, user common.Address, assets []common.Address) (model.GovernanceData, error) {
	outcomes, err := r.reader.Tolerant(ctx, r.userCalls(user, assets))
	if err != nil {
		return model.GovernanceData{}, fmt.Errorf("get governance data: %w", err)
	}

	data := newGovernanceData(user, assets)
	for i := range assets {
		for j, f := range userFields {
			idx := i*len(userFields) + j
			outcome := outcomes[idx]
			var amount string
			if outcome.OK() {
				if n, err := protocol.AsBigInt(outcome.Values[0]); err == nil {
					amount = n.String()
				}
			}
			if amount == "" {
				data.Assets[i].Missing = append(data.Assets[i].Missing, f.method)
				r.logger.Debug("governance field unavailable",
					zap.String("asset", data.Assets[i].Asset),
					zap.String("method", f.method),
					zap.Error(outcome.Err),
				)
				continue
			}
			f.set(&data.Assets[i], amount)
		}
	}
	return data, nil
}
