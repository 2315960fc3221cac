package vault

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fydeScope/internal/model"
	"fydeScope/internal/multicall"
	"fydeScope/internal/protocol"
)

// Per-asset calls, in batch order.
const (
	fieldSymbol = iota
	fieldDecimals
	fieldTotal
	fieldStandard
	fieldProxy
	fieldCount
)

var accountingMethods = [fieldCount]string{
	fieldSymbol:   "symbol",
	fieldDecimals: "decimals",
	fieldTotal:    "totalAssetAccounting",
	fieldStandard: "standardAssetAccounting",
	fieldProxy:    "proxyAssetAccounting",
}

// AssetAccounting reads the vault's bookkeeping for each asset in one tolerant
// batch. Calls that fail are listed in the asset's Missing field; when the
// token's decimals are unavailable no amount can be scaled and every amount
// is reported missing.
func (v *Vault) AssetAccounting(ctx context.Context, assets []common.Address) ([]model.AssetAccounting, error) {
	calls := make([]multicall.Call, 0, len(assets)*fieldCount)
	for _, asset := range assets {
		calls = append(calls,
			multicall.Call{Target: asset, ABI: v.erc20ABI, Method: "symbol"},
			multicall.Call{Target: asset, ABI: v.erc20ABI, Method: "decimals"},
			v.call("totalAssetAccounting", asset),
			v.call("standardAssetAccounting", asset),
			v.call("proxyAssetAccounting", asset),
		)
	}
	outcomes, err := v.reader.Tolerant(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("get asset accounting: %w", err)
	}
	if len(outcomes) != len(calls) {
		return nil, fmt.Errorf("get asset accounting: unexpected outcomes: %d", len(outcomes))
	}

	out := make([]model.AssetAccounting, len(assets))
	for i, asset := range assets {
		row := outcomes[i*fieldCount : (i+1)*fieldCount]
		acc := model.AssetAccounting{Asset: asset.Hex()}

		if symbol, ok := outcomeValue(row[fieldSymbol], protocol.AsString); ok {
			acc.Symbol = symbol
		} else {
			acc.Missing = append(acc.Missing, accountingMethods[fieldSymbol])
		}

		decimals, haveDecimals := outcomeValue(row[fieldDecimals], protocol.AsUint8)
		if haveDecimals {
			acc.Decimals = decimals
		} else {
			acc.Missing = append(acc.Missing, accountingMethods[fieldDecimals])
		}

		for field := fieldTotal; field < fieldCount; field++ {
			amount, ok := outcomeValue(row[field], protocol.AsBigInt)
			if !ok || !haveDecimals {
				acc.Missing = append(acc.Missing, accountingMethods[field])
				continue
			}
			scaled := scale(amount, decimals)
			switch field {
			case fieldTotal:
				acc.TokenInProtocol = scaled
			case fieldStandard:
				acc.TokenInStandardPool = scaled
			case fieldProxy:
				acc.TokenInGovernancePool = scaled
			}
		}

		if len(acc.Missing) > 0 {
			v.logger.Debug("asset accounting incomplete",
				zap.String("asset", acc.Asset),
				zap.Strings("missing", acc.Missing),
			)
		}
		out[i] = acc
	}
	return out, nil
}

func outcomeValue[T any](o model.Outcome, convert func(interface{}) (T, error)) (T, bool) {
	var zero T
	if !o.OK() || len(o.Values) != 1 {
		return zero, false
	}
	v, err := convert(o.Values[0])
	if err != nil {
		return zero, false
	}
	return v, true
}
