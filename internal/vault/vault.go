// Package vault reads liquid vault state: protocol totals, the asset list,
// per-asset accounting and fee flows.
package vault

import (
	"context"
	"fmt"
	"iter"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fydeScope/internal/indexer"
	"fydeScope/internal/model"
	"fydeScope/internal/multicall"
	"fydeScope/internal/protocol"
)

// TrsyDecimals is the scale of TRSY amounts and USD values reported by the vault.
const TrsyDecimals = 18

// BatchReader executes contract view calls, singly or as one batch.
type BatchReader interface {
	Call(ctx context.Context, call multicall.Call) ([]interface{}, error)
	Strict(ctx context.Context, calls []multicall.Call) ([][]interface{}, error)
	Tolerant(ctx context.Context, calls []multicall.Call) ([]model.Outcome, error)
}

// EventStreamer streams decoded contract events in chain order.
type EventStreamer interface {
	Stream(ctx context.Context, q indexer.Query) iter.Seq2[indexer.Entry, error]
}

// Config holds the contract addresses the vault reader needs.
type Config struct {
	LiquidVault common.Address
	StakingTRSY common.Address
	Logger      *zap.Logger
}

// Vault reads the liquid vault and its staking contract.
type Vault struct {
	reader     BatchReader
	streamer   EventStreamer
	vault      common.Address
	staking    common.Address
	vaultABI   abi.ABI
	stakingABI abi.ABI
	erc20ABI   abi.ABI
	logger     *zap.Logger
}

func New(reader BatchReader, streamer EventStreamer, cfg Config) (*Vault, error) {
	if reader == nil {
		return nil, fmt.Errorf("batch reader is nil")
	}
	if cfg.LiquidVault == (common.Address{}) {
		return nil, fmt.Errorf("liquid vault address is required")
	}
	vaultABI, err := protocol.LiquidVaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse liquid vault abi: %w", err)
	}
	stakingABI, err := protocol.StakingTRSYABI()
	if err != nil {
		return nil, fmt.Errorf("parse staking abi: %w", err)
	}
	erc20ABI, err := protocol.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Vault{
		reader:     reader,
		streamer:   streamer,
		vault:      cfg.LiquidVault,
		staking:    cfg.StakingTRSY,
		vaultABI:   vaultABI,
		stakingABI: stakingABI,
		erc20ABI:   erc20ABI,
		logger:     logger,
	}, nil
}

func (v *Vault) call(method string, args ...interface{}) multicall.Call {
	return multicall.Call{Target: v.vault, ABI: v.vaultABI, Method: method, Args: args}
}

func scale(n *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(n, -int32(decimals))
}

func singleInt(results [][]interface{}, idx int, method string) (*big.Int, error) {
	if idx >= len(results) || len(results[idx]) != 1 {
		return nil, &model.CallError{Index: idx, Method: method, Err: fmt.Errorf("unexpected result shape")}
	}
	n, err := protocol.AsBigInt(results[idx][0])
	if err != nil {
		return nil, &model.CallError{Index: idx, Method: method, Err: err}
	}
	return n, nil
}

// Stats reads TVL, TRSY supply and staked TRSY in one strict batch. TRSY value
// is TVL per TRSY and is zero while no TRSY exists.
func (v *Vault) Stats(ctx context.Context) (model.ProtocolStats, error) {
	if v.staking == (common.Address{}) {
		return model.ProtocolStats{}, fmt.Errorf("staking trsy address is required")
	}
	methods := []string{"computeProtocolAUM", "totalSupply", "totalSupply"}
	results, err := v.reader.Strict(ctx, []multicall.Call{
		v.call(methods[0]),
		v.call(methods[1]),
		{Target: v.staking, ABI: v.stakingABI, Method: methods[2]},
	})
	if err != nil {
		return model.ProtocolStats{}, fmt.Errorf("get protocol stats: %w", err)
	}

	amounts := make([]*big.Int, len(methods))
	for i, method := range methods {
		n, err := singleInt(results, i, method)
		if err != nil {
			return model.ProtocolStats{}, fmt.Errorf("get protocol stats: %w", err)
		}
		amounts[i] = n
	}

	stats := model.ProtocolStats{
		TVL:        scale(amounts[0], TrsyDecimals),
		TrsySupply: scale(amounts[1], TrsyDecimals),
		TrsyStaked: scale(amounts[2], TrsyDecimals),
	}
	if !stats.TrsySupply.IsZero() {
		stats.TrsyValue = stats.TVL.Div(stats.TrsySupply)
	}
	return stats, nil
}

// AssetsList returns the vault's registered assets in registry order.
func (v *Vault) AssetsList(ctx context.Context) ([]common.Address, error) {
	values, err := v.reader.Call(ctx, v.call("getAssetsListLength"))
	if err != nil {
		return nil, fmt.Errorf("get assets list length: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("get assets list length: unexpected values: %d", len(values))
	}
	n, err := protocol.AsUint64(values[0])
	if err != nil {
		return nil, fmt.Errorf("get assets list length: %w", err)
	}

	calls := make([]multicall.Call, n)
	for i := range calls {
		calls[i] = v.call("assetsList", new(big.Int).SetUint64(uint64(i)))
	}
	results, err := v.reader.Strict(ctx, calls)
	if err != nil {
		return nil, fmt.Errorf("get assets list: %w", err)
	}
	assets := make([]common.Address, len(results))
	for i, values := range results {
		if len(values) != 1 {
			return nil, &model.CallError{Index: i, Method: "assetsList", Err: fmt.Errorf("unexpected values: %d", len(values))}
		}
		asset, err := protocol.AsAddress(values[0])
		if err != nil {
			return nil, &model.CallError{Index: i, Method: "assetsList", Err: err}
		}
		assets[i] = asset
	}
	return assets, nil
}
