package protocol

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fydeScope/internal/model"
)

// Settlement event names on the liquid vault.
var SettlementEvents = []string{"Deposit", "Withdraw", "Swap"}

// FeeEvents are the vault events that carry fee flows.
var FeeEvents = []string{"Transfer", "ManagementFeeCollected"}

// LiquidVaultDecoder decodes a configurable subset of liquid vault events.
type LiquidVaultDecoder struct {
	vaultABI abi.ABI
	topics   topicSet
}

// NewLiquidVaultDecoder selects the named events; no names selects all of them.
func NewLiquidVaultDecoder(names ...string) (*LiquidVaultDecoder, error) {
	vaultABI, err := LiquidVaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse liquid vault abi: %w", err)
	}
	if len(names) == 0 {
		names = append(append([]string{}, SettlementEvents...), FeeEvents...)
	}
	topics, err := newTopicSet(vaultABI, names)
	if err != nil {
		return nil, err
	}
	return &LiquidVaultDecoder{vaultABI: vaultABI, topics: topics}, nil
}

func (d *LiquidVaultDecoder) Topics() []common.Hash {
	return d.topics.Topics()
}

// Decode returns one of model.DepositSettled, model.WithdrawSettled,
// model.SwapSettled, model.TransferEvent or model.ManagementFeeCollected.
func (d *LiquidVaultDecoder) Decode(log types.Log) (interface{}, error) {
	name, ok := d.topics.lookup(log)
	if !ok {
		return nil, nil
	}
	event := d.vaultABI.Events[name]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}

	switch name {
	case "Deposit", "Withdraw", "Swap":
		var indexed struct {
			RequestId uint32
		}
		if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
			return nil, fmt.Errorf("parse topics: %w", err)
		}
		base := model.SettlementBase{LogRef: logRef(log), RequestID: uint64(indexed.RequestId)}
		return decodeSettlement(name, base, values)
	case "Transfer":
		var indexed struct {
			From common.Address
			To   common.Address
		}
		if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
			return nil, fmt.Errorf("parse topics: %w", err)
		}
		if len(values) != 1 {
			return nil, fmt.Errorf("unexpected transfer values: %d", len(values))
		}
		amount, err := AsBigInt(values[0])
		if err != nil {
			return nil, err
		}
		return model.TransferEvent{LogRef: logRef(log), From: indexed.From, To: indexed.To, Value: amount}, nil
	case "ManagementFeeCollected":
		if len(values) != 1 {
			return nil, fmt.Errorf("unexpected fee values: %d", len(values))
		}
		fee, err := AsBigInt(values[0])
		if err != nil {
			return nil, err
		}
		return model.ManagementFeeCollected{LogRef: logRef(log), FeeToMint: fee}, nil
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
}

func decodeSettlement(name string, base model.SettlementBase, values []interface{}) (model.SettlementEvent, error) {
	want := 3
	if name == "Swap" {
		want = 1
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", name, len(values))
	}
	amounts := make([]*big.Int, 0, len(values))
	for _, v := range values {
		n, err := AsBigInt(v)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, n)
	}

	switch name {
	case "Deposit":
		return model.DepositSettled{SettlementBase: base, TrsyPrice: amounts[0], USDDepositValue: amounts[1], TrsyMinted: amounts[2]}, nil
	case "Withdraw":
		return model.WithdrawSettled{SettlementBase: base, TrsyPrice: amounts[0], USDWithdrawValue: amounts[1], TrsyBurned: amounts[2]}, nil
	default:
		return model.SwapSettled{SettlementBase: base, AmountOut: amounts[0]}, nil
	}
}
