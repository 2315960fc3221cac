package protocol

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fydeScope/internal/model"
)

var relayerEventKinds = map[string]model.ActionKind{
	"Deposit":  model.KindDeposit,
	"Withdraw": model.KindWithdraw,
	"Swap":     model.KindSwap,
}

// RelayerDecoder decodes request events emitted by the relayer.
type RelayerDecoder struct {
	relayerABI abi.ABI
	topics     topicSet
}

// NewRelayerDecoder builds a decoder selecting all three request kinds.
func NewRelayerDecoder() (*RelayerDecoder, error) {
	relayerABI, err := RelayerABI()
	if err != nil {
		return nil, fmt.Errorf("parse relayer abi: %w", err)
	}
	topics, err := newTopicSet(relayerABI, []string{"Deposit", "Withdraw", "Swap"})
	if err != nil {
		return nil, err
	}
	return &RelayerDecoder{relayerABI: relayerABI, topics: topics}, nil
}

// Topics returns the topic0 of every request event.
func (d *RelayerDecoder) Topics() []common.Hash {
	return d.topics.Topics()
}

// Decode converts a relayer log into a model.RequestEvent.
func (d *RelayerDecoder) Decode(log types.Log) (interface{}, error) {
	name, ok := d.topics.lookup(log)
	if !ok {
		return nil, nil
	}
	event := d.relayerABI.Events[name]
	if _, err := parseIndexedTopics(event, log.Topics); err != nil {
		return nil, err
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	var out struct {
		RequestId uint32
		Request   struct {
			Id              uint32
			Requestor       common.Address
			AssetIn         []common.Address
			AmountIn        []*big.Int
			AssetOut        []common.Address
			AmountOut       []*big.Int
			KeepGovRights   bool
			SlippageChecked bool
		}
	}
	if err := event.Inputs.NonIndexed().Copy(&out, values); err != nil {
		return nil, fmt.Errorf("copy %s: %w", name, err)
	}

	return model.RequestEvent{
		LogRef:        logRef(log),
		Kind:          relayerEventKinds[name],
		RequestID:     uint64(out.RequestId),
		Requestor:     out.Request.Requestor,
		AssetIn:       out.Request.AssetIn,
		AssetOut:      out.Request.AssetOut,
		AmountIn:      out.Request.AmountIn,
		AmountOut:     out.Request.AmountOut,
		KeepGovRights: out.Request.KeepGovRights,
	}, nil
}
