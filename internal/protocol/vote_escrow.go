package protocol

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fydeScope/internal/model"
)

// VoteEscrowDecoder decodes UpdateLock events.
type VoteEscrowDecoder struct {
	escrowABI abi.ABI
	topics    topicSet
}

func NewVoteEscrowDecoder() (*VoteEscrowDecoder, error) {
	escrowABI, err := VoteEscrowABI()
	if err != nil {
		return nil, fmt.Errorf("parse vote escrow abi: %w", err)
	}
	topics, err := newTopicSet(escrowABI, []string{"UpdateLock"})
	if err != nil {
		return nil, err
	}
	return &VoteEscrowDecoder{escrowABI: escrowABI, topics: topics}, nil
}

func (d *VoteEscrowDecoder) Topics() []common.Hash {
	return d.topics.Topics()
}

// Decode converts an UpdateLock log into a model.LockUpdated.
func (d *VoteEscrowDecoder) Decode(log types.Log) (interface{}, error) {
	name, ok := d.topics.lookup(log)
	if !ok {
		return nil, nil
	}
	event := d.escrowABI.Events[name]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	var indexed struct {
		User common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected update lock values: %d", len(values))
	}
	amount, err := AsBigInt(values[0])
	if err != nil {
		return nil, err
	}
	expiry, err := AsUint64(values[1])
	if err != nil {
		return nil, fmt.Errorf("expiry: %w", err)
	}

	return model.LockUpdated{LogRef: logRef(log), User: indexed.User, Amount: amount, Expiry: expiry}, nil
}
