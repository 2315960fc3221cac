package protocol

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fydeScope/internal/model"
)

// Decoder turns raw logs of one contract into typed model events.
//
// Decode returns (nil, nil) for logs whose topic0 the decoder does not select;
// those are the "other" variant and callers skip them.
type Decoder interface {
	Topics() []common.Hash
	Decode(log types.Log) (interface{}, error)
}

// topicSet maps topic0 to event name for the events a decoder selects.
type topicSet struct {
	order  []common.Hash
	byHash map[common.Hash]string
}

func newTopicSet(parsed abi.ABI, names []string) (topicSet, error) {
	set := topicSet{byHash: make(map[common.Hash]string, len(names))}
	for _, name := range names {
		event, ok := parsed.Events[name]
		if !ok {
			return topicSet{}, fmt.Errorf("unsupported event name: %s", name)
		}
		if _, dup := set.byHash[event.ID]; dup {
			continue
		}
		set.byHash[event.ID] = name
		set.order = append(set.order, event.ID)
	}
	return set, nil
}

func (s topicSet) Topics() []common.Hash {
	out := make([]common.Hash, len(s.order))
	copy(out, s.order)
	return out
}

func (s topicSet) lookup(log types.Log) (string, bool) {
	if len(log.Topics) == 0 {
		return "", false
	}
	name, ok := s.byHash[log.Topics[0]]
	return name, ok
}

func parseIndexedTopics(event abi.Event, topics []common.Hash) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return topics[1:], nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, data []byte) ([]interface{}, error) {
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}

func logRef(log types.Log) model.LogRef {
	return model.LogRef{BlockNumber: log.BlockNumber, TxHash: log.TxHash, LogIndex: uint64(log.Index)}
}
