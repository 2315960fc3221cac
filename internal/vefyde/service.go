package vefyde

import (
	"context"
	"fmt"
	"iter"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fydeScope/internal/indexer"
	"fydeScope/internal/model"
	"fydeScope/internal/multicall"
	"fydeScope/internal/protocol"
)

// HoldersStartBlock is the vote escrow deployment block on mainnet.
const HoldersStartBlock uint64 = 20231776

// BatchReader executes contract view calls.
type BatchReader interface {
	Call(ctx context.Context, call multicall.Call) ([]interface{}, error)
	Strict(ctx context.Context, calls []multicall.Call) ([][]interface{}, error)
}

// EventStreamer streams decoded contract events in chain order.
type EventStreamer interface {
	Stream(ctx context.Context, q indexer.Query) iter.Seq2[indexer.Entry, error]
}

// Service reads vote escrow positions.
type Service struct {
	reader    BatchReader
	streamer  EventStreamer
	escrow    common.Address
	escrowABI abi.ABI
	decoder   *protocol.VoteEscrowDecoder
	logger    *zap.Logger
}

func NewService(reader BatchReader, streamer EventStreamer, escrow common.Address, logger *zap.Logger) (*Service, error) {
	if reader == nil {
		return nil, fmt.Errorf("batch reader is nil")
	}
	if escrow == (common.Address{}) {
		return nil, fmt.Errorf("vote escrow address is required")
	}
	escrowABI, err := protocol.VoteEscrowABI()
	if err != nil {
		return nil, fmt.Errorf("parse vote escrow abi: %w", err)
	}
	decoder, err := protocol.NewVoteEscrowDecoder()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		reader:    reader,
		streamer:  streamer,
		escrow:    escrow,
		escrowABI: escrowABI,
		decoder:   decoder,
		logger:    logger,
	}, nil
}

func (s *Service) call(method string, args ...interface{}) multicall.Call {
	return multicall.Call{Target: s.escrow, ABI: s.escrowABI, Method: method, Args: args}
}

type checkpointTuple struct {
	Timestamp *big.Int
	Value     struct {
		Bias  *big.Int
		Slope *big.Int
	}
}

// UserData reads the vote escrow position of user. A user without history or
// without an active lock gets the zero record. withChart adds the sampled
// decay curve of the latest checkpoint.
func (s *Service) UserData(ctx context.Context, user common.Address, withChart bool) (model.VeFydeUser, error) {
	results, err := s.reader.Strict(ctx, []multicall.Call{
		s.call("balanceOf", user),
		s.call("positionData", user),
		s.call("getUserHistoryLength", user),
	})
	if err != nil {
		return model.VeFydeUser{}, fmt.Errorf("get vefyde position: %w", err)
	}
	if len(results) != 3 || len(results[0]) != 1 || len(results[1]) != 2 || len(results[2]) != 1 {
		return model.VeFydeUser{}, fmt.Errorf("get vefyde position: unexpected result shape")
	}

	balance, err := protocol.AsBigInt(results[0][0])
	if err != nil {
		return model.VeFydeUser{}, &model.CallError{Index: 0, Method: "balanceOf", Err: err}
	}
	locked, err := protocol.AsBigInt(results[1][0])
	if err != nil {
		return model.VeFydeUser{}, &model.CallError{Index: 1, Method: "positionData", Err: err}
	}
	expiry, err := protocol.AsUint64(results[1][1])
	if err != nil {
		return model.VeFydeUser{}, &model.CallError{Index: 1, Method: "positionData", Err: err}
	}
	length, err := protocol.AsUint64(results[2][0])
	if err != nil {
		return model.VeFydeUser{}, &model.CallError{Index: 2, Method: "getUserHistoryLength", Err: err}
	}
	if length == 0 || expiry == 0 {
		return model.VeFydeUser{}, nil
	}

	cp, err := s.checkpoint(ctx, user, length-1)
	if err != nil {
		return model.VeFydeUser{}, err
	}
	if expiry < cp.Timestamp {
		return model.VeFydeUser{}, fmt.Errorf("vefyde user %s: %w", user.Hex(), ErrExpiryBeforeLock)
	}

	out := model.VeFydeUser{
		VeFydeBalance:       balance.String(),
		FydeLocked:          locked.String(),
		LastLockingDate:     cp.Timestamp,
		HistoryLength:       length,
		LockDurationSeconds: expiry - cp.Timestamp,
		UnlockDate:          expiry,
	}
	if withChart {
		chart, err := DecayCurve(cp.Timestamp, expiry, cp)
		if err != nil {
			return model.VeFydeUser{}, fmt.Errorf("vefyde user %s: %w", user.Hex(), err)
		}
		out.Chart = &chart
	}
	return out, nil
}

func (s *Service) checkpoint(ctx context.Context, user common.Address, index uint64) (model.DecayCheckpoint, error) {
	values, err := s.reader.Call(ctx, s.call("getUserHistoryAt", user, new(big.Int).SetUint64(index)))
	if err != nil {
		return model.DecayCheckpoint{}, fmt.Errorf("get user history at %d: %w", index, err)
	}
	var out struct{ Checkpoint checkpointTuple }
	if err := s.escrowABI.Methods["getUserHistoryAt"].Outputs.Copy(&out, values); err != nil {
		return model.DecayCheckpoint{}, fmt.Errorf("decode user history at %d: %w", index, err)
	}
	ts, err := protocol.AsUint64(out.Checkpoint.Timestamp)
	if err != nil {
		return model.DecayCheckpoint{}, fmt.Errorf("checkpoint timestamp: %w", err)
	}
	return model.DecayCheckpoint{
		Bias:      out.Checkpoint.Value.Bias,
		Slope:     out.Checkpoint.Value.Slope,
		Timestamp: ts,
	}, nil
}

// Balance reads the current veFYDE balance of user.
func (s *Service) Balance(ctx context.Context, user common.Address) (*big.Int, error) {
	values, err := s.reader.Call(ctx, s.call("balanceOf", user))
	if err != nil {
		return nil, fmt.Errorf("get vefyde balance: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("get vefyde balance: unexpected values: %d", len(values))
	}
	return protocol.AsBigInt(values[0])
}

// Holders lists every address that ever updated a lock since fromBlock, in
// order of first appearance. Malformed logs are skipped.
func (s *Service) Holders(ctx context.Context, fromBlock uint64) ([]common.Address, error) {
	if s.streamer == nil {
		return nil, fmt.Errorf("event streamer is nil")
	}
	seen := make(map[common.Address]struct{})
	var holders []common.Address
	stream := s.streamer.Stream(ctx, indexer.Query{Contract: s.escrow, Decoder: s.decoder, FromBlock: fromBlock})
	for entry, err := range stream {
		if err != nil {
			return nil, fmt.Errorf("stream lock updates: %w", err)
		}
		if entry.Err != nil {
			s.logger.Warn("skip malformed lock update",
				zap.Uint64("block", entry.Err.BlockNumber),
				zap.Uint64("log_index", entry.Err.LogIndex),
				zap.String("error", entry.Err.Reason),
			)
			continue
		}
		ev, ok := entry.Event.(model.LockUpdated)
		if !ok {
			continue
		}
		if _, dup := seen[ev.User]; dup {
			continue
		}
		seen[ev.User] = struct{}{}
		holders = append(holders, ev.User)
	}
	return holders, nil
}
