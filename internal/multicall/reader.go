// Package multicall bundles independent contract view calls into a single
// eth_call against a Multicall3 deployment.
package multicall

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"fydeScope/internal/model"
)

// ErrReverted is the cause recorded for calls the target contract reverted.
var ErrReverted = errors.New("call reverted")

// ContractCaller performs a single eth_call.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Call describes one contract view call.
type Call struct {
	Target common.Address
	ABI    abi.ABI
	Method string
	Args   []interface{}
}

// Config configures a Reader.
type Config struct {
	// Address of the Multicall3 contract; zero means DefaultAddress.
	Address common.Address
	// BlockNumber pins reads to a height; nil reads latest.
	BlockNumber *big.Int
	Logger      *zap.Logger
}

// Reader executes batches of calls. It holds no per-batch state and is safe
// for concurrent use; each logical batch gets its own Batch from NewBatch.
type Reader struct {
	caller  ContractCaller
	address common.Address
	block   *big.Int
	logger  *zap.Logger
}

// NewReader builds a reader over caller.
func NewReader(caller ContractCaller, cfg Config) (*Reader, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	if _, err := multicall3ABI(); err != nil {
		return nil, fmt.Errorf("parse multicall3 abi: %w", err)
	}
	address := cfg.Address
	if address == (common.Address{}) {
		address = DefaultAddress
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{caller: caller, address: address, block: cfg.BlockNumber, logger: logger}, nil
}

// NewBatch returns a fresh, single-use batch.
func (r *Reader) NewBatch() *Batch {
	return &Batch{reader: r}
}

// Strict runs calls as one fresh batch under the strict policy.
func (r *Reader) Strict(ctx context.Context, calls []Call) ([][]interface{}, error) {
	batch := r.NewBatch()
	for _, c := range calls {
		batch.Add(c)
	}
	return batch.Strict(ctx)
}

// Tolerant runs calls as one fresh batch under the tolerant policy.
func (r *Reader) Tolerant(ctx context.Context, calls []Call) ([]model.Outcome, error) {
	batch := r.NewBatch()
	for _, c := range calls {
		batch.Add(c)
	}
	return batch.Tolerant(ctx)
}

// Call executes a single call directly, without the Multicall3 wrapper.
func (r *Reader) Call(ctx context.Context, call Call) ([]interface{}, error) {
	data, err := call.ABI.Pack(call.Method, call.Args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", call.Method, err)
	}
	target := call.Target
	resp, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, r.block)
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("call %s: %w: %w", call.Method, ErrReverted, err)
		}
		return nil, model.Transport("call "+call.Method, err)
	}
	values, err := call.ABI.Unpack(call.Method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", call.Method, err)
	}
	return values, nil
}

func (r *Reader) aggregate(ctx context.Context, calls []Call, allowFailure bool) ([]result, error) {
	mcABI, err := multicall3ABI()
	if err != nil {
		return nil, fmt.Errorf("parse multicall3 abi: %w", err)
	}

	packed := make([]call3, len(calls))
	for i, c := range calls {
		data, err := c.ABI.Pack(c.Method, c.Args...)
		if err != nil {
			return nil, &model.CallError{Index: i, Method: c.Method, Err: fmt.Errorf("pack: %w", err)}
		}
		packed[i] = call3{Target: c.Target, AllowFailure: allowFailure, CallData: data}
	}

	input, err := mcABI.Pack("aggregate3", packed)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}
	resp, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.address, Data: input}, r.block)
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("multicall aggregate3: %w: %w", ErrReverted, err)
		}
		return nil, model.Transport("multicall aggregate3", err)
	}

	var results []result
	if err := mcABI.UnpackIntoInterface(&results, "aggregate3", resp); err != nil {
		return nil, fmt.Errorf("unpack aggregate3: %w", err)
	}
	if len(results) != len(calls) {
		return nil, fmt.Errorf("unpack aggregate3: expected %d results, got %d", len(calls), len(results))
	}
	return results, nil
}

// revertCode is the JSON-RPC error code geth-compatible nodes use for reverts.
const revertCode = 3

// isRevert reports whether the node executed the call and it reverted, as
// opposed to the request never being served. Every JSON-RPC error response
// satisfies rpc.DataError, so only a non-nil payload counts as revert data.
func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) && dataErr.ErrorData() != nil {
		return true
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == revertCode {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}

func decodeResult(c Call, res result) ([]interface{}, error) {
	if !res.Success {
		return nil, ErrReverted
	}
	values, err := c.ABI.Unpack(c.Method, res.ReturnData)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	return values, nil
}
