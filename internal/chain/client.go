package chain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"fydeScope/internal/model"
	"fydeScope/internal/observability"
)

// Client wraps go-ethereum RPC and provides helper methods.
// Provider failures are wrapped with model.ErrTransport; missing
// transactions and blocks with model.ErrNotFound.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, model.Transport("dial rpc", err)
	}
	return NewClientFromRPC(rpcClient), nil
}

// NewClientFromRPC wraps an already connected RPC client.
func NewClientFromRPC(rpcClient *rpc.Client) *Client {
	return &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (*big.Int, error) {
	defer observe("eth_chainId", time.Now())
	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		return nil, model.Transport("eth_chainId", err)
	}
	return id, nil
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (uint64, error) {
	defer observe("eth_blockNumber", time.Now())
	n, err := c.ethClient.BlockNumber(ctx)
	if err != nil {
		return 0, model.Transport("eth_blockNumber", err)
	}
	return n, nil
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	defer observe("eth_getBlockByNumber", time.Now())
	header, err := c.ethClient.HeaderByNumber(ctx, number)
	if errors.Is(err, ethereum.NotFound) || (err == nil && header == nil) {
		return nil, model.NotFound("eth_getBlockByNumber", "block "+number.String())
	}
	if err != nil {
		return nil, model.Transport("eth_getBlockByNumber", err)
	}
	return header, nil
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

type rpcTransaction struct {
	BlockNumber *hexutil.Big   `json:"blockNumber"`
	From        common.Address `json:"from"`
}

// TransactionMeta resolves the containing block, its timestamp and the sender of a transaction.
func (c *Client) TransactionMeta(ctx context.Context, txHash common.Hash) (model.BlockMeta, error) {
	var tx *rpcTransaction
	start := time.Now()
	err := c.rpcClient.CallContext(ctx, &tx, "eth_getTransactionByHash", txHash)
	observe("eth_getTransactionByHash", start)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return model.BlockMeta{}, model.NotFound("eth_getTransactionByHash", "transaction "+txHash.Hex())
		}
		return model.BlockMeta{}, model.Transport("eth_getTransactionByHash", err)
	}
	if tx == nil {
		return model.BlockMeta{}, model.NotFound("eth_getTransactionByHash", "transaction "+txHash.Hex())
	}
	if tx.BlockNumber == nil {
		return model.BlockMeta{}, model.NotFound("eth_getTransactionByHash", "pending transaction "+txHash.Hex())
	}

	number := tx.BlockNumber.ToInt().Uint64()
	ts, err := c.BlockTimestamp(ctx, number)
	if err != nil {
		return model.BlockMeta{}, err
	}
	return model.BlockMeta{BlockNumber: number, Timestamp: ts, Sender: tx.From}, nil
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	defer observe("eth_getLogs", time.Now())
	logs, err := c.ethClient.FilterLogs(ctx, query)
	if err != nil {
		return nil, model.Transport("eth_getLogs", err)
	}
	return logs, nil
}

// CallContract performs an eth_call for a contract method.
// Errors are returned unwrapped so callers can tell reverts from transport failures.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	defer observe("eth_call", time.Now())
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

func observe(method string, start time.Time) {
	observability.RecordRPCLatency(method, time.Since(start).Seconds())
}
