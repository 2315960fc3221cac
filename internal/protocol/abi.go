package protocol

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const relayerABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint32", "name": "requestId", "type": "uint32"},
      {"indexed": false, "internalType": "struct IRelayer.UserRequest", "name": "request", "type": "tuple", "components": [
        {"internalType": "uint32", "name": "id", "type": "uint32"},
        {"internalType": "address", "name": "requestor", "type": "address"},
        {"internalType": "address[]", "name": "assetIn", "type": "address[]"},
        {"internalType": "uint256[]", "name": "amountIn", "type": "uint256[]"},
        {"internalType": "address[]", "name": "assetOut", "type": "address[]"},
        {"internalType": "uint256[]", "name": "amountOut", "type": "uint256[]"},
        {"internalType": "bool", "name": "keepGovRights", "type": "bool"},
        {"internalType": "bool", "name": "slippageChecked", "type": "bool"}
      ]}
    ],
    "name": "Deposit",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint32", "name": "requestId", "type": "uint32"},
      {"indexed": false, "internalType": "struct IRelayer.UserRequest", "name": "request", "type": "tuple", "components": [
        {"internalType": "uint32", "name": "id", "type": "uint32"},
        {"internalType": "address", "name": "requestor", "type": "address"},
        {"internalType": "address[]", "name": "assetIn", "type": "address[]"},
        {"internalType": "uint256[]", "name": "amountIn", "type": "uint256[]"},
        {"internalType": "address[]", "name": "assetOut", "type": "address[]"},
        {"internalType": "uint256[]", "name": "amountOut", "type": "uint256[]"},
        {"internalType": "bool", "name": "keepGovRights", "type": "bool"},
        {"internalType": "bool", "name": "slippageChecked", "type": "bool"}
      ]}
    ],
    "name": "Withdraw",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint32", "name": "requestId", "type": "uint32"},
      {"indexed": false, "internalType": "struct IRelayer.UserRequest", "name": "request", "type": "tuple", "components": [
        {"internalType": "uint32", "name": "id", "type": "uint32"},
        {"internalType": "address", "name": "requestor", "type": "address"},
        {"internalType": "address[]", "name": "assetIn", "type": "address[]"},
        {"internalType": "uint256[]", "name": "amountIn", "type": "uint256[]"},
        {"internalType": "address[]", "name": "assetOut", "type": "address[]"},
        {"internalType": "uint256[]", "name": "amountOut", "type": "uint256[]"},
        {"internalType": "bool", "name": "keepGovRights", "type": "bool"},
        {"internalType": "bool", "name": "slippageChecked", "type": "bool"}
      ]}
    ],
    "name": "Swap",
    "type": "event"
  }
]`

const liquidVaultABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint32", "name": "requestId", "type": "uint32"},
      {"indexed": false, "internalType": "uint256", "name": "trsyPrice", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "usdDepositValue", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "trsyMinted", "type": "uint256"}
    ],
    "name": "Deposit",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint32", "name": "requestId", "type": "uint32"},
      {"indexed": false, "internalType": "uint256", "name": "trsyPrice", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "usdWithdrawValue", "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "trsyBurned", "type": "uint256"}
    ],
    "name": "Withdraw",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "uint32", "name": "requestId", "type": "uint32"},
      {"indexed": false, "internalType": "uint256", "name": "amountOut", "type": "uint256"}
    ],
    "name": "Swap",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": false, "internalType": "uint256", "name": "feeToMint", "type": "uint256"}
    ],
    "name": "ManagementFeeCollected",
    "type": "event"
  },
  {"inputs": [], "name": "computeProtocolAUM", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "getAssetsListLength", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "index", "type": "uint256"}], "name": "assetsList", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}], "name": "totalAssetAccounting", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}], "name": "standardAssetAccounting", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "asset", "type": "address"}], "name": "proxyAssetAccounting", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const governanceModuleABIJSON = `[
  {"inputs": [], "name": "getAllGovUsers", "outputs": [{"type": "address[]"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "user", "type": "address"}, {"name": "asset", "type": "address"}], "name": "getTokenUnbalance", "outputs": [{"type": "int256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "user", "type": "address"}, {"name": "asset", "type": "address"}], "name": "strsyBalance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "user", "type": "address"}, {"name": "asset", "type": "address"}], "name": "proxyBalance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "user", "type": "address"}, {"name": "asset", "type": "address"}], "name": "getUserGTAllowance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "user", "type": "address"}], "name": "userToProxy", "outputs": [{"type": "address"}], "stateMutability": "view", "type": "function"}
]`

const voteEscrowABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "user", "type": "address"},
      {"indexed": false, "internalType": "uint128", "name": "amount", "type": "uint128"},
      {"indexed": false, "internalType": "uint128", "name": "expiry", "type": "uint128"}
    ],
    "name": "UpdateLock",
    "type": "event"
  },
  {"inputs": [{"name": "user", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint128"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "user", "type": "address"}], "name": "positionData", "outputs": [{"name": "amount", "type": "uint128"}, {"name": "expiry", "type": "uint128"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "user", "type": "address"}], "name": "getUserHistoryLength", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [{"name": "user", "type": "address"}, {"name": "index", "type": "uint256"}],
    "name": "getUserHistoryAt",
    "outputs": [{"internalType": "struct Checkpoint", "name": "", "type": "tuple", "components": [
      {"internalType": "uint128", "name": "timestamp", "type": "uint128"},
      {"internalType": "struct VeBalance", "name": "value", "type": "tuple", "components": [
        {"internalType": "uint128", "name": "bias", "type": "uint128"},
        {"internalType": "uint128", "name": "slope", "type": "uint128"}
      ]}
    ]}],
    "stateMutability": "view",
    "type": "function"
  }
]`

const stakingTRSYABIJSON = `[
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

func lazyABI(raw string) func() (abi.ABI, error) {
	return sync.OnceValues(func() (abi.ABI, error) {
		return abi.JSON(strings.NewReader(raw))
	})
}

var (
	// RelayerABI returns the parsed relayer ABI (request events).
	RelayerABI = lazyABI(relayerABIJSON)
	// LiquidVaultABI returns the parsed liquid vault ABI (settlement events, accounting views).
	LiquidVaultABI = lazyABI(liquidVaultABIJSON)
	// GovernanceModuleABI returns the parsed governance module ABI.
	GovernanceModuleABI = lazyABI(governanceModuleABIJSON)
	// VoteEscrowABI returns the parsed vote escrow ABI.
	VoteEscrowABI = lazyABI(voteEscrowABIJSON)
	// StakingTRSYABI returns the parsed staked TRSY ABI.
	StakingTRSYABI = lazyABI(stakingTRSYABIJSON)
	// ERC20ABI returns the parsed ERC20 ABI.
	ERC20ABI = lazyABI(erc20ABIJSON)
)
