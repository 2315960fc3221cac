package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ActionKind names the three user-initiated protocol operations.
type ActionKind string

const (
	KindDeposit  ActionKind = "deposit"
	KindWithdraw ActionKind = "withdraw"
	KindSwap     ActionKind = "swap"
)

// LogRef locates a log in chain order.
type LogRef struct {
	BlockNumber uint64
	TxHash      common.Hash
	LogIndex    uint64
}

// Before reports whether r sorts strictly before o by (block, log index).
func (r LogRef) Before(o LogRef) bool {
	if r.BlockNumber != o.BlockNumber {
		return r.BlockNumber < o.BlockNumber
	}
	return r.LogIndex < o.LogIndex
}

// Ref returns the log position of the event.
func (r LogRef) Ref() LogRef {
	return r
}

// RequestEvent is a relayer log marking a user's deposit, withdraw or swap intent.
// Requestor and Timestamp are filled in from the submitting transaction.
type RequestEvent struct {
	LogRef
	Kind          ActionKind
	Timestamp     uint64
	RequestID     uint64
	Requestor     common.Address
	AssetIn       []common.Address
	AssetOut      []common.Address
	AmountIn      []*big.Int
	AmountOut     []*big.Int
	KeepGovRights bool
}

// SettlementEvent is a vault log marking the execution of a request.
// The set of implementations is closed: DepositSettled, WithdrawSettled, SwapSettled.
type SettlementEvent interface {
	Kind() ActionKind
	ID() uint64
	Ref() LogRef
	settlement()
}

// SettlementBase carries the fields shared by every settlement variant.
type SettlementBase struct {
	LogRef
	RequestID uint64
}

func (b SettlementBase) ID() uint64 { return b.RequestID }

func (SettlementBase) settlement() {}

type DepositSettled struct {
	SettlementBase
	TrsyPrice       *big.Int
	USDDepositValue *big.Int
	TrsyMinted      *big.Int
}

func (DepositSettled) Kind() ActionKind { return KindDeposit }

type WithdrawSettled struct {
	SettlementBase
	TrsyPrice        *big.Int
	USDWithdrawValue *big.Int
	TrsyBurned       *big.Int
}

func (WithdrawSettled) Kind() ActionKind { return KindWithdraw }

type SwapSettled struct {
	SettlementBase
	AmountOut *big.Int
}

func (SwapSettled) Kind() ActionKind { return KindSwap }

// TransferEvent is an ERC20 Transfer emitted by the vault token.
type TransferEvent struct {
	LogRef
	From  common.Address
	To    common.Address
	Value *big.Int
}

// ManagementFeeCollected is emitted when the vault mints its management fee.
type ManagementFeeCollected struct {
	LogRef
	FeeToMint *big.Int
}

// LockUpdated is emitted by the vote escrow whenever a user's lock changes.
type LockUpdated struct {
	LogRef
	User   common.Address
	Amount *big.Int
	Expiry uint64
}

// BlockMeta is the containing block and sender of a transaction.
type BlockMeta struct {
	BlockNumber uint64         `json:"block_number"`
	Timestamp   uint64         `json:"timestamp"`
	Sender      common.Address `json:"sender"`
}
