package model

import (
	"encoding/json"
	"math/big"

	"github.com/shopspring/decimal"
)

// VeBalanceDecimals is the fixed-point scale of vote escrow balances.
const VeBalanceDecimals = 18

// DecayCheckpoint parameterises balance(t) = bias - slope*t for t >= Timestamp.
type DecayCheckpoint struct {
	Bias      *big.Int
	Slope     *big.Int
	Timestamp uint64
}

// VeBalanceSample is one point on a decay curve.
type VeBalanceSample struct {
	Timestamp uint64
	Balance   *big.Int
}

// VeBalanceChart is a sampled decay curve as parallel sequences.
type VeBalanceChart struct {
	Timestamps []uint64
	Balances   []*big.Int
}

// Samples returns the chart as a list of points.
func (c VeBalanceChart) Samples() []VeBalanceSample {
	out := make([]VeBalanceSample, len(c.Timestamps))
	for i := range c.Timestamps {
		out[i] = VeBalanceSample{Timestamp: c.Timestamps[i], Balance: c.Balances[i]}
	}
	return out
}

// MarshalJSON encodes balances scaled down to whole tokens.
func (c VeBalanceChart) MarshalJSON() ([]byte, error) {
	scaled := make([]decimal.Decimal, len(c.Balances))
	for i, b := range c.Balances {
		scaled[i] = decimal.NewFromBigInt(b, -VeBalanceDecimals)
	}
	return json.Marshal(struct {
		Timestamps []uint64          `json:"ts"`
		Balances   []decimal.Decimal `json:"ve_balance"`
	}{c.Timestamps, scaled})
}

// VeFydeUser summarises a user's vote escrow position.
type VeFydeUser struct {
	VeFydeBalance       string          `json:"ve_fyde_balance"`
	FydeLocked          string          `json:"fyde_locked"`
	LastLockingDate     uint64          `json:"last_locking_date"`
	HistoryLength       uint64          `json:"history_length"`
	LockDurationSeconds uint64          `json:"lock_duration_seconds"`
	UnlockDate          uint64          `json:"unlock_date"`
	Chart               *VeBalanceChart `json:"ve_balance_chart,omitempty"`
}
