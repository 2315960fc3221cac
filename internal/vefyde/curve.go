// Package vefyde reads vote escrow positions and samples their decay.
package vefyde

import (
	"errors"
	"fmt"
	"math/big"

	"fydeScope/internal/model"
)

// SampleInterval is the spacing of regular chart samples, in seconds.
const SampleInterval uint64 = 86_400

var (
	ErrExpiryBeforeLock  = errors.New("expiry before last locking date")
	ErrInvalidCheckpoint = errors.New("invalid decay checkpoint")
)

// DecayCurve samples balance(t) = bias - slope*t daily from lastLockingDate
// and once more at expiry when the daily grid does not land on it. Balances
// that would go negative are clamped to zero.
func DecayCurve(lastLockingDate, expiry uint64, cp model.DecayCheckpoint) (model.VeBalanceChart, error) {
	if expiry < lastLockingDate {
		return model.VeBalanceChart{}, fmt.Errorf("decay curve %d..%d: %w", lastLockingDate, expiry, ErrExpiryBeforeLock)
	}
	if cp.Bias == nil || cp.Slope == nil || cp.Bias.Sign() < 0 || cp.Slope.Sign() < 0 {
		return model.VeBalanceChart{}, fmt.Errorf("decay curve: %w", ErrInvalidCheckpoint)
	}

	span := expiry - lastLockingDate
	n := span/SampleInterval + 2
	chart := model.VeBalanceChart{
		Timestamps: make([]uint64, 0, n),
		Balances:   make([]*big.Int, 0, n),
	}
	for offset := uint64(0); offset < span; offset += SampleInterval {
		ts := lastLockingDate + offset
		chart.Timestamps = append(chart.Timestamps, ts)
		chart.Balances = append(chart.Balances, BalanceAt(cp, ts))
		if span-offset <= SampleInterval {
			break
		}
	}
	if len(chart.Timestamps) == 0 || chart.Timestamps[len(chart.Timestamps)-1] != expiry {
		chart.Timestamps = append(chart.Timestamps, expiry)
		chart.Balances = append(chart.Balances, BalanceAt(cp, expiry))
	}
	return chart, nil
}

// BalanceAt evaluates the checkpoint at ts, clamped to zero.
func BalanceAt(cp model.DecayCheckpoint, ts uint64) *big.Int {
	decay := new(big.Int).Mul(cp.Slope, new(big.Int).SetUint64(ts))
	balance := new(big.Int).Sub(cp.Bias, decay)
	if balance.Sign() < 0 {
		return new(big.Int)
	}
	return balance
}
