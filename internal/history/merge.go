package history

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"fydeScope/internal/model"
)

// checkShape rejects requests whose arrays the merge cannot represent faithfully.
func checkShape(req model.RequestEvent) *model.IntegrityError {
	fail := func(format string, args ...interface{}) *model.IntegrityError {
		return &model.IntegrityError{
			Reason:    model.ReasonShapeMismatch,
			RequestID: req.RequestID,
			Detail:    fmt.Sprintf(format, args...),
		}
	}
	switch req.Kind {
	case model.KindSwap:
		if len(req.AssetIn) != 1 || len(req.AssetOut) != 1 || len(req.AmountIn) != 1 {
			return fail("swap needs exactly one input asset, output asset and input amount, got %d/%d/%d",
				len(req.AssetIn), len(req.AssetOut), len(req.AmountIn))
		}
	case model.KindDeposit:
		if len(req.AssetIn) != len(req.AmountIn) {
			return fail("deposit has %d assets and %d amounts", len(req.AssetIn), len(req.AmountIn))
		}
	case model.KindWithdraw:
		if len(req.AssetOut) != len(req.AmountOut) {
			return fail("withdraw has %d assets and %d amounts", len(req.AssetOut), len(req.AmountOut))
		}
	}
	return nil
}

// merge combines a shape-checked request with its same-kind settlement.
func merge(req model.RequestEvent, settlement model.SettlementEvent) (model.UserAction, error) {
	meta := model.ActionMeta{
		Kind:        req.Kind,
		TxHash:      req.TxHash.Hex(),
		BlockNumber: req.BlockNumber,
		LogIndex:    req.LogIndex,
		Timestamp:   req.Timestamp,
		RequestID:   req.RequestID,
		User:        req.Requestor.Hex(),
	}

	switch s := settlement.(type) {
	case model.DepositSettled:
		return model.DepositAction{
			ActionMeta:        meta,
			AssetIn:           addressStrings(req.AssetIn),
			AmountIn:          amountStrings(req.AmountIn),
			KeepGovRights:     req.KeepGovRights,
			MintedAtTrsyPrice: amountString(s.TrsyPrice),
			USDValueDeposited: amountString(s.USDDepositValue),
			TrsyMinted:        amountString(s.TrsyMinted),
		}, nil
	case model.WithdrawSettled:
		return model.WithdrawAction{
			ActionMeta:        meta,
			AssetOut:          addressStrings(req.AssetOut),
			AmountOut:         amountStrings(req.AmountOut),
			BurnedAtTrsyPrice: amountString(s.TrsyPrice),
			USDValueWithdrawn: amountString(s.USDWithdrawValue),
			TrsyBurned:        amountString(s.TrsyBurned),
		}, nil
	case model.SwapSettled:
		return model.SwapAction{
			ActionMeta: meta,
			AssetIn:    req.AssetIn[0].Hex(),
			AssetOut:   req.AssetOut[0].Hex(),
			AmountIn:   amountString(req.AmountIn[0]),
			AmountOut:  amountString(s.AmountOut),
		}, nil
	default:
		return nil, fmt.Errorf("unhandled settlement type %T", settlement)
	}
}

func addressStrings(in []common.Address) []string {
	out := make([]string, len(in))
	for i, a := range in {
		out[i] = a.Hex()
	}
	return out
}

func amountStrings(in []*big.Int) []string {
	out := make([]string, len(in))
	for i, a := range in {
		out[i] = amountString(a)
	}
	return out
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
