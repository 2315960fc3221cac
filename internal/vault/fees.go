package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"fydeScope/internal/indexer"
	"fydeScope/internal/model"
	"fydeScope/internal/protocol"
)

// Fees totals the vault's fee flows from fromBlock to the latest block.
// Every TRSY mint to the vault itself is a fee; management fees are announced
// by ManagementFeeCollected and the rest is tax. Burns from the vault are TRSY
// burned by swaps.
func (v *Vault) Fees(ctx context.Context, fromBlock uint64) (model.FeeTotals, error) {
	if v.streamer == nil {
		return model.FeeTotals{}, fmt.Errorf("event streamer is nil")
	}
	decoder, err := protocol.NewLiquidVaultDecoder(protocol.FeeEvents...)
	if err != nil {
		return model.FeeTotals{}, err
	}
	events, _, err := indexer.Collect(v.streamer.Stream(ctx, indexer.Query{
		Contract:  v.vault,
		Decoder:   decoder,
		FromBlock: fromBlock,
	}), true)
	if err != nil {
		return model.FeeTotals{}, fmt.Errorf("collect fee events: %w", err)
	}

	total, management, burned := new(big.Int), new(big.Int), new(big.Int)
	for _, event := range events {
		switch ev := event.(type) {
		case model.TransferEvent:
			switch {
			case ev.From == (common.Address{}) && ev.To == v.vault:
				total.Add(total, ev.Value)
			case ev.From == v.vault && ev.To == (common.Address{}):
				burned.Add(burned, ev.Value)
			}
		case model.ManagementFeeCollected:
			management.Add(management, ev.FeeToMint)
		}
	}

	tax := new(big.Int).Sub(total, management)
	if tax.Sign() < 0 {
		v.logger.Warn("management fees exceed minted fees",
			zap.String("total", total.String()),
			zap.String("management", management.String()),
		)
		tax.SetInt64(0)
	}
	v.logger.Info("fee events collected", zap.Int("events", len(events)), zap.Uint64("from", fromBlock))

	return model.FeeTotals{
		FromBlock:      fromBlock,
		TotalFees:      scale(total, TrsyDecimals),
		ManagementFees: scale(management, TrsyDecimals),
		TaxFees:        scale(tax, TrsyDecimals),
		BurnedBySwap:   scale(burned, TrsyDecimals),
	}, nil
}
