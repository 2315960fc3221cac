package model

import "github.com/shopspring/decimal"

// ProtocolStats is a point-in-time view of the liquid vault.
type ProtocolStats struct {
	TVL        decimal.Decimal `json:"tvl"`
	TrsySupply decimal.Decimal `json:"trsy_supply"`
	TrsyStaked decimal.Decimal `json:"trsy_staked"`
	TrsyValue  decimal.Decimal `json:"trsy_value"`
}

// FeeTotals aggregates fee flows recorded in vault token transfers.
type FeeTotals struct {
	FromBlock      uint64          `json:"from_block"`
	TotalFees      decimal.Decimal `json:"total_fees"`
	ManagementFees decimal.Decimal `json:"management_fees"`
	TaxFees        decimal.Decimal `json:"tax_fees"`
	BurnedBySwap   decimal.Decimal `json:"burned_by_swap"`
}

// AssetAccounting is the vault's bookkeeping for one asset, in token units.
type AssetAccounting struct {
	Asset                 string          `json:"asset"`
	Symbol                string          `json:"symbol,omitempty"`
	Decimals              uint8           `json:"decimals"`
	TokenInProtocol       decimal.Decimal `json:"token_in_protocol"`
	TokenInStandardPool   decimal.Decimal `json:"token_in_standard_pool"`
	TokenInGovernancePool decimal.Decimal `json:"token_in_governance_pool"`
	Missing               []string        `json:"missing,omitempty"`
}
