package model

// UserAction is a reconciled request/settlement pair.
// Implementations: DepositAction, WithdrawAction, SwapAction.
type UserAction interface {
	Meta() ActionMeta
	isUserAction()
}

// ActionMeta holds the fields common to every user action.
type ActionMeta struct {
	Kind        ActionKind `json:"kind"`
	TxHash      string     `json:"tx_hash"`
	BlockNumber uint64     `json:"block_number"`
	LogIndex    uint64     `json:"log_index"`
	Timestamp   uint64     `json:"timestamp"`
	RequestID   uint64     `json:"request_id"`
	User        string     `json:"user"`
}

func (m ActionMeta) Meta() ActionMeta { return m }

func (ActionMeta) isUserAction() {}

// DepositAction is a settled deposit request.
type DepositAction struct {
	ActionMeta
	AssetIn           []string `json:"asset_in"`
	AmountIn          []string `json:"amount_in"`
	KeepGovRights     bool     `json:"keep_gov_rights"`
	MintedAtTrsyPrice string   `json:"minted_at_trsy_price"`
	USDValueDeposited string   `json:"usd_value_deposited"`
	TrsyMinted        string   `json:"trsy_minted"`
}

// WithdrawAction is a settled withdraw request.
type WithdrawAction struct {
	ActionMeta
	AssetOut          []string `json:"asset_out"`
	AmountOut         []string `json:"amount_out"`
	BurnedAtTrsyPrice string   `json:"burned_at_trsy_price"`
	USDValueWithdrawn string   `json:"usd_value_withdrawn"`
	TrsyBurned        string   `json:"trsy_burned"`
}

// SwapAction is a settled single-asset swap request.
type SwapAction struct {
	ActionMeta
	AssetIn   string `json:"asset_in"`
	AssetOut  string `json:"asset_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
}
