package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// GovernanceImbalance is how far a participant's governance-pool holdings
// deviate from target for one asset. Negative means under-funded.
type GovernanceImbalance struct {
	User  common.Address
	Delta *big.Int
}

// AssetGovernance holds a user's governance position for one asset.
// Fields are empty when the tolerant read could not fetch them; Missing lists them.
type AssetGovernance struct {
	Asset                   string   `json:"asset"`
	StTrsyBalance           string   `json:"st_trsy_balance,omitempty"`
	CurrentGovernanceRights string   `json:"current_governance_rights,omitempty"`
	TotalVotingRights       string   `json:"total_voting_rights,omitempty"`
	Missing                 []string `json:"missing,omitempty"`
}

// GovernanceData is a user's governance position across assets, in request order.
type GovernanceData struct {
	User   string            `json:"user"`
	Proxy  string            `json:"proxy,omitempty"`
	Assets []AssetGovernance `json:"assets"`
}
