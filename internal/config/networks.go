package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Multicall3 is deployed at the same address on every supported chain.
const multicall3 = "0xcA11bde05977b3631167028862bE2a173976CA11"

// Network is the contract address book of one deployment.
type Network struct {
	Name              string
	ChainID           uint64
	LiquidVault       common.Address
	Relayer           common.Address
	GovernanceModule  common.Address
	VoteEscrow        common.Address
	StakingTRSY       common.Address
	Multicall         common.Address
	HoldersStartBlock uint64
}

var builtinNetworks = map[string]Network{
	"mainnet": {
		Name:              "mainnet",
		ChainID:           1,
		LiquidVault:       common.HexToAddress("0x87Cc45fFF5c0933bb6aF6bAe7Fc013b7eC7df2Ee"),
		Relayer:           common.HexToAddress("0x6830C61dF103946B63C786e63222c59677F32078"),
		GovernanceModule:  common.HexToAddress("0xc6F50903a058f3807111619bD4B24cA64b8239E1"),
		VoteEscrow:        common.HexToAddress("0x9B369202ff147B54eA7092BC94425C781094DbdE"),
		StakingTRSY:       common.HexToAddress("0x6c7441C76D85d7aB43EacD076D37b0775f5C32f7"),
		Multicall:         common.HexToAddress(multicall3),
		HoldersStartBlock: 20231776,
	},
	"sepolia": {
		Name:             "sepolia",
		ChainID:          11155111,
		LiquidVault:      common.HexToAddress("0x922B0549983BF40C939c6b66996FF61D140F1455"),
		Relayer:          common.HexToAddress("0xF1b793D8A22c2ae7E3ad1Eb578eC7FB6Cdb15eF9"),
		GovernanceModule: common.HexToAddress("0xe5905bdA71CCaCE9711EA36C2245d8cA231512A9"),
		VoteEscrow:       common.HexToAddress("0x2A26D7f71A0dBB600A317160e42632408D0EE6eb"),
		StakingTRSY:      common.HexToAddress("0xefC7Cc6d8b7A2e43a1a65A7cED1E53f555466e17"),
		Multicall:        common.HexToAddress(multicall3),
	},
}

// NetworkNames lists the built-in networks.
func NetworkNames() []string {
	return []string{"mainnet", "sepolia"}
}

// resolveNetwork starts from the built-in book for name and applies any
// networks.<name>.* overrides. Unknown names must supply every address.
func resolveNetwork(v *viper.Viper, name string) (Network, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Network{}, fmt.Errorf("network is required")
	}
	network, known := builtinNetworks[name]
	if !known {
		network = Network{Name: name, Multicall: common.HexToAddress(multicall3)}
	}

	prefix := "networks." + name + "."
	overrides := []struct {
		key string
		dst *common.Address
	}{
		{"liquid-vault", &network.LiquidVault},
		{"relayer", &network.Relayer},
		{"governance-module", &network.GovernanceModule},
		{"vote-escrow", &network.VoteEscrow},
		{"staking-trsy", &network.StakingTRSY},
		{"multicall", &network.Multicall},
	}
	for _, o := range overrides {
		raw := strings.TrimSpace(v.GetString(prefix + o.key))
		if raw == "" {
			continue
		}
		if !common.IsHexAddress(raw) {
			return Network{}, fmt.Errorf("network %s: invalid %s address %q", name, o.key, raw)
		}
		*o.dst = common.HexToAddress(raw)
	}
	if v.IsSet(prefix + "chain-id") {
		network.ChainID = v.GetUint64(prefix + "chain-id")
	}
	if v.IsSet(prefix + "holders-start-block") {
		network.HoldersStartBlock = v.GetUint64(prefix + "holders-start-block")
	}

	if !known {
		for _, o := range overrides {
			if *o.dst == (common.Address{}) {
				return Network{}, fmt.Errorf("unknown network %s: %s address is required", name, o.key)
			}
		}
	}
	return network, nil
}
