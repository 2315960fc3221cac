package multicall

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultAddress is the Multicall3 deployment shared by mainnet and most testnets.
var DefaultAddress = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const multicall3ABIJSON = `[
  {
    "inputs": [
      {"components": [
        {"internalType": "address", "name": "target", "type": "address"},
        {"internalType": "bool", "name": "allowFailure", "type": "bool"},
        {"internalType": "bytes", "name": "callData", "type": "bytes"}
      ], "internalType": "struct Multicall3.Call3[]", "name": "calls", "type": "tuple[]"}
    ],
    "name": "aggregate3",
    "outputs": [
      {"components": [
        {"internalType": "bool", "name": "success", "type": "bool"},
        {"internalType": "bytes", "name": "returnData", "type": "bytes"}
      ], "internalType": "struct Multicall3.Result[]", "name": "returnData", "type": "tuple[]"}
    ],
    "stateMutability": "payable",
    "type": "function"
  }
]`

// call3 and result mirror the Multicall3 tuple layouts field by field.
type call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

type result struct {
	Success    bool
	ReturnData []byte
}

var multicall3ABI = sync.OnceValues(func() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(multicall3ABIJSON))
})
