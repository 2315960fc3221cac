package protocol

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fydeScope/internal/model"
)

type requestTuple struct {
	Id              uint32
	Requestor       common.Address
	AssetIn         []common.Address
	AmountIn        []*big.Int
	AssetOut        []common.Address
	AmountOut       []*big.Int
	KeepGovRights   bool
	SlippageChecked bool
}

func TestRelayerDecoderDeposit(t *testing.T) {
	relayerABI := mustABI(RelayerABI)
	decoder, err := NewRelayerDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	relayer := common.HexToAddress("0x6830C61dF103946B63C786e63222c59677F32078")
	user := common.HexToAddress("0x2222222222222222222222222222222222222222")
	usdc := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	weth := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	data, err := relayerABI.Events["Deposit"].Inputs.NonIndexed().Pack(uint32(42), requestTuple{
		Id:            42,
		Requestor:     user,
		AssetIn:       []common.Address{usdc, weth},
		AmountIn:      []*big.Int{big.NewInt(1000), big.NewInt(2000)},
		KeepGovRights: true,
	})
	if err != nil {
		t.Fatalf("pack deposit: %v", err)
	}

	decoded, err := decoder.Decode(buildLog(relayer, relayerABI.Events["Deposit"].ID, data, nil))
	if err != nil {
		t.Fatalf("decode deposit: %v", err)
	}
	req, ok := decoded.(model.RequestEvent)
	if !ok {
		t.Fatalf("decoded type mismatch: %T", decoded)
	}
	if req.Kind != model.KindDeposit || req.RequestID != 42 {
		t.Fatalf("request mismatch: %+v", req)
	}
	if len(req.AssetIn) != 2 || req.AssetIn[1] != weth || req.AmountIn[0].Int64() != 1000 {
		t.Fatalf("asset mismatch: %+v", req)
	}
	if !req.KeepGovRights || req.Requestor != user {
		t.Fatalf("flags mismatch: %+v", req)
	}
	if req.BlockNumber != 12345 || req.LogIndex != 3 {
		t.Fatalf("log ref mismatch: %+v", req.LogRef)
	}
}

func TestRelayerDecoderIgnoresUnknownTopic(t *testing.T) {
	decoder, err := NewRelayerDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	decoded, err := decoder.Decode(buildLog(common.Address{}, common.HexToHash("0x01"), nil, nil))
	if err != nil || decoded != nil {
		t.Fatalf("expected ignored log, got %v %v", decoded, err)
	}
	if len(decoder.Topics()) != 3 {
		t.Fatalf("topics: %d", len(decoder.Topics()))
	}
}

func TestRelayerDecoderMalformedData(t *testing.T) {
	relayerABI := mustABI(RelayerABI)
	decoder, err := NewRelayerDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	_, err = decoder.Decode(buildLog(common.Address{}, relayerABI.Events["Swap"].ID, []byte{0x01, 0x02}, nil))
	if err == nil {
		t.Fatalf("expected unpack error")
	}
}

func TestLiquidVaultDecoderSettlements(t *testing.T) {
	vaultABI := mustABI(LiquidVaultABI)
	decoder, err := NewLiquidVaultDecoder(SettlementEvents...)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	vault := common.HexToAddress("0x87Cc45fFF5c0933bb6aF6bAe7Fc013b7eC7df2Ee")

	depositData, err := vaultABI.Events["Deposit"].Inputs.NonIndexed().Pack(big.NewInt(11), big.NewInt(22), big.NewInt(33))
	if err != nil {
		t.Fatalf("pack deposit: %v", err)
	}
	decoded, err := decoder.Decode(buildLog(vault, vaultABI.Events["Deposit"].ID, depositData, []common.Hash{topicFromUint(7)}))
	if err != nil {
		t.Fatalf("decode deposit: %v", err)
	}
	deposit, ok := decoded.(model.DepositSettled)
	if !ok {
		t.Fatalf("deposit type mismatch: %T", decoded)
	}
	if deposit.ID() != 7 || deposit.TrsyPrice.Int64() != 11 || deposit.USDDepositValue.Int64() != 22 || deposit.TrsyMinted.Int64() != 33 {
		t.Fatalf("deposit mismatch: %+v", deposit)
	}

	swapData, err := vaultABI.Events["Swap"].Inputs.NonIndexed().Pack(big.NewInt(500))
	if err != nil {
		t.Fatalf("pack swap: %v", err)
	}
	decoded, err = decoder.Decode(buildLog(vault, vaultABI.Events["Swap"].ID, swapData, []common.Hash{topicFromUint(9)}))
	if err != nil {
		t.Fatalf("decode swap: %v", err)
	}
	swap, ok := decoded.(model.SwapSettled)
	if !ok {
		t.Fatalf("swap type mismatch: %T", decoded)
	}
	if swap.Kind() != model.KindSwap || swap.ID() != 9 || swap.AmountOut.Int64() != 500 {
		t.Fatalf("swap mismatch: %+v", swap)
	}

	// Transfer is not selected, so it decodes to the ignored variant.
	decoded, err = decoder.Decode(buildLog(vault, vaultABI.Events["Transfer"].ID, nil, nil))
	if err != nil || decoded != nil {
		t.Fatalf("expected ignored transfer, got %v %v", decoded, err)
	}
}

func TestLiquidVaultDecoderTopicCountMismatch(t *testing.T) {
	vaultABI := mustABI(LiquidVaultABI)
	decoder, err := NewLiquidVaultDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	data, _ := vaultABI.Events["Withdraw"].Inputs.NonIndexed().Pack(big.NewInt(1), big.NewInt(2), big.NewInt(3))
	if _, err := decoder.Decode(buildLog(common.Address{}, vaultABI.Events["Withdraw"].ID, data, nil)); err == nil {
		t.Fatalf("expected topic count error")
	}
}

func TestLiquidVaultDecoderUnknownName(t *testing.T) {
	if _, err := NewLiquidVaultDecoder("Mint"); err == nil {
		t.Fatalf("expected unsupported event error")
	}
}

func TestLiquidVaultDecoderFees(t *testing.T) {
	vaultABI := mustABI(LiquidVaultABI)
	decoder, err := NewLiquidVaultDecoder(FeeEvents...)
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	vault := common.HexToAddress("0x87Cc45fFF5c0933bb6aF6bAe7Fc013b7eC7df2Ee")

	data, _ := vaultABI.Events["Transfer"].Inputs.NonIndexed().Pack(big.NewInt(77))
	decoded, err := decoder.Decode(buildLog(vault, vaultABI.Events["Transfer"].ID, data, []common.Hash{
		topicFromAddress(common.Address{}),
		topicFromAddress(vault),
	}))
	if err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	transfer, ok := decoded.(model.TransferEvent)
	if !ok {
		t.Fatalf("transfer type mismatch: %T", decoded)
	}
	if transfer.From != (common.Address{}) || transfer.To != vault || transfer.Value.Int64() != 77 {
		t.Fatalf("transfer mismatch: %+v", transfer)
	}

	data, _ = vaultABI.Events["ManagementFeeCollected"].Inputs.NonIndexed().Pack(big.NewInt(5))
	decoded, err = decoder.Decode(buildLog(vault, vaultABI.Events["ManagementFeeCollected"].ID, data, nil))
	if err != nil {
		t.Fatalf("decode fee: %v", err)
	}
	if fee, ok := decoded.(model.ManagementFeeCollected); !ok || fee.FeeToMint.Int64() != 5 {
		t.Fatalf("fee mismatch: %#v", decoded)
	}
}

func TestVoteEscrowDecoderUpdateLock(t *testing.T) {
	escrowABI := mustABI(VoteEscrowABI)
	decoder, err := NewVoteEscrowDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	user := common.HexToAddress("0x3333333333333333333333333333333333333333")
	data, err := escrowABI.Events["UpdateLock"].Inputs.NonIndexed().Pack(big.NewInt(1e6), big.NewInt(1700864000))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	decoded, err := decoder.Decode(buildLog(common.Address{}, escrowABI.Events["UpdateLock"].ID, data, []common.Hash{topicFromAddress(user)}))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	lock, ok := decoded.(model.LockUpdated)
	if !ok {
		t.Fatalf("type mismatch: %T", decoded)
	}
	if lock.User != user || lock.Amount.Int64() != 1e6 || lock.Expiry != 1700864000 {
		t.Fatalf("lock mismatch: %+v", lock)
	}
}

func buildLog(address common.Address, topic0 common.Hash, data []byte, indexed []common.Hash) types.Log {
	topics := make([]common.Hash, 0, len(indexed)+1)
	topics = append(topics, topic0)
	topics = append(topics, indexed...)
	return types.Log{
		Address:     address,
		Topics:      topics,
		Data:        data,
		BlockNumber: 12345,
		TxHash:      common.HexToHash("0xdef"),
		Index:       3,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func topicFromUint(value uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(value))
}

func mustABI(get func() (abi.ABI, error)) abi.ABI {
	parsed, err := get()
	if err != nil {
		panic(err)
	}
	return parsed
}
