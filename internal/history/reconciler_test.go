package history

import (
	"context"
	"errors"
	"iter"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"fydeScope/internal/indexer"
	"fydeScope/internal/model"
)

var (
	relayerAddr = common.HexToAddress("0x6830C61dF103946B63C786e63222c59677F32078")
	vaultAddr   = common.HexToAddress("0x87Cc45fFF5c0933bb6aF6bAe7Fc013b7eC7df2Ee")
	alice       = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob         = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	usdc        = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	weth        = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type fakeStreamer struct {
	entries map[common.Address][]indexer.Entry
	err     error
}

func (f *fakeStreamer) Stream(_ context.Context, q indexer.Query) iter.Seq2[indexer.Entry, error] {
	return func(yield func(indexer.Entry, error) bool) {
		if f.err != nil {
			yield(indexer.Entry{}, f.err)
			return
		}
		for _, e := range f.entries[q.Contract] {
			if !yield(e, nil) {
				return
			}
		}
	}
}

type fakeResolver struct {
	metas    map[common.Hash]model.BlockMeta
	errs     map[common.Hash]error
	delay    func(common.Hash) time.Duration
	lookups  atomic.Int32
	inFlight atomic.Int32
	mu       sync.Mutex
	peak     int32
}

func (f *fakeResolver) TransactionMeta(ctx context.Context, hash common.Hash) (model.BlockMeta, error) {
	f.lookups.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	f.mu.Lock()
	if n > f.peak {
		f.peak = n
	}
	f.mu.Unlock()
	if f.delay != nil {
		time.Sleep(f.delay(hash))
	}
	if err, ok := f.errs[hash]; ok {
		return model.BlockMeta{}, err
	}
	meta, ok := f.metas[hash]
	if !ok {
		return model.BlockMeta{}, model.NotFound("test", hash.Hex())
	}
	return meta, nil
}

type fixture struct {
	streamer *fakeStreamer
	resolver *fakeResolver
}

func newFixture() *fixture {
	return &fixture{
		streamer: &fakeStreamer{entries: map[common.Address][]indexer.Entry{}},
		resolver: &fakeResolver{metas: map[common.Hash]model.BlockMeta{}, errs: map[common.Hash]error{}},
	}
}

func txHash(n uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(n))
}

// addRequest registers a relayer request and its transaction metadata.
func (f *fixture) addRequest(req model.RequestEvent, sender common.Address) {
	f.streamer.entries[relayerAddr] = append(f.streamer.entries[relayerAddr], indexer.Entry{Ref: req.LogRef, Event: req})
	f.resolver.metas[req.TxHash] = model.BlockMeta{BlockNumber: req.BlockNumber, Timestamp: 1_700_000_000 + req.BlockNumber*12, Sender: sender}
}

func (f *fixture) addSettlement(s model.SettlementEvent) {
	f.streamer.entries[vaultAddr] = append(f.streamer.entries[vaultAddr], indexer.Entry{Ref: s.Ref(), Event: s})
}

func (f *fixture) reconciler(t *testing.T, concurrency int) *Reconciler {
	t.Helper()
	r, err := NewReconciler(f.streamer, f.resolver, Config{
		Relayer:         relayerAddr,
		LiquidVault:     vaultAddr,
		MetaConcurrency: concurrency,
		Retry:           indexer.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond},
	})
	require.NoError(t, err)
	return r
}

func ref(block, index, tx uint64) model.LogRef {
	return model.LogRef{BlockNumber: block, LogIndex: index, TxHash: txHash(tx)}
}

func depositRequest(id uint64, r model.LogRef) model.RequestEvent {
	return model.RequestEvent{
		LogRef:        r,
		Kind:          model.KindDeposit,
		RequestID:     id,
		AssetIn:       []common.Address{usdc, weth},
		AmountIn:      []*big.Int{big.NewInt(1000), big.NewInt(2)},
		KeepGovRights: true,
	}
}

func withdrawRequest(id uint64, r model.LogRef) model.RequestEvent {
	return model.RequestEvent{
		LogRef:    r,
		Kind:      model.KindWithdraw,
		RequestID: id,
		AssetOut:  []common.Address{usdc},
		AmountOut: []*big.Int{big.NewInt(500)},
	}
}

func swapRequest(id uint64, r model.LogRef) model.RequestEvent {
	return model.RequestEvent{
		LogRef:    r,
		Kind:      model.KindSwap,
		RequestID: id,
		AssetIn:   []common.Address{usdc},
		AssetOut:  []common.Address{weth},
		AmountIn:  []*big.Int{big.NewInt(300)},
		AmountOut: []*big.Int{big.NewInt(0)},
	}
}

func depositSettled(id uint64, r model.LogRef) model.DepositSettled {
	return model.DepositSettled{
		SettlementBase:  model.SettlementBase{LogRef: r, RequestID: id},
		TrsyPrice:       big.NewInt(11),
		USDDepositValue: big.NewInt(22),
		TrsyMinted:      big.NewInt(33),
	}
}

func withdrawSettled(id uint64, r model.LogRef) model.WithdrawSettled {
	return model.WithdrawSettled{
		SettlementBase:   model.SettlementBase{LogRef: r, RequestID: id},
		TrsyPrice:        big.NewInt(44),
		USDWithdrawValue: big.NewInt(55),
		TrsyBurned:       big.NewInt(66),
	}
}

func swapSettled(id uint64, r model.LogRef) model.SwapSettled {
	return model.SwapSettled{SettlementBase: model.SettlementBase{LogRef: r, RequestID: id}, AmountOut: big.NewInt(299)}
}

// standardFixture has one of each kind; settlements arrive in reverse order.
func standardFixture() *fixture {
	f := newFixture()
	f.addRequest(depositRequest(1, ref(10, 0, 1)), alice)
	f.addRequest(withdrawRequest(2, ref(10, 5, 2)), bob)
	f.addRequest(swapRequest(3, ref(12, 1, 3)), alice)
	f.addSettlement(swapSettled(3, ref(13, 0, 6)))
	f.addSettlement(withdrawSettled(2, ref(11, 2, 5)))
	f.addSettlement(depositSettled(1, ref(11, 0, 4)))
	return f
}

func TestReconcileMergesEveryPair(t *testing.T) {
	f := standardFixture()
	actions, err := f.reconciler(t, 4).Reconcile(context.Background(), 0, 20)
	require.NoError(t, err)
	require.Len(t, actions, 3)

	deposit, ok := actions[0].(model.DepositAction)
	require.True(t, ok)
	require.Equal(t, model.DepositAction{
		ActionMeta: model.ActionMeta{
			Kind:        model.KindDeposit,
			TxHash:      txHash(1).Hex(),
			BlockNumber: 10,
			LogIndex:    0,
			Timestamp:   1_700_000_120,
			RequestID:   1,
			User:        alice.Hex(),
		},
		AssetIn:           []string{usdc.Hex(), weth.Hex()},
		AmountIn:          []string{"1000", "2"},
		KeepGovRights:     true,
		MintedAtTrsyPrice: "11",
		USDValueDeposited: "22",
		TrsyMinted:        "33",
	}, deposit)

	withdraw, ok := actions[1].(model.WithdrawAction)
	require.True(t, ok)
	require.Equal(t, bob.Hex(), withdraw.User)
	require.Equal(t, []string{usdc.Hex()}, withdraw.AssetOut)
	require.Equal(t, []string{"500"}, withdraw.AmountOut)
	require.Equal(t, "44", withdraw.BurnedAtTrsyPrice)
	require.Equal(t, "55", withdraw.USDValueWithdrawn)
	require.Equal(t, "66", withdraw.TrsyBurned)

	swap, ok := actions[2].(model.SwapAction)
	require.True(t, ok)
	require.Equal(t, usdc.Hex(), swap.AssetIn)
	require.Equal(t, weth.Hex(), swap.AssetOut)
	require.Equal(t, "300", swap.AmountIn)
	require.Equal(t, "299", swap.AmountOut)
}

func TestReconcileOrderIndependentOfLookupCompletion(t *testing.T) {
	f := newFixture()
	for i := uint64(1); i <= 20; i++ {
		f.addRequest(depositRequest(i, ref(100+i, 0, i)), alice)
		// Settlements land in reverse relative order.
		f.addSettlement(depositSettled(21-i, ref(200+i, 0, 100+i)))
	}
	// Earlier transactions take longest to resolve.
	f.resolver.delay = func(h common.Hash) time.Duration {
		return time.Duration(21-h.Big().Int64()) * time.Millisecond
	}

	actions, err := f.reconciler(t, 5).Reconcile(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, actions, 20)
	for i, a := range actions {
		require.Equal(t, uint64(i+1), a.Meta().RequestID)
		require.Equal(t, uint64(101+i), a.Meta().BlockNumber)
	}
	require.LessOrEqual(t, f.resolver.peak, int32(5))
}

func TestReconcileSortsRequestsByLogPosition(t *testing.T) {
	f := newFixture()
	f.addRequest(swapRequest(2, ref(5, 3, 2)), bob)
	f.addRequest(swapRequest(1, ref(5, 1, 1)), alice)
	f.addSettlement(swapSettled(1, ref(6, 0, 3)))
	f.addSettlement(swapSettled(2, ref(6, 1, 3)))

	actions, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Equal(t, uint64(1), actions[0].Meta().RequestID)
	require.Equal(t, uint64(2), actions[1].Meta().RequestID)
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := standardFixture()
	r := f.reconciler(t, 3)
	first, err := r.Reconcile(context.Background(), 0, 20)
	require.NoError(t, err)
	second, err := r.Reconcile(context.Background(), 0, 20)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestReconcileResolvesEachTransactionOnce(t *testing.T) {
	f := newFixture()
	f.addRequest(depositRequest(1, ref(10, 0, 1)), alice)
	f.addRequest(withdrawRequest(2, ref(10, 1, 1)), alice)
	f.addSettlement(depositSettled(1, ref(11, 0, 2)))
	f.addSettlement(withdrawSettled(2, ref(11, 1, 2)))

	_, err := f.reconciler(t, 4).Reconcile(context.Background(), 0, 20)
	require.NoError(t, err)
	require.Equal(t, int32(1), f.resolver.lookups.Load())
}

func TestReconcileEmptyRange(t *testing.T) {
	actions, err := newFixture().reconciler(t, 1).Reconcile(context.Background(), 0, 20)
	require.NoError(t, err)
	require.Empty(t, actions)
}

func requireIntegrity(t *testing.T, err error, reason model.IntegrityReason, requestID uint64) {
	t.Helper()
	require.ErrorIs(t, err, model.ErrIntegrity)
	var integrity *model.IntegrityError
	require.ErrorAs(t, err, &integrity)
	require.Equal(t, reason, integrity.Reason)
	require.Equal(t, requestID, integrity.RequestID)
}

func TestReconcileMissingSettlement(t *testing.T) {
	f := standardFixture()
	f.addRequest(depositRequest(9, ref(15, 0, 9)), bob)
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	requireIntegrity(t, err, model.ReasonMissingSettlement, 9)
}

func TestReconcileOrphanSettlement(t *testing.T) {
	f := standardFixture()
	f.addSettlement(withdrawSettled(7, ref(14, 0, 8)))
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	requireIntegrity(t, err, model.ReasonOrphanSettlement, 7)
}

func TestReconcileDuplicateSettlement(t *testing.T) {
	f := standardFixture()
	f.addSettlement(depositSettled(1, ref(14, 0, 8)))
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	requireIntegrity(t, err, model.ReasonDuplicateSettlement, 1)
}

func TestReconcileDuplicateRequest(t *testing.T) {
	f := standardFixture()
	f.addRequest(depositRequest(1, ref(14, 0, 8)), bob)
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	requireIntegrity(t, err, model.ReasonDuplicateRequest, 1)
}

func TestReconcileKindMismatch(t *testing.T) {
	f := newFixture()
	f.addRequest(depositRequest(4, ref(10, 0, 1)), alice)
	f.addSettlement(swapSettled(4, ref(11, 0, 2)))
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	requireIntegrity(t, err, model.ReasonKindMismatch, 4)
}

func TestReconcileRejectsMultiAssetSwap(t *testing.T) {
	f := newFixture()
	req := swapRequest(5, ref(10, 0, 1))
	req.AssetIn = []common.Address{usdc, weth}
	req.AmountIn = []*big.Int{big.NewInt(1), big.NewInt(2)}
	f.addRequest(req, alice)
	f.addSettlement(swapSettled(5, ref(11, 0, 2)))
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	requireIntegrity(t, err, model.ReasonShapeMismatch, 5)
}

func TestReconcileRejectsRaggedDeposit(t *testing.T) {
	f := newFixture()
	req := depositRequest(6, ref(10, 0, 1))
	req.AmountIn = req.AmountIn[:1]
	f.addRequest(req, alice)
	f.addSettlement(depositSettled(6, ref(11, 0, 2)))
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	requireIntegrity(t, err, model.ReasonShapeMismatch, 6)
}

func TestReconcileNotFoundIsDistinct(t *testing.T) {
	f := standardFixture()
	delete(f.resolver.metas, txHash(2))
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	require.ErrorIs(t, err, model.ErrNotFound)
	require.NotErrorIs(t, err, model.ErrIntegrity)
	require.NotErrorIs(t, err, model.ErrTransport)
}

func TestReconcileDetectsReorgedTransaction(t *testing.T) {
	f := standardFixture()
	meta := f.resolver.metas[txHash(3)]
	meta.BlockNumber++
	f.resolver.metas[txHash(3)] = meta
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	require.ErrorIs(t, err, model.ErrNotFound)
}

// memoResolver serves a fixed stale answer until it is invalidated.
type memoResolver struct {
	*fakeResolver
	stale       map[common.Hash]model.BlockMeta
	invalidated []common.Hash
}

func (m *memoResolver) TransactionMeta(ctx context.Context, hash common.Hash) (model.BlockMeta, error) {
	if meta, ok := m.stale[hash]; ok {
		return meta, nil
	}
	return m.fakeResolver.TransactionMeta(ctx, hash)
}

func (m *memoResolver) InvalidateTransactionMeta(_ context.Context, hash common.Hash) error {
	delete(m.stale, hash)
	m.invalidated = append(m.invalidated, hash)
	return nil
}

func TestReconcileRefreshesStaleMeta(t *testing.T) {
	f := standardFixture()
	meta := f.resolver.metas[txHash(3)]
	meta.BlockNumber--
	resolver := &memoResolver{fakeResolver: f.resolver, stale: map[common.Hash]model.BlockMeta{txHash(3): meta}}
	r, err := NewReconciler(f.streamer, resolver, Config{
		Relayer:     relayerAddr,
		LiquidVault: vaultAddr,
		Retry:       indexer.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond},
	})
	require.NoError(t, err)

	_, err = r.Reconcile(context.Background(), 0, 20)
	require.NoError(t, err)
	require.Equal(t, []common.Hash{txHash(3)}, resolver.invalidated)
}

func TestReconcileReorgSurvivesInvalidation(t *testing.T) {
	f := standardFixture()
	meta := f.resolver.metas[txHash(3)]
	meta.BlockNumber++
	f.resolver.metas[txHash(3)] = meta
	resolver := &memoResolver{fakeResolver: f.resolver, stale: map[common.Hash]model.BlockMeta{}}
	r, err := NewReconciler(f.streamer, resolver, Config{
		Relayer:     relayerAddr,
		LiquidVault: vaultAddr,
		Retry:       indexer.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond},
	})
	require.NoError(t, err)

	_, err = r.Reconcile(context.Background(), 0, 20)
	require.ErrorIs(t, err, model.ErrNotFound)
	require.Equal(t, []common.Hash{txHash(3)}, resolver.invalidated)
}

func TestReconcileTransportErrorPropagates(t *testing.T) {
	f := standardFixture()
	f.resolver.errs[txHash(1)] = model.Transport("eth_getTransactionByHash", errors.New("timeout"))
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	require.ErrorIs(t, err, model.ErrTransport)
	// One initial attempt plus one retry.
	require.GreaterOrEqual(t, f.resolver.lookups.Load(), int32(2))
}

func TestReconcileAbortsOnMalformedRequest(t *testing.T) {
	f := standardFixture()
	f.streamer.entries[relayerAddr] = append(f.streamer.entries[relayerAddr], indexer.Entry{
		Err: &model.DecodeError{BlockNumber: 15, TxHash: txHash(9).Hex(), Reason: "unpack Deposit: short data"},
	})
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	var decodeErr *model.DecodeError
	require.ErrorAs(t, err, &decodeErr)
}

func TestReconcileStreamFailure(t *testing.T) {
	f := standardFixture()
	f.streamer.err = model.Transport("eth_getLogs", errors.New("boom"))
	_, err := f.reconciler(t, 2).Reconcile(context.Background(), 0, 20)
	require.ErrorIs(t, err, model.ErrTransport)
}

func TestNewReconcilerRequiresAddresses(t *testing.T) {
	f := newFixture()
	_, err := NewReconciler(f.streamer, f.resolver, Config{Relayer: relayerAddr})
	require.Error(t, err)
}
