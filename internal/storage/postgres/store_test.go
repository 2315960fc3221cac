package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"fydeScope/internal/model"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("fydescope"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.EnsureSchema(ctx))
	return store
}

func TestPutUserActionsIsIdempotent(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	actions := []model.UserAction{
		model.DepositAction{
			ActionMeta: model.ActionMeta{Kind: model.KindDeposit, TxHash: "0x01", BlockNumber: 10, LogIndex: 2, Timestamp: 1_700_000_000, RequestID: 1, User: "0xa"},
			AssetIn:    []string{"0xusdc"},
			AmountIn:   []string{"1000000"},
			TrsyMinted: "5",
		},
		model.WithdrawAction{
			ActionMeta: model.ActionMeta{Kind: model.KindWithdraw, TxHash: "0x02", BlockNumber: 11, LogIndex: 0, Timestamp: 1_700_000_012, RequestID: 2, User: "0xb"},
			AssetOut:   []string{"0xweth"},
			AmountOut:  []string{"7"},
			TrsyBurned: "3",
		},
	}

	require.NoError(t, store.PutUserActions(ctx, actions))
	require.NoError(t, store.PutUserActions(ctx, actions))

	n, err := countUserActions(ctx, store)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	var kind, burned string
	err = store.pool.QueryRow(ctx,
		`SELECT kind, payload->>'trsy_burned' FROM user_actions WHERE request_id = $1`, 2,
	).Scan(&kind, &burned)
	require.NoError(t, err)
	require.Equal(t, "withdraw", kind)
	require.Equal(t, "3", burned)
}

func TestPutUserActionsEmpty(t *testing.T) {
	store := &Store{}
	require.NoError(t, store.PutUserActions(context.Background(), nil))
}

func countUserActions(ctx context.Context, s *Store) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM user_actions`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
