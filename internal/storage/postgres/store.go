package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fydeScope/internal/model"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for user actions.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the user_actions table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutUserActions upserts actions keyed by their request log position.
func (s *Store) PutUserActions(ctx context.Context, actions []model.UserAction) error {
	if len(actions) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, action := range actions {
		meta := action.Meta()
		payload, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("marshal user action %d: %w", meta.RequestID, err)
		}
		batch.Queue(`
			INSERT INTO user_actions (
				tx_hash, log_index, kind, block_number, block_time, request_id, user_address, payload, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
			ON CONFLICT (tx_hash, log_index)
			DO UPDATE SET
				kind = EXCLUDED.kind,
				block_number = EXCLUDED.block_number,
				block_time = EXCLUDED.block_time,
				request_id = EXCLUDED.request_id,
				user_address = EXCLUDED.user_address,
				payload = EXCLUDED.payload,
				updated_at = now()
		`,
			meta.TxHash,
			int64(meta.LogIndex),
			string(meta.Kind),
			int64(meta.BlockNumber),
			int64(meta.Timestamp),
			int64(meta.RequestID),
			meta.User,
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range actions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
