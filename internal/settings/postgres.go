package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/parley/internal/log"
)

// PostgresStore persists settings and entitlements in PostgreSQL.
//
// The settings document is a single jsonb row (id fixed to 1); last writer
// wins, which matches the document-store semantics the rest of the system
// assumes.
type PostgresStore struct {
	pool     *pgxpool.Pool
	defaults Snapshot
	logger   log.Logger
}

// NewPostgresStore creates a PostgresStore. defaults are returned by
// Snapshot until an admin saves a document.
func NewPostgresStore(pool *pgxpool.Pool, defaults Snapshot, logger log.Logger) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &PostgresStore{pool: pool, defaults: defaults, logger: logger}, nil
}

// Snapshot implements Store.
func (s *PostgresStore) Snapshot(ctx context.Context) (Snapshot, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT doc FROM app_settings WHERE id = 1`).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return s.defaults, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading settings: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(doc, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decoding settings document: %w", err)
	}
	return snap, nil
}

// Save implements Store.
func (s *PostgresStore) Save(ctx context.Context, snap Snapshot) error {
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding settings document: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO app_settings (id, doc) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`,
		doc,
	)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	s.logger.Debug("saved settings document")
	return nil
}

// Entitlement implements Store.
func (s *PostgresStore) Entitlement(ctx context.Context, userID string) (Entitlement, error) {
	var ent Entitlement
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, premium FROM entitlements WHERE user_id = $1`,
		userID,
	).Scan(&ent.UserID, &ent.Premium)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entitlement{UserID: userID}, nil
	}
	if err != nil {
		return Entitlement{}, fmt.Errorf("reading entitlement for %s: %w", userID, err)
	}
	return ent, nil
}

// SetPremium implements Store.
func (s *PostgresStore) SetPremium(ctx context.Context, userID string, premium bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO entitlements (user_id, premium) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET premium = EXCLUDED.premium`,
		userID, premium,
	)
	if err != nil {
		return fmt.Errorf("setting premium for %s: %w", userID, err)
	}
	return nil
}
