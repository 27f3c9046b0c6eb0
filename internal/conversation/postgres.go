package conversation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/parley/internal/log"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// messageCols is the standard SELECT column list for scanMessages.
const messageCols = `id, session_id, seq, sender, body, image_data, degraded, edited_at, created_at`

// PostgresRepository is the production Repository backed by PostgreSQL.
//
// Safe for concurrent use by multiple goroutines. Appends run in a
// transaction that locks the session row, so sequence numbers stay
// contiguous under concurrent appends to the same session.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewPostgresRepository creates a PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool, logger log.Logger) (*PostgresRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &PostgresRepository{pool: pool, logger: logger}, nil
}

// CreateSession implements Repository.
func (r *PostgresRepository) CreateSession(ctx context.Context, ownerID, title string) (Session, error) {
	var sess Session
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, owner_id, title)
		 VALUES ($1, $2, $3)
		 RETURNING id, owner_id, title, created_at, updated_at`,
		uuid.New(), ownerID, title,
	).Scan(&sess.ID, &sess.OwnerID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// GetSession implements Repository.
func (r *PostgresRepository) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	var sess Session
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, created_at, updated_at FROM sessions WHERE id = $1`,
		id,
	).Scan(&sess.ID, &sess.OwnerID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("getting session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions implements Repository, ordered by updated_at descending.
func (r *PostgresRepository) ListSessions(ctx context.Context, ownerID string, limit, offset int) ([]Session, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, title, created_at, updated_at
		 FROM sessions WHERE owner_id = $1
		 ORDER BY updated_at DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.OwnerID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// SetSessionTitle implements Repository.
func (r *PostgresRepository) SetSessionTitle(ctx context.Context, id uuid.UUID, title string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET title = $2, updated_at = now() WHERE id = $1`,
		id, title,
	)
	if err != nil {
		return fmt.Errorf("setting session title: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// DeleteSession implements Repository. Messages cascade via the schema's
// foreign key.
func (r *PostgresRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// AppendMessage implements Repository.
//
// The session row is locked (SELECT ... FOR UPDATE) so only one transaction
// assigns sequence numbers for a session at a time, keeping the log
// contiguous under concurrent appends.
func (r *PostgresRepository) AppendMessage(ctx context.Context, m Message) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.Debug("append transaction rollback", "error", err)
		}
	}()

	var lockedID uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, m.SessionID).Scan(&lockedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", ErrSessionNotFound, m.SessionID)
	}
	if err != nil {
		return 0, fmt.Errorf("locking session: %w", err)
	}

	var seq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq) + 1, 0) FROM messages WHERE session_id = $1`,
		m.SessionID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("computing next sequence: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO messages (id, session_id, seq, sender, body, image_data, degraded, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.SessionID, seq, string(m.Sender), m.Text, m.ImageData, m.Degraded, m.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting message: %w", err)
	}

	_, err = tx.Exec(ctx, `UPDATE sessions SET updated_at = now() WHERE id = $1`, m.SessionID)
	if err != nil {
		return 0, fmt.Errorf("touching session: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing append: %w", err)
	}

	return seq, nil
}

// UpdateMessage implements Repository.
func (r *PostgresRepository) UpdateMessage(ctx context.Context, sessionID uuid.UUID, seq int, text, imageData string, editedAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET body = $3, image_data = $4, edited_at = $5
		 WHERE session_id = $1 AND seq = $2`,
		sessionID, seq, text, imageData, editedAt,
	)
	if err != nil {
		return fmt.Errorf("updating message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, seq)
	}
	return nil
}

// DeleteMessagesFrom implements Repository.
func (r *PostgresRepository) DeleteMessagesFrom(ctx context.Context, sessionID uuid.UUID, seq int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM messages WHERE session_id = $1 AND seq >= $2`,
		sessionID, seq,
	)
	if err != nil {
		return fmt.Errorf("deleting messages from seq %d: %w", seq, err)
	}
	return nil
}

// Messages implements Repository, ordered by sequence number ascending.
func (r *PostgresRepository) Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageCols+` FROM messages WHERE session_id = $1 ORDER BY seq ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// MessageCount implements Repository.
func (r *PostgresRepository) MessageCount(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = $1`,
		sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

// scanMessages reads Message rows in messageCols order.
func scanMessages(rows pgx.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var m Message
		var sender string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Seq, &sender, &m.Text, &m.ImageData, &m.Degraded, &m.EditedAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		m.Sender = Sender(sender)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}
