package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence seam for sessions and their message logs.
// Defined here, by the consumer; implemented by PostgresRepository and
// MemoryRepository.
//
// Append-path contract: AppendMessage must assign the next sequence number
// atomically with respect to other appends on the same session (the
// PostgreSQL implementation locks the session row; the in-memory one holds
// a mutex). All other ordering guarantees live in Store, not here.
type Repository interface {
	CreateSession(ctx context.Context, ownerID, title string) (Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (Session, error)
	ListSessions(ctx context.Context, ownerID string, limit, offset int) ([]Session, error)
	SetSessionTitle(ctx context.Context, id uuid.UUID, title string) error
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// AppendMessage persists m at the end of the session's log and returns
	// the assigned sequence number (= previous length).
	AppendMessage(ctx context.Context, m Message) (int, error)

	// UpdateMessage replaces text/image of the message at seq in place and
	// stamps editedAt. Returns ErrIndexOutOfRange when seq does not exist.
	UpdateMessage(ctx context.Context, sessionID uuid.UUID, seq int, text, imageData string, editedAt time.Time) error

	// DeleteMessagesFrom removes all messages with sequence >= seq.
	DeleteMessagesFrom(ctx context.Context, sessionID uuid.UUID, seq int) error

	// Messages returns the full ordered log for a session.
	Messages(ctx context.Context, sessionID uuid.UUID) ([]Message, error)

	// MessageCount returns the current log length.
	MessageCount(ctx context.Context, sessionID uuid.UUID) (int, error)
}
