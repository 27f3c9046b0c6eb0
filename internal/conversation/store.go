package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/parley/internal/log"
)

// Store applies the conversation-log semantics over a Repository.
//
// Invariant: after any sequence of Append/EditAt/TruncateFrom calls, a
// session's log is a contiguous zero-based sequence consistent with the
// order operations were applied.
type Store struct {
	repo   Repository
	logger log.Logger
}

// NewStore creates a Store backed by repo.
func NewStore(repo Repository, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{repo: repo, logger: logger}
}

// Append adds m to the end of the session's log and returns the session id
// and the assigned index.
//
// Safe to call with sessionID == uuid.Nil: a session is created lazily for
// ownerID, titled from the message when it is a user turn. An existing
// untitled session likewise receives a derived title on its first user
// message.
func (s *Store) Append(ctx context.Context, sessionID uuid.UUID, ownerID string, m Message) (uuid.UUID, int, error) {
	if m.Text == "" && m.ImageData == "" {
		return uuid.Nil, 0, ErrEmptyMessage
	}

	if sessionID == uuid.Nil {
		title := ""
		if m.Sender == SenderUser {
			title = DeriveTitle(m.Text)
		}
		sess, err := s.repo.CreateSession(ctx, ownerID, title)
		if err != nil {
			return uuid.Nil, 0, fmt.Errorf("creating session: %w", err)
		}
		sessionID = sess.ID
		s.logger.Debug("created session lazily", "session_id", sessionID, "title", title)
	} else if m.Sender == SenderUser {
		sess, err := s.repo.GetSession(ctx, sessionID)
		if err != nil {
			return uuid.Nil, 0, err
		}
		if sess.Title == "" {
			if err := s.repo.SetSessionTitle(ctx, sessionID, DeriveTitle(m.Text)); err != nil {
				return uuid.Nil, 0, fmt.Errorf("setting session title: %w", err)
			}
		}
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.SessionID = sessionID

	seq, err := s.repo.AppendMessage(ctx, m)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("appending message: %w", err)
	}

	s.logger.Debug("appended message", "session_id", sessionID, "seq", seq, "sender", m.Sender)
	return sessionID, seq, nil
}

// EditAt replaces text/image of the message at index in place. The sender
// and original timestamp are preserved; EditedAt is stamped. Fails with
// ErrIndexOutOfRange when index is not within the current message count.
func (s *Store) EditAt(ctx context.Context, sessionID uuid.UUID, index int, newText, newImage string) error {
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if err := s.repo.UpdateMessage(ctx, sessionID, index, newText, newImage, time.Now().UTC()); err != nil {
		return err
	}
	s.logger.Debug("edited message", "session_id", sessionID, "seq", index)
	return nil
}

// TruncateFrom removes all messages at position >= index, keeping
// [0, index). A no-op when index is at or past the end of the log.
func (s *Store) TruncateFrom(ctx context.Context, sessionID uuid.UUID, index int) error {
	if index < 0 {
		index = 0
	}
	if err := s.repo.DeleteMessagesFrom(ctx, sessionID, index); err != nil {
		return fmt.Errorf("truncating from %d: %w", index, err)
	}
	s.logger.Debug("truncated messages", "session_id", sessionID, "from", index)
	return nil
}

// Read returns the canonical ordered message list: a full snapshot, not a
// delta.
func (s *Store) Read(ctx context.Context, sessionID uuid.UUID) ([]Message, error) {
	msgs, err := s.repo.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return msgs, nil
}

// Len returns the current message count of a session.
func (s *Store) Len(ctx context.Context, sessionID uuid.UUID) (int, error) {
	return s.repo.MessageCount(ctx, sessionID)
}

// CreateSession explicitly creates an empty session ("new session" button).
// The title stays empty until the first user turn derives one.
func (s *Store) CreateSession(ctx context.Context, ownerID string) (Session, error) {
	sess, err := s.repo.CreateSession(ctx, ownerID, "")
	if err != nil {
		return Session{}, fmt.Errorf("creating session: %w", err)
	}
	return sess, nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (Session, error) {
	return s.repo.GetSession(ctx, id)
}

// ListSessions lists a user's sessions, most recently updated first.
func (s *Store) ListSessions(ctx context.Context, ownerID string, limit, offset int) ([]Session, error) {
	return s.repo.ListSessions(ctx, ownerID, limit, offset)
}

// DeleteSession deletes a session and all its messages.
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	s.logger.Debug("deleted session", "session_id", id)
	return nil
}
