package conversation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local
// development. Safe for concurrent use.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*memSession
}

type memSession struct {
	session  Session
	messages []Message
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[uuid.UUID]*memSession)}
}

// CreateSession implements Repository.
func (r *MemoryRepository) CreateSession(_ context.Context, ownerID, title string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	sess := Session{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.sessions[sess.ID] = &memSession{session: sess}
	return sess, nil
}

// GetSession implements Repository.
func (r *MemoryRepository) GetSession(_ context.Context, id uuid.UUID) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.sessions[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return ms.session, nil
}

// ListSessions implements Repository.
func (r *MemoryRepository) ListSessions(_ context.Context, ownerID string, limit, offset int) ([]Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Session
	for _, ms := range r.sessions {
		if ms.session.OwnerID == ownerID {
			out = append(out, ms.session)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})

	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// SetSessionTitle implements Repository.
func (r *MemoryRepository) SetSessionTitle(_ context.Context, id uuid.UUID, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	ms.session.Title = title
	ms.session.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteSession implements Repository. Deleting a session drops its whole
// message log (cascade).
func (r *MemoryRepository) DeleteSession(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(r.sessions, id)
	return nil
}

// AppendMessage implements Repository.
func (r *MemoryRepository) AppendMessage(_ context.Context, m Message) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.sessions[m.SessionID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSessionNotFound, m.SessionID)
	}
	m.Seq = len(ms.messages)
	ms.messages = append(ms.messages, m)
	ms.session.UpdatedAt = time.Now().UTC()
	return m.Seq, nil
}

// UpdateMessage implements Repository.
func (r *MemoryRepository) UpdateMessage(_ context.Context, sessionID uuid.UUID, seq int, text, imageData string, editedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if seq < 0 || seq >= len(ms.messages) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, seq, len(ms.messages))
	}
	msg := &ms.messages[seq]
	msg.Text = text
	msg.ImageData = imageData
	msg.EditedAt = &editedAt
	ms.session.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteMessagesFrom implements Repository.
func (r *MemoryRepository) DeleteMessagesFrom(_ context.Context, sessionID uuid.UUID, seq int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if seq < 0 {
		seq = 0
	}
	if seq >= len(ms.messages) {
		return nil // no-op past the end
	}
	ms.messages = ms.messages[:seq]
	ms.session.UpdatedAt = time.Now().UTC()
	return nil
}

// Messages implements Repository.
func (r *MemoryRepository) Messages(_ context.Context, sessionID uuid.UUID) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	out := make([]Message, len(ms.messages))
	copy(out, ms.messages)
	return out, nil
}

// MessageCount implements Repository.
func (r *MemoryRepository) MessageCount(_ context.Context, sessionID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ms, ok := r.sessions[sessionID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return len(ms.messages), nil
}
