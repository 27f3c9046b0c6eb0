// Package conversation owns the canonical ordered message log for chat
// sessions.
//
// The message list of a session is a contiguous, zero-based, gap-free
// sequence: positions are only ever appended to or truncated from a point
// forward, never reordered. The Store enforces those semantics over a
// Repository, which is the narrow persistence seam (PostgreSQL in
// production, in-memory for tests).
//
// Concurrent edits from multiple devices on the same session are not
// ordered here; the persistence layer is last-writer-wins. That limitation
// is accepted, not resolved.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who produced a message.
type Sender string

const (
	// SenderUser marks a message typed by the user.
	SenderUser Sender = "user"
	// SenderAssistant marks a generated (or error) response.
	SenderAssistant Sender = "assistant"
)

// Message is one turn entry in a session's log.
//
// A message is immutable once written except through Store.EditAt, which
// replaces text/image in place, stamps EditedAt, and preserves Sender and
// CreatedAt.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	SessionID uuid.UUID  `json:"session_id"`
	Seq       int        `json:"seq"`
	Sender    Sender     `json:"sender"`
	Text      string     `json:"text"`
	ImageData string     `json:"image_data,omitempty"` // data URI, optional
	Degraded  bool       `json:"degraded,omitempty"`   // search pre-step failed for this response
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

// Session is one persisted conversation thread.
type Session struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// titleMaxLen caps derived titles at roughly one sidebar line.
const titleMaxLen = 30

// DeriveTitle builds a session title from the first user message: the first
// 30 characters, with an ellipsis when truncated.
func DeriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxLen {
		return text
	}
	return string(runes[:titleMaxLen]) + "…"
}
