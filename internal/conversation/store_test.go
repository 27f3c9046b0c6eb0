package conversation

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/parley/internal/log"
)

func newTestStore() *Store {
	return NewStore(NewMemoryRepository(), log.NewNop())
}

func TestAppend_LazySessionCreation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	sessionID, seq, err := store.Append(ctx, uuid.Nil, "alice", Message{
		Sender: SenderUser,
		Text:   "hello there",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sessionID)
	assert.Equal(t, 0, seq)

	sess, err := store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.OwnerID)
	assert.Equal(t, "hello there", sess.Title)
}

func TestAppend_TitleDerivation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	t.Run("long titles are truncated with ellipsis", func(t *testing.T) {
		long := strings.Repeat("a", 80)
		sessionID, _, err := store.Append(ctx, uuid.Nil, "alice", Message{Sender: SenderUser, Text: long})
		require.NoError(t, err)

		sess, err := store.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(sess.Title, "…"))
		assert.Less(t, len([]rune(sess.Title)), 40)
	})

	t.Run("assistant turn does not title the session", func(t *testing.T) {
		sessionID, _, err := store.Append(ctx, uuid.Nil, "alice", Message{Sender: SenderAssistant, Text: "welcome!"})
		require.NoError(t, err)

		sess, err := store.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Empty(t, sess.Title)
	})

	t.Run("first user turn titles an untitled session", func(t *testing.T) {
		sess, err := store.CreateSession(ctx, "alice")
		require.NoError(t, err)

		_, _, err = store.Append(ctx, sess.ID, "alice", Message{Sender: SenderAssistant, Text: "welcome!"})
		require.NoError(t, err)
		_, _, err = store.Append(ctx, sess.ID, "alice", Message{Sender: SenderUser, Text: "question about ducks"})
		require.NoError(t, err)

		got, err := store.GetSession(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, "question about ducks", got.Title)
	})
}

func TestAppend_RejectsEmptyMessage(t *testing.T) {
	store := newTestStore()

	_, _, err := store.Append(context.Background(), uuid.Nil, "alice", Message{Sender: SenderUser})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestAppend_SequenceIsContiguous(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	sessionID, _, err := store.Append(ctx, uuid.Nil, "alice", Message{Sender: SenderUser, Text: "one"})
	require.NoError(t, err)

	for i, text := range []string{"two", "three", "four"} {
		_, seq, err := store.Append(ctx, sessionID, "alice", Message{Sender: SenderAssistant, Text: text})
		require.NoError(t, err)
		assert.Equal(t, i+1, seq)
	}

	msgs, err := store.Read(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, m := range msgs {
		assert.Equal(t, i, m.Seq)
	}
}

func TestEditAt_PreservesSenderAndTimestamp(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	sessionID, _, err := store.Append(ctx, uuid.Nil, "alice", Message{Sender: SenderUser, Text: "original"})
	require.NoError(t, err)

	before, err := store.Read(ctx, sessionID)
	require.NoError(t, err)

	require.NoError(t, store.EditAt(ctx, sessionID, 0, "edited", ""))

	after, err := store.Read(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, after, 1)

	assert.Equal(t, "edited", after[0].Text)
	assert.Equal(t, SenderUser, after[0].Sender)
	assert.Equal(t, before[0].CreatedAt, after[0].CreatedAt)
	assert.NotNil(t, after[0].EditedAt)
	assert.Nil(t, before[0].EditedAt)
}

func TestEditAt_IndexOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	sessionID, _, err := store.Append(ctx, uuid.Nil, "alice", Message{Sender: SenderUser, Text: "only"})
	require.NoError(t, err)

	assert.ErrorIs(t, store.EditAt(ctx, sessionID, 1, "nope", ""), ErrIndexOutOfRange)
	assert.ErrorIs(t, store.EditAt(ctx, sessionID, -1, "nope", ""), ErrIndexOutOfRange)
}

func TestTruncateFrom(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	sessionID, _, err := store.Append(ctx, uuid.Nil, "alice", Message{Sender: SenderUser, Text: "m0"})
	require.NoError(t, err)
	for _, text := range []string{"m1", "m2", "m3"} {
		_, _, err := store.Append(ctx, sessionID, "alice", Message{Sender: SenderAssistant, Text: text})
		require.NoError(t, err)
	}

	t.Run("removes suffix", func(t *testing.T) {
		require.NoError(t, store.TruncateFrom(ctx, sessionID, 2))

		msgs, err := store.Read(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "m0", msgs[0].Text)
		assert.Equal(t, "m1", msgs[1].Text)
	})

	t.Run("no-op past end", func(t *testing.T) {
		require.NoError(t, store.TruncateFrom(ctx, sessionID, 99))

		n, err := store.Len(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("append after truncate reuses the freed index", func(t *testing.T) {
		_, seq, err := store.Append(ctx, sessionID, "alice", Message{Sender: SenderAssistant, Text: "replacement"})
		require.NoError(t, err)
		assert.Equal(t, 2, seq)

		msgs, err := store.Read(ctx, sessionID)
		require.NoError(t, err)
		for i, m := range msgs {
			assert.Equal(t, i, m.Seq)
		}
	})
}

func TestDeleteSession_Cascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	sessionID, _, err := store.Append(ctx, uuid.Nil, "alice", Message{Sender: SenderUser, Text: "hello"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteSession(ctx, sessionID))

	_, err = store.Read(ctx, sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessions_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	first, _, err := store.Append(ctx, uuid.Nil, "alice", Message{Sender: SenderUser, Text: "first"})
	require.NoError(t, err)
	second, _, err := store.Append(ctx, uuid.Nil, "alice", Message{Sender: SenderUser, Text: "second"})
	require.NoError(t, err)

	// Touch the first session again so it becomes most recent.
	_, _, err = store.Append(ctx, first, "alice", Message{Sender: SenderAssistant, Text: "reply"})
	require.NoError(t, err)

	sessions, err := store.ListSessions(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first, sessions[0].ID)
	assert.Equal(t, second, sessions[1].ID)

	// Other owners see nothing.
	sessions, err = store.ListSessions(ctx, "bob", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short text unchanged", "hello world", "hello world"},
		{"exactly at the limit", strings.Repeat("x", 30), strings.Repeat("x", 30)},
		{"long text truncated", strings.Repeat("x", 50), strings.Repeat("x", 30) + "…"},
		{"multibyte safe", strings.Repeat("貓", 50), strings.Repeat("貓", 30) + "…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTitle(tt.in))
		})
	}
}
