//go:build integration

package conversation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/parley/internal/conversation"
	"github.com/koopa0/parley/internal/log"
	"github.com/koopa0/parley/internal/testutil"
)

func newRepo(t *testing.T) *conversation.PostgresRepository {
	t.Helper()
	tc := testutil.SetupTestDB(t)
	repo, err := conversation.NewPostgresRepository(tc.Pool, log.NewNop())
	require.NoError(t, err)
	return repo
}

func newMessage(sessionID uuid.UUID, sender conversation.Sender, text string) conversation.Message {
	return conversation.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

func TestPostgresRepository_SessionLifecycle(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "alice", "first chat")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sess.ID)
	assert.Equal(t, "first chat", sess.Title)

	got, err := repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "alice", got.OwnerID)

	require.NoError(t, repo.SetSessionTitle(ctx, sess.ID, "renamed"))
	got, err = repo.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)

	require.NoError(t, repo.DeleteSession(ctx, sess.ID))
	_, err = repo.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, conversation.ErrSessionNotFound)
}

func TestPostgresRepository_GetSession_NotFound(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, conversation.ErrSessionNotFound)
}

func TestPostgresRepository_AppendAssignsContiguousSeq(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "alice", "")
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		seq, err := repo.AppendMessage(ctx, newMessage(sess.ID, conversation.SenderUser, "m"))
		require.NoError(t, err)
		assert.Equal(t, i, seq)
	}
}

func TestPostgresRepository_ConcurrentAppendsStayContiguous(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "alice", "")
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AppendMessage(ctx, newMessage(sess.ID, conversation.SenderUser, "concurrent"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := repo.Messages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, writers)
	for i, m := range msgs {
		assert.Equal(t, i, m.Seq)
	}
}

func TestPostgresRepository_AppendToMissingSession(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.AppendMessage(context.Background(), newMessage(uuid.New(), conversation.SenderUser, "orphan"))
	assert.ErrorIs(t, err, conversation.ErrSessionNotFound)
}

func TestPostgresRepository_UpdateMessage(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "alice", "")
	require.NoError(t, err)
	_, err = repo.AppendMessage(ctx, newMessage(sess.ID, conversation.SenderUser, "original"))
	require.NoError(t, err)

	editedAt := time.Now().UTC()
	require.NoError(t, repo.UpdateMessage(ctx, sess.ID, 0, "edited", "", editedAt))

	msgs, err := repo.Messages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "edited", msgs[0].Text)
	assert.Equal(t, conversation.SenderUser, msgs[0].Sender)
	require.NotNil(t, msgs[0].EditedAt)
	assert.WithinDuration(t, editedAt, *msgs[0].EditedAt, time.Second)

	assert.ErrorIs(t, repo.UpdateMessage(ctx, sess.ID, 5, "nope", "", editedAt), conversation.ErrIndexOutOfRange)
}

func TestPostgresRepository_DeleteMessagesFrom(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "alice", "")
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := repo.AppendMessage(ctx, newMessage(sess.ID, conversation.SenderUser, "m"))
		require.NoError(t, err)
	}

	require.NoError(t, repo.DeleteMessagesFrom(ctx, sess.ID, 2))

	count, err := repo.MessageCount(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Next append reuses the freed index.
	seq, err := repo.AppendMessage(ctx, newMessage(sess.ID, conversation.SenderAssistant, "replacement"))
	require.NoError(t, err)
	assert.Equal(t, 2, seq)
}

func TestPostgresRepository_DeleteSessionCascades(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	sess, err := repo.CreateSession(ctx, "alice", "")
	require.NoError(t, err)
	_, err = repo.AppendMessage(ctx, newMessage(sess.ID, conversation.SenderUser, "m"))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteSession(ctx, sess.ID))

	msgs, err := repo.Messages(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPostgresRepository_ListSessions(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	first, err := repo.CreateSession(ctx, "alice", "first")
	require.NoError(t, err)
	_, err = repo.CreateSession(ctx, "alice", "second")
	require.NoError(t, err)
	_, err = repo.CreateSession(ctx, "bob", "other owner")
	require.NoError(t, err)

	// Touch the first session so it sorts to the top.
	_, err = repo.AppendMessage(ctx, newMessage(first.ID, conversation.SenderUser, "bump"))
	require.NoError(t, err)

	sessions, err := repo.ListSessions(ctx, "alice", 10, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, first.ID, sessions[0].ID)

	paged, err := repo.ListSessions(ctx, "alice", 1, 1)
	require.NoError(t, err)
	assert.Len(t, paged, 1)
}
