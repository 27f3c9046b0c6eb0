//go:build integration

package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/parley/internal/log"
	"github.com/koopa0/parley/internal/settings"
	"github.com/koopa0/parley/internal/testutil"
)

func newStore(t *testing.T, defaults settings.Snapshot) *settings.PostgresStore {
	t.Helper()
	tc := testutil.SetupTestDB(t)
	store, err := settings.NewPostgresStore(tc.Pool, defaults, log.NewNop())
	require.NoError(t, err)
	return store
}

func TestPostgresStore_SnapshotReturnsDefaultsUntilSaved(t *testing.T) {
	defaults := settings.Snapshot{
		WebSearchEnabled: true,
		Freemium:         settings.Freemium{Enabled: true, MessageLimit: 10},
	}
	store := newStore(t, defaults)
	ctx := context.Background()

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, defaults, snap)

	saved := settings.Snapshot{
		WebSearchEnabled: false,
		Freemium:         settings.Freemium{Enabled: true, MessageLimit: 3},
	}
	require.NoError(t, store.Save(ctx, saved))

	snap, err = store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, snap)
}

func TestPostgresStore_SaveIsLastWriterWins(t *testing.T) {
	store := newStore(t, settings.Snapshot{})
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, settings.Snapshot{WebSearchEnabled: true}))
	require.NoError(t, store.Save(ctx, settings.Snapshot{WebSearchEnabled: false}))

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.WebSearchEnabled)
}

func TestPostgresStore_Entitlements(t *testing.T) {
	store := newStore(t, settings.Snapshot{})
	ctx := context.Background()

	// Unknown users default to free tier.
	ent, err := store.Entitlement(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", ent.UserID)
	assert.False(t, ent.Premium)

	require.NoError(t, store.SetPremium(ctx, "alice", true))
	ent, err = store.Entitlement(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ent.Premium)

	require.NoError(t, store.SetPremium(ctx, "alice", false))
	ent, err = store.Entitlement(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ent.Premium)
}

func TestPostgresStore_RequiresPool(t *testing.T) {
	_, err := settings.NewPostgresStore(nil, settings.Snapshot{}, log.NewNop())
	assert.Error(t, err)
}
