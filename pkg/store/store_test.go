package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monument-sim/monument/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Create(context.Background(), t.TempDir(), "testworld", 8, 8, "Paint it red", 10)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestCreateSeedsWorld(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.View(ctx, func(q *Queries) error {
		meta, err := q.Meta(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, meta.SupertickID)
		assert.Equal(t, models.PhaseSetup, meta.Phase)
		assert.Equal(t, "Paint it red", meta.Goal)
		assert.Equal(t, 8, meta.Width)
		assert.Equal(t, 8, meta.Height)
		assert.Equal(t, 10, meta.Epoch)

		tiles, err := q.Tiles(ctx)
		require.NoError(t, err)
		require.Len(t, tiles, 64)
		for _, tile := range tiles {
			assert.Equal(t, models.BlankColor, tile.Color)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestCreateRejectsExisting(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := Create(ctx, dir, "dup", 8, 8, "", 5)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, err = Create(ctx, dir, "dup", 8, 8, "", 5)
	assert.ErrorIs(t, err, ErrNamespaceExists)
}

func TestRemoveNamespace(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	st, err := Create(ctx, dir, "doomed", 8, 8, "", 5)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	// Simulate sidecars left behind by an unclean WAL shutdown.
	dbPath, err := DBPath(dir, "doomed")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("stale"), 0o644))
	require.NoError(t, os.WriteFile(dbPath+"-shm", []byte("stale"), 0o644))

	require.NoError(t, RemoveNamespace(dir, "doomed"))
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), p)
	}

	// Removing an absent namespace is fine; an invalid name is not.
	assert.NoError(t, RemoveNamespace(dir, "doomed"))
	assert.ErrorIs(t, RemoveNamespace(dir, "bad name!"), ErrInvalidNamespace)

	st, err = Create(ctx, dir, "doomed", 8, 8, "", 5)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestOpenUnknownNamespace(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir(), "nosuch")
	assert.ErrorIs(t, err, ErrNamespaceNotFound)
}

func TestValidateNamespace(t *testing.T) {
	assert.NoError(t, ValidateNamespace("world-1"))
	assert.NoError(t, ValidateNamespace("A"))
	assert.ErrorIs(t, ValidateNamespace(""), ErrInvalidNamespace)
	assert.ErrorIs(t, ValidateNamespace("-leading"), ErrInvalidNamespace)
	assert.ErrorIs(t, ValidateNamespace("has space"), ErrInvalidNamespace)
	assert.ErrorIs(t, ValidateNamespace("dots.are.bad"), ErrInvalidNamespace)
}

func TestRegisterActor(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	secret, err := st.RegisterActor(ctx, ActorSpec{ID: "alice", X: 2, Y: 3})
	require.NoError(t, err)
	assert.Len(t, secret, 32, "16 random bytes hex encoded")

	err = st.View(ctx, func(q *Queries) error {
		actor, err := q.LiveActor(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 2, actor.X)
		assert.Equal(t, 3, actor.Y)
		assert.Equal(t, models.FacingNorth, actor.Facing)
		assert.Equal(t, models.DefaultScopes(), actor.Scopes)
		assert.Equal(t, secret, actor.Secret)
		return nil
	})
	require.NoError(t, err)
}

func TestRegisterActorOutOfBounds(t *testing.T) {
	st := newTestStore(t)

	_, err := st.RegisterActor(context.Background(), ActorSpec{ID: "bob", X: 99, Y: 0})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside")
}

func TestRegisterActorPreservesSecret(t *testing.T) {
	st := newTestStore(t)

	secret, err := st.RegisterActor(context.Background(), ActorSpec{ID: "carol", X: 0, Y: 0, Secret: "fixed-secret"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-secret", secret)
}

func TestEliminateActor(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	_, err := st.RegisterActor(ctx, ActorSpec{ID: "doomed", X: 0, Y: 0})
	require.NoError(t, err)

	err = st.Update(ctx, func(q *Queries) error {
		return q.EliminateActor(ctx, "doomed")
	})
	require.NoError(t, err)

	err = st.View(ctx, func(q *Queries) error {
		_, err := q.LiveActor(ctx, "doomed")
		assert.ErrorIs(t, err, ErrActorNotFound)

		n, err := q.LiveActorCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
		return nil
	})
	require.NoError(t, err)

	// A second elimination finds no live row.
	err = st.Update(ctx, func(q *Queries) error {
		return q.EliminateActor(ctx, "doomed")
	})
	assert.ErrorIs(t, err, ErrActorNotFound)
}

func TestSetEpochResumesPausedWorld(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.Update(ctx, func(q *Queries) error {
		if err := q.SetMeta(ctx, "supertick_id", "10"); err != nil {
			return err
		}
		return q.SetMeta(ctx, "phase", string(models.PhasePaused))
	})
	require.NoError(t, err)

	require.NoError(t, st.SetEpoch(ctx, 20))

	err = st.View(ctx, func(q *Queries) error {
		meta, err := q.Meta(ctx)
		require.NoError(t, err)
		assert.Equal(t, 20, meta.Epoch)
		assert.Equal(t, models.PhaseCollect, meta.Phase)
		return nil
	})
	require.NoError(t, err)
}

func TestSetEpochRejectsNonPositive(t *testing.T) {
	st := newTestStore(t)
	assert.Error(t, st.SetEpoch(context.Background(), 0))
}

func TestTilesAtTickReplay(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	err := st.Update(ctx, func(q *Queries) error {
		if err := q.SetTileColor(ctx, 1, 1, "#FF0000"); err != nil {
			return err
		}
		if err := q.InsertTileHistory(ctx, 0, 1, 1, "alice", models.BlankColor, "#FF0000"); err != nil {
			return err
		}
		if err := q.SetTileColor(ctx, 1, 1, "#0000FF"); err != nil {
			return err
		}
		return q.InsertTileHistory(ctx, 3, 1, 1, "alice", "#FF0000", "#0000FF")
	})
	require.NoError(t, err)

	atZero, err := st.TilesAtTick(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "#FF0000", atZero[[2]int{1, 1}])
	assert.Equal(t, models.BlankColor, atZero[[2]int{0, 0}])

	atThree, err := st.TilesAtTick(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "#0000FF", atThree[[2]int{1, 1}])
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	r := NewRegistry(dir)
	t.Cleanup(func() { _ = r.Close() })

	_, err := r.Create(ctx, "alpha", 8, 8, "", 5)
	require.NoError(t, err)
	_, err = r.Create(ctx, "beta", 8, 8, "", 5)
	require.NoError(t, err)

	known, err := r.Known()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, known)

	// Get returns the cached handle for an existing namespace.
	st1, err := r.Get(ctx, "alpha")
	require.NoError(t, err)
	st2, err := r.Get(ctx, "alpha")
	require.NoError(t, err)
	assert.Same(t, st1, st2)

	_, err = r.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNamespaceNotFound)

	_, err = r.Get(ctx, "bad name!")
	assert.ErrorIs(t, err, ErrInvalidNamespace)
}
