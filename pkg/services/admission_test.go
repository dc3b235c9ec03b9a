package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monument-sim/monument/pkg/models"
	"github.com/monument-sim/monument/pkg/store"
)

func newTestRegistry(t *testing.T) *store.Registry {
	t.Helper()
	r := store.NewRegistry(t.TempDir())
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func setupSim(t *testing.T, r *store.Registry, agents ...string) *store.Store {
	t.Helper()
	ctx := context.Background()
	st, err := r.Create(ctx, "arena", 8, 8, "Build a monument", 10)
	require.NoError(t, err)
	for i, id := range agents {
		_, err := st.RegisterActor(ctx, store.ActorSpec{ID: id, X: i, Y: 0, Secret: "secret-" + id})
		require.NoError(t, err)
	}
	return st
}

// validSubmission builds a submission bound to the current snapshot.
func validSubmission(t *testing.T, st *store.Store, agentID, action string) Submission {
	t.Helper()
	meta := worldMeta(t, st)
	return Submission{
		Namespace:     "arena",
		BodyNamespace: "arena",
		AgentID:       agentID,
		Secret:        "secret-" + agentID,
		SupertickID:   meta.SupertickID,
		ContextHash:   ComputeContextHash("arena", meta.SupertickID, meta.Phase, meta.Goal),
		Action:        action,
	}
}

func TestSubmit_AdvancesTickWhenAllSubmitted(t *testing.T) {
	r := newTestRegistry(t)
	st := setupSim(t, r, "alice", "bob")
	svc := NewAdmissionService(r, NewEngine())
	ctx := context.Background()

	result, err := svc.Submit(ctx, validSubmission(t, st, "alice", "MOVE E"))
	require.NoError(t, err)
	assert.Equal(t, "Action 'MOVE' submitted for agent alice at supertick 0. Waiting for agents: 1/2 submitted", result.Message)

	result, err = svc.Submit(ctx, validSubmission(t, st, "bob", "WAIT"))
	require.NoError(t, err)
	assert.Equal(t, "Action 'WAIT' submitted. Tick advanced: 0 → 1. All 2 agents submitted", result.Message)

	assert.Equal(t, 1, worldMeta(t, st).SupertickID)
}

func TestSubmit_NamespaceMismatch(t *testing.T) {
	r := newTestRegistry(t)
	st := setupSim(t, r, "alice")
	svc := NewAdmissionService(r, NewEngine())

	sub := validSubmission(t, st, "alice", "WAIT")
	sub.BodyNamespace = "other"

	_, err := svc.Submit(context.Background(), sub)
	var validErr *ValidationError
	require.ErrorAs(t, err, &validErr)
	assert.Contains(t, validErr.Error(), "Namespace mismatch")
}

func TestSubmit_UnknownNamespace(t *testing.T) {
	r := newTestRegistry(t)
	svc := NewAdmissionService(r, NewEngine())

	_, err := svc.Submit(context.Background(), Submission{Namespace: "nosuch", BodyNamespace: "nosuch"})
	assert.ErrorIs(t, err, store.ErrNamespaceNotFound)
}

func TestSubmit_AuthFailures(t *testing.T) {
	r := newTestRegistry(t)
	st := setupSim(t, r, "alice")
	svc := NewAdmissionService(r, NewEngine())
	ctx := context.Background()

	// Wrong secret and unknown agent are indistinguishable on the action path.
	sub := validSubmission(t, st, "alice", "WAIT")
	sub.Secret = "wrong"
	_, err := svc.Submit(ctx, sub)
	assert.ErrorIs(t, err, ErrAuthFailed)

	sub = validSubmission(t, st, "alice", "WAIT")
	sub.AgentID = "ghost"
	_, err = svc.Submit(ctx, sub)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestSubmit_StaleSupertick(t *testing.T) {
	r := newTestRegistry(t)
	st := setupSim(t, r, "alice")
	svc := NewAdmissionService(r, NewEngine())

	sub := validSubmission(t, st, "alice", "WAIT")
	sub.SupertickID = 7

	_, err := svc.Submit(context.Background(), sub)
	var staleErr *SnapshotStaleError
	require.ErrorAs(t, err, &staleErr)
	assert.Equal(t, "Supertick mismatch. Expected 0, got 7", staleErr.Error())
}

func TestSubmit_StaleContextHash(t *testing.T) {
	r := newTestRegistry(t)
	st := setupSim(t, r, "alice")
	svc := NewAdmissionService(r, NewEngine())

	sub := validSubmission(t, st, "alice", "WAIT")
	sub.ContextHash = "sha256:0000000000000000"

	_, err := svc.Submit(context.Background(), sub)
	var staleErr *SnapshotStaleError
	require.ErrorAs(t, err, &staleErr)
	assert.Contains(t, staleErr.Error(), "Context hash mismatch. Expected ")
	assert.Contains(t, staleErr.Error(), ", got sha256:0000000000000000")
}

func TestSubmit_Duplicate(t *testing.T) {
	r := newTestRegistry(t)
	st := setupSim(t, r, "alice", "bob")
	svc := NewAdmissionService(r, NewEngine())
	ctx := context.Background()

	_, err := svc.Submit(ctx, validSubmission(t, st, "alice", "WAIT"))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, validSubmission(t, st, "alice", "MOVE N"))
	var dupErr *AlreadySubmittedError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, "Agent alice already submitted an action for supertick 0", dupErr.Error())
}

func TestSubmit_ParseError(t *testing.T) {
	r := newTestRegistry(t)
	st := setupSim(t, r, "alice")
	svc := NewAdmissionService(r, NewEngine())

	_, err := svc.Submit(context.Background(), validSubmission(t, st, "alice", "TELEPORT 5 5"))
	var validErr *ValidationError
	require.ErrorAs(t, err, &validErr)
	assert.Equal(t, "Invalid intent 'TELEPORT'. Must be one of: [MOVE PAINT SPEAK WAIT SKIP]", validErr.Error())
}

func TestSubmit_ScopeDenied(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()
	st, err := r.Create(ctx, "arena", 8, 8, "", 10)
	require.NoError(t, err)
	_, err = st.RegisterActor(ctx, store.ActorSpec{
		ID: "watcher", X: 0, Y: 0, Secret: "secret-watcher",
		Scopes: []models.Scope{models.ScopeWait, models.ScopeSpeak},
	})
	require.NoError(t, err)
	svc := NewAdmissionService(r, NewEngine())

	_, err = svc.Submit(ctx, validSubmission(t, st, "watcher", "PAINT #FF0000"))
	var scopeErr *ScopeDeniedError
	require.ErrorAs(t, err, &scopeErr)
	assert.Contains(t, scopeErr.Error(), "Action 'PAINT' not allowed.")
}

func TestSubmit_PhaseClosed(t *testing.T) {
	r := newTestRegistry(t)
	st := setupSim(t, r, "alice")
	svc := NewAdmissionService(r, NewEngine())
	ctx := context.Background()

	err := st.Update(ctx, func(q *store.Queries) error {
		return q.SetMeta(ctx, "phase", string(models.PhasePaused))
	})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, validSubmission(t, st, "alice", "WAIT"))
	var phaseErr *PhaseClosedError
	require.ErrorAs(t, err, &phaseErr)
	assert.Equal(t, "Cannot submit actions in phase PAUSED", phaseErr.Error())
}
