package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/monument-sim/monument/pkg/models"
	"github.com/monument-sim/monument/pkg/store"
)

// AdmissionService validates and journals agent submissions, then asks the
// engine whether the tick can merge.
type AdmissionService struct {
	registry *store.Registry
	engine   *Engine
}

// NewAdmissionService creates a new AdmissionService.
func NewAdmissionService(registry *store.Registry, engine *Engine) *AdmissionService {
	return &AdmissionService{registry: registry, engine: engine}
}

// Submission is one agent action bound to the snapshot it was decided on.
type Submission struct {
	Namespace     string
	BodyNamespace string
	AgentID       string
	Secret        string
	SupertickID   int
	ContextHash   string
	Action        string
	LLMInput      string
	LLMOutput     string
}

// SubmitResult is the accepted-submission response payload.
type SubmitResult struct {
	Message string
}

// Submit runs the admission sequence in one write transaction: authenticate,
// check the snapshot binding (supertick and context hash), check phase and
// duplicate, parse and scope-check the action, journal it as pending. On
// success it triggers a merge check, which may advance the tick in the same
// call.
func (s *AdmissionService) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	if sub.BodyNamespace != sub.Namespace {
		return nil, NewValidationError(
			"Namespace mismatch: URL says '%s', body says '%s'", sub.Namespace, sub.BodyNamespace)
	}

	st, err := s.registry.Get(ctx, sub.Namespace)
	if err != nil {
		return nil, err
	}

	var action models.Action
	err = st.Update(ctx, func(q *store.Queries) error {
		actor, err := authenticateForAction(ctx, q, sub.AgentID, sub.Secret)
		if err != nil {
			return err
		}
		meta, err := q.Meta(ctx)
		if err != nil {
			return err
		}

		if sub.SupertickID != meta.SupertickID {
			return &SnapshotStaleError{Detail: fmt.Sprintf(
				"Supertick mismatch. Expected %d, got %d", meta.SupertickID, sub.SupertickID)}
		}
		expected := ComputeContextHash(sub.Namespace, meta.SupertickID, meta.Phase, meta.Goal)
		if sub.ContextHash != expected {
			return &SnapshotStaleError{Detail: fmt.Sprintf(
				"Context hash mismatch. Expected %s, got %s", expected, sub.ContextHash)}
		}
		if !meta.Phase.AcceptsSubmissions() {
			return &PhaseClosedError{Phase: meta.Phase}
		}

		exists, err := q.HasJournal(ctx, meta.SupertickID, actor.ID)
		if err != nil {
			return err
		}
		if exists {
			return &AlreadySubmittedError{ActorID: actor.ID, SupertickID: meta.SupertickID}
		}

		action, err = models.ParseAction(sub.Action)
		if err != nil {
			return &ValidationError{Detail: err.Error()}
		}
		if !actor.HasScope(models.Scope(action.Intent())) {
			return &ScopeDeniedError{Intent: action.Intent(), Scopes: actor.Scopes}
		}

		return q.InsertJournal(ctx, &models.JournalEntry{
			SupertickID: meta.SupertickID,
			ActorID:     actor.ID,
			Intent:      action.Intent(),
			ParamsJSON:  models.MarshalParams(action.Params()),
			Status:      models.StatusPending,
			LLMInput:    sub.LLMInput,
			LLMOutput:   sub.LLMOutput,
			SubmittedAt: time.Now().Unix(),
		})
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Action submitted",
		"namespace", sub.Namespace,
		"agent_id", sub.AgentID,
		"supertick_id", sub.SupertickID,
		"intent", action.Intent())

	outcome, err := s.engine.CheckAndMerge(ctx, st)
	if err != nil {
		// The submission itself is journaled; report it accepted and let the
		// sweeper retry the merge.
		slog.Error("Merge check failed after submission",
			"namespace", sub.Namespace, "error", err)
		return &SubmitResult{Message: fmt.Sprintf(
			"Action '%s' submitted for agent %s at supertick %d.",
			action.Intent(), sub.AgentID, sub.SupertickID)}, nil
	}

	if outcome.Advanced {
		return &SubmitResult{Message: fmt.Sprintf(
			"Action '%s' submitted. Tick advanced: %d → %d. %s",
			action.Intent(), outcome.FromTick, outcome.FromTick+1, outcome.Reason)}, nil
	}
	return &SubmitResult{Message: fmt.Sprintf(
		"Action '%s' submitted for agent %s at supertick %d. %s",
		action.Intent(), sub.AgentID, sub.SupertickID, outcome.Reason)}, nil
}
