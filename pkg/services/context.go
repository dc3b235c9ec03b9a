package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/monument-sim/monument/pkg/models"
	"github.com/monument-sim/monument/pkg/store"
)

const (
	// DefaultHistoryLength is used when the context request names no
	// history_length.
	DefaultHistoryLength = 5

	MaxHistoryLength = 20
	MaxChatLength    = 50
)

// ComputeContextHash derives the anti-stale token for a snapshot: a 16-hex
// prefix of SHA-256 over "{namespace}:{supertick}:{phase}:{goal}". Any
// change in those four fields changes the hash.
func ComputeContextHash(namespace string, supertickID int, phase models.Phase, goal string) string {
	payload := fmt.Sprintf("%s:%d:%s:%s", namespace, supertickID, phase, goal)
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("sha256:%x", sum)[:len("sha256:")+16]
}

// ContextService produces consistent per-agent context snapshots.
type ContextService struct {
	registry *store.Registry
}

// NewContextService creates a new ContextService.
func NewContextService(registry *store.Registry) *ContextService {
	return &ContextService{registry: registry}
}

// ContextRequest names the snapshot an agent asks for. HistoryLength and
// ChatLength are nil when the request left them out; an explicit value is
// range-checked, including zero. ChatLength defaults to HistoryLength.
type ContextRequest struct {
	Namespace     string
	AgentID       string
	Secret        string
	HistoryLength *int
	ChatLength    *int
}

// GetContext authenticates the agent and builds its HUD snapshot inside
// one read transaction, so the hash and the HUD text always agree.
func (s *ContextService) GetContext(ctx context.Context, req ContextRequest) (*models.ContextSnapshot, error) {
	histLen := DefaultHistoryLength
	if req.HistoryLength != nil {
		histLen = *req.HistoryLength
	}
	if histLen < 1 || histLen > MaxHistoryLength {
		return nil, NewValidationError("history_length must be between 1 and %d, got %d", MaxHistoryLength, histLen)
	}
	chatLen := histLen
	if req.ChatLength != nil {
		chatLen = *req.ChatLength
	}
	if chatLen < 1 || chatLen > MaxChatLength {
		return nil, NewValidationError("chat_length must be between 1 and %d, got %d", MaxChatLength, chatLen)
	}

	st, err := s.registry.Get(ctx, req.Namespace)
	if err != nil {
		return nil, err
	}

	var snapshot *models.ContextSnapshot
	err = st.View(ctx, func(q *store.Queries) error {
		actor, err := authenticateForContext(ctx, q, req.AgentID, req.Secret)
		if err != nil {
			return err
		}
		meta, err := q.Meta(ctx)
		if err != nil {
			return err
		}
		hud, err := buildHUD(ctx, q, meta, actor, req.Namespace, histLen, chatLen)
		if err != nil {
			return err
		}
		snapshot = &models.ContextSnapshot{
			Namespace:   req.Namespace,
			SupertickID: meta.SupertickID,
			ContextHash: ComputeContextHash(req.Namespace, meta.SupertickID, meta.Phase, meta.Goal),
			Phase:       meta.Phase,
			HUD:         hud,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// authenticateForContext distinguishes unknown agents (404) from wrong
// secrets (401), per the context endpoint contract.
func authenticateForContext(ctx context.Context, q *store.Queries, agentID, secret string) (*models.Actor, error) {
	actor, err := q.LiveActor(ctx, agentID)
	if err != nil {
		if isActorMissing(err) {
			return nil, fmt.Errorf("%w: agent %s", ErrNotFound, agentID)
		}
		return nil, err
	}
	if !secretsEqual(actor.Secret, secret) {
		return nil, fmt.Errorf("%w for agent %s", ErrAuthFailed, agentID)
	}
	return actor, nil
}

// authenticateForAction collapses unknown agents and wrong secrets into
// one answer, per the action endpoint contract.
func authenticateForAction(ctx context.Context, q *store.Queries, agentID, secret string) (*models.Actor, error) {
	actor, err := q.LiveActor(ctx, agentID)
	if err != nil {
		if isActorMissing(err) {
			return nil, fmt.Errorf("%w for agent %s", ErrAuthFailed, agentID)
		}
		return nil, err
	}
	if !secretsEqual(actor.Secret, secret) {
		return nil, fmt.Errorf("%w for agent %s", ErrAuthFailed, agentID)
	}
	return actor, nil
}

func isActorMissing(err error) bool {
	return errors.Is(err, store.ErrActorNotFound)
}

func secretsEqual(stored, provided string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(provided)) == 1
}
