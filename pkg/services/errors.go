// Package services contains the business logic of the tick coordinator:
// submission admission, context building, and the MERGE engine.
package services

import (
	"errors"
	"fmt"

	"github.com/monument-sim/monument/pkg/models"
)

var (
	// ErrNotFound is returned when an entity is not found.
	ErrNotFound = errors.New("entity not found")

	// ErrAuthFailed is returned for missing/wrong secrets and, on the
	// action path, for unknown actors (no existence oracle for writers).
	ErrAuthFailed = errors.New("authentication failed")
)

// ValidationError wraps a request-shape problem: bad namespace pairing,
// unparsable action, out-of-range query parameters.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return e.Detail }

// NewValidationError creates a new validation error.
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Detail: fmt.Sprintf(format, args...)}
}

// SnapshotStaleError means the submission was built against an outdated
// context snapshot. Recoverable: the client re-fetches its context.
type SnapshotStaleError struct {
	Detail string
}

func (e *SnapshotStaleError) Error() string { return e.Detail }

// PhaseClosedError means the world does not accept submissions in its
// current phase. Recoverable once an operator raises the epoch.
type PhaseClosedError struct {
	Phase models.Phase
}

func (e *PhaseClosedError) Error() string {
	return fmt.Sprintf("Cannot submit actions in phase %s", e.Phase)
}

// AlreadySubmittedError means the actor already has a journal row for the
// current tick. Clients treat this as idempotent success.
type AlreadySubmittedError struct {
	ActorID     string
	SupertickID int
}

func (e *AlreadySubmittedError) Error() string {
	return fmt.Sprintf("Agent %s already submitted an action for supertick %d", e.ActorID, e.SupertickID)
}

// ScopeDeniedError means the actor lacks the capability for the intent.
type ScopeDeniedError struct {
	Intent models.Intent
	Scopes []models.Scope
}

func (e *ScopeDeniedError) Error() string {
	return fmt.Sprintf("Action '%s' not allowed. Agent scopes: %v", e.Intent, e.Scopes)
}
