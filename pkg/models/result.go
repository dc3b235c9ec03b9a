package models

import (
	"encoding/json"
	"fmt"
)

// Outcome classifies how a journal entry was resolved at MERGE.
type Outcome string

const (
	OutcomeSuccess      Outcome = "SUCCESS"
	OutcomeConflictLost Outcome = "CONFLICT_LOST"
	OutcomeNoOp         Outcome = "NO_OP"
	OutcomeInvalid      Outcome = "INVALID"
)

// Result is the resolution of one journal entry. Persisted as JSON in
// result_json for forward compatibility.
type Result struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
}

// Success marks a committed action.
func Success(reason string) Result {
	return Result{Outcome: OutcomeSuccess, Reason: reason}
}

// ConflictLost marks an action rejected by deterministic conflict resolution.
func ConflictLost(kind, winner string) Result {
	return Result{Outcome: OutcomeConflictLost, Reason: fmt.Sprintf("Lost %s conflict to %s", kind, winner)}
}

// NoOp marks a committed action that changed nothing.
func NoOp(reason string) Result {
	return Result{Outcome: OutcomeNoOp, Reason: reason}
}

// Invalid marks an action that should have been rejected at admission.
func Invalid(reason string) Result {
	return Result{Outcome: OutcomeInvalid, Reason: reason}
}

// MarshalResult encodes a result for the result_json column.
func MarshalResult(r Result) string {
	b, _ := json.Marshal(r)
	return string(b)
}

// UnmarshalResult decodes a result_json column value. Unknown or empty
// payloads come back with a zero Outcome rather than an error: old rows are
// displayed, never interpreted.
func UnmarshalResult(s string) Result {
	var r Result
	if s == "" {
		return r
	}
	_ = json.Unmarshal([]byte(s), &r)
	return r
}
