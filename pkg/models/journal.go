package models

import "encoding/json"

// JournalStatus is the lifecycle state of a submission.
type JournalStatus string

const (
	StatusPending   JournalStatus = "pending"
	StatusCommitted JournalStatus = "committed"
	StatusRejected  JournalStatus = "rejected"
)

// JournalEntry is one pending or resolved submission, keyed by
// (supertick_id, actor_id).
type JournalEntry struct {
	ID          int64
	SupertickID int
	ActorID     string
	Intent      Intent
	ParamsJSON  string
	Status      JournalStatus
	ResultJSON  string
	LLMInput    string
	LLMOutput   string
	SubmittedAt int64
}

// Params extracts the raw parameter string from the params_json column.
func (e *JournalEntry) Params() string {
	var p struct {
		Params string `json:"params"`
	}
	_ = json.Unmarshal([]byte(e.ParamsJSON), &p)
	return p.Params
}

// MarshalParams encodes a parameter string for the params_json column.
func MarshalParams(params string) string {
	b, _ := json.Marshal(struct {
		Params string `json:"params"`
	}{Params: params})
	return string(b)
}

// AuditEntry is the immutable post-merge copy of a resolved journal entry.
type AuditEntry struct {
	ID          int64
	SupertickID int
	ActorID     string
	Intent      Intent
	ParamsJSON  string
	Status      JournalStatus
	ResultJSON  string
	LLMOutput   string
}

// Params extracts the raw parameter string from the params_json column.
func (e *AuditEntry) Params() string {
	var p struct {
		Params string `json:"params"`
	}
	_ = json.Unmarshal([]byte(e.ParamsJSON), &p)
	return p.Params
}

// Result decodes the resolution of this entry.
func (e *AuditEntry) Result() Result { return UnmarshalResult(e.ResultJSON) }

// ChatMessage is one row of the append-only chat log.
type ChatMessage struct {
	ID          int64
	SupertickID int
	FromID      string
	Message     string
}

// TileChange is one row of the append-only tile history.
type TileChange struct {
	ID          int64
	SupertickID int
	X           int
	Y           int
	ActorID     string
	OldColor    string
	NewColor    string
}

// ActorTrack is one row of the append-only actor position history.
type ActorTrack struct {
	ID          int64
	SupertickID int
	ActorID     string
	X           int
	Y           int
	Facing      Facing
}
