package api

// ActionSubmission is the body of POST /sim/:namespace/agent/:agent_id/action.
// Namespace, SupertickID, and ContextHash bind the action to the snapshot it
// was decided on.
type ActionSubmission struct {
	Namespace   string `json:"namespace"`
	SupertickID int    `json:"supertick_id"`
	ContextHash string `json:"context_hash"`
	Action      string `json:"action"`
	LLMInput    string `json:"llm_input,omitempty"`
	LLMOutput   string `json:"llm_output,omitempty"`
}
