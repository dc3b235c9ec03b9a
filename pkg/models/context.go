package models

// ContextSnapshot is the consistent view handed to an agent for one
// decision. The ContextHash binds the snapshot: any change in namespace,
// supertick, phase, or goal changes the hash.
type ContextSnapshot struct {
	Namespace   string `json:"namespace"`
	SupertickID int    `json:"supertick_id"`
	ContextHash string `json:"context_hash"`
	Phase       Phase  `json:"phase"`
	HUD         string `json:"hud"`
}
