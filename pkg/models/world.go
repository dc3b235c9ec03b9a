// Package models contains the domain types shared by the store, services,
// and HTTP layers.
package models

// Phase is the global lifecycle token of a namespace. It governs whether
// submissions are accepted and whether MERGE may run.
type Phase string

const (
	PhaseSetup   Phase = "SETUP"
	PhaseCollect Phase = "COLLECT"
	PhaseMerge   Phase = "MERGE"
	PhasePaused  Phase = "PAUSED"
)

// AcceptsSubmissions reports whether actions may be admitted in this phase.
// SETUP is deliberately included to ease world bring-up and testing.
func (p Phase) AcceptsSubmissions() bool {
	return p == PhaseSetup || p == PhaseCollect
}

// Meta is the per-namespace world metadata.
type Meta struct {
	SupertickID   int
	Phase         Phase
	Goal          string
	Width         int
	Height        int
	Epoch         int
	SchemaVersion int
}

// InBounds reports whether (x, y) lies inside the world grid.
func (m *Meta) InBounds(x, y int) bool {
	return x >= 0 && x < m.Width && y >= 0 && y < m.Height
}

// Facing is a cardinal direction.
type Facing string

const (
	FacingNorth Facing = "N"
	FacingSouth Facing = "S"
	FacingEast  Facing = "E"
	FacingWest  Facing = "W"
)

// ValidFacing reports whether s is one of N, S, E, W.
func ValidFacing(s string) bool {
	switch Facing(s) {
	case FacingNorth, FacingSouth, FacingEast, FacingWest:
		return true
	}
	return false
}

// Step returns the unit offset for the direction.
func (f Facing) Step() (dx, dy int) {
	switch f {
	case FacingNorth:
		return 0, -1
	case FacingSouth:
		return 0, 1
	case FacingEast:
		return 1, 0
	case FacingWest:
		return -1, 0
	}
	return 0, 0
}

// Scope is a capability label granting an actor permission to issue an intent.
type Scope string

const (
	ScopeMove       Scope = "MOVE"
	ScopePaint      Scope = "PAINT"
	ScopeSpeak      Scope = "SPEAK"
	ScopeWait       Scope = "WAIT"
	ScopeSkip       Scope = "SKIP"
	ScopeSupervisor Scope = "SUPERVISOR"
)

// DefaultScopes is the scope set granted when a registration names none.
func DefaultScopes() []Scope {
	return []Scope{ScopeMove, ScopePaint, ScopeSpeak, ScopeWait, ScopeSkip}
}

// ValidScope reports whether s is a known scope.
func ValidScope(s string) bool {
	switch Scope(s) {
	case ScopeMove, ScopePaint, ScopeSpeak, ScopeWait, ScopeSkip, ScopeSupervisor:
		return true
	}
	return false
}

// Actor is a registered agent in a namespace.
type Actor struct {
	ID                 string
	Secret             string
	X                  int
	Y                  int
	Facing             Facing
	Scopes             []Scope
	CustomInstructions string
	LLMModel           string
	EliminatedAt       *int64
}

// Live reports whether the actor has not been soft-deleted.
func (a *Actor) Live() bool { return a.EliminatedAt == nil }

// HasScope reports whether the actor may issue the given intent.
func (a *Actor) HasScope(s Scope) bool {
	for _, have := range a.Scopes {
		if have == s {
			return true
		}
	}
	return false
}

// Tile is the current color of one grid position.
type Tile struct {
	X     int
	Y     int
	Color string
}

// BlankColor is the color every tile starts with.
const BlankColor = "#FFFFFF"
