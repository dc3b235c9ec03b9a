package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		intent Intent
		params string
	}{
		{"move north", "MOVE N", IntentMove, "N"},
		{"move lowercase", "move s", IntentMove, "S"},
		{"move with spaces", "  MOVE E  ", IntentMove, "E"},
		{"move with tab", "MOVE\tE", IntentMove, "E"},
		{"speak with newline", "SPEAK\nhello", IntentSpeak, "hello"},
		{"paint with mixed whitespace", "PAINT \t #f00", IntentPaint, "#FF0000"},
		{"paint full hex", "PAINT #ff0000", IntentPaint, "#FF0000"},
		{"paint short hex expands", "PAINT #f00", IntentPaint, "#FF0000"},
		{"paint named color passes through", "PAINT red", IntentPaint, "red"},
		{"speak preserves case and spacing", "SPEAK Hello, World", IntentSpeak, "Hello, World"},
		{"speak lowercase intent", "speak hi there", IntentSpeak, "hi there"},
		{"wait", "WAIT", IntentWait, ""},
		{"wait with trailing junk", "WAIT whatever", IntentWait, ""},
		{"skip", "SKIP", IntentSkip, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := ParseAction(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.intent, action.Intent())
			assert.Equal(t, tt.params, action.Params())
		})
	}
}

func TestParseAction_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "empty action"},
		{"whitespace only", "   ", "empty action"},
		{"unknown intent", "FLY N", "Invalid intent 'FLY'. Must be one of: [MOVE PAINT SPEAK WAIT SKIP]"},
		{"move without direction", "MOVE", "MOVE action requires direction (N, S, E, or W). Got: 'MOVE'"},
		{"move bad direction", "MOVE UP", "MOVE action requires direction (N, S, E, or W). Got: 'MOVE UP'"},
		{"paint without color", "PAINT", "PAINT action requires format 'PAINT <color>'. Got: 'PAINT'"},
		{"speak without message", "SPEAK", "SPEAK action requires a message. Got: 'SPEAK'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAction(tt.raw)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestNormalizeColor(t *testing.T) {
	assert.Equal(t, "#FF0000", NormalizeColor("#ff0000"))
	assert.Equal(t, "#AABBCC", NormalizeColor("#abc"))
	assert.Equal(t, "#00FF00", NormalizeColor("  #00ff00  "))
	assert.Equal(t, "blue", NormalizeColor("blue"))
	assert.Equal(t, "#12345", NormalizeColor("#12345"))
}

func TestFacingStep(t *testing.T) {
	dx, dy := FacingNorth.Step()
	assert.Equal(t, [2]int{0, -1}, [2]int{dx, dy})
	dx, dy = FacingSouth.Step()
	assert.Equal(t, [2]int{0, 1}, [2]int{dx, dy})
	dx, dy = FacingEast.Step()
	assert.Equal(t, [2]int{1, 0}, [2]int{dx, dy})
	dx, dy = FacingWest.Step()
	assert.Equal(t, [2]int{-1, 0}, [2]int{dx, dy})
}

func TestResultRoundTrip(t *testing.T) {
	r := ConflictLost("move", "agent_a")
	assert.Equal(t, OutcomeConflictLost, r.Outcome)
	assert.Equal(t, "Lost move conflict to agent_a", r.Reason)

	decoded := UnmarshalResult(MarshalResult(r))
	assert.Equal(t, r, decoded)
}
