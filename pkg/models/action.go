package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Intent is the verb of a submitted action.
type Intent string

const (
	IntentMove  Intent = "MOVE"
	IntentPaint Intent = "PAINT"
	IntentSpeak Intent = "SPEAK"
	IntentWait  Intent = "WAIT"
	IntentSkip  Intent = "SKIP"
)

// Action is the tagged sum of every admissible agent action.
type Action interface {
	Intent() Intent
	// Params is the raw parameter string persisted to the journal.
	Params() string
}

// Move steps the actor one tile in a direction (clamped at walls).
type Move struct{ Dir Facing }

// Paint recolors the actor's own current tile.
type Paint struct{ Color string }

// Speak appends a message to the global chat log.
type Speak struct{ Text string }

// Wait does nothing this tick.
type Wait struct{}

// Skip explicitly skips this tick.
type Skip struct{}

func (m Move) Intent() Intent  { return IntentMove }
func (m Move) Params() string  { return string(m.Dir) }
func (p Paint) Intent() Intent { return IntentPaint }
func (p Paint) Params() string { return p.Color }
func (s Speak) Intent() Intent { return IntentSpeak }
func (s Speak) Params() string { return s.Text }
func (Wait) Intent() Intent    { return IntentWait }
func (Wait) Params() string    { return "" }
func (Skip) Intent() Intent    { return IntentSkip }
func (Skip) Params() string    { return "" }

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
var shortHexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{3}$`)

// NormalizeColor canonicalizes a color token to upper-case "#RRGGBB" form.
// The 3-hex shorthand "#RGB" is expanded. Any other token is returned
// unchanged: the grid stores whatever string the painter chose.
func NormalizeColor(c string) string {
	c = strings.TrimSpace(c)
	if shortHexColorRe.MatchString(c) {
		return strings.ToUpper(fmt.Sprintf("#%c%c%c%c%c%c", c[1], c[1], c[2], c[2], c[3], c[3]))
	}
	if hexColorRe.MatchString(c) {
		return strings.ToUpper(c)
	}
	return c
}

// ParseAction parses the wire form of an action: the first
// whitespace-separated token upper-cased is the intent, the remainder the
// parameters. The error messages are surfaced verbatim to agents.
func ParseAction(raw string) (Action, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty action")
	}

	// The intent is the first whitespace-separated token, whatever the
	// whitespace. LLM output arrives with tabs and newlines as often as
	// spaces.
	intent := trimmed
	params := ""
	if i := strings.IndexFunc(trimmed, unicode.IsSpace); i >= 0 {
		intent = trimmed[:i]
		params = strings.TrimSpace(trimmed[i:])
	}
	intent = strings.ToUpper(intent)

	switch Intent(intent) {
	case IntentMove:
		dir := strings.ToUpper(params)
		if !ValidFacing(dir) {
			return nil, fmt.Errorf("MOVE action requires direction (N, S, E, or W). Got: '%s'", raw)
		}
		return Move{Dir: Facing(dir)}, nil
	case IntentPaint:
		if params == "" {
			return nil, fmt.Errorf("PAINT action requires format 'PAINT <color>'. Got: '%s'", raw)
		}
		return Paint{Color: NormalizeColor(params)}, nil
	case IntentSpeak:
		if params == "" {
			return nil, fmt.Errorf("SPEAK action requires a message. Got: '%s'", raw)
		}
		return Speak{Text: params}, nil
	case IntentWait:
		return Wait{}, nil
	case IntentSkip:
		return Skip{}, nil
	default:
		return nil, fmt.Errorf("Invalid intent '%s'. Must be one of: [MOVE PAINT SPEAK WAIT SKIP]", intent)
	}
}
