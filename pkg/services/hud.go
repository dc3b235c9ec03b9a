package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/monument-sim/monument/pkg/models"
	"github.com/monument-sim/monument/pkg/store"
)

const hudRule = "============================================================"

// actionDescriptions maps a scope to the HUD line advertising it. Order of
// presentation is fixed by hudActionOrder.
var actionDescriptions = map[models.Scope]string{
	models.ScopeMove:  "  MOVE <direction>     - Move in direction (N, S, E, W)",
	models.ScopePaint: "  PAINT <color>        - Paint your current tile (color: #RRGGBB)",
	models.ScopeSpeak: "  SPEAK <message>      - Send a chat message",
	models.ScopeWait:  "  WAIT                 - Do nothing this tick",
	models.ScopeSkip:  "  SKIP                 - Explicitly skip this tick",
}

var hudActionOrder = []models.Scope{
	models.ScopeMove, models.ScopePaint, models.ScopeSpeak, models.ScopeWait, models.ScopeSkip,
}

// buildHUD assembles the agent-facing context document. The output is
// byte-identical for identical world state: agents and integration tests
// rely on stable formatting.
func buildHUD(ctx context.Context, q *store.Queries, meta *models.Meta, actor *models.Actor, namespace string, histLen, chatLen int) (string, error) {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line(hudRule)
	line("MONUMENT - AGENT CONTEXT")
	line(hudRule)
	line("")
	line("NAMESPACE: %s", namespace)
	line("SUPERTICK: %d", meta.SupertickID)
	line("AGENT: %s", actor.ID)
	line("POSITION: (%d, %d)", actor.X, actor.Y)
	line("FACING: %s", actor.Facing)
	line("PHASE: %s", meta.Phase)
	line("")

	if actor.CustomInstructions != "" {
		line("YOUR IDENTITY & OBJECTIVES:")
		for _, l := range strings.Split(actor.CustomInstructions, "\n") {
			line("  %s", l)
		}
		line("")
	}

	goal := meta.Goal
	if goal == "" {
		goal = "None"
	}
	line("WORLD GOAL: %s", goal)
	line("")

	if err := writeCompass(ctx, q, &b, meta, actor); err != nil {
		return "", err
	}

	tiles, err := q.Tiles(ctx)
	if err != nil {
		return "", err
	}
	writeTileHistogram(&b, meta, tiles)

	actors, err := q.LiveActors(ctx)
	if err != nil {
		return "", err
	}
	writeRoster(&b, actors, actor)

	if meta.SupertickID > 0 {
		prev := meta.SupertickID - 1
		audits, err := q.AuditForTick(ctx, prev)
		if err != nil {
			return "", err
		}
		line("PREVIOUS SUPERTICK (%d) RESULTS:", prev)
		if len(audits) == 0 {
			line("  No actions recorded")
		}
		for _, e := range audits {
			r := e.Result()
			if e.ActorID == actor.ID {
				line("  (YOU) %s %s -> %s: %s", e.Intent, e.Params(), r.Outcome, r.Reason)
			} else {
				line("  %s: %s %s -> %s: %s", e.ActorID, e.Intent, e.Params(), r.Outcome, r.Reason)
			}
		}
		line("")
	}

	if err := writeActorHistory(ctx, q, &b, actor.ID, histLen, true); err != nil {
		return "", err
	}

	if actor.HasScope(models.ScopeSupervisor) {
		line("SUPERVISOR VIEW (other agents, last %d actions):", histLen)
		others := 0
		for _, other := range actors {
			if other.ID == actor.ID {
				continue
			}
			others++
			line("  %s:", other.ID)
			if err := writeActorHistoryLines(ctx, q, &b, other.ID, histLen, "    "); err != nil {
				return "", err
			}
		}
		if others == 0 {
			line("  No other agents")
		}
		line("")
	}

	chat, err := q.ChatTail(ctx, chatLen)
	if err != nil {
		return "", err
	}
	line("CHAT (last %d messages):", chatLen)
	if len(chat) == 0 {
		line("  No messages")
	}
	for _, m := range chat {
		line("  [tick %d] %s: %s", m.SupertickID, m.FromID, m.Message)
	}
	line("")

	line("AVAILABLE ACTIONS:")
	available := 0
	for _, scope := range hudActionOrder {
		if actor.HasScope(scope) {
			line("%s", actionDescriptions[scope])
			available++
		}
	}
	if available == 0 {
		line("  (No actions available)")
	}
	line("")
	line(hudRule)

	return b.String(), nil
}

// writeCompass shows the adjacent tile in each cardinal direction, or
// "(wall)" when the step leaves the grid.
func writeCompass(ctx context.Context, q *store.Queries, b *strings.Builder, meta *models.Meta, actor *models.Actor) error {
	fmt.Fprintf(b, "COMPASS:\n")
	for _, dir := range []models.Facing{models.FacingNorth, models.FacingSouth, models.FacingEast, models.FacingWest} {
		dx, dy := dir.Step()
		nx, ny := actor.X+dx, actor.Y+dy
		if !meta.InBounds(nx, ny) {
			fmt.Fprintf(b, "  %s: (wall)\n", dir)
			continue
		}
		color, err := q.TileColor(ctx, nx, ny)
		if err != nil {
			return err
		}
		fmt.Fprintf(b, "  %s: (%d, %d) %s\n", dir, nx, ny, color)
	}
	b.WriteString("\n")
	return nil
}

// writeTileHistogram groups tiles by color: colors covering at most three
// tiles enumerate their positions, the rest show a count.
func writeTileHistogram(b *strings.Builder, meta *models.Meta, tiles []models.Tile) {
	byColor := make(map[string][]models.Tile)
	for _, t := range tiles {
		byColor[t.Color] = append(byColor[t.Color], t)
	}
	colors := make([]string, 0, len(byColor))
	for c := range byColor {
		colors = append(colors, c)
	}
	sort.Strings(colors)

	fmt.Fprintf(b, "WORLD TILES:\n")
	fmt.Fprintf(b, "  World size: %dx%d\n", meta.Width, meta.Height)
	fmt.Fprintf(b, "  Total tiles: %d\n", len(tiles))
	fmt.Fprintf(b, "  Colors present:\n")
	for _, c := range colors {
		positions := byColor[c]
		if len(positions) <= 3 {
			parts := make([]string, len(positions))
			for i, t := range positions {
				parts[i] = fmt.Sprintf("(%d,%d)", t.X, t.Y)
			}
			fmt.Fprintf(b, "    %s: %s\n", c, strings.Join(parts, ", "))
		} else {
			fmt.Fprintf(b, "    %s: %d tiles\n", c, len(positions))
		}
	}
	b.WriteString("\n")
}

// writeRoster lists live actors with Manhattan distance from the viewer.
func writeRoster(b *strings.Builder, actors []models.Actor, viewer *models.Actor) {
	fmt.Fprintf(b, "ACTORS:\n")
	if len(actors) == 0 {
		fmt.Fprintf(b, "  No other actors\n")
	}
	for _, a := range actors {
		if a.ID == viewer.ID {
			fmt.Fprintf(b, "  %s (YOU) at (%d, %d) facing %s\n", a.ID, a.X, a.Y, a.Facing)
			continue
		}
		distance := abs(a.X-viewer.X) + abs(a.Y-viewer.Y)
		fmt.Fprintf(b, "  %s at (%d, %d) facing %s [distance: %d]\n", a.ID, a.X, a.Y, a.Facing, distance)
	}
	b.WriteString("\n")
}

func writeActorHistory(ctx context.Context, q *store.Queries, b *strings.Builder, actorID string, histLen int, withHeader bool) error {
	if withHeader {
		fmt.Fprintf(b, "YOUR LAST %d ACTIONS:\n", histLen)
	}
	if err := writeActorHistoryLines(ctx, q, b, actorID, histLen, "  "); err != nil {
		return err
	}
	b.WriteString("\n")
	return nil
}

// writeActorHistoryLines renders an actor's audit tail newest-first, with
// the raw LLM output attached when recorded.
func writeActorHistoryLines(ctx context.Context, q *store.Queries, b *strings.Builder, actorID string, histLen int, indent string) error {
	entries, err := q.AuditTailForActor(ctx, actorID, histLen)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(b, "%sNo actions yet\n", indent)
		return nil
	}
	for _, e := range entries {
		r := e.Result()
		fmt.Fprintf(b, "%s[tick %d] %s %s -> %s: %s\n", indent, e.SupertickID, e.Intent, e.Params(), r.Outcome, r.Reason)
		if e.LLMOutput != "" {
			fmt.Fprintf(b, "%s  llm_output: %s\n", indent, strings.ReplaceAll(e.LLMOutput, "\n", " "))
		}
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
