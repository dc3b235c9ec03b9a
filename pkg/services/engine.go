package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/monument-sim/monument/pkg/models"
	"github.com/monument-sim/monument/pkg/store"
)

// Engine is the tick coordinator: it decides when a tick is complete and
// runs the MERGE that resolves every pending submission into the next
// world state.
type Engine struct{}

// NewEngine creates a new Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// MergeOutcome summarizes one CheckAndMerge call.
type MergeOutcome struct {
	Advanced bool
	FromTick int
	Paused   bool
	// Reason explains why the tick did or did not advance, phrased for the
	// submission response message.
	Reason string
}

// CheckAndMerge runs the completion predicate and, when the tick is
// complete, the full MERGE — both inside a single write transaction, so a
// concurrent caller can never merge the same tick twice. Any failure rolls
// the whole transaction back and leaves the tick open for retry.
func (e *Engine) CheckAndMerge(ctx context.Context, st *store.Store) (*MergeOutcome, error) {
	tracer := otel.Tracer("github.com/monument-sim/monument/pkg/services")
	ctx, span := tracer.Start(ctx, "engine.CheckAndMerge")
	defer span.End()
	span.SetAttributes(attribute.String("namespace", st.Namespace()))

	outcome := &MergeOutcome{}
	err := st.Update(ctx, func(q *store.Queries) error {
		meta, err := q.Meta(ctx)
		if err != nil {
			return err
		}

		complete, reason, err := completionCheck(ctx, q, meta)
		if err != nil {
			return err
		}
		outcome.Reason = reason
		if !complete {
			return nil
		}

		if err := merge(ctx, q, meta); err != nil {
			return err
		}
		outcome.Advanced = true
		outcome.FromTick = meta.SupertickID
		outcome.Paused = meta.SupertickID+1 >= meta.Epoch
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Advanced {
		span.SetAttributes(attribute.Int("from_tick", outcome.FromTick))
		slog.Info("Tick merged",
			"namespace", st.Namespace(),
			"from_tick", outcome.FromTick,
			"to_tick", outcome.FromTick+1,
			"paused", outcome.Paused)
	}
	return outcome, nil
}

// completionCheck is the tick-completion predicate: submissions are only
// merged when every live actor has a pending journal row for the current
// tick, the phase accepts submissions, and the epoch has not been reached.
func completionCheck(ctx context.Context, q *store.Queries, meta *models.Meta) (bool, string, error) {
	if meta.SupertickID >= meta.Epoch {
		return false, fmt.Sprintf("Reached epoch limit (%d ticks). Set new epoch to continue.", meta.Epoch), nil
	}
	if !meta.Phase.AcceptsSubmissions() {
		return false, fmt.Sprintf("Phase %s does not accept submissions", meta.Phase), nil
	}

	total, err := q.LiveActorCount(ctx)
	if err != nil {
		return false, "", err
	}
	if total == 0 {
		return false, "No agents registered yet", nil
	}

	submitted, err := q.DistinctPendingCount(ctx, meta.SupertickID)
	if err != nil {
		return false, "", err
	}
	if submitted < total {
		return false, fmt.Sprintf("Waiting for agents: %d/%d submitted", submitted, total), nil
	}
	return true, fmt.Sprintf("All %d agents submitted", total), nil
}

// moveIntent is one resolved MOVE candidate: destination clamped to the
// grid, facing always set to the requested direction.
type moveIntent struct {
	actorID string
	destX   int
	destY   int
	facing  models.Facing
}

// paintIntent targets the painter's own tile at its pre-move position.
type paintIntent struct {
	actorID string
	x       int
	y       int
	color   string
}

// merge resolves every pending submission of the current tick and advances
// the supertick. Every ordering decision ties on ascending actor id; the
// only insertion-order dependence is the SPEAK chat log.
func merge(ctx context.Context, q *store.Queries, meta *models.Meta) error {
	tick := meta.SupertickID

	pending, err := q.PendingForTick(ctx, tick)
	if err != nil {
		return err
	}

	actors, err := q.LiveActors(ctx)
	if err != nil {
		return err
	}
	byID := make(map[string]*models.Actor, len(actors))
	for i := range actors {
		byID[actors[i].ID] = &actors[i]
	}

	var moves []moveIntent
	var paints []paintIntent
	var speaks []models.JournalEntry

	for _, entry := range pending {
		actor, ok := byID[entry.ActorID]
		if !ok {
			// Actor eliminated between admission and merge.
			if err := q.ResolveJournal(ctx, tick, entry.ActorID, models.StatusRejected,
				models.Invalid(fmt.Sprintf("Actor %s is no longer live", entry.ActorID))); err != nil {
				return err
			}
			continue
		}

		switch entry.Intent {
		case models.IntentMove:
			dir := models.Facing(entry.Params())
			if !models.ValidFacing(string(dir)) {
				// Admission rejects these; defense-in-depth for direct inserts.
				if err := q.ResolveJournal(ctx, tick, entry.ActorID, models.StatusRejected,
					models.Invalid(fmt.Sprintf("Invalid direction %q. Must be N, S, E, or W", entry.Params()))); err != nil {
					return err
				}
				continue
			}
			dx, dy := dir.Step()
			destX := clamp(actor.X+dx, 0, meta.Width-1)
			destY := clamp(actor.Y+dy, 0, meta.Height-1)
			moves = append(moves, moveIntent{actorID: entry.ActorID, destX: destX, destY: destY, facing: dir})

		case models.IntentPaint:
			paints = append(paints, paintIntent{actorID: entry.ActorID, x: actor.X, y: actor.Y, color: entry.Params()})

		case models.IntentSpeak:
			speaks = append(speaks, entry)

		case models.IntentWait, models.IntentSkip:
			if err := q.ResolveJournal(ctx, tick, entry.ActorID, models.StatusCommitted,
				models.Success("Waited")); err != nil {
				return err
			}

		default:
			if err := q.ResolveJournal(ctx, tick, entry.ActorID, models.StatusRejected,
				models.Invalid(fmt.Sprintf("Invalid intent %q", entry.Intent))); err != nil {
				return err
			}
		}
	}

	if err := resolveMoves(ctx, q, tick, moves); err != nil {
		return err
	}
	if err := resolvePaints(ctx, q, tick, paints); err != nil {
		return err
	}
	for _, entry := range speaks {
		if err := q.InsertChat(ctx, tick, entry.ActorID, entry.Params()); err != nil {
			return err
		}
		if err := q.ResolveJournal(ctx, tick, entry.ActorID, models.StatusCommitted,
			models.Success("Message sent")); err != nil {
			return err
		}
	}

	if err := q.CopyResolvedToAudit(ctx, tick); err != nil {
		return err
	}

	next := tick + 1
	if err := q.SetMeta(ctx, "supertick_id", strconv.Itoa(next)); err != nil {
		return err
	}
	phase := models.PhaseCollect
	if next >= meta.Epoch {
		phase = models.PhasePaused
	}
	return q.SetMeta(ctx, "phase", string(phase))
}

// resolveMoves groups candidates by destination; the lexicographically
// smallest actor id wins a contested tile. Losers stay in place but still
// turn to face the requested direction.
func resolveMoves(ctx context.Context, q *store.Queries, tick int, moves []moveIntent) error {
	byDest := make(map[[2]int][]moveIntent)
	for _, m := range moves {
		key := [2]int{m.destX, m.destY}
		byDest[key] = append(byDest[key], m)
	}

	dests := make([][2]int, 0, len(byDest))
	for d := range byDest {
		dests = append(dests, d)
	}
	sort.Slice(dests, func(i, j int) bool {
		if dests[i][0] != dests[j][0] {
			return dests[i][0] < dests[j][0]
		}
		return dests[i][1] < dests[j][1]
	})

	for _, dest := range dests {
		candidates := byDest[dest]
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].actorID < candidates[j].actorID })

		winner := candidates[0]
		reason := fmt.Sprintf("Moved to (%d, %d)", winner.destX, winner.destY)
		if len(candidates) > 1 {
			reason = fmt.Sprintf("Won conflict, moved to (%d, %d)", winner.destX, winner.destY)
		}
		if err := q.UpdateActorPosition(ctx, winner.actorID, winner.destX, winner.destY, winner.facing); err != nil {
			return err
		}
		if err := q.InsertActorHistory(ctx, tick, winner.actorID, winner.destX, winner.destY, winner.facing); err != nil {
			return err
		}
		if err := q.ResolveJournal(ctx, tick, winner.actorID, models.StatusCommitted,
			models.Success(reason)); err != nil {
			return err
		}

		for _, loser := range candidates[1:] {
			if err := q.UpdateActorFacing(ctx, loser.actorID, loser.facing); err != nil {
				return err
			}
			if err := q.ResolveJournal(ctx, tick, loser.actorID, models.StatusRejected,
				models.ConflictLost("move", winner.actorID)); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolvePaints groups painters by tile. A solo painter matching the
// current color is a NO_OP with no history row; a contested tile is always
// painted by the winner, history row included, even when the color is
// unchanged.
func resolvePaints(ctx context.Context, q *store.Queries, tick int, paints []paintIntent) error {
	byTile := make(map[[2]int][]paintIntent)
	for _, p := range paints {
		key := [2]int{p.x, p.y}
		byTile[key] = append(byTile[key], p)
	}

	tiles := make([][2]int, 0, len(byTile))
	for t := range byTile {
		tiles = append(tiles, t)
	}
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i][0] != tiles[j][0] {
			return tiles[i][0] < tiles[j][0]
		}
		return tiles[i][1] < tiles[j][1]
	})

	for _, tile := range tiles {
		painters := byTile[tile]
		sort.Slice(painters, func(i, j int) bool { return painters[i].actorID < painters[j].actorID })

		current, err := q.TileColor(ctx, tile[0], tile[1])
		if err != nil {
			return err
		}

		winner := painters[0]
		contested := len(painters) > 1

		if !contested && winner.color == current {
			if err := q.ResolveJournal(ctx, tick, winner.actorID, models.StatusCommitted,
				models.NoOp(fmt.Sprintf("Tile already %s", winner.color))); err != nil {
				return err
			}
			continue
		}

		if err := q.SetTileColor(ctx, tile[0], tile[1], winner.color); err != nil {
			return err
		}
		if err := q.InsertTileHistory(ctx, tick, tile[0], tile[1], winner.actorID, current, winner.color); err != nil {
			return err
		}
		reason := fmt.Sprintf("Painted (%d, %d) %s", tile[0], tile[1], winner.color)
		if contested {
			reason = fmt.Sprintf("Won conflict, painted (%d, %d) %s", tile[0], tile[1], winner.color)
		}
		if err := q.ResolveJournal(ctx, tick, winner.actorID, models.StatusCommitted,
			models.Success(reason)); err != nil {
			return err
		}

		for _, loser := range painters[1:] {
			if err := q.ResolveJournal(ctx, tick, loser.actorID, models.StatusRejected,
				models.ConflictLost("paint", winner.actorID)); err != nil {
				return err
			}
		}
	}
	return nil
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
