package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/monument-sim/monument/pkg/models"
)

// Queries is the typed query surface of one transaction. A Queries value
// is only valid for the duration of the View/Update callback it was
// handed to.
type Queries struct {
	tx *sql.Tx
}

// seedWorld writes the initial meta rows and fills the grid with blank
// tiles. Runs once, inside Create's transaction.
func (q *Queries) seedWorld(ctx context.Context, width, height int, goal string, epoch int) error {
	meta := [][2]string{
		{"supertick_id", "0"},
		{"phase", string(models.PhaseSetup)},
		{"goal", goal},
		{"width", strconv.Itoa(width)},
		{"height", strconv.Itoa(height)},
		{"epoch", strconv.Itoa(epoch)},
		{"last_adjudication_json", "null"},
		{"schema_version", strconv.Itoa(ExpectedSchemaVersion)},
	}
	for _, kv := range meta {
		if _, err := q.tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", kv[0], kv[1]); err != nil {
			return fmt.Errorf("seed meta %s: %w", kv[0], err)
		}
	}

	stmt, err := q.tx.PrepareContext(ctx, "INSERT INTO tiles (x, y, color) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare tile seed: %w", err)
	}
	defer stmt.Close()
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			if _, err := stmt.ExecContext(ctx, x, y, models.BlankColor); err != nil {
				return fmt.Errorf("seed tile (%d,%d): %w", x, y, err)
			}
		}
	}
	return nil
}

// Meta reads the full world metadata.
func (q *Queries) Meta(ctx context.Context) (*models.Meta, error) {
	rows, err := q.tx.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	m := &models.Meta{
		Phase: models.Phase(kv["phase"]),
		Goal:  kv["goal"],
	}
	m.SupertickID, _ = strconv.Atoi(kv["supertick_id"])
	m.Width, _ = strconv.Atoi(kv["width"])
	m.Height, _ = strconv.Atoi(kv["height"])
	m.Epoch, _ = strconv.Atoi(kv["epoch"])
	m.SchemaVersion, _ = strconv.Atoi(kv["schema_version"])
	return m, nil
}

// SetMeta overwrites one meta key.
func (q *Queries) SetMeta(ctx context.Context, key, value string) error {
	if _, err := q.tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value); err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

const actorColumns = "id, secret, x, y, facing, scopes, custom_instructions, llm_model, eliminated_at"

func scanActor(scan func(dest ...any) error) (*models.Actor, error) {
	var a models.Actor
	var scopesJSON string
	var eliminated sql.NullInt64
	if err := scan(&a.ID, &a.Secret, &a.X, &a.Y, &a.Facing, &scopesJSON,
		&a.CustomInstructions, &a.LLMModel, &eliminated); err != nil {
		return nil, err
	}
	if eliminated.Valid {
		v := eliminated.Int64
		a.EliminatedAt = &v
	}
	if err := json.Unmarshal([]byte(scopesJSON), &a.Scopes); err != nil {
		return nil, fmt.Errorf("decode scopes for %s: %w", a.ID, err)
	}
	return &a, nil
}

// LiveActor fetches one non-eliminated actor.
func (q *Queries) LiveActor(ctx context.Context, id string) (*models.Actor, error) {
	row := q.tx.QueryRowContext(ctx,
		"SELECT "+actorColumns+" FROM actors WHERE id = ? AND eliminated_at IS NULL", id)
	a, err := scanActor(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrActorNotFound, id)
		}
		return nil, fmt.Errorf("read actor %s: %w", id, err)
	}
	return a, nil
}

// LiveActors lists non-eliminated actors ordered by id.
func (q *Queries) LiveActors(ctx context.Context) ([]models.Actor, error) {
	rows, err := q.tx.QueryContext(ctx,
		"SELECT "+actorColumns+" FROM actors WHERE eliminated_at IS NULL ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list actors: %w", err)
	}
	defer rows.Close()

	var actors []models.Actor
	for rows.Next() {
		a, err := scanActor(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan actor: %w", err)
		}
		actors = append(actors, *a)
	}
	return actors, rows.Err()
}

// LiveActorCount counts non-eliminated actors.
func (q *Queries) LiveActorCount(ctx context.Context) (int, error) {
	var n int
	err := q.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM actors WHERE eliminated_at IS NULL").Scan(&n)
	return n, err
}

// InsertActor adds a registered actor row.
func (q *Queries) InsertActor(ctx context.Context, a *models.Actor) error {
	scopesJSON, err := json.Marshal(a.Scopes)
	if err != nil {
		return fmt.Errorf("encode scopes: %w", err)
	}
	if _, err := q.tx.ExecContext(ctx, `
		INSERT INTO actors (id, secret, x, y, facing, scopes, custom_instructions, llm_model, eliminated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		a.ID, a.Secret, a.X, a.Y, string(a.Facing), string(scopesJSON), a.CustomInstructions, a.LLMModel); err != nil {
		return fmt.Errorf("insert actor %s: %w", a.ID, err)
	}
	return nil
}

// UpdateActorPosition commits a move.
func (q *Queries) UpdateActorPosition(ctx context.Context, id string, x, y int, facing models.Facing) error {
	if _, err := q.tx.ExecContext(ctx,
		"UPDATE actors SET x = ?, y = ?, facing = ? WHERE id = ?", x, y, string(facing), id); err != nil {
		return fmt.Errorf("move actor %s: %w", id, err)
	}
	return nil
}

// UpdateActorFacing turns an actor in place (move-conflict losers).
func (q *Queries) UpdateActorFacing(ctx context.Context, id string, facing models.Facing) error {
	if _, err := q.tx.ExecContext(ctx,
		"UPDATE actors SET facing = ? WHERE id = ?", string(facing), id); err != nil {
		return fmt.Errorf("turn actor %s: %w", id, err)
	}
	return nil
}

// UpdateActorScopes replaces an actor's scope set.
func (q *Queries) UpdateActorScopes(ctx context.Context, id string, scopes []models.Scope) error {
	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return fmt.Errorf("encode scopes: %w", err)
	}
	return q.execActorUpdate(ctx, "UPDATE actors SET scopes = ? WHERE id = ?", string(scopesJSON), id)
}

// UpdateActorInstructions replaces an actor's custom instructions.
func (q *Queries) UpdateActorInstructions(ctx context.Context, id, instructions string) error {
	return q.execActorUpdate(ctx, "UPDATE actors SET custom_instructions = ? WHERE id = ?", instructions, id)
}

// UpdateActorModel replaces an actor's LLM model hint.
func (q *Queries) UpdateActorModel(ctx context.Context, id, model string) error {
	return q.execActorUpdate(ctx, "UPDATE actors SET llm_model = ? WHERE id = ?", model, id)
}

// UpdateActorSecret rotates an actor's bearer secret.
func (q *Queries) UpdateActorSecret(ctx context.Context, id, secret string) error {
	return q.execActorUpdate(ctx, "UPDATE actors SET secret = ? WHERE id = ?", secret, id)
}

// EliminateActor soft-deletes an actor.
func (q *Queries) EliminateActor(ctx context.Context, id string) error {
	return q.execActorUpdate(ctx, "UPDATE actors SET eliminated_at = ? WHERE id = ? AND eliminated_at IS NULL",
		time.Now().Unix(), id)
}

func (q *Queries) execActorUpdate(ctx context.Context, query string, args ...any) error {
	res, err := q.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update actor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrActorNotFound
	}
	return nil
}

// InsertActorHistory appends a position row (spawn or committed move).
func (q *Queries) InsertActorHistory(ctx context.Context, tick int, actorID string, x, y int, facing models.Facing) error {
	if _, err := q.tx.ExecContext(ctx, `
		INSERT INTO actor_history (supertick_id, actor_id, x, y, facing, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tick, actorID, x, y, string(facing), time.Now().Unix()); err != nil {
		return fmt.Errorf("insert actor history for %s: %w", actorID, err)
	}
	return nil
}

// ActorTracksThrough lists actor_history rows with supertick_id <= tick in
// replay order.
func (q *Queries) ActorTracksThrough(ctx context.Context, tick int) ([]models.ActorTrack, error) {
	rows, err := q.tx.QueryContext(ctx, `
		SELECT id, supertick_id, actor_id, x, y, facing FROM actor_history
		WHERE supertick_id <= ? ORDER BY supertick_id ASC, id ASC`, tick)
	if err != nil {
		return nil, fmt.Errorf("read actor history: %w", err)
	}
	defer rows.Close()

	var tracks []models.ActorTrack
	for rows.Next() {
		var t models.ActorTrack
		if err := rows.Scan(&t.ID, &t.SupertickID, &t.ActorID, &t.X, &t.Y, &t.Facing); err != nil {
			return nil, fmt.Errorf("scan actor history: %w", err)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// TileColor reads the current color of one tile.
func (q *Queries) TileColor(ctx context.Context, x, y int) (string, error) {
	var color string
	err := q.tx.QueryRowContext(ctx,
		"SELECT color FROM tiles WHERE x = ? AND y = ?", x, y).Scan(&color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.BlankColor, nil
		}
		return "", fmt.Errorf("read tile (%d,%d): %w", x, y, err)
	}
	return color, nil
}

// SetTileColor overwrites the current color of one tile.
func (q *Queries) SetTileColor(ctx context.Context, x, y int, color string) error {
	if _, err := q.tx.ExecContext(ctx,
		"UPDATE tiles SET color = ? WHERE x = ? AND y = ?", color, x, y); err != nil {
		return fmt.Errorf("paint tile (%d,%d): %w", x, y, err)
	}
	return nil
}

// Tiles lists every tile in row-major order.
func (q *Queries) Tiles(ctx context.Context) ([]models.Tile, error) {
	rows, err := q.tx.QueryContext(ctx, "SELECT x, y, color FROM tiles ORDER BY y, x")
	if err != nil {
		return nil, fmt.Errorf("list tiles: %w", err)
	}
	defer rows.Close()

	var tiles []models.Tile
	for rows.Next() {
		var t models.Tile
		if err := rows.Scan(&t.X, &t.Y, &t.Color); err != nil {
			return nil, fmt.Errorf("scan tile: %w", err)
		}
		tiles = append(tiles, t)
	}
	return tiles, rows.Err()
}

// InsertTileHistory appends one tile change row.
func (q *Queries) InsertTileHistory(ctx context.Context, tick, x, y int, actorID, oldColor, newColor string) error {
	if _, err := q.tx.ExecContext(ctx, `
		INSERT INTO tile_history (supertick_id, x, y, actor_id, old_color, new_color, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tick, x, y, actorID, oldColor, newColor, time.Now().Unix()); err != nil {
		return fmt.Errorf("insert tile history (%d,%d): %w", x, y, err)
	}
	return nil
}

// TileChangesThrough lists tile_history rows with supertick_id <= tick in
// replay order.
func (q *Queries) TileChangesThrough(ctx context.Context, tick int) ([]models.TileChange, error) {
	rows, err := q.tx.QueryContext(ctx, `
		SELECT id, supertick_id, x, y, actor_id, old_color, new_color FROM tile_history
		WHERE supertick_id <= ? ORDER BY supertick_id ASC, id ASC`, tick)
	if err != nil {
		return nil, fmt.Errorf("read tile history: %w", err)
	}
	defer rows.Close()

	var changes []models.TileChange
	for rows.Next() {
		var c models.TileChange
		if err := rows.Scan(&c.ID, &c.SupertickID, &c.X, &c.Y, &c.ActorID, &c.OldColor, &c.NewColor); err != nil {
			return nil, fmt.Errorf("scan tile history: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// InsertJournal appends one pending submission. The UNIQUE constraint on
// (supertick_id, actor_id) backstops the admission duplicate check.
func (q *Queries) InsertJournal(ctx context.Context, e *models.JournalEntry) error {
	if _, err := q.tx.ExecContext(ctx, `
		INSERT INTO journal (supertick_id, actor_id, intent, params_json, status, result_json, llm_input, llm_output, submitted_at)
		VALUES (?, ?, ?, ?, ?, NULL, ?, ?, ?)`,
		e.SupertickID, e.ActorID, string(e.Intent), e.ParamsJSON, string(e.Status),
		e.LLMInput, e.LLMOutput, e.SubmittedAt); err != nil {
		return fmt.Errorf("insert journal (%d, %s): %w", e.SupertickID, e.ActorID, err)
	}
	return nil
}

// HasJournal reports whether (tick, actor) already has a journal row.
func (q *Queries) HasJournal(ctx context.Context, tick int, actorID string) (bool, error) {
	var one int
	err := q.tx.QueryRowContext(ctx,
		"SELECT 1 FROM journal WHERE supertick_id = ? AND actor_id = ?", tick, actorID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check journal (%d, %s): %w", tick, actorID, err)
	}
	return true, nil
}

// PendingForTick lists pending journal rows in insertion order.
func (q *Queries) PendingForTick(ctx context.Context, tick int) ([]models.JournalEntry, error) {
	rows, err := q.tx.QueryContext(ctx, `
		SELECT id, supertick_id, actor_id, intent, params_json, status,
		       COALESCE(result_json, ''), COALESCE(llm_input, ''), COALESCE(llm_output, ''), submitted_at
		FROM journal WHERE supertick_id = ? AND status = 'pending' ORDER BY id ASC`, tick)
	if err != nil {
		return nil, fmt.Errorf("read pending journal: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		if err := rows.Scan(&e.ID, &e.SupertickID, &e.ActorID, &e.Intent, &e.ParamsJSON,
			&e.Status, &e.ResultJSON, &e.LLMInput, &e.LLMOutput, &e.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan journal: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DistinctPendingCount counts distinct actors with a pending row for tick.
func (q *Queries) DistinctPendingCount(ctx context.Context, tick int) (int, error) {
	var n int
	err := q.tx.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT actor_id) FROM journal WHERE supertick_id = ? AND status = 'pending'",
		tick).Scan(&n)
	return n, err
}

// ResolveJournal transitions one pending row to committed or rejected.
func (q *Queries) ResolveJournal(ctx context.Context, tick int, actorID string, status models.JournalStatus, result models.Result) error {
	res, err := q.tx.ExecContext(ctx,
		"UPDATE journal SET status = ?, result_json = ? WHERE supertick_id = ? AND actor_id = ? AND status = 'pending'",
		string(status), models.MarshalResult(result), tick, actorID)
	if err != nil {
		return fmt.Errorf("resolve journal (%d, %s): %w", tick, actorID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("resolve journal (%d, %s): expected one pending row, updated %d", tick, actorID, n)
	}
	return nil
}

// CopyResolvedToAudit snapshots every resolved journal row of a tick into
// the immutable audit table.
func (q *Queries) CopyResolvedToAudit(ctx context.Context, tick int) error {
	if _, err := q.tx.ExecContext(ctx, `
		INSERT INTO audit (supertick_id, actor_id, intent, params_json, status, result_json, llm_input, llm_output, created_at)
		SELECT supertick_id, actor_id, intent, params_json, status, result_json, llm_input, llm_output, ?
		FROM journal WHERE supertick_id = ? AND status != 'pending' ORDER BY id ASC`,
		time.Now().Unix(), tick); err != nil {
		return fmt.Errorf("copy journal to audit: %w", err)
	}
	return nil
}

const auditColumns = "id, supertick_id, actor_id, intent, params_json, status, COALESCE(result_json, ''), COALESCE(llm_output, '')"

func scanAudits(rows *sql.Rows) ([]models.AuditEntry, error) {
	defer rows.Close()
	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.SupertickID, &e.ActorID, &e.Intent, &e.ParamsJSON, &e.Status, &e.ResultJSON, &e.LLMOutput); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AuditForTick lists audit rows of one tick in commit order.
func (q *Queries) AuditForTick(ctx context.Context, tick int) ([]models.AuditEntry, error) {
	rows, err := q.tx.QueryContext(ctx,
		"SELECT "+auditColumns+" FROM audit WHERE supertick_id = ? ORDER BY id ASC", tick)
	if err != nil {
		return nil, fmt.Errorf("read audit for tick %d: %w", tick, err)
	}
	return scanAudits(rows)
}

// AuditTailForActor lists an actor's most recent audit rows, newest first.
func (q *Queries) AuditTailForActor(ctx context.Context, actorID string, n int) ([]models.AuditEntry, error) {
	rows, err := q.tx.QueryContext(ctx,
		"SELECT "+auditColumns+" FROM audit WHERE actor_id = ? ORDER BY supertick_id DESC, id DESC LIMIT ?",
		actorID, n)
	if err != nil {
		return nil, fmt.Errorf("read audit for actor %s: %w", actorID, err)
	}
	return scanAudits(rows)
}

// InsertChat appends one chat row.
func (q *Queries) InsertChat(ctx context.Context, tick int, fromID, message string) error {
	if _, err := q.tx.ExecContext(ctx,
		"INSERT INTO chat (supertick_id, from_id, message, created_at) VALUES (?, ?, ?, ?)",
		tick, fromID, message, time.Now().Unix()); err != nil {
		return fmt.Errorf("insert chat from %s: %w", fromID, err)
	}
	return nil
}

// ChatTail returns the last n chat messages in oldest-first order.
func (q *Queries) ChatTail(ctx context.Context, n int) ([]models.ChatMessage, error) {
	rows, err := q.tx.QueryContext(ctx, `
		SELECT id, supertick_id, from_id, message FROM (
			SELECT id, supertick_id, from_id, message FROM chat ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("read chat tail: %w", err)
	}
	defer rows.Close()

	var msgs []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SupertickID, &m.FromID, &m.Message); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
