package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/monument-sim/monument/pkg/models"
)

// ActorSpec describes a registration request. Secret is optional; one is
// generated when absent.
type ActorSpec struct {
	ID                 string
	X                  int
	Y                  int
	Facing             models.Facing
	Scopes             []models.Scope
	CustomInstructions string
	LLMModel           string
	Secret             string
}

// RegisterActor inserts an actor and its spawn row in actor_history at the
// current supertick. Returns the (possibly generated) secret.
func (s *Store) RegisterActor(ctx context.Context, spec ActorSpec) (string, error) {
	if spec.ID == "" {
		return "", fmt.Errorf("actor id is required")
	}
	if spec.Facing == "" {
		spec.Facing = models.FacingNorth
	}
	if !models.ValidFacing(string(spec.Facing)) {
		return "", fmt.Errorf("invalid facing %q for actor %s", spec.Facing, spec.ID)
	}
	if len(spec.Scopes) == 0 {
		spec.Scopes = models.DefaultScopes()
	}
	for _, sc := range spec.Scopes {
		if !models.ValidScope(string(sc)) {
			return "", fmt.Errorf("invalid scope %q for actor %s", sc, spec.ID)
		}
	}

	secret := spec.Secret
	if secret == "" {
		var err error
		if secret, err = GenerateSecret(); err != nil {
			return "", err
		}
	}

	err := s.Update(ctx, func(q *Queries) error {
		meta, err := q.Meta(ctx)
		if err != nil {
			return err
		}
		if !meta.InBounds(spec.X, spec.Y) {
			return fmt.Errorf("spawn position (%d,%d) outside %dx%d world",
				spec.X, spec.Y, meta.Width, meta.Height)
		}
		actor := &models.Actor{
			ID:                 spec.ID,
			Secret:             secret,
			X:                  spec.X,
			Y:                  spec.Y,
			Facing:             spec.Facing,
			Scopes:             spec.Scopes,
			CustomInstructions: spec.CustomInstructions,
			LLMModel:           spec.LLMModel,
		}
		if err := q.InsertActor(ctx, actor); err != nil {
			return err
		}
		return q.InsertActorHistory(ctx, meta.SupertickID, spec.ID, spec.X, spec.Y, spec.Facing)
	})
	if err != nil {
		return "", err
	}
	return secret, nil
}

// SetEpoch raises (or lowers) the pause tick. When the world is PAUSED and
// the new epoch is above the current supertick, the phase returns to
// COLLECT so agents may resume.
func (s *Store) SetEpoch(ctx context.Context, epoch int) error {
	if epoch < 1 {
		return fmt.Errorf("epoch must be a positive integer, got %d", epoch)
	}
	return s.Update(ctx, func(q *Queries) error {
		meta, err := q.Meta(ctx)
		if err != nil {
			return err
		}
		if err := q.SetMeta(ctx, "epoch", strconv.Itoa(epoch)); err != nil {
			return err
		}
		if meta.Phase == models.PhasePaused && epoch > meta.SupertickID {
			return q.SetMeta(ctx, "phase", string(models.PhaseCollect))
		}
		return nil
	})
}

// TilesAtTick reconstructs the tile map at a past tick by replaying
// tile_history over the blank grid.
func (s *Store) TilesAtTick(ctx context.Context, tick int) (map[[2]int]string, error) {
	var tiles map[[2]int]string
	err := s.View(ctx, func(q *Queries) error {
		meta, err := q.Meta(ctx)
		if err != nil {
			return err
		}
		tiles = make(map[[2]int]string, meta.Width*meta.Height)
		for x := 0; x < meta.Width; x++ {
			for y := 0; y < meta.Height; y++ {
				tiles[[2]int{x, y}] = models.BlankColor
			}
		}
		changes, err := q.TileChangesThrough(ctx, tick)
		if err != nil {
			return err
		}
		for _, c := range changes {
			tiles[[2]int{c.X, c.Y}] = c.NewColor
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tiles, nil
}

// ActorPositionsAtTick reconstructs every actor's position at a past tick
// from actor_history.
func (s *Store) ActorPositionsAtTick(ctx context.Context, tick int) (map[string]models.ActorTrack, error) {
	positions := make(map[string]models.ActorTrack)
	err := s.View(ctx, func(q *Queries) error {
		tracks, err := q.ActorTracksThrough(ctx, tick)
		if err != nil {
			return err
		}
		for _, t := range tracks {
			positions[t.ActorID] = t
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return positions, nil
}
