package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/monument-sim/monument/pkg/models"
)

func TestSweeper_MergesStrandedTick(t *testing.T) {
	r := newTestRegistry(t)
	st := setupSim(t, r, "alice")

	// A submission journaled without a follow-up merge check, as after a
	// crash between admission and merge.
	journal(t, st, 0, "alice", models.Wait{})
	require.Equal(t, 0, worldMeta(t, st).SupertickID)

	sweeper := NewSweeper(r, NewEngine(), 10*time.Millisecond)
	sweeper.Start(context.Background())
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		return worldMeta(t, st).SupertickID == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSweeper_StartStopIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	sweeper := NewSweeper(r, NewEngine(), time.Hour)

	// Double Start is a no-op and Stop after Stop must not panic or hang.
	sweeper.Start(context.Background())
	sweeper.Start(context.Background())
	sweeper.Stop()
	sweeper.Stop()
}
