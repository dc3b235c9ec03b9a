package config

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monument-sim/monument/pkg/models"
)

func writeSim(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSim(t *testing.T) {
	path := writeSim(t, `
namespace: mural
world:
  width: 16
  height: 12
  goal: Paint a mural
  epoch: 20
agents:
  - id: leader
    position: center
    facing: E
    scopes: [MOVE, PAINT, SPEAK, WAIT, SKIP, SUPERVISOR]
    instructions: |
      You coordinate the others.
  - id: corner
    position: {x: 0, y: 0}
  - prefix: worker
    count: 4
    layout: grid
`)

	sim, err := LoadSim(path)
	require.NoError(t, err)
	assert.Equal(t, "mural", sim.Namespace)
	assert.Equal(t, 16, sim.World.Width)
	assert.Equal(t, 12, sim.World.Height)
	assert.Equal(t, "Paint a mural", sim.World.Goal)
	assert.Equal(t, 20, sim.World.Epoch)
	require.Len(t, sim.Agents, 3)

	specs, err := sim.Placements(rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, specs, 6)

	assert.Equal(t, "leader", specs[0].ID)
	assert.Equal(t, 8, specs[0].X)
	assert.Equal(t, 6, specs[0].Y)
	assert.Equal(t, models.Facing("E"), specs[0].Facing)
	assert.Contains(t, specs[0].Scopes, models.ScopeSupervisor)
	assert.Equal(t, "You coordinate the others.", specs[0].CustomInstructions)

	assert.Equal(t, "corner", specs[1].ID)
	assert.Equal(t, [2]int{0, 0}, [2]int{specs[1].X, specs[1].Y})

	seen := make(map[[2]int]bool)
	for i, spec := range specs {
		if i >= 2 {
			assert.Equal(t, []string{"worker_0", "worker_1", "worker_2", "worker_3"}[i-2], spec.ID)
		}
		pos := [2]int{spec.X, spec.Y}
		assert.False(t, seen[pos], "positions must not collide")
		seen[pos] = true
		assert.GreaterOrEqual(t, spec.X, 0)
		assert.Less(t, spec.X, 16)
		assert.GreaterOrEqual(t, spec.Y, 0)
		assert.Less(t, spec.Y, 12)
	}
}

func TestLoadSim_Defaults(t *testing.T) {
	path := writeSim(t, `
namespace: plain
agents:
  - id: solo
`)
	sim, err := LoadSim(path)
	require.NoError(t, err)
	assert.Equal(t, 64, sim.World.Width)
	assert.Equal(t, 64, sim.World.Height)
	assert.Equal(t, 10, sim.World.Epoch)
}

func TestLoadSim_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing namespace", "agents:\n  - id: a\n", "'namespace' field"},
		{"bad namespace", "namespace: 'has space'\nagents:\n  - id: a\n", "namespace"},
		{"no agents", "namespace: ok\n", "at least one agent"},
		{"tiny world", "namespace: ok\nworld: {width: 4}\nagents:\n  - id: a\n", "width must be between"},
		{"bad epoch", "namespace: ok\nworld: {epoch: -1}\nagents:\n  - id: a\n", "epoch must be a positive integer"},
		{"bad facing", "namespace: ok\nagents:\n  - id: a\n    facing: UP\n", "invalid facing"},
		{"bad scope", "namespace: ok\nagents:\n  - id: a\n    scopes: [FLY]\n", "invalid scope"},
		{"bad layout", "namespace: ok\nagents:\n  - prefix: w\n    count: 2\n    layout: spiral\n", "invalid layout"},
		{"bulk without count", "namespace: ok\nagents:\n  - prefix: w\n", "'count' must be a positive integer"},
		{"neither id nor prefix", "namespace: ok\nagents:\n  - facing: N\n", "either 'id'"},
		{"bad position", "namespace: ok\nagents:\n  - id: a\n    position: middle\n", "invalid position"},
		{"incomplete position", "namespace: ok\nagents:\n  - id: a\n    position: {x: 1}\n", "both 'x' and 'y'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSim(writeSim(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSim_OutOfBoundsPosition(t *testing.T) {
	path := writeSim(t, `
namespace: ok
world: {width: 8, height: 8}
agents:
  - id: a
    position: {x: 99, y: 0}
`)
	sim, err := LoadSim(path)
	require.NoError(t, err)

	_, err = sim.Placements(rand.New(rand.NewSource(1)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of bounds")
}

func TestLoadServer(t *testing.T) {
	t.Setenv("MONUMENT_PORT", "9999")
	t.Setenv("MONUMENT_DATA_DIR", "/tmp/monument-test")
	t.Setenv("MONUMENT_SWEEP_INTERVAL", "250ms")

	cfg, err := LoadServer()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "/tmp/monument-test", cfg.DataDir)
	assert.Equal(t, "250ms", cfg.SweepInterval.String())
}

func TestLoadServer_BadPort(t *testing.T) {
	t.Setenv("MONUMENT_PORT", "not-a-port")
	_, err := LoadServer()
	assert.Error(t, err)
}
