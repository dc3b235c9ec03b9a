package config

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/monument-sim/monument/pkg/models"
	"github.com/monument-sim/monument/pkg/store"
)

const (
	defaultWorldWidth  = 64
	defaultWorldHeight = 64
	defaultEpoch       = 10

	minWorldDim = 8
	maxWorldDim = 256
)

// Sim is a declarative simulation definition loaded from YAML.
type Sim struct {
	Namespace string      `yaml:"namespace"`
	World     WorldConfig `yaml:"world"`
	Agents    []AgentDef  `yaml:"agents"`
}

// WorldConfig describes the grid and its schedule.
type WorldConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Goal   string `yaml:"goal"`
	Epoch  int    `yaml:"epoch"`
}

// AgentDef is either an individual agent (ID set) or a bulk group
// (Prefix and Count set). The two forms are distinguished per entry.
type AgentDef struct {
	ID     string `yaml:"id"`
	Prefix string `yaml:"prefix"`
	Count  int    `yaml:"count"`

	Position Position `yaml:"position"`
	// Layout places bulk agents: "grid" (default) or "random".
	Layout       string   `yaml:"layout"`
	Facing       string   `yaml:"facing"`
	Scopes       []string `yaml:"scopes"`
	Instructions string   `yaml:"instructions"`
	LLMModel     string   `yaml:"llm_model"`
	Secret       string   `yaml:"secret"`
}

// Position is "center", "random", or an explicit {x, y} pair.
type Position struct {
	Kind string // "center", "random", "fixed", or "" (unset)
	X    int
	Y    int
}

// UnmarshalYAML accepts both the scalar and the mapping form.
func (p *Position) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		if s != "center" && s != "random" {
			return fmt.Errorf("invalid position %q: use 'center', 'random', or {x: int, y: int}", s)
		}
		p.Kind = s
		return nil
	case yaml.MappingNode:
		var xy struct {
			X *int `yaml:"x"`
			Y *int `yaml:"y"`
		}
		if err := value.Decode(&xy); err != nil {
			return err
		}
		if xy.X == nil || xy.Y == nil {
			return fmt.Errorf("position mapping must have both 'x' and 'y' keys")
		}
		p.Kind = "fixed"
		p.X = *xy.X
		p.Y = *xy.Y
		return nil
	default:
		return fmt.Errorf("invalid position node")
	}
}

// LoadSim reads and validates a simulation definition. Defaults are applied
// here so callers see the effective values.
func LoadSim(path string) (*Sim, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading simulation config: %w", err)
	}

	var sim Sim
	if err := yaml.Unmarshal(data, &sim); err != nil {
		return nil, fmt.Errorf("parsing simulation config: %w", err)
	}

	if sim.Namespace == "" {
		return nil, fmt.Errorf("configuration must have a 'namespace' field")
	}
	if err := store.ValidateNamespace(sim.Namespace); err != nil {
		return nil, err
	}

	if sim.World.Width == 0 {
		sim.World.Width = defaultWorldWidth
	}
	if sim.World.Height == 0 {
		sim.World.Height = defaultWorldHeight
	}
	if sim.World.Epoch == 0 {
		sim.World.Epoch = defaultEpoch
	}
	if sim.World.Width < minWorldDim || sim.World.Width > maxWorldDim {
		return nil, fmt.Errorf("world width must be between %d and %d, got %d", minWorldDim, maxWorldDim, sim.World.Width)
	}
	if sim.World.Height < minWorldDim || sim.World.Height > maxWorldDim {
		return nil, fmt.Errorf("world height must be between %d and %d, got %d", minWorldDim, maxWorldDim, sim.World.Height)
	}
	if sim.World.Epoch < 1 {
		return nil, fmt.Errorf("epoch must be a positive integer, got %d", sim.World.Epoch)
	}

	if len(sim.Agents) == 0 {
		return nil, fmt.Errorf("configuration must have at least one agent in the 'agents' list")
	}
	for i, def := range sim.Agents {
		if def.ID == "" && def.Prefix == "" {
			return nil, fmt.Errorf("agents[%d]: definition must have either 'id' (individual) or 'prefix' (bulk)", i)
		}
		if def.ID != "" && def.Prefix != "" {
			return nil, fmt.Errorf("agents[%d]: 'id' and 'prefix' are mutually exclusive", i)
		}
		if def.Prefix != "" && def.Count < 1 {
			return nil, fmt.Errorf("agents[%d]: bulk 'count' must be a positive integer, got %d", i, def.Count)
		}
		if def.Layout != "" && def.Layout != "grid" && def.Layout != "random" {
			return nil, fmt.Errorf("agents[%d]: invalid layout %q, use 'grid' or 'random'", i, def.Layout)
		}
		if def.Facing != "" && !models.ValidFacing(def.Facing) {
			return nil, fmt.Errorf("agents[%d]: invalid facing %q, valid directions: N, S, E, W", i, def.Facing)
		}
		for _, sc := range def.Scopes {
			if !models.ValidScope(sc) {
				return nil, fmt.Errorf("agents[%d]: invalid scope %q", i, sc)
			}
		}
	}

	return &sim, nil
}

// Placements expands the agent definitions into concrete specs with
// collision-free positions. Random placement uses the supplied source so
// tests can pin it.
func (s *Sim) Placements(rng *rand.Rand) ([]store.ActorSpec, error) {
	occupied := make(map[[2]int]bool)
	var specs []store.ActorSpec

	for _, def := range s.Agents {
		if def.ID != "" {
			spec, err := s.placeIndividual(def, occupied, rng)
			if err != nil {
				return nil, err
			}
			specs = append(specs, spec)
			continue
		}
		bulk, err := s.placeBulk(def, occupied, rng)
		if err != nil {
			return nil, err
		}
		specs = append(specs, bulk...)
	}
	return specs, nil
}

func (s *Sim) placeIndividual(def AgentDef, occupied map[[2]int]bool, rng *rand.Rand) (store.ActorSpec, error) {
	var x, y int
	var err error

	switch def.Position.Kind {
	case "center":
		x, y = s.World.Width/2, s.World.Height/2
		if occupied[[2]int{x, y}] {
			x, y, err = nearestFree(x, y, s.World.Width, s.World.Height, occupied)
			if err != nil {
				return store.ActorSpec{}, err
			}
		}
	case "fixed":
		x, y = def.Position.X, def.Position.Y
		if x < 0 || x >= s.World.Width || y < 0 || y >= s.World.Height {
			return store.ActorSpec{}, fmt.Errorf(
				"position (%d, %d) is out of bounds for %dx%d world", x, y, s.World.Width, s.World.Height)
		}
	default: // "random" or unset
		x, y, err = randomFree(s.World.Width, s.World.Height, occupied, rng)
		if err != nil {
			return store.ActorSpec{}, err
		}
	}
	occupied[[2]int{x, y}] = true

	return specFor(def, def.ID, x, y, def.Secret), nil
}

func (s *Sim) placeBulk(def AgentDef, occupied map[[2]int]bool, rng *rand.Rand) ([]store.ActorSpec, error) {
	var positions [][2]int
	var err error

	if def.Layout == "random" {
		for i := 0; i < def.Count; i++ {
			var x, y int
			x, y, err = randomFree(s.World.Width, s.World.Height, occupied, rng)
			if err != nil {
				return nil, err
			}
			occupied[[2]int{x, y}] = true
			positions = append(positions, [2]int{x, y})
		}
	} else {
		positions, err = gridPositions(def.Count, s.World.Width, s.World.Height, occupied)
		if err != nil {
			return nil, err
		}
	}

	specs := make([]store.ActorSpec, 0, def.Count)
	for i, pos := range positions {
		// Bulk agents always get generated secrets.
		specs = append(specs, specFor(def, fmt.Sprintf("%s_%d", def.Prefix, i), pos[0], pos[1], ""))
	}
	return specs, nil
}

func specFor(def AgentDef, id string, x, y int, secret string) store.ActorSpec {
	scopes := make([]models.Scope, 0, len(def.Scopes))
	for _, sc := range def.Scopes {
		scopes = append(scopes, models.Scope(sc))
	}
	return store.ActorSpec{
		ID:                 id,
		X:                  x,
		Y:                  y,
		Facing:             models.Facing(def.Facing),
		Scopes:             scopes,
		CustomInstructions: strings.TrimSpace(def.Instructions),
		LLMModel:           def.LLMModel,
		Secret:             secret,
	}
}

// gridPositions spreads count agents on an even grid, nudging collisions to
// the nearest free tile.
func gridPositions(count, width, height int, occupied map[[2]int]bool) ([][2]int, error) {
	cols := int(math.Ceil(math.Sqrt(float64(count))))
	rows := int(math.Ceil(float64(count) / float64(cols)))

	xSpacing := float64(width) / float64(cols+1)
	ySpacing := float64(height) / float64(rows+1)

	positions := make([][2]int, 0, count)
	for i := 0; i < count; i++ {
		row := i / cols
		col := i % cols

		x := min(max(int(math.Round(float64(col+1)*xSpacing))-1, 0), width-1)
		y := min(max(int(math.Round(float64(row+1)*ySpacing))-1, 0), height-1)

		if occupied[[2]int{x, y}] {
			var err error
			x, y, err = nearestFree(x, y, width, height, occupied)
			if err != nil {
				return nil, err
			}
		}
		occupied[[2]int{x, y}] = true
		positions = append(positions, [2]int{x, y})
	}
	return positions, nil
}

// nearestFree spirals outward from (startX, startY) checking ring perimeters.
func nearestFree(startX, startY, width, height int, occupied map[[2]int]bool) (int, int, error) {
	for radius := 1; radius < max(width, height); radius++ {
		var ring [][2]int
		for dx := -radius; dx <= radius; dx++ {
			for dy := -radius; dy <= radius; dy++ {
				if max(dx, -dx) != radius && max(dy, -dy) != radius {
					continue
				}
				x, y := startX+dx, startY+dy
				if x >= 0 && x < width && y >= 0 && y < height && !occupied[[2]int{x, y}] {
					ring = append(ring, [2]int{x, y})
				}
			}
		}
		if len(ring) > 0 {
			sort.Slice(ring, func(i, j int) bool {
				if ring[i][0] != ring[j][0] {
					return ring[i][0] < ring[j][0]
				}
				return ring[i][1] < ring[j][1]
			})
			return ring[0][0], ring[0][1], nil
		}
	}
	return 0, 0, fmt.Errorf("no free positions available near (%d, %d)", startX, startY)
}

func randomFree(width, height int, occupied map[[2]int]bool, rng *rand.Rand) (int, int, error) {
	for attempt := 0; attempt < width*height; attempt++ {
		x := rng.Intn(width)
		y := rng.Intn(height)
		if !occupied[[2]int{x, y}] {
			return x, y, nil
		}
	}
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			if !occupied[[2]int{x, y}] {
				return x, y, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("no free positions available in the world")
}
