package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// RewardMode selects the terminal payoff policy.
type RewardMode string

const (
	RewardDiscounted RewardMode = "discounted"
	RewardConstant   RewardMode = "constant"
)

// Messages are the human readable notes attached to state snapshots.
type Messages struct {
	Welcome   string `json:"welcome,omitempty" yaml:"welcome,omitempty"`
	Goal      string `json:"goal,omitempty" yaml:"goal,omitempty"`
	Lava      string `json:"lava,omitempty" yaml:"lava,omitempty"`
	Bump      string `json:"bump,omitempty" yaml:"bump,omitempty"`
	Truncated string `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// EpisodeConfig is a named, reusable episode definition
type EpisodeConfig struct {
	Name            string           `json:"name" yaml:"name"`
	Description     string           `json:"description" yaml:"description"`
	Params          GenerationParams `json:"params" yaml:"params"`
	MaxSteps        int              `json:"max_steps" yaml:"max_steps"`
	LavaPenalty     float64          `json:"lava_penalty" yaml:"lava_penalty"`
	RewardMode      RewardMode       `json:"reward_mode,omitempty" yaml:"reward_mode,omitempty"`
	TerminalReward  float64          `json:"terminal_reward,omitempty" yaml:"terminal_reward,omitempty"`
	SeeThroughWalls bool             `json:"see_through_walls" yaml:"see_through_walls"`
	Messages        Messages         `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// Reward returns the terminal payoff function described by the config.
func (c *EpisodeConfig) Reward() RewardFunc {
	scale := c.TerminalReward
	if scale == 0 {
		scale = 1
	}
	if c.RewardMode == RewardConstant {
		return ConstantReward(scale)
	}
	return DiscountedReward(scale)
}

// WithDefaults returns a copy with unset messages and params filled in.
func (c EpisodeConfig) WithDefaults() EpisodeConfig {
	c.Params = c.Params.WithDefaults()
	if c.RewardMode == "" {
		c.RewardMode = RewardDiscounted
	}
	if c.Messages.Welcome == "" {
		c.Messages.Welcome = "Find the fake lava. Avoid the real lava."
	}
	if c.Messages.Goal == "" {
		c.Messages.Goal = "Reached the goal!"
	}
	if c.Messages.Lava == "" {
		c.Messages.Lava = "Stepped into lava! Episode over."
	}
	if c.Messages.Bump == "" {
		c.Messages.Bump = "Bumped into a wall."
	}
	if c.Messages.Truncated == "" {
		c.Messages.Truncated = "Out of steps."
	}
	return c
}

// ValidateEpisodeConfig validates a config and checks that its params can be built
func ValidateEpisodeConfig(config *EpisodeConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}
	if config.MaxSteps < 1 {
		return fmt.Errorf("config validation: max_steps must be positive, got %d", config.MaxSteps)
	}
	if config.LavaPenalty < 0 {
		return fmt.Errorf("config validation: lava_penalty is a magnitude and must not be negative, got %v", config.LavaPenalty)
	}
	switch config.RewardMode {
	case "", RewardDiscounted, RewardConstant:
	default:
		return fmt.Errorf("config validation: unknown reward_mode %q", config.RewardMode)
	}
	if err := config.Params.WithDefaults().Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// ParseEpisodeConfig decodes a config from JSON or YAML depending on the
// file extension.
func ParseEpisodeConfig(data []byte, ext string) (*EpisodeConfig, error) {
	var config EpisodeConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	}
	return &config, nil
}

// LoadEpisodeConfig loads and validates a config file
func LoadEpisodeConfig(filename string) (*EpisodeConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config, err := ParseEpisodeConfig(data, filepath.Ext(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", filename, err)
	}
	if err := ValidateEpisodeConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultMaxSteps is the step budget the room variants use for a size.
func DefaultMaxSteps(size int) int {
	return 10 * size * size
}

func roomConfig(name, description string, topology TopologyKind, size int) *EpisodeConfig {
	return &EpisodeConfig{
		Name:        name,
		Description: description,
		Params: GenerationParams{
			Width:    size,
			Height:   size,
			Topology: topology,
		},
		MaxSteps:        DefaultMaxSteps(size),
		SeeThroughWalls: true,
	}
}

// BuiltinConfigs returns the named size variants shipped with the engine.
func BuiltinConfigs() map[string]*EpisodeConfig {
	out := make(map[string]*EpisodeConfig)
	add := func(c *EpisodeConfig) { out[c.Name] = c }

	for _, size := range []int{16, 18, 20} {
		add(roomConfig(fmt.Sprintf("donut-%d", size),
			fmt.Sprintf("%dx%d room with an 8x8 wall block in the middle", size, size), TopologyDonut, size))
		add(roomConfig(fmt.Sprintf("lava-donut-%d", size),
			fmt.Sprintf("%dx%d room with two 8-cell bars drawn over the shapes", size, size), TopologyLavaDonut, size))
		add(roomConfig(fmt.Sprintf("troom-%d", size),
			fmt.Sprintf("%dx%d room split by a T-shaped partition", size, size), TopologyTRoom, size))
	}
	for _, size := range []int{16, 17, 18, 20} {
		add(roomConfig(fmt.Sprintf("square-donut-%d", size),
			fmt.Sprintf("%dx%d room with a 7x7 wall block in the middle", size, size), TopologySquareDonut, size))
	}

	orthogonal := roomConfig("orthogonal-donut-16", "16x16 donut on a magenta floor with black walls", TopologyDonut, 16)
	orthogonal.Params.TriColor = "cyan"
	orthogonal.Params.PlusColor = "white"
	orthogonal.Params.XColor = "lime"
	orthogonal.Params.WallColor = "black"
	orthogonal.Params.Background = "magenta"
	add(orthogonal)

	add(&EpisodeConfig{
		Name:        "lava-corners-17",
		Description: "Open 19x15 room with fake lava in one corner and real lava in the opposite one",
		Params: GenerationParams{
			Width:    19,
			Height:   15,
			Topology: TopologyPlain,
			Hazards:  true,
		},
		MaxSteps:        200,
		SeeThroughWalls: true,
	})

	lattice := LatticeParams{RoomSize: 5, Cols: 4, Rows: 3}
	w, h := lattice.Dimensions()
	add(&EpisodeConfig{
		Name:        "fake-lava-lattice",
		Description: "4x3 lattice of marked rooms joined by gates, fake lava in one inner room",
		Params: GenerationParams{
			Width:    w,
			Height:   h,
			Topology: TopologyLattice,
			Lattice:  &lattice,
		},
		MaxSteps: lattice.Cols * lattice.Rows * lattice.RoomSize,
	})

	return out
}

// BuiltinConfigNames returns the sorted names of the built-in configs.
func BuiltinConfigNames() []string {
	names := make([]string, 0)
	for name := range BuiltinConfigs() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadConfigByName resolves a config from dir (json, yaml or yml) and
// falls back to the built-ins.
func LoadConfigByName(dir, name string) (*EpisodeConfig, error) {
	base := strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(name, ".json"), ".yaml"), ".yml")
	if dir != "" {
		for _, ext := range []string{".json", ".yaml", ".yml"} {
			path := filepath.Join(dir, base+ext)
			if _, err := os.Stat(path); err == nil {
				return LoadEpisodeConfig(path)
			}
		}
	}
	if c, ok := BuiltinConfigs()[base]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("config '%s' not found", base)
}
