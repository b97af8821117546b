package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinConfigsAreValid(t *testing.T) {
	configs := BuiltinConfigs()
	for _, name := range []string{
		"donut-16", "donut-18", "donut-20",
		"square-donut-16", "square-donut-17", "square-donut-18", "square-donut-20",
		"lava-donut-16", "lava-donut-18", "lava-donut-20",
		"troom-16", "troom-18", "troom-20",
		"orthogonal-donut-16", "lava-corners-17", "fake-lava-lattice",
	} {
		t.Run(name, func(t *testing.T) {
			cfg, ok := configs[name]
			require.True(t, ok)
			assert.NoError(t, ValidateEpisodeConfig(cfg))
		})
	}
	assert.Len(t, BuiltinConfigNames(), len(configs))
}

func TestBuiltinBudgets(t *testing.T) {
	configs := BuiltinConfigs()
	assert.Equal(t, 2560, configs["donut-16"].MaxSteps)
	assert.Equal(t, 4000, configs["troom-20"].MaxSteps)
	assert.Equal(t, 200, configs["lava-corners-17"].MaxSteps)
	assert.Equal(t, 60, configs["fake-lava-lattice"].MaxSteps)
	assert.True(t, configs["donut-16"].SeeThroughWalls)
	assert.False(t, configs["fake-lava-lattice"].SeeThroughWalls)
}

func TestValidateEpisodeConfig(t *testing.T) {
	valid := func() *EpisodeConfig {
		return &EpisodeConfig{
			Name:        "valid",
			Description: "valid config",
			Params:      GenerationParams{Width: 16, Height: 16, Topology: TopologyDonut},
			MaxSteps:    100,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *EpisodeConfig)
		wantErr bool
	}{
		{"valid", func(c *EpisodeConfig) {}, false},
		{"missing name", func(c *EpisodeConfig) { c.Name = "" }, true},
		{"missing description", func(c *EpisodeConfig) { c.Description = "" }, true},
		{"zero budget", func(c *EpisodeConfig) { c.MaxSteps = 0 }, true},
		{"negative penalty", func(c *EpisodeConfig) { c.LavaPenalty = -1 }, true},
		{"unknown reward mode", func(c *EpisodeConfig) { c.RewardMode = "shaped" }, true},
		{"bad order", func(c *EpisodeConfig) { c.Params.Order = "ZZ" }, true},
		{"constant reward", func(c *EpisodeConfig) { c.RewardMode = RewardConstant }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := ValidateEpisodeConfig(c)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Error(t, ValidateEpisodeConfig(nil))
}

func TestConfigReward(t *testing.T) {
	c := &EpisodeConfig{RewardMode: RewardConstant, TerminalReward: 2}
	assert.Equal(t, 2.0, c.Reward()(50, 100))

	c = &EpisodeConfig{}
	assert.InDelta(t, 0.55, c.Reward()(50, 100), 1e-9)
}

const yamlConfig = `name: yaml-donut
description: donut loaded from yaml
params:
  width: 18
  height: 18
  topology: donut
  order: XTPD
  tri_color: green
max_steps: 50
lava_penalty: 2
reward_mode: constant
`

const jsonConfig = `{
  "name": "json-troom",
  "description": "t room loaded from json",
  "params": {"width": 16, "height": 16, "topology": "t_room", "start_pose": {"pos": {"x": 7, "y": 10}, "dir": 3}},
  "max_steps": 30,
  "see_through_walls": true
}`

func TestParseEpisodeConfig(t *testing.T) {
	c, err := ParseEpisodeConfig([]byte(yamlConfig), ".yaml")
	require.NoError(t, err)
	assert.Equal(t, "yaml-donut", c.Name)
	assert.Equal(t, TopologyDonut, c.Params.Topology)
	assert.Equal(t, "XTPD", c.Params.Order)
	assert.Equal(t, "green", c.Params.TriColor)
	assert.Equal(t, 2.0, c.LavaPenalty)
	assert.Equal(t, RewardConstant, c.RewardMode)
	assert.NoError(t, ValidateEpisodeConfig(c))

	c, err = ParseEpisodeConfig([]byte(jsonConfig), ".json")
	require.NoError(t, err)
	require.NotNil(t, c.Params.StartPose)
	assert.Equal(t, Pose{Pos: Position{X: 7, Y: 10}, Dir: Up}, *c.Params.StartPose)
	assert.True(t, c.SeeThroughWalls)

	_, err = ParseEpisodeConfig([]byte("{not json"), ".json")
	assert.Error(t, err)
}

func TestLoadConfigByName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "yaml-donut.yaml"), []byte(yamlConfig), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "json-troom.json"), []byte(jsonConfig), 0o644))

	c, err := LoadConfigByName(dir, "yaml-donut")
	require.NoError(t, err)
	assert.Equal(t, 50, c.MaxSteps)

	c, err = LoadConfigByName(dir, "json-troom.json")
	require.NoError(t, err)
	assert.Equal(t, TopologyTRoom, c.Params.Topology)

	c, err = LoadConfigByName(dir, "donut-18")
	require.NoError(t, err)
	assert.Equal(t, 18, c.Params.Width)

	_, err = LoadConfigByName(dir, "missing")
	assert.Error(t, err)
}

func TestLoadEpisodeConfigInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\ndescription: x\nmax_steps: 10\nparams:\n  width: 3\n  height: 3\n  topology: plain\n"), 0o644))

	_, err := LoadEpisodeConfig(path)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
