package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/shapegrid/game/engine"
	"github.com/wricardo/shapegrid/internal/logging"
)

func smallRoom() *engine.EpisodeConfig {
	return &engine.EpisodeConfig{
		Name:        "small",
		Description: "goal right in front of the agent",
		Params: engine.GenerationParams{
			Width:     7,
			Height:    7,
			Topology:  engine.TopologyPlain,
			Order:     "T",
			Goal:      &engine.Position{X: 3, Y: 2},
			StartPose: &engine.Pose{Pos: engine.Position{X: 3, Y: 3}, Dir: engine.Up},
		},
		MaxSteps:       30,
		RewardMode:     engine.RewardConstant,
		TerminalReward: 1,
	}
}

func TestPlayEpisode_Deterministic(t *testing.T) {
	cfg := engine.BuiltinConfigs()["lava-corners-17"]

	a, err := playEpisode(context.Background(), cfg, 7)
	require.NoError(t, err)
	b, err := playEpisode(context.Background(), cfg, 7)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEmpty(t, a.Outcome)
	assert.LessOrEqual(t, a.Steps, cfg.MaxSteps)
}

func TestPlayEpisode_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := playEpisode(ctx, smallRoom(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRollout(t *testing.T) {
	cfg := smallRoom()
	summary, results, err := rollout(context.Background(), cfg, Options{Episodes: 40, Workers: 4, Seed: 100}, logging.NewNop())
	require.NoError(t, err)
	require.Len(t, results, 40)

	for i, r := range results {
		assert.Equal(t, int64(100+i), r.Seed)
		assert.Contains(t, []engine.Outcome{engine.OutcomeGoal, engine.OutcomeTruncated}, r.Outcome)
	}

	assert.Equal(t, 40, summary.Episodes)
	assert.Equal(t, 40, summary.Successes+summary.Lava+summary.Truncated)
	assert.Zero(t, summary.Lava)
	assert.Greater(t, summary.Successes, 0)
	assert.InDelta(t, float64(summary.Successes)/40, summary.SuccessRate, 1e-9)
	assert.InDelta(t, summary.SuccessRate, summary.MeanReward, 1e-9)
}

func TestRollout_SameAcrossWorkerCounts(t *testing.T) {
	cfg := engine.BuiltinConfigs()["lava-corners-17"]

	one, _, err := rollout(context.Background(), cfg, Options{Episodes: 12, Workers: 1, Seed: 3}, logging.NewNop())
	require.NoError(t, err)
	many, _, err := rollout(context.Background(), cfg, Options{Episodes: 12, Workers: 6, Seed: 3}, logging.NewNop())
	require.NoError(t, err)

	assert.Equal(t, one, many)
}

func TestRollout_Errors(t *testing.T) {
	_, _, err := rollout(context.Background(), smallRoom(), Options{Episodes: 0}, logging.NewNop())
	assert.Error(t, err)

	bad := smallRoom()
	bad.Params.Width = 2
	_, _, err = rollout(context.Background(), bad, Options{Episodes: 3, Workers: 2}, logging.NewNop())
	assert.ErrorIs(t, err, engine.ErrInvalidParams)
}

func TestSummarize(t *testing.T) {
	s := summarize("x", []EpisodeResult{
		{Steps: 4, Reward: 1, Outcome: engine.OutcomeGoal},
		{Steps: 2, Reward: -1, Outcome: engine.OutcomeLava},
		{Steps: 6, Reward: 0, Outcome: engine.OutcomeTruncated},
		{Steps: 8, Reward: 0.5, Outcome: engine.OutcomeGoal},
	})

	assert.Equal(t, 2, s.Successes)
	assert.Equal(t, 1, s.Lava)
	assert.Equal(t, 1, s.Truncated)
	assert.InDelta(t, 0.5, s.SuccessRate, 1e-9)
	assert.InDelta(t, 0.125, s.MeanReward, 1e-9)
	assert.InDelta(t, 5, s.MeanSteps, 1e-9)

	empty := summarize("y", nil)
	assert.Zero(t, empty.Episodes)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &Summary{Config: "small", Episodes: 10, Successes: 3, SuccessRate: 0.3, MeanReward: 0.3, MeanSteps: 12}, 0)

	out := buf.String()
	assert.Contains(t, out, "Success rate: 30.0% (3 goal, 0 lava, 0 truncated)")
	assert.Contains(t, out, "Mean steps:   12.0")
	assert.NotContains(t, out, "Elapsed")
}
