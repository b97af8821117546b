package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig() *EpisodeConfig {
	goal := Position{X: 3, Y: 1}
	return &EpisodeConfig{
		Name:        "engine-test",
		Description: "Configuration for engine integration tests",
		Params: GenerationParams{
			Width:     7,
			Height:    7,
			Topology:  TopologyPlain,
			Order:     "T",
			Goal:      &goal,
			StartPose: &Pose{Pos: Position{X: 3, Y: 3}, Dir: Up},
		},
		MaxSteps:   10,
		RewardMode: RewardConstant,
	}
}

func TestNewEngine(t *testing.T) {
	config := createTestConfig()
	e, err := NewEngine(config, 42)
	require.NoError(t, err)

	state := e.GetState()
	assert.Equal(t, "engine-test", state.ConfigName)
	assert.Equal(t, Pose{Pos: Position{X: 3, Y: 3}, Dir: Up}, state.Pose)
	assert.Equal(t, 7, state.Width)
	assert.Len(t, state.Layout, 7)
	assert.Len(t, state.Grid, 7)
	assert.Equal(t, byte('^'), state.Layout[3][3])
	assert.Equal(t, 0, state.Episode)
	assert.Equal(t, int64(42), state.Seed)
	assert.False(t, state.Done())
	assert.NotEmpty(t, state.Message)
	assert.Empty(t, state.StepHistory)
}

func TestNewEngineRejectsInvalidConfig(t *testing.T) {
	config := createTestConfig()
	config.MaxSteps = 0
	_, err := NewEngine(config, 1)
	assert.Error(t, err)

	config = createTestConfig()
	config.Params.Width = 3
	_, err = NewEngine(config, 1)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestEngineReachesGoal(t *testing.T) {
	e, err := NewEngine(createTestConfig(), 1)
	require.NoError(t, err)

	res, err := e.Step(MoveForward)
	require.NoError(t, err)
	assert.False(t, res.Terminated)

	res, err = e.Step(MoveForward)
	require.NoError(t, err)
	assert.True(t, res.Terminated)
	assert.Equal(t, 1.0, res.Reward)
	assert.True(t, e.IsDone())

	state := e.GetState()
	assert.Equal(t, OutcomeGoal, state.Outcome)
	assert.Equal(t, 1.0, state.TotalReward)
	assert.Contains(t, state.Message, "goal")

	_, err = e.Step(RotateLeft)
	assert.ErrorIs(t, err, ErrEpisodeDone)
}

func TestEngineHistory(t *testing.T) {
	e, err := NewEngine(createTestConfig(), 1)
	require.NoError(t, err)
	assert.Nil(t, e.GetLastStep())

	_, err = e.Step(RotateRight)
	require.NoError(t, err)
	_, err = e.Step(MoveForward)
	require.NoError(t, err)

	history := e.GetStepHistory()
	require.Len(t, history, 2)
	assert.Equal(t, "right", history[0].Action)
	assert.Equal(t, Up, history[0].From.Dir)
	assert.Equal(t, Right, history[0].To.Dir)
	assert.Equal(t, 1, history[0].StepNumber)
	assert.Equal(t, Position{X: 4, Y: 3}, history[1].To.Pos)
	assert.Equal(t, OutcomeMoved, e.GetLastStep().Outcome)
}

func TestEngineResetKeepsCumulativeHistory(t *testing.T) {
	e, err := NewEngine(createTestConfig(), 1)
	require.NoError(t, err)

	_, err = e.BulkStep([]Action{MoveForward, MoveForward, RotateLeft})
	require.NoError(t, err)
	require.True(t, e.IsDone())

	state, err := e.Reset()
	require.NoError(t, err)

	assert.Equal(t, 1, state.Episode)
	assert.False(t, state.Done())
	assert.Zero(t, state.Steps)
	assert.Zero(t, state.TotalReward)
	assert.Len(t, state.StepHistory, 2)
	assert.Equal(t, 2, state.TotalSteps)
	assert.Empty(t, state.CurrentSteps)
	assert.Equal(t, Position{X: 3, Y: 3}, state.Pose.Pos)
}

func TestEngineBulkStepStopsAtEnd(t *testing.T) {
	e, err := NewEngine(createTestConfig(), 1)
	require.NoError(t, err)

	results, err := e.BulkStep([]Action{MoveForward, MoveForward, MoveForward, NoOp})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.True(t, results[1].Terminated)
}

func TestEngineBulkStepInvalidAction(t *testing.T) {
	e, err := NewEngine(createTestConfig(), 1)
	require.NoError(t, err)

	results, err := e.BulkStep([]Action{RotateLeft, Action(12), RotateLeft})
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, e.GetState().Steps)
}

func TestEngineTruncation(t *testing.T) {
	config := createTestConfig()
	config.MaxSteps = 3
	e, err := NewEngine(config, 1)
	require.NoError(t, err)

	results, err := e.BulkStep([]Action{RotateLeft, RotateLeft, RotateLeft, RotateLeft})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[2].Truncated)
	assert.False(t, results[2].Terminated)
	assert.Equal(t, OutcomeTruncated, e.GetState().Outcome)
}

func TestEngineResetRegeneratesFromSeed(t *testing.T) {
	config := BuiltinConfigs()["donut-16"]
	a, err := NewEngine(config, 7)
	require.NoError(t, err)
	b, err := NewEngine(config, 7)
	require.NoError(t, err)

	assert.True(t, a.GetGrid().Equal(b.GetGrid()))
	assert.Equal(t, a.GetPose(), b.GetPose())

	_, err = a.Reset()
	require.NoError(t, err)
	_, err = b.Reset()
	require.NoError(t, err)
	assert.Equal(t, a.GetPose(), b.GetPose())
	assert.Equal(t, 1, a.GetEpisode())
}

func TestSnapshotRestore(t *testing.T) {
	config := BuiltinConfigs()["lava-corners-17"]
	e, err := NewEngine(config, 11)
	require.NoError(t, err)
	_, err = e.Reset()
	require.NoError(t, err)
	_, err = e.BulkStep([]Action{RotateLeft, MoveForward, RotateRight, MoveForward})
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Equal(t, "lava-corners-17", snap.ConfigName)
	assert.Equal(t, 1, snap.Episode)

	restored, err := RestoreEngine(config, snap)
	require.NoError(t, err)

	assert.True(t, e.GetGrid().Equal(restored.GetGrid()))
	assert.Equal(t, e.GetPose(), restored.GetPose())
	assert.Equal(t, e.GetState().Steps, restored.GetState().Steps)
	assert.Equal(t, e.GetStepHistory(), restored.GetStepHistory())
	assert.Equal(t, e.IsDone(), restored.IsDone())
}

func TestDescribeCell(t *testing.T) {
	e, err := NewEngine(createTestConfig(), 1)
	require.NoError(t, err)

	c, ok := e.DescribeCell(3, 1)
	assert.True(t, ok)
	assert.Equal(t, Goal, c.Kind)

	c, ok = e.DescribeCell(-1, 2)
	assert.False(t, ok)
	assert.Equal(t, Wall, c.Kind)
}
