package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRoom returns a bordered 7x7 room with fake lava at (5,1) and lava at
// (5,5).
func testRoom() *Grid {
	g := NewGrid(7, 7)
	g.Border(DefaultWallColor)
	g.Set(5, 1, Cell{Kind: FakeLava})
	g.Set(5, 5, Cell{Kind: Lava})
	g.Set(3, 3, Cell{Kind: Floor, Color: "blue"})
	g.Set(2, 3, Cell{Kind: Gate})
	return g
}

func TestMoveForwardIntoWallIsABump(t *testing.T) {
	g := testRoom()
	// Every pose adjacent to the border facing it.
	poses := []Pose{
		{Pos: Position{X: 1, Y: 2}, Dir: Left},
		{Pos: Position{X: 3, Y: 1}, Dir: Up},
		{Pos: Position{X: 5, Y: 3}, Dir: Right},
		{Pos: Position{X: 3, Y: 5}, Dir: Down},
	}

	for _, start := range poses {
		t.Run(start.Dir.String(), func(t *testing.T) {
			ep := NewEpisode(g, start, 100, 5, ConstantReward(1))
			res, err := ep.Step(MoveForward)
			require.NoError(t, err)

			assert.Equal(t, start, res.Pose)
			assert.Zero(t, res.Reward)
			assert.False(t, res.Terminated)
			assert.False(t, res.Truncated)
			assert.Equal(t, OutcomeBumped, res.Outcome)
			assert.Equal(t, 1, res.Steps)
		})
	}
}

func TestMoveForwardOffGridBlocks(t *testing.T) {
	// An unbordered grid: the edge itself acts as a wall.
	g := NewGrid(5, 5)
	start := Pose{Pos: Position{X: 0, Y: 0}, Dir: Up}
	ep := NewEpisode(g, start, 10, 0, nil)

	res, err := ep.Step(MoveForward)
	require.NoError(t, err)
	assert.Equal(t, start, res.Pose)
	assert.Equal(t, OutcomeBumped, res.Outcome)
}

func TestMoveForwardOntoFakeLava(t *testing.T) {
	g := testRoom()
	start := Pose{Pos: Position{X: 4, Y: 1}, Dir: Right}

	ep := NewEpisode(g, start, 100, 5, ConstantReward(1))
	res, err := ep.Step(MoveForward)
	require.NoError(t, err)

	assert.True(t, res.Terminated)
	assert.False(t, res.Truncated)
	assert.Equal(t, 1.0, res.Reward)
	assert.Equal(t, Position{X: 5, Y: 1}, res.Pose.Pos)
	assert.Equal(t, Right, res.Pose.Dir)
	assert.Equal(t, OutcomeGoal, res.Outcome)
	assert.Equal(t, FakeLava, res.Cell.Kind)
}

func TestMoveForwardOntoGoalUsesRewardFunc(t *testing.T) {
	g := NewGrid(7, 7)
	g.Border(DefaultWallColor)
	g.Set(3, 3, Cell{Kind: Goal})

	ep := NewEpisode(g, Pose{Pos: Position{X: 3, Y: 5}, Dir: Up}, 10, 0, DiscountedReward(1))
	_, err := ep.Step(MoveForward)
	require.NoError(t, err)
	res, err := ep.Step(MoveForward)
	require.NoError(t, err)

	require.True(t, res.Terminated)
	// Reached on step 2 of 10.
	assert.InDelta(t, 1-0.9*0.2, res.Reward, 1e-9)
}

func TestMoveForwardIntoLava(t *testing.T) {
	tests := []struct {
		name    string
		penalty float64
		want    float64
	}{
		{"penalty five", 5, -5},
		{"penalty disabled", 0, 0},
		{"fractional penalty", 0.5, -0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := testRoom()
			start := Pose{Pos: Position{X: 5, Y: 4}, Dir: Down}
			ep := NewEpisode(g, start, 100, tt.penalty, ConstantReward(1))

			res, err := ep.Step(MoveForward)
			require.NoError(t, err)

			assert.True(t, res.Terminated)
			assert.Equal(t, tt.want, res.Reward)
			assert.Equal(t, OutcomeLava, res.Outcome)
			assert.Equal(t, start.Pos, res.Pose.Pos, "lava blocks the move")
		})
	}
}

func TestMoveForwardOntoOverlapCells(t *testing.T) {
	tests := []struct {
		name  string
		start Pose
		want  Position
	}{
		{"empty", Pose{Pos: Position{X: 1, Y: 1}, Dir: Right}, Position{X: 2, Y: 1}},
		{"floor marker", Pose{Pos: Position{X: 3, Y: 4}, Dir: Up}, Position{X: 3, Y: 3}},
		{"gate", Pose{Pos: Position{X: 1, Y: 3}, Dir: Right}, Position{X: 2, Y: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep := NewEpisode(testRoom(), tt.start, 100, 5, nil)
			res, err := ep.Step(MoveForward)
			require.NoError(t, err)

			assert.Equal(t, tt.want, res.Pose.Pos)
			assert.Equal(t, tt.start.Dir, res.Pose.Dir)
			assert.False(t, res.Terminated)
			assert.Zero(t, res.Reward)
			assert.Equal(t, OutcomeMoved, res.Outcome)
		})
	}
}

func TestTruncationAtBudget(t *testing.T) {
	ep := NewEpisode(testRoom(), Pose{Pos: Position{X: 3, Y: 2}, Dir: Right}, 3, 5, nil)

	for i := 1; i <= 3; i++ {
		res, err := ep.Step(RotateLeft)
		require.NoError(t, err)
		assert.False(t, res.Terminated, "step %d", i)
		if i < 3 {
			assert.False(t, res.Truncated, "step %d", i)
		} else {
			assert.True(t, res.Truncated, "step %d", i)
			assert.Equal(t, OutcomeTruncated, res.Outcome)
			assert.True(t, res.Done())
		}
	}
}

func TestTerminationAndTruncationTogether(t *testing.T) {
	ep := NewEpisode(testRoom(), Pose{Pos: Position{X: 4, Y: 1}, Dir: Right}, 1, 0, ConstantReward(1))
	res, err := ep.Step(MoveForward)
	require.NoError(t, err)

	assert.True(t, res.Terminated)
	assert.True(t, res.Truncated)
	assert.Equal(t, OutcomeGoal, res.Outcome)
}

func TestRotationIsACycle(t *testing.T) {
	for _, action := range []Action{RotateRight, RotateLeft} {
		for d := Right; d <= Up; d++ {
			t.Run(action.String()+"/"+d.String(), func(t *testing.T) {
				start := Pose{Pos: Position{X: 3, Y: 2}, Dir: d}
				ep := NewEpisode(testRoom(), start, 100, 0, nil)

				seen := map[Direction]bool{}
				for i := 0; i < 4; i++ {
					res, err := ep.Step(action)
					require.NoError(t, err)
					assert.Equal(t, start.Pos, res.Pose.Pos)
					assert.Zero(t, res.Reward)
					assert.False(t, res.Terminated)
					seen[res.Pose.Dir] = true
				}
				assert.Equal(t, start, ep.Pose())
				assert.Len(t, seen, 4)
			})
		}
	}
}

func TestRotateDirections(t *testing.T) {
	ep := NewEpisode(testRoom(), Pose{Pos: Position{X: 3, Y: 2}, Dir: Right}, 100, 0, nil)

	res, err := ep.Step(RotateLeft)
	require.NoError(t, err)
	assert.Equal(t, Up, res.Pose.Dir)

	res, err = ep.Step(RotateRight)
	require.NoError(t, err)
	res, err = ep.Step(RotateRight)
	require.NoError(t, err)
	assert.Equal(t, Down, res.Pose.Dir)
}

func TestNoOpChangesNothing(t *testing.T) {
	start := Pose{Pos: Position{X: 4, Y: 1}, Dir: Right}
	ep := NewEpisode(testRoom(), start, 100, 0, nil)

	res, err := ep.Step(NoOp)
	require.NoError(t, err)
	assert.Equal(t, start, res.Pose)
	assert.False(t, res.Terminated)
	assert.Equal(t, OutcomeIdle, res.Outcome)
	assert.Equal(t, 1, ep.Steps())
}

func TestInvalidAction(t *testing.T) {
	ep := NewEpisode(testRoom(), Pose{Pos: Position{X: 3, Y: 2}}, 100, 0, nil)

	_, err := ep.Step(Action(7))
	assert.ErrorIs(t, err, ErrInvalidAction)
	assert.Zero(t, ep.Steps())

	_, err = ep.Step(Action(-1))
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestEpisodeDoesNotMutateGrid(t *testing.T) {
	g := testRoom()
	before := g.Clone()
	ep := NewEpisode(g, Pose{Pos: Position{X: 1, Y: 1}, Dir: Right}, 100, 0, nil)

	for _, a := range []Action{MoveForward, MoveForward, RotateRight, MoveForward, MoveForward, NoOp} {
		_, err := ep.Step(a)
		require.NoError(t, err)
	}
	assert.True(t, before.Equal(g))
}

func TestDiscountedReward(t *testing.T) {
	r := DiscountedReward(1)
	assert.InDelta(t, 1.0, r(0, 100), 1e-9)
	assert.InDelta(t, 0.55, r(50, 100), 1e-9)
	assert.InDelta(t, 0.1, r(100, 100), 1e-9)
	assert.Equal(t, 2.0, DiscountedReward(2)(0, 0))
	assert.Equal(t, 3.0, ConstantReward(3)(10, 20))
}

func TestLocalView(t *testing.T) {
	ep := NewEpisode(testRoom(), Pose{Pos: Position{X: 1, Y: 1}, Dir: Right}, 100, 0, nil)
	view := ep.LocalView()
	require.Len(t, view, 8)

	assert.Equal(t, SurroundingCell{X: 1, Y: 0, Kind: Wall}, view[0])
	assert.Equal(t, SurroundingCell{X: 2, Y: 1, Kind: Empty}, view[2])
	assert.Equal(t, SurroundingCell{X: 0, Y: 0, Kind: Wall}, view[7])
}
