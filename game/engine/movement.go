package engine

import "fmt"

// RewardFunc computes the terminal payoff from the step counter at the
// moment the goal is reached.
type RewardFunc func(steps, maxSteps int) float64

// DiscountedReward pays scale at step zero, shrinking linearly to a tenth
// of it at the step budget.
func DiscountedReward(scale float64) RewardFunc {
	return func(steps, maxSteps int) float64 {
		if maxSteps <= 0 {
			return scale
		}
		return scale * (1 - 0.9*(float64(steps)/float64(maxSteps)))
	}
}

// ConstantReward always pays v.
func ConstantReward(v float64) RewardFunc {
	return func(int, int) float64 { return v }
}

// Episode is the transition state machine for a single agent on a built
// grid. It is not safe for concurrent use.
type Episode struct {
	grid        *Grid
	pose        Pose
	steps       int
	maxSteps    int
	lavaPenalty float64
	reward      RewardFunc
}

// NewEpisode starts an episode at pose on grid.
func NewEpisode(grid *Grid, pose Pose, maxSteps int, lavaPenalty float64, reward RewardFunc) *Episode {
	if reward == nil {
		reward = DiscountedReward(1)
	}
	return &Episode{
		grid:        grid,
		pose:        pose,
		maxSteps:    maxSteps,
		lavaPenalty: lavaPenalty,
		reward:      reward,
	}
}

// Grid returns the episode's grid. Callers must not modify it.
func (e *Episode) Grid() *Grid { return e.grid }

// Pose returns the agent's current pose.
func (e *Episode) Pose() Pose { return e.pose }

// Steps returns the number of steps taken so far.
func (e *Episode) Steps() int { return e.steps }

// MaxSteps returns the step budget.
func (e *Episode) MaxSteps() int { return e.maxSteps }

// Step applies one action. An unknown action fails without consuming a step.
func (e *Episode) Step(a Action) (StepResult, error) {
	if !a.Valid() {
		return StepResult{}, fmt.Errorf("%w: %d", ErrInvalidAction, int(a))
	}

	front := e.grid.At(e.pose.Front())
	res := StepResult{Cell: front}
	e.steps++

	switch a {
	case RotateLeft:
		e.pose.Dir = e.pose.Dir.Rotate(-1)
		res.Outcome = OutcomeRotated
	case RotateRight:
		e.pose.Dir = e.pose.Dir.Rotate(1)
		res.Outcome = OutcomeRotated
	case MoveForward:
		switch {
		case front.Kind == Lava:
			res.Terminated = true
			res.Reward = -e.lavaPenalty
			res.Outcome = OutcomeLava
		case front.Blocking():
			res.Outcome = OutcomeBumped
		default:
			e.pose.Pos = e.pose.Front()
			res.Outcome = OutcomeMoved
			if front.Terminal() {
				res.Terminated = true
				res.Reward = e.reward(e.steps, e.maxSteps)
				res.Outcome = OutcomeGoal
			}
		}
	case NoOp:
		res.Outcome = OutcomeIdle
	}

	if e.maxSteps > 0 && e.steps >= e.maxSteps {
		res.Truncated = true
		if !res.Terminated {
			res.Outcome = OutcomeTruncated
		}
	}
	res.Pose = e.pose
	res.Steps = e.steps
	return res, nil
}

// LocalView returns the eight cells surrounding the agent, clockwise from north.
func (e *Episode) LocalView() []SurroundingCell {
	offsets := []Position{
		{X: 0, Y: -1},
		{X: 1, Y: -1},
		{X: 1, Y: 0},
		{X: 1, Y: 1},
		{X: 0, Y: 1},
		{X: -1, Y: 1},
		{X: -1, Y: 0},
		{X: -1, Y: -1},
	}
	view := make([]SurroundingCell, len(offsets))
	for i, off := range offsets {
		p := e.pose.Pos.Add(off)
		view[i] = SurroundingCell{X: p.X, Y: p.Y, Kind: e.grid.At(p).Kind}
	}
	return view
}
