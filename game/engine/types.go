package engine

import "fmt"

// CellKind represents the different kinds of grid cells
type CellKind string

const (
	Empty    CellKind = "empty"
	Wall     CellKind = "wall"
	Floor    CellKind = "floor"
	Lava     CellKind = "lava"
	FakeLava CellKind = "fake_lava"
	Gate     CellKind = "gate"
	Goal     CellKind = "goal"

	// Validation constants
	MinGridSize  = 5
	MaxGridSize  = 64
	MaxBulkSteps = 100
	MaxOrderLen  = 4

	DefaultWallColor = "grey"
	DefaultBarOffset = 10
)

// Cell represents a single grid cell
type Cell struct {
	Kind  CellKind `json:"kind"`
	Color string   `json:"color,omitempty"`
}

// Blocking reports whether the agent cannot enter the cell.
func (c Cell) Blocking() bool {
	return c.Kind == Wall || c.Kind == Lava
}

// Terminal reports whether entering the cell ends the episode with a payoff.
func (c Cell) Terminal() bool {
	return c.Kind == FakeLava || c.Kind == Goal
}

// Position represents x,y coordinates. X is the column, Y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns p translated by v.
func (p Position) Add(v Position) Position {
	return Position{X: p.X + v.X, Y: p.Y + v.Y}
}

// Direction is the agent orientation, encoded 0..3.
type Direction int

const (
	Right Direction = iota
	Down
	Left
	Up
)

var dirToVec = [4]Position{
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 0, Y: -1},
}

var dirNames = [4]string{"right", "down", "left", "up"}

// Vec returns the unit step for the direction.
func (d Direction) Vec() Position {
	return dirToVec[d.normalize()]
}

// Rotate turns the direction by delta quarter turns clockwise.
func (d Direction) Rotate(delta int) Direction {
	return Direction((int(d) + delta%4 + 4) % 4)
}

func (d Direction) normalize() Direction {
	return Direction((int(d)%4 + 4) % 4)
}

func (d Direction) String() string {
	if d < 0 || d > Up {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return dirNames[d]
}

// ParseDirection parses a direction name or its numeric code.
func ParseDirection(s string) (Direction, error) {
	for i, name := range dirNames {
		if s == name || s == fmt.Sprint(i) {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown direction %q", ErrInvalidParams, s)
}

// Pose is an agent's position and orientation
type Pose struct {
	Pos Position  `json:"pos"`
	Dir Direction `json:"dir"`
}

// Front returns the coordinate directly ahead of the agent.
func (p Pose) Front() Position {
	return p.Pos.Add(p.Dir.Vec())
}

// Action is a discrete agent action
type Action int

const (
	RotateLeft Action = iota
	RotateRight
	MoveForward
	NoOp
)

var actionNames = map[Action]string{
	RotateLeft:  "left",
	RotateRight: "right",
	MoveForward: "forward",
	NoOp:        "noop",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// ParseAction converts a wire name into an Action. A few aliases are
// accepted so that agents can use natural phrasing.
func ParseAction(s string) (Action, error) {
	switch s {
	case "left", "rotate_left", "l":
		return RotateLeft, nil
	case "right", "rotate_right", "r":
		return RotateRight, nil
	case "forward", "move_forward", "f":
		return MoveForward, nil
	case "noop", "no_op", "wait", "n":
		return NoOp, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidAction, s)
}

// Outcome classifies how a step affected the episode
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeMoved     Outcome = "moved"
	OutcomeBumped    Outcome = "bumped"
	OutcomeRotated   Outcome = "rotated"
	OutcomeIdle      Outcome = "idle"
	OutcomeGoal      Outcome = "goal"
	OutcomeLava      Outcome = "lava"
	OutcomeTruncated Outcome = "truncated"
)

// StepResult is what a single transition returns
type StepResult struct {
	Pose       Pose    `json:"pose"`
	Reward     float64 `json:"reward"`
	Terminated bool    `json:"terminated"`
	Truncated  bool    `json:"truncated"`
	Outcome    Outcome `json:"outcome"`
	Cell       Cell    `json:"cell"` // cell in front of the agent before the action
	Steps      int     `json:"steps"`
}

// Done reports whether the episode ended on this step.
func (r StepResult) Done() bool {
	return r.Terminated || r.Truncated
}

// SurroundingCell represents a cell with its absolute position
type SurroundingCell struct {
	X    int      `json:"x"`
	Y    int      `json:"y"`
	Kind CellKind `json:"kind"`
}

// GameState is the serialisable snapshot of an episode
type GameState struct {
	Grid        [][]Cell          `json:"grid"`
	Layout      []string          `json:"layout"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Pose        Pose              `json:"pose"`
	Steps       int               `json:"steps"`
	MaxSteps    int               `json:"max_steps"`
	Episode     int               `json:"episode"`
	Seed        int64             `json:"seed"`
	Terminated  bool              `json:"terminated"`
	Truncated   bool              `json:"truncated"`
	LastReward  float64           `json:"last_reward"`
	TotalReward float64           `json:"total_reward"`
	Outcome     Outcome           `json:"outcome,omitempty"`
	Message     string            `json:"message"`
	ConfigName  string            `json:"config_name"`
	FrontCell   Cell              `json:"front_cell"`
	LocalView   []SurroundingCell `json:"local_view,omitempty"`

	SeeThroughWalls bool `json:"see_through_walls"`

	// StepHistory is cumulative across resets; CurrentSteps only covers the
	// running episode.
	StepHistory  []StepHistoryEntry `json:"step_history"`
	TotalSteps   int                `json:"total_steps"`
	CurrentSteps []StepHistoryEntry `json:"current_steps"`
}

// Done reports whether the episode is over.
func (gs *GameState) Done() bool {
	return gs.Terminated || gs.Truncated
}

// StepHistoryEntry represents a single step in the episode history
type StepHistoryEntry struct {
	Action     string  `json:"action"`
	From       Pose    `json:"from"`
	To         Pose    `json:"to"`
	Reward     float64 `json:"reward"`
	Outcome    Outcome `json:"outcome"`
	Terminated bool    `json:"terminated"`
	Truncated  bool    `json:"truncated"`
	Episode    int     `json:"episode"`
	Timestamp  int64   `json:"timestamp"`
	StepNumber int     `json:"step_number"`
}
