package engine

import (
	"fmt"
	"math/rand"
	"time"
)

// Engine provides the main interface for episode operations
type Engine interface {
	// Episode state
	GetState() *GameState
	Reset() (*GameState, error)
	IsDone() bool
	GetPose() Pose
	GetGrid() *Grid
	GetEpisode() int
	GetSeed() int64

	// Transitions
	Step(action Action) (StepResult, error)
	BulkStep(actions []Action) ([]StepResult, error)

	// Configuration
	GetConfig() *EpisodeConfig

	// History
	GetStepHistory() []StepHistoryEntry
	GetLastStep() *StepHistoryEntry

	// Observation helpers
	GetLocalView() []SurroundingCell
	DescribeCell(x, y int) (Cell, bool)

	// Persistence
	Snapshot() Snapshot
}

// Snapshot is everything needed to rebuild an engine. The grid is not part
// of it: it is regenerated from the config, seed and episode number.
type Snapshot struct {
	ConfigName   string             `json:"config_name"`
	Seed         int64              `json:"seed"`
	Episode      int                `json:"episode"`
	Pose         Pose               `json:"pose"`
	Steps        int                `json:"steps"`
	Terminated   bool               `json:"terminated"`
	Truncated    bool               `json:"truncated"`
	LastReward   float64            `json:"last_reward"`
	TotalReward  float64            `json:"total_reward"`
	Outcome      Outcome            `json:"outcome,omitempty"`
	Message      string             `json:"message"`
	StepHistory  []StepHistoryEntry `json:"step_history"`
	TotalSteps   int                `json:"total_steps"`
	CurrentSteps []StepHistoryEntry `json:"current_steps"`
}

// GameEngine implements the Engine interface
type GameEngine struct {
	config  *EpisodeConfig
	seed    int64
	number  int
	episode *Episode

	terminated  bool
	truncated   bool
	lastReward  float64
	totalReward float64
	outcome     Outcome
	message     string

	history      []StepHistoryEntry
	totalSteps   int
	currentSteps []StepHistoryEntry
}

// NewEngine validates config and builds the first episode from seed.
func NewEngine(config *EpisodeConfig, seed int64) (*GameEngine, error) {
	if err := ValidateEpisodeConfig(config); err != nil {
		return nil, err
	}
	cfg := config.WithDefaults()
	e := &GameEngine{
		config:       &cfg,
		seed:         seed,
		history:      []StepHistoryEntry{},
		currentSteps: []StepHistoryEntry{},
	}
	if err := e.startEpisode(0); err != nil {
		return nil, err
	}
	return e, nil
}

// RestoreEngine rebuilds an engine from a snapshot. The grid is regenerated
// deterministically and the saved pose and counters are applied on top.
func RestoreEngine(config *EpisodeConfig, snap Snapshot) (*GameEngine, error) {
	e, err := NewEngine(config, snap.Seed)
	if err != nil {
		return nil, err
	}
	if snap.Episode != 0 {
		if err := e.startEpisode(snap.Episode); err != nil {
			return nil, err
		}
	}
	e.episode.pose = snap.Pose
	e.episode.steps = snap.Steps
	e.terminated = snap.Terminated
	e.truncated = snap.Truncated
	e.lastReward = snap.LastReward
	e.totalReward = snap.TotalReward
	e.outcome = snap.Outcome
	e.message = snap.Message
	e.totalSteps = snap.TotalSteps
	if snap.StepHistory != nil {
		e.history = snap.StepHistory
	}
	if snap.CurrentSteps != nil {
		e.currentSteps = snap.CurrentSteps
	}
	return e, nil
}

// EpisodeRand returns the random source used to build a given episode.
func EpisodeRand(seed int64, episode int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(episode)))
}

func (e *GameEngine) startEpisode(number int) error {
	grid, pose, err := Build(e.config.Params, EpisodeRand(e.seed, number))
	if err != nil {
		return fmt.Errorf("build episode %d: %w", number, err)
	}
	e.number = number
	e.episode = NewEpisode(grid, pose, e.config.MaxSteps, e.config.LavaPenalty, e.config.Reward())
	e.terminated = false
	e.truncated = false
	e.lastReward = 0
	e.totalReward = 0
	e.outcome = OutcomeNone
	e.message = e.config.Messages.Welcome
	return nil
}

// GetState returns a snapshot of the current episode
func (e *GameEngine) GetState() *GameState {
	grid := e.episode.Grid()
	return &GameState{
		Grid:            grid.Rows(),
		Layout:          RenderLayout(grid, e.episode.Pose()),
		Width:           grid.Width(),
		Height:          grid.Height(),
		Pose:            e.episode.Pose(),
		Steps:           e.episode.Steps(),
		MaxSteps:        e.episode.MaxSteps(),
		Episode:         e.number,
		Seed:            e.seed,
		Terminated:      e.terminated,
		Truncated:       e.truncated,
		LastReward:      e.lastReward,
		TotalReward:     e.totalReward,
		Outcome:         e.outcome,
		Message:         e.message,
		ConfigName:      e.config.Name,
		FrontCell:       grid.At(e.episode.Pose().Front()),
		LocalView:       e.episode.LocalView(),
		SeeThroughWalls: e.config.SeeThroughWalls,
		StepHistory:     e.history,
		TotalSteps:      e.totalSteps,
		CurrentSteps:    e.currentSteps,
	}
}

// Reset starts the next episode. Cumulative history is preserved; the
// current segment is cleared.
func (e *GameEngine) Reset() (*GameState, error) {
	if err := e.startEpisode(e.number + 1); err != nil {
		return nil, err
	}
	e.currentSteps = []StepHistoryEntry{}
	return e.GetState(), nil
}

// IsDone returns whether the episode has terminated or been truncated
func (e *GameEngine) IsDone() bool {
	return e.terminated || e.truncated
}

// GetPose returns the agent's pose
func (e *GameEngine) GetPose() Pose {
	return e.episode.Pose()
}

// GetGrid returns the episode grid. Callers must not modify it.
func (e *GameEngine) GetGrid() *Grid {
	return e.episode.Grid()
}

// GetEpisode returns the zero-based episode number
func (e *GameEngine) GetEpisode() int {
	return e.number
}

// GetSeed returns the base seed of the engine
func (e *GameEngine) GetSeed() int64 {
	return e.seed
}

// Step applies one action and records it in the history. Steps after the
// episode ended are refused until Reset.
func (e *GameEngine) Step(action Action) (StepResult, error) {
	if e.IsDone() {
		return StepResult{}, fmt.Errorf("%w: reset to start a new episode", ErrEpisodeDone)
	}

	from := e.episode.Pose()
	res, err := e.episode.Step(action)
	if err != nil {
		return StepResult{}, err
	}

	e.terminated = res.Terminated
	e.truncated = res.Truncated
	e.lastReward = res.Reward
	e.totalReward += res.Reward
	e.outcome = res.Outcome
	e.message = e.messageFor(res)
	e.addToHistory(action, from, res)

	return res, nil
}

// BulkStep applies actions in order, stopping at the end of the episode or
// at the first invalid action.
func (e *GameEngine) BulkStep(actions []Action) ([]StepResult, error) {
	results := make([]StepResult, 0, len(actions))
	for _, a := range actions {
		if e.IsDone() {
			break
		}
		res, err := e.Step(a)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// GetConfig returns the episode configuration with defaults applied
func (e *GameEngine) GetConfig() *EpisodeConfig {
	return e.config
}

// GetStepHistory returns the cumulative step history
func (e *GameEngine) GetStepHistory() []StepHistoryEntry {
	return e.history
}

// GetLastStep returns the last step taken, or nil if there is none
func (e *GameEngine) GetLastStep() *StepHistoryEntry {
	if len(e.history) == 0 {
		return nil
	}
	return &e.history[len(e.history)-1]
}

// GetLocalView returns the eight cells around the agent
func (e *GameEngine) GetLocalView() []SurroundingCell {
	return e.episode.LocalView()
}

// DescribeCell returns the cell at (x, y) and whether it is on the grid
func (e *GameEngine) DescribeCell(x, y int) (Cell, bool) {
	return e.episode.Grid().Get(x, y)
}

// Snapshot captures the engine for persistence
func (e *GameEngine) Snapshot() Snapshot {
	return Snapshot{
		ConfigName:   e.config.Name,
		Seed:         e.seed,
		Episode:      e.number,
		Pose:         e.episode.Pose(),
		Steps:        e.episode.Steps(),
		Terminated:   e.terminated,
		Truncated:    e.truncated,
		LastReward:   e.lastReward,
		TotalReward:  e.totalReward,
		Outcome:      e.outcome,
		Message:      e.message,
		StepHistory:  e.history,
		TotalSteps:   e.totalSteps,
		CurrentSteps: e.currentSteps,
	}
}

func (e *GameEngine) messageFor(res StepResult) string {
	m := e.config.Messages
	switch res.Outcome {
	case OutcomeGoal:
		return fmt.Sprintf("%s Reward: %.3f", m.Goal, res.Reward)
	case OutcomeLava:
		return fmt.Sprintf("%s Reward: %.3f", m.Lava, res.Reward)
	case OutcomeTruncated:
		return fmt.Sprintf("%s (%d/%d)", m.Truncated, res.Steps, e.episode.MaxSteps())
	case OutcomeBumped:
		return fmt.Sprintf("%s Blocked at (%d,%d) facing %s", m.Bump, res.Pose.Pos.X, res.Pose.Pos.Y, res.Pose.Dir)
	case OutcomeRotated:
		return fmt.Sprintf("Now facing %s", res.Pose.Dir)
	case OutcomeMoved:
		return fmt.Sprintf("Moved to (%d,%d)", res.Pose.Pos.X, res.Pose.Pos.Y)
	default:
		return fmt.Sprintf("Step %d/%d", res.Steps, e.episode.MaxSteps())
	}
}

func (e *GameEngine) addToHistory(action Action, from Pose, res StepResult) {
	entry := StepHistoryEntry{
		Action:     action.String(),
		From:       from,
		To:         res.Pose,
		Reward:     res.Reward,
		Outcome:    res.Outcome,
		Terminated: res.Terminated,
		Truncated:  res.Truncated,
		Episode:    e.number,
		Timestamp:  time.Now().Unix(),
		StepNumber: e.totalSteps + 1,
	}
	// Cumulative history survives resets; the current segment does not
	e.history = append(e.history, entry)
	e.totalSteps++
	e.currentSteps = append(e.currentSteps, entry)
}
