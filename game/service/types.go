package service

import (
	"time"

	"github.com/wricardo/shapegrid/game/engine"
)

// SessionInfo provides information about an episode session
type SessionInfo struct {
	ID             string                `json:"id"`
	ConfigName     string                `json:"config_name"`
	Seed           int64                 `json:"seed"`
	CreatedAt      time.Time             `json:"created_at"`
	LastAccessedAt time.Time             `json:"last_accessed_at"`
	GameState      *engine.GameState     `json:"game_state"`
	Config         *engine.EpisodeConfig `json:"config"`
}

// StepOutcome contains the result of a single action
type StepOutcome struct {
	Step      StepInfo          `json:"step"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// Stop reason codes reported by BulkStep.
const (
	StopTerminatedGoal = "terminated_goal"
	StopTerminatedLava = "terminated_lava"
	StopTruncated      = "truncated"
	StopInvalidAction  = "invalid_action"
	StopEpisodeDone    = "episode_done"
)

// BulkStepResult contains the result of a sequence of actions
type BulkStepResult struct {
	StepsExecuted    int               `json:"steps_executed"`
	RequestedSteps   int               `json:"requested_steps"`
	RequestTruncated bool              `json:"request_truncated,omitempty"`
	Limit            int               `json:"limit,omitempty"`
	GameState        *engine.GameState `json:"game_state"`
	Events           []GameEvent       `json:"events"`
	StoppedReason    string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode   string            `json:"stop_reason_code,omitempty"` // terminated_goal|terminated_lava|truncated|invalid_action|episode_done
	StoppedOnStep    int               `json:"stopped_on_step,omitempty"`  // 1-based index of the action that caused the stop

	StartPose   engine.Pose `json:"start_pose"`
	EndPose     engine.Pose `json:"end_pose"`
	RewardDelta float64     `json:"reward_delta"`

	Steps []StepInfo `json:"steps,omitempty"`

	Done      bool                     `json:"done"`
	Message   string                   `json:"message,omitempty"`
	LocalView []engine.SurroundingCell `json:"local_view,omitempty"`
}

// StepInfo is a compact record for each executed action
type StepInfo struct {
	Idx        int             `json:"idx"`
	Action     string          `json:"action"`
	From       engine.Pose     `json:"from"`
	To         engine.Pose     `json:"to"`
	Cell       engine.CellKind `json:"cell"`
	Reward     float64         `json:"reward"`
	Outcome    engine.Outcome  `json:"outcome"`
	Terminated bool            `json:"terminated,omitempty"`
	Truncated  bool            `json:"truncated,omitempty"`
}

// CellInfo describes a single grid cell as seen from a session.
type CellInfo struct {
	X        int             `json:"x"`
	Y        int             `json:"y"`
	Kind     engine.CellKind `json:"kind"`
	Color    string          `json:"color,omitempty"`
	InBounds bool            `json:"in_bounds"`
	Blocking bool            `json:"blocking"`
	Terminal bool            `json:"terminal"`
	Agent    bool            `json:"agent"`
}

// Event types broadcast to session watchers.
const (
	EventStep      = "step"
	EventGoal      = "goal"
	EventLava      = "lava"
	EventTruncated = "truncated"
	EventReset     = "reset"
	EventCreated   = "created"
	EventDeleted   = "deleted"
)

// GameEvent represents something that happened in a session
type GameEvent struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Pose      engine.Pose       `json:"pose"`
	State     *engine.GameState `json:"state,omitempty"`
}

// HistoryOptions configures step history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated step history
type HistoryResponse struct {
	Steps       []engine.StepHistoryEntry `json:"steps"`
	TotalSteps  int                       `json:"total_steps"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// Where a config came from.
const (
	ConfigSourceBuiltin = "builtin"
	ConfigSourceFile    = "file"
)

// ConfigInfo provides information about an episode configuration
type ConfigInfo struct {
	Filename    string `json:"filename,omitempty"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Topology    string `json:"topology"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	MaxSteps    int    `json:"max_steps"`
	Source      string `json:"source"`
}
