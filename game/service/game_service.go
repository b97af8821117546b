package service

import (
	"context"
	"time"

	"github.com/wricardo/shapegrid/game/engine"
)

// GameService defines all episode-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string, seed *int64) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Episode Operations
	Step(ctx context.Context, sessionID, action string) (*StepOutcome, error)
	BulkStep(ctx context.Context, sessionID string, actions []string) (*BulkStepResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Episode State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	DescribeCell(ctx context.Context, sessionID string, x, y int) (*CellInfo, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	GetConfig(ctx context.Context, configName string) (*engine.EpisodeConfig, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, configID string, config *engine.EpisodeConfig, seed int64) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles episode configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.EpisodeConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.EpisodeConfig
}

// Broadcaster pushes events to whoever watches a session.
type Broadcaster interface {
	Broadcast(sessionID string, event GameEvent)
}

// Recorder receives episode telemetry.
type Recorder interface {
	SessionCreated(configID string)
	SessionDeleted(configID string)
	StepTaken(configID string, result engine.StepResult)
	EpisodeReset(configID string)
}

// Session represents an active episode session
type Session struct {
	ID             string
	ConfigID       string
	Seed           int64
	Engine         *engine.GameEngine
	Config         *engine.EpisodeConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
