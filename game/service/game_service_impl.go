package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/shapegrid/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions    SessionManager
	configs     ConfigManager
	broadcaster Broadcaster
	recorder    Recorder
	logger      *slog.Logger
	seedFunc    func() int64
	mu          sync.RWMutex
}

// Option customises the service.
type Option func(*gameServiceImpl)

// WithBroadcaster sends every state change to b.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *gameServiceImpl) { s.broadcaster = b }
}

// WithRecorder reports telemetry to r.
func WithRecorder(r Recorder) Option {
	return func(s *gameServiceImpl) { s.recorder = r }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = l }
}

// WithSeedFunc sets the seed source for sessions created without one.
func WithSeedFunc(f func() int64) Option {
	return func(s *gameServiceImpl) { s.seedFunc = f }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:    sessions,
		configs:     configs,
		broadcaster: nopBroadcaster{},
		recorder:    nopRecorder{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		seedFunc:    func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, GameEvent) {}

type nopRecorder struct{}

func (nopRecorder) SessionCreated(string)               {}
func (nopRecorder) SessionDeleted(string)               {}
func (nopRecorder) StepTaken(string, engine.StepResult) {}
func (nopRecorder) EpisodeReset(string)                 {}

// CreateSession creates a new session. A nil seed picks one from the seed
// source.
func (s *gameServiceImpl) CreateSession(ctx context.Context, configName string, seed *int64) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.EpisodeConfig
	configID := configName
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			if errors.Is(err, ErrConfigNotFound) {
				return nil, s.configNotFound(configName)
			}
			return nil, fmt.Errorf("failed to load config %s: %w", configName, err)
		}
	} else {
		config = s.configs.GetDefault()
		configID = config.Name
	}

	actualSeed := s.seedFunc()
	if seed != nil {
		actualSeed = *seed
	}

	session, err := s.sessions.Create("", configID, config, actualSeed)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.recorder.SessionCreated(configID)
	s.logger.Info("session created", "session", session.ID, "config", configID, "seed", actualSeed)

	info := sessionInfo(session)
	s.broadcast(session.ID, EventCreated, "Session created", info.GameState)
	return info, nil
}

func (s *gameServiceImpl) configNotFound(configName string) error {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil && len(availableConfigs) > 0 {
		ids := make([]string, 0, len(availableConfigs))
		for _, cfg := range availableConfigs {
			ids = append(ids, cfg.ConfigID)
		}
		return fmt.Errorf("%w: '%s'. Available configs: %s", ErrConfigNotFound, configName, strings.Join(ids, ", "))
	}
	return fmt.Errorf("%w: '%s'. Use /api/configs to list available configurations", ErrConfigNotFound, configName)
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     sess.ConfigID,
		Seed:           sess.Seed,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		Config:         sess.Engine.GetConfig(),
	}
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// getSession looks up a session and touches its access time. Callers
// must hold s.mu for writing.
func (s *gameServiceImpl) getSession(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrSessionNotFound, err)
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}
	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}

	s.recorder.SessionDeleted(sess.ConfigID)
	s.logger.Info("session deleted", "session", sessionID)
	s.broadcast(sessionID, EventDeleted, "Session deleted", nil)
	return nil
}

// Step applies a single action to a session
func (s *gameServiceImpl) Step(ctx context.Context, sessionID, action string) (*StepOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	a, err := engine.ParseAction(strings.ToLower(strings.TrimSpace(action)))
	if err != nil {
		return nil, err
	}

	from := sess.Engine.GetPose()
	res, err := sess.Engine.Step(a)
	if err != nil {
		return nil, err
	}
	s.recorder.StepTaken(sess.ConfigID, res)

	state := sess.Engine.GetState()
	result := &StepOutcome{
		Step:      stepInfo(1, a, from, res),
		GameState: state,
		Message:   state.Message,
		Events:    []GameEvent{s.stepEvent(sessionID, res, state)},
	}

	s.save(sessionID, "step")
	s.broadcastEvent(result.Events[0])
	return result, nil
}

func stepInfo(idx int, a engine.Action, from engine.Pose, res engine.StepResult) StepInfo {
	return StepInfo{
		Idx:        idx,
		Action:     a.String(),
		From:       from,
		To:         res.Pose,
		Cell:       res.Cell.Kind,
		Reward:     res.Reward,
		Outcome:    res.Outcome,
		Terminated: res.Terminated,
		Truncated:  res.Truncated,
	}
}

// BulkStep applies up to engine.MaxBulkSteps actions, stopping at the end of
// the episode or at the first invalid action. Steps executed before a stop
// are kept.
func (s *gameServiceImpl) BulkStep(ctx context.Context, sessionID string, actions []string) (*BulkStepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	startState := sess.Engine.GetState()
	result := &BulkStepResult{
		RequestedSteps: len(actions),
		Events:         make([]GameEvent, 0),
		StartPose:      startState.Pose,
	}

	if len(actions) > engine.MaxBulkSteps {
		result.RequestTruncated = true
		result.Limit = engine.MaxBulkSteps
		actions = actions[:engine.MaxBulkSteps]
	}

	for i, raw := range actions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sess.Engine.IsDone() {
			result.StopReasonCode = StopEpisodeDone
			result.StoppedReason = "episode is over, reset to continue"
			result.StoppedOnStep = i + 1
			break
		}

		a, err := engine.ParseAction(strings.ToLower(strings.TrimSpace(raw)))
		if err != nil {
			result.StopReasonCode = StopInvalidAction
			result.StoppedReason = fmt.Sprintf("action %d invalid: %q", i+1, raw)
			result.StoppedOnStep = i + 1
			break
		}

		from := sess.Engine.GetPose()
		res, err := sess.Engine.Step(a)
		if err != nil {
			return nil, err
		}
		s.recorder.StepTaken(sess.ConfigID, res)
		result.StepsExecuted++
		result.Steps = append(result.Steps, stepInfo(i+1, a, from, res))

		if res.Done() {
			result.StopReasonCode = stopCode(res)
			result.StoppedReason = sess.Engine.GetState().Message
			result.StoppedOnStep = i + 1
			result.Events = append(result.Events, s.stepEvent(sessionID, res, nil))
			break
		}
	}

	endState := sess.Engine.GetState()
	result.GameState = endState
	result.EndPose = endState.Pose
	result.RewardDelta = endState.TotalReward - startState.TotalReward
	result.Done = endState.Done()
	result.Message = endState.Message
	result.LocalView = endState.LocalView

	if result.StepsExecuted > 0 {
		last := GameEvent{
			Type:      EventStep,
			SessionID: sessionID,
			Message:   fmt.Sprintf("%d steps applied", result.StepsExecuted),
			Timestamp: time.Now(),
			Pose:      endState.Pose,
			State:     endState,
		}
		if n := len(result.Events); n > 0 {
			last = result.Events[n-1]
			last.State = endState
			result.Events[n-1] = last
		} else {
			result.Events = append(result.Events, last)
		}
		s.save(sessionID, "bulk step")
		s.broadcastEvent(last)
	}

	return result, nil
}

func stopCode(res engine.StepResult) string {
	switch {
	case res.Terminated && res.Outcome == engine.OutcomeLava:
		return StopTerminatedLava
	case res.Terminated:
		return StopTerminatedGoal
	default:
		return StopTruncated
	}
}

// Reset starts the next episode of a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := sess.Engine.Reset()
	if err != nil {
		return nil, err
	}
	s.recorder.EpisodeReset(sess.ConfigID)
	s.logger.Debug("episode reset", "session", sessionID, "episode", state.Episode)

	s.save(sessionID, "reset")
	s.broadcast(sessionID, EventReset, fmt.Sprintf("Episode %d started", state.Episode), state)
	return state, nil
}

// GetGameState retrieves the current episode state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetHistory returns paginated step history
func (s *gameServiceImpl) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	return paginate(sess.Engine.GetStepHistory(), opts), nil
}

func paginate(history []engine.StepHistoryEntry, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	steps := []engine.StepHistoryEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			steps = append(steps, history[i])
		}
	} else if start < total {
		steps = append(steps, history[start:end]...)
	}

	return &HistoryResponse{
		Steps:       steps,
		TotalSteps:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// DescribeCell reports what is at (x, y) in the session's current grid.
func (s *gameServiceImpl) DescribeCell(ctx context.Context, sessionID string, x, y int) (*CellInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	cell, ok := sess.Engine.DescribeCell(x, y)
	pose := sess.Engine.GetPose()
	return &CellInfo{
		X:        x,
		Y:        y,
		Kind:     cell.Kind,
		Color:    cell.Color,
		InBounds: ok,
		Blocking: cell.Blocking(),
		Terminal: cell.Terminal(),
		Agent:    pose.Pos == engine.Position{X: x, Y: y},
	}, nil
}

// ListConfigs returns available episode configurations
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// GetConfig loads a specific episode configuration
func (s *gameServiceImpl) GetConfig(ctx context.Context, configName string) (*engine.EpisodeConfig, error) {
	config, err := s.configs.LoadConfig(configName)
	if err != nil {
		if errors.Is(err, ErrConfigNotFound) {
			return nil, s.configNotFound(configName)
		}
		return nil, err
	}
	return config, nil
}

func (s *gameServiceImpl) save(sessionID, op string) {
	if err := s.sessions.Save(sessionID); err != nil {
		s.logger.Warn("failed to persist session", "session", sessionID, "op", op, "error", err)
	}
}

func (s *gameServiceImpl) stepEvent(sessionID string, res engine.StepResult, state *engine.GameState) GameEvent {
	eventType := EventStep
	switch {
	case res.Terminated && res.Outcome == engine.OutcomeLava:
		eventType = EventLava
	case res.Terminated:
		eventType = EventGoal
	case res.Truncated:
		eventType = EventTruncated
	}
	msg := fmt.Sprintf("%s at (%d,%d) facing %s", res.Outcome, res.Pose.Pos.X, res.Pose.Pos.Y, res.Pose.Dir)
	if state != nil {
		msg = state.Message
	}
	return GameEvent{
		Type:      eventType,
		SessionID: sessionID,
		Message:   msg,
		Timestamp: time.Now(),
		Pose:      res.Pose,
		State:     state,
	}
}

func (s *gameServiceImpl) broadcast(sessionID, eventType, message string, state *engine.GameState) {
	event := GameEvent{
		Type:      eventType,
		SessionID: sessionID,
		Message:   message,
		Timestamp: time.Now(),
		State:     state,
	}
	if state != nil {
		event.Pose = state.Pose
	}
	s.broadcastEvent(event)
}

func (s *gameServiceImpl) broadcastEvent(event GameEvent) {
	s.broadcaster.Broadcast(event.SessionID, event)
}
