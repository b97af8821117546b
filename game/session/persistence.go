package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wricardo/shapegrid/game/engine"
	"github.com/wricardo/shapegrid/game/service"
)

// SessionPersistence defines the interface for persisting sessions
type SessionPersistence interface {
	// Save persists a session to storage
	Save(session *service.Session) error

	// Load retrieves a session from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a session from storage
	Delete(id string) error

	// ListAll returns all persisted session IDs
	ListAll() ([]string, error)

	// Exists checks if a session exists in storage
	Exists(id string) bool
}

// PersistedSessionData is the stored form of a session. The grid is not
// stored: it is rebuilt from the config, seed and episode number.
type PersistedSessionData struct {
	ID             string          `json:"id"`
	ConfigID       string          `json:"config_id"`
	CreatedAt      time.Time       `json:"created_at"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
	Snapshot       engine.Snapshot `json:"snapshot"`
}

func encodeSession(session *service.Session) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("session cannot be nil")
	}
	data := PersistedSessionData{
		ID:             session.ID,
		ConfigID:       session.ConfigID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Snapshot:       session.Engine.Snapshot(),
	}
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session data: %w", err)
	}
	return jsonData, nil
}

// decodeSession restores a session, regenerating its engine through configs.
func decodeSession(jsonData []byte, configs service.ConfigManager) (*service.Session, error) {
	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	configID := data.ConfigID
	if configID == "" {
		configID = data.Snapshot.ConfigName
	}
	config, err := configs.LoadConfig(configID)
	if err != nil {
		return nil, fmt.Errorf("failed to load config '%s': %w", configID, err)
	}

	eng, err := engine.RestoreEngine(config, data.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to restore engine: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		ConfigID:       configID,
		Seed:           data.Snapshot.Seed,
		Engine:         eng,
		Config:         config,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
	}, nil
}
