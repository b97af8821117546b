package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/shapegrid/game/engine"
	"github.com/wricardo/shapegrid/game/service"
)

var (
	ErrConfigNotFound = service.ErrConfigNotFound
	ErrInvalidConfig  = service.ErrInvalidConfig
)

// DefaultConfigName is the config used when none is requested.
const DefaultConfigName = "donut-16"

var configExtensions = []string{".json", ".yaml", ".yml"}

// Manager handles episode configuration loading and caching. Files in the
// config directory shadow built-in configs of the same name.
type Manager struct {
	configDir     string
	defaultConfig *engine.EpisodeConfig
	configs       map[string]*engine.EpisodeConfig
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager. An empty configDir serves
// only the built-in configs.
func NewManager(configDir string) (*Manager, error) {
	if configDir != "" {
		if _, err := os.Stat(configDir); os.IsNotExist(err) {
			return nil, fmt.Errorf("config directory does not exist: %s", configDir)
		}
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*engine.EpisodeConfig),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

func trimExt(name string) string {
	for _, ext := range configExtensions {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// LoadConfig loads a configuration by name
func (m *Manager) LoadConfig(name string) (*engine.EpisodeConfig, error) {
	name = trimExt(name)

	m.mu.RLock()
	if config, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return config, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if config, exists := m.configs[name]; exists {
		return config, nil
	}

	config, err := m.readConfig(name)
	if err != nil {
		return nil, err
	}

	m.configs[name] = config
	return config, nil
}

func (m *Manager) readConfig(name string) (*engine.EpisodeConfig, error) {
	if path, ok := m.configPath(name); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		config, err := engine.ParseEpisodeConfig(data, filepath.Ext(path))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
		}
		if config.Name == "" {
			config.Name = name
		}
		if err := engine.ValidateEpisodeConfig(config); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		return config, nil
	}

	if config, ok := engine.BuiltinConfigs()[name]; ok {
		return config, nil
	}
	return nil, ErrConfigNotFound
}

func (m *Manager) configPath(name string) (string, bool) {
	if m.configDir == "" {
		return "", false
	}
	for _, ext := range configExtensions {
		path := filepath.Join(m.configDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// ListConfigs returns information about all available configurations,
// sorted by id.
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	files := map[string]string{}
	if m.configDir != "" {
		entries, err := os.ReadDir(m.configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read config directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if ext != ".json" && ext != ".yaml" && ext != ".yml" {
				continue
			}
			files[strings.TrimSuffix(entry.Name(), ext)] = entry.Name()
		}
	}

	ids := engine.BuiltinConfigNames()
	for id := range files {
		if _, builtin := engine.BuiltinConfigs()[id]; !builtin {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	configs := make([]*service.ConfigInfo, 0, len(ids))
	for _, id := range ids {
		config, err := m.LoadConfig(id)
		if err != nil {
			// Skip invalid configs
			continue
		}

		info := configInfo(id, config)
		if filename, ok := files[id]; ok {
			info.Filename = filename
			info.Source = service.ConfigSourceFile
		}
		configs = append(configs, info)
	}

	return configs, nil
}

func configInfo(id string, config *engine.EpisodeConfig) *service.ConfigInfo {
	return &service.ConfigInfo{
		ConfigID:    id,
		Name:        config.Name,
		Description: config.Description,
		Topology:    string(config.Params.WithDefaults().Topology),
		Width:       config.Params.Width,
		Height:      config.Params.Height,
		MaxSteps:    config.MaxSteps,
		Source:      service.ConfigSourceBuiltin,
	}
}

// GetDefault returns the default configuration
func (m *Manager) GetDefault() *engine.EpisodeConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default configuration by name
func (m *Manager) SetDefault(name string) error {
	config, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = config
	return nil
}

// RefreshCache drops every cached configuration so files are read again.
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.configs = make(map[string]*engine.EpisodeConfig)
	m.mu.Unlock()

	return m.loadDefaultConfig()
}

func (m *Manager) loadDefaultConfig() error {
	config, err := m.LoadConfig(DefaultConfigName)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.defaultConfig = config
	m.mu.Unlock()
	return nil
}

// SaveConfig writes a configuration as JSON into the config directory.
func (m *Manager) SaveConfig(name string, config *engine.EpisodeConfig) error {
	if m.configDir == "" {
		return fmt.Errorf("no config directory configured")
	}
	if err := engine.ValidateEpisodeConfig(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	name = trimExt(name)
	configPath := filepath.Join(m.configDir, name+".json")

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	m.mu.Lock()
	m.configs[name] = config
	m.mu.Unlock()

	return nil
}
