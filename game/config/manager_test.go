package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/shapegrid/game/engine"
	"github.com/wricardo/shapegrid/game/service"
)

func createValidConfig() *engine.EpisodeConfig {
	return &engine.EpisodeConfig{
		Name:        "Test Config",
		Description: "Test configuration",
		Params: engine.GenerationParams{
			Width:    16,
			Height:   16,
			Topology: engine.TopologyDonut,
		},
		MaxSteps:    100,
		LavaPenalty: 1,
	}
}

func writeConfigFile(t *testing.T, dir, name string, config *engine.EpisodeConfig) {
	t.Helper()
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}

	filename := name
	if filepath.Ext(filename) == "" {
		filename = name + ".json"
	}

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager == nil {
			t.Error("Expected manager to be non-nil")
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("no directory serves builtins", func(t *testing.T) {
		manager, err := NewManager("")
		if err != nil {
			t.Fatalf("NewManager should succeed without a directory, got error: %v", err)
		}

		defaultConfig := manager.GetDefault()
		if defaultConfig == nil || defaultConfig.Name != DefaultConfigName {
			t.Errorf("Expected builtin default %q, got %+v", DefaultConfigName, defaultConfig)
		}
	})

	t.Run("file shadows builtin default", func(t *testing.T) {
		dir := t.TempDir()
		config := createValidConfig()
		config.Name = "Shadowed"
		writeConfigFile(t, dir, DefaultConfigName, config)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if manager.GetDefault().Name != "Shadowed" {
			t.Errorf("Expected the file to replace the builtin, got %q", manager.GetDefault().Name)
		}
	})
}

func TestManager_LoadConfig(t *testing.T) {
	dir := t.TempDir()

	easyConfig := createValidConfig()
	easyConfig.Name = "Easy"
	easyConfig.MaxSteps = 500
	writeConfigFile(t, dir, "easy", easyConfig)

	yamlConfig := "name: Yaml Room\ndescription: t room from yaml\nparams:\n  width: 18\n  height: 18\n  topology: t_room\nmax_steps: 40\n"
	if err := os.WriteFile(filepath.Join(dir, "yaml-room.yml"), []byte(yamlConfig), 0644); err != nil {
		t.Fatalf("Failed to write yaml config: %v", err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("load existing config", func(t *testing.T) {
		config, err := manager.LoadConfig("easy")
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if config.Name != "Easy" {
			t.Errorf("Expected config name 'Easy', got '%s'", config.Name)
		}
		if config.MaxSteps != 500 {
			t.Errorf("Expected max steps 500, got %d", config.MaxSteps)
		}
	})

	t.Run("load with .json extension", func(t *testing.T) {
		config, err := manager.LoadConfig("easy.json")
		if err != nil {
			t.Fatalf("Failed to load config with extension: %v", err)
		}
		if config.Name != "Easy" {
			t.Errorf("Expected config name 'Easy', got '%s'", config.Name)
		}
	})

	t.Run("load yaml config", func(t *testing.T) {
		config, err := manager.LoadConfig("yaml-room")
		if err != nil {
			t.Fatalf("Failed to load yaml config: %v", err)
		}
		if config.Params.Topology != engine.TopologyTRoom {
			t.Errorf("Expected t_room topology, got %s", config.Params.Topology)
		}
	})

	t.Run("load builtin config", func(t *testing.T) {
		config, err := manager.LoadConfig("fake-lava-lattice")
		if err != nil {
			t.Fatalf("Failed to load builtin config: %v", err)
		}
		if config.Params.Topology != engine.TopologyLattice {
			t.Errorf("Expected lattice topology, got %s", config.Params.Topology)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		config1, _ := manager.LoadConfig("easy")

		config2, err := manager.LoadConfig("easy")
		if err != nil {
			t.Fatalf("Failed to load config from cache: %v", err)
		}

		// Should be the same pointer (cached)
		if config1 != config2 {
			t.Error("Expected config to be loaded from cache")
		}
	})

	t.Run("load non-existent config", func(t *testing.T) {
		_, err := manager.LoadConfig("non-existent")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("Expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("load invalid config", func(t *testing.T) {
		invalidData := []byte(`{"name": "invalid", "description": "too small", "max_steps": 10, "params": {"width": 3, "height": 3, "topology": "plain"}}`)
		if err := os.WriteFile(filepath.Join(dir, "invalid.json"), invalidData, 0644); err != nil {
			t.Fatalf("Failed to write invalid config: %v", err)
		}

		_, err := manager.LoadConfig("invalid")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig, got %v", err)
		}
		if !errors.Is(err, engine.ErrInvalidParams) {
			t.Errorf("Expected the params error to be preserved, got %v", err)
		}
	})

	t.Run("load malformed JSON", func(t *testing.T) {
		malformedData := []byte(`{"name": "Malformed", invalid json}`)
		if err := os.WriteFile(filepath.Join(dir, "malformed.json"), malformedData, 0644); err != nil {
			t.Fatalf("Failed to write malformed config: %v", err)
		}

		_, err := manager.LoadConfig("malformed")
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("Expected ErrInvalidConfig for malformed JSON, got %v", err)
		}
	})
}

func TestManager_ListConfigs(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"alpha", "beta"} {
		config := createValidConfig()
		config.Name = name
		writeConfigFile(t, dir, name, config)
	}
	shadow := createValidConfig()
	shadow.Name = "troom override"
	writeConfigFile(t, dir, "troom-16", shadow)

	// Ignored: wrong extension, and one that does not validate.
	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("readme"), 0644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	configList, err := manager.ListConfigs()
	if err != nil {
		t.Fatalf("Failed to list configs: %v", err)
	}

	want := len(engine.BuiltinConfigNames()) + 2
	if len(configList) != want {
		t.Errorf("Expected %d configs, got %d", want, len(configList))
	}

	byID := make(map[string]*service.ConfigInfo)
	for i, info := range configList {
		byID[info.ConfigID] = info
		if i > 0 && configList[i-1].ConfigID > info.ConfigID {
			t.Errorf("Configs not sorted: %s before %s", configList[i-1].ConfigID, info.ConfigID)
		}
	}

	if info := byID["alpha"]; info == nil || info.Source != service.ConfigSourceFile || info.Filename != "alpha.json" {
		t.Errorf("Expected alpha to come from alpha.json, got %+v", info)
	}
	if info := byID["troom-16"]; info == nil || info.Name != "troom override" || info.Source != service.ConfigSourceFile {
		t.Errorf("Expected troom-16 to be shadowed by the file, got %+v", info)
	}
	if info := byID["donut-18"]; info == nil || info.Source != service.ConfigSourceBuiltin || info.Width != 18 || info.Topology != "donut" {
		t.Errorf("Expected builtin donut-18, got %+v", info)
	}
	if _, ok := byID["broken"]; ok {
		t.Error("Expected broken config to be skipped")
	}
}

func TestManager_SaveConfig(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	config := createValidConfig()
	config.Name = "saved"
	if err := manager.SaveConfig("saved", config); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "saved.json")); err != nil {
		t.Fatalf("Expected saved.json to exist: %v", err)
	}

	manager.RefreshCache()
	loaded, err := manager.LoadConfig("saved")
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Params.Topology != engine.TopologyDonut || loaded.MaxSteps != 100 {
		t.Errorf("Saved config did not round trip: %+v", loaded)
	}

	config.MaxSteps = 0
	if err := manager.SaveConfig("bad", config); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}

	builtinOnly, _ := NewManager("")
	if err := builtinOnly.SaveConfig("saved", createValidConfig()); err == nil {
		t.Error("Expected error saving without a config directory")
	}
}

func TestManager_SetDefault(t *testing.T) {
	manager, err := NewManager("")
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if err := manager.SetDefault("troom-20"); err != nil {
		t.Fatalf("Failed to set default: %v", err)
	}
	if manager.GetDefault().Name != "troom-20" {
		t.Errorf("Expected troom-20 default, got %s", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("nope"); !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("Expected ErrConfigNotFound, got %v", err)
	}
}

func TestManager_ReloadConfig(t *testing.T) {
	dir := t.TempDir()

	config := createValidConfig()
	config.Name = "Changeable"
	config.MaxSteps = 10
	writeConfigFile(t, dir, "changeable", config)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	loaded, _ := manager.LoadConfig("changeable")
	if loaded.MaxSteps != 10 {
		t.Errorf("Expected initial max steps 10, got %d", loaded.MaxSteps)
	}

	config.MaxSteps = 20
	writeConfigFile(t, dir, "changeable", config)

	if err := manager.ReloadConfig("changeable"); err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}

	reloaded, _ := manager.LoadConfig("changeable")
	if reloaded.MaxSteps != 20 {
		t.Errorf("Expected reloaded max steps 20, got %d", reloaded.MaxSteps)
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	dir := t.TempDir()

	for i := 1; i <= 5; i++ {
		config := createValidConfig()
		config.Name = fmt.Sprintf("Config%d", i)
		writeConfigFile(t, dir, fmt.Sprintf("config%d", i), config)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if _, err := manager.LoadConfig(fmt.Sprintf("config%d", id%5+1)); err != nil {
				errs <- err
			}
		}(i)
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Unexpected error during concurrent access: %v", err)
	}

	// Five files plus the default.
	if manager.Count() != 6 {
		t.Errorf("Expected 6 configs in cache, got %d", manager.Count())
	}
}

// Test-only helpers

func (m *Manager) ReloadConfig(name string) error {
	m.mu.Lock()
	delete(m.configs, name)
	m.mu.Unlock()

	_, err := m.LoadConfig(name)
	return err
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.configs)
}
