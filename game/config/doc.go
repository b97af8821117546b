// Package config provides episode configuration management.
//
// The config package handles:
//   - Loading episode configurations from JSON or YAML files
//   - Falling back to the engine's built-in presets
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// An episode configuration names a topology and its generation parameters
// (size, shape order, colors, hazards, lattice layout) along with the step
// budget, lava penalty and reward mode. A file named donut-16.yaml in the
// config directory replaces the built-in donut-16.
//
// Built-in Configurations:
//   - donut-16/18/20, square-donut-16/17/18/20, lava-donut-16/18/20
//   - troom-16/18/20
//   - orthogonal-donut-16, lava-corners-17, fake-lava-lattice
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	episodeConfig, err := manager.LoadConfig("troom-18")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// Every loaded configuration is run through engine.ValidateEpisodeConfig, so
// a config that loads is guaranteed to build.
package config
