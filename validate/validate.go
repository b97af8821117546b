// Command validate lints episode config files (*.json, *.yaml, *.yml).
// For every file it checks:
//   - the file parses and passes config validation
//   - the episode builds for seeds 0..N-1 without error
//   - every built grid is closed by a ring of walls
//   - the agent starts inside the grid on a cell it can stand on
//
// It also reports, without failing, how many terminal-reward cells the grid
// holds and whether one of them is reachable from the start.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/shapegrid/game/engine"
)

// ValidationResult captures the outcome of validating a single config.
// If Valid is true, Messages holds informational lines; otherwise it holds
// the errors that were found, followed by any information gathered.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Messages = append(r.Messages, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Messages = append(r.Messages, "✓ "+fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warn(format string, args ...interface{}) {
	r.Messages = append(r.Messages, "⚠ "+fmt.Sprintf(format, args...))
}

// validateConfig loads one config file and validates it over seeds builds.
func validateConfig(filePath string, seeds int) ValidationResult {
	data, err := os.ReadFile(filePath)
	if err != nil {
		result := ValidationResult{File: filepath.Base(filePath)}
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.ParseEpisodeConfig(data, filepath.Ext(filePath))
	if err != nil {
		result := ValidationResult{File: filepath.Base(filePath)}
		result.fail("Invalid %s: %v", strings.TrimPrefix(filepath.Ext(filePath), "."), err)
		return result
	}

	return validateEpisodeConfig(filepath.Base(filePath), config, seeds)
}

// validateEpisodeConfig validates an already decoded config.
func validateEpisodeConfig(name string, config *engine.EpisodeConfig, seeds int) ValidationResult {
	result := ValidationResult{File: name, Valid: true}

	if err := engine.ValidateEpisodeConfig(config); err != nil {
		result.fail("%v", err)
		return result
	}

	params := config.Params.WithDefaults()
	unreachable := 0
	minTargets, maxTargets := -1, 0

	for seed := 0; seed < seeds; seed++ {
		grid, pose, err := engine.Build(params, engine.EpisodeRand(int64(seed), 0))
		if err != nil {
			result.fail("Seed %d: build failed: %v", seed, err)
			continue
		}

		for _, problem := range checkGrid(grid, pose) {
			result.fail("Seed %d: %s", seed, problem)
		}

		targets := len(engine.Targets(grid))
		if minTargets < 0 || targets < minTargets {
			minTargets = targets
		}
		if targets > maxTargets {
			maxTargets = targets
		}
		if targets > 0 && engine.ShortestPath(grid, pose.Pos) < 0 {
			unreachable++
		}
	}

	if !result.Valid {
		return result
	}

	order, _ := engine.DescribeOrder(params)
	result.info("Name: %s", config.Name)
	result.info("Topology: %s", params.Topology)
	result.info("Grid: %dx%d", params.Width, params.Height)
	if order != "" {
		result.info("Order: %s", order)
	}
	result.info("Max steps: %d", config.MaxSteps)
	result.info("Built %d seeds", seeds)

	switch {
	case maxTargets == 0:
		result.warn("No terminal-reward cells; episodes can only end by truncation")
	case unreachable > 0:
		result.warn("Reward cells unreachable from the start in %d/%d seeds", unreachable, seeds)
	default:
		result.info("Reward cells: %d-%d, reachable in every seed", minTargets, maxTargets)
	}

	return result
}

// checkGrid reports structural problems of one built grid.
func checkGrid(g *engine.Grid, pose engine.Pose) []string {
	var problems []string

	w, h := g.Width(), g.Height()
	for x := 0; x < w; x++ {
		for _, y := range []int{0, h - 1} {
			if c, _ := g.Get(x, y); c.Kind != engine.Wall {
				problems = append(problems, fmt.Sprintf("border cell (%d,%d) is %s, not wall", x, y, c.Kind))
			}
		}
	}
	for y := 1; y < h-1; y++ {
		for _, x := range []int{0, w - 1} {
			if c, _ := g.Get(x, y); c.Kind != engine.Wall {
				problems = append(problems, fmt.Sprintf("border cell (%d,%d) is %s, not wall", x, y, c.Kind))
			}
		}
	}

	start, ok := g.Get(pose.Pos.X, pose.Pos.Y)
	switch {
	case !ok:
		problems = append(problems, fmt.Sprintf("agent starts outside the grid at (%d,%d)", pose.Pos.X, pose.Pos.Y))
	case start.Blocking():
		problems = append(problems, fmt.Sprintf("agent starts on %s at (%d,%d)", start.Kind, pose.Pos.X, pose.Pos.Y))
	}

	return problems
}

// configFiles lists the config files in dir, sorted.
func configFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

func printResult(w *os.File, result ValidationResult) {
	fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
	if result.Valid {
		fmt.Fprintln(w, "✅ VALID")
		for _, msg := range result.Messages {
			fmt.Fprintln(w, "  "+msg)
		}
		return
	}

	fmt.Fprintln(w, "❌ INVALID")
	for _, msg := range result.Messages {
		if !strings.HasPrefix(msg, "✓") && !strings.HasPrefix(msg, "⚠") {
			fmt.Fprintln(w, "  ❌ "+msg)
		}
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	seeds := cmd.Int("seeds")
	if seeds < 1 {
		return fmt.Errorf("--seeds must be positive, got %d", seeds)
	}

	var results []ValidationResult
	if cmd.Bool("builtin") {
		builtins := engine.BuiltinConfigs()
		for _, name := range engine.BuiltinConfigNames() {
			results = append(results, validateEpisodeConfig(name, builtins[name], seeds))
		}
	}

	files, err := configFiles(cmd.String("dir"))
	if err != nil {
		return fmt.Errorf("error finding config files: %w", err)
	}
	for _, file := range files {
		results = append(results, validateConfig(file, seeds))
	}

	if len(results) == 0 {
		fmt.Println("No configurations found")
		return nil
	}

	allValid := true
	for _, result := range results {
		printResult(os.Stdout, result)
		allValid = allValid && result.Valid
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Println("❌ Some configurations have errors")
		return cli.Exit("", 1)
	}
	fmt.Println("✅ All configurations are valid!")
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "validate",
		Usage: "lint episode config files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Value:   "configs",
				Usage:   "directory with config files",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.IntFlag{
				Name:  "seeds",
				Value: 20,
				Usage: "number of seeds to build each config with",
			},
			&cli.BoolFlag{
				Name:  "builtin",
				Usage: "also lint the built-in configs",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(1)
	}
}
