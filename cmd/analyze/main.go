// Command analyze prints quick, human-readable statistics about episode
// presets. For each preset it builds a number of seeds and summarizes the
// cell counts, how much of the grid the agent can reach from its sampled
// start, and the walking distance to the nearest terminal-reward cell.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/shapegrid/game/config"
	"github.com/wricardo/shapegrid/game/engine"
)

// Analysis summarizes one preset over several seeds.
type Analysis struct {
	Name     string
	Topology engine.TopologyKind
	Width    int
	Height   int
	MaxSteps int
	Seeds    int

	// Counts come from the first seed; layouts only differ in the start
	// pose for most topologies.
	Walls   int
	Floor   int
	Lava    int
	Fake    int
	Goals   int
	Gates   int
	Free    int
	Targets int

	// Reachable is the mean number of cells reachable from the start.
	Reachable float64
	// Distance stats only cover seeds where a target is reachable.
	Solvable    int
	MinDistance int
	MaxDistance int
	AvgDistance float64
}

// analyzeConfig builds cfg for seeds 0..seeds-1 and gathers statistics.
func analyzeConfig(cfg *engine.EpisodeConfig, seeds int) (*Analysis, error) {
	params := cfg.Params.WithDefaults()
	a := &Analysis{
		Name:        cfg.Name,
		Topology:    params.Topology,
		Width:       params.Width,
		Height:      params.Height,
		MaxSteps:    cfg.MaxSteps,
		Seeds:       seeds,
		MinDistance: -1,
	}

	reachableTotal, distanceTotal := 0, 0
	for seed := 0; seed < seeds; seed++ {
		grid, pose, err := engine.Build(params, engine.EpisodeRand(int64(seed), 0))
		if err != nil {
			return nil, fmt.Errorf("%s seed %d: %w", cfg.Name, seed, err)
		}

		if seed == 0 {
			counts := engine.CountKinds(grid)
			a.Walls = counts[engine.Wall]
			a.Floor = counts[engine.Floor]
			a.Lava = counts[engine.Lava]
			a.Fake = counts[engine.FakeLava]
			a.Goals = counts[engine.Goal]
			a.Gates = counts[engine.Gate]
			a.Free = counts[engine.Empty] + counts[engine.Floor] + counts[engine.Gate]
			a.Targets = a.Fake + a.Goals
		}

		reachableTotal += engine.Reachable(grid, pose.Pos)

		d := engine.ShortestPath(grid, pose.Pos)
		if d < 0 {
			continue
		}
		a.Solvable++
		distanceTotal += d
		if a.MinDistance < 0 || d < a.MinDistance {
			a.MinDistance = d
		}
		if d > a.MaxDistance {
			a.MaxDistance = d
		}
	}

	if seeds > 0 {
		a.Reachable = float64(reachableTotal) / float64(seeds)
	}
	if a.Solvable > 0 {
		a.AvgDistance = float64(distanceTotal) / float64(a.Solvable)
	}
	return a, nil
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", a.Name)
	fmt.Fprintf(w, "Topology: %s\n", a.Topology)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", a.Width, a.Height)
	fmt.Fprintf(w, "Max Steps: %d\n", a.MaxSteps)
	fmt.Fprintf(w, "Walls: %d  Floor: %d  Gates: %d\n", a.Walls, a.Floor, a.Gates)
	fmt.Fprintf(w, "Hazards: %d lava, %d fake lava, %d goal\n", a.Lava, a.Fake, a.Goals)
	fmt.Fprintf(w, "Free cells: %d (%.1f reachable from start on average)\n", a.Free, a.Reachable)

	switch {
	case a.Targets == 0:
		fmt.Fprintf(w, "ℹ️  No terminal-reward cells; episodes end by truncation\n")
	case a.Solvable < a.Seeds:
		fmt.Fprintf(w, "⚠️  WARNING: reward unreachable in %d/%d seeds\n", a.Seeds-a.Solvable, a.Seeds)
	default:
		fmt.Fprintf(w, "✅ Reward reachable in all %d seeds\n", a.Seeds)
	}
	if a.Solvable > 0 {
		fmt.Fprintf(w, "Distance to reward: min %d, max %d, avg %.1f moves\n", a.MinDistance, a.MaxDistance, a.AvgDistance)
		if a.MaxDistance > a.MaxSteps {
			fmt.Fprintf(w, "⚠️  WARNING: longest walk (%d) exceeds the step budget (%d)\n", a.MaxDistance, a.MaxSteps)
		}
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	configs, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}

	names := cmd.Args().Slice()
	if len(names) == 0 {
		infos, err := configs.ListConfigs()
		if err != nil {
			return err
		}
		for _, info := range infos {
			names = append(names, info.ConfigID)
		}
	}

	for _, name := range names {
		cfg, err := configs.LoadConfig(name)
		if err != nil {
			return err
		}
		a, err := analyzeConfig(cfg, cmd.Int("seeds"))
		if err != nil {
			return err
		}
		printAnalysis(os.Stdout, a)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "print statistics about episode presets",
		ArgsUsage: "[preset...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "directory with extra episode configs",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.IntFlag{
				Name:  "seeds",
				Value: 20,
				Usage: "number of seeds to build each preset with",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}
}
