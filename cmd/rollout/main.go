// Command rollout plays many episodes of a preset with a uniform random
// policy and reports how often the agent reaches a reward cell. Episodes are
// independent, so they run on a bounded pool of workers.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/shapegrid/game/config"
	"github.com/wricardo/shapegrid/game/engine"
	"github.com/wricardo/shapegrid/internal/logging"
)

var policyActions = []engine.Action{engine.RotateLeft, engine.RotateRight, engine.MoveForward, engine.NoOp}

// EpisodeResult is the outcome of one rollout.
type EpisodeResult struct {
	Seed    int64
	Steps   int
	Reward  float64
	Outcome engine.Outcome
}

// Summary aggregates a batch of rollouts.
type Summary struct {
	Config      string
	Episodes    int
	Successes   int
	Lava        int
	Truncated   int
	SuccessRate float64
	MeanReward  float64
	MeanSteps   float64
}

// Options control a batch of rollouts.
type Options struct {
	Episodes int
	Workers  int
	Seed     int64
}

// playEpisode runs one episode to the end. The layout comes from seed and
// the policy from its own source derived from it.
func playEpisode(ctx context.Context, cfg *engine.EpisodeConfig, seed int64) (EpisodeResult, error) {
	eng, err := engine.NewEngine(cfg, seed)
	if err != nil {
		return EpisodeResult{}, err
	}
	policy := rand.New(rand.NewSource(seed ^ 0x5eed))

	result := EpisodeResult{Seed: seed}
	for !eng.IsDone() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := eng.Step(policyActions[policy.Intn(len(policyActions))])
		if err != nil {
			return result, err
		}
		result.Steps = res.Steps
		result.Reward += res.Reward
		if res.Done() {
			result.Outcome = res.Outcome
		}
	}
	return result, nil
}

// rollout plays opts.Episodes episodes with seeds Seed, Seed+1, ...
func rollout(ctx context.Context, cfg *engine.EpisodeConfig, opts Options, logger *slog.Logger) (*Summary, []EpisodeResult, error) {
	if opts.Episodes < 1 {
		return nil, nil, fmt.Errorf("episodes must be positive, got %d", opts.Episodes)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	results := make([]EpisodeResult, opts.Episodes)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i := 0; i < opts.Episodes; i++ {
		seed := opts.Seed + int64(i)
		g.Go(func() error {
			res, err := playEpisode(ctx, cfg, seed)
			if err != nil {
				return fmt.Errorf("episode seed %d: %w", seed, err)
			}
			results[i] = res
			logger.Debug("episode finished", "seed", seed, "outcome", res.Outcome, "steps", res.Steps, "reward", res.Reward)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return summarize(cfg.Name, results), results, nil
}

func summarize(name string, results []EpisodeResult) *Summary {
	s := &Summary{Config: name, Episodes: len(results)}
	if len(results) == 0 {
		return s
	}

	var reward float64
	var steps int
	for _, r := range results {
		switch r.Outcome {
		case engine.OutcomeGoal:
			s.Successes++
		case engine.OutcomeLava:
			s.Lava++
		case engine.OutcomeTruncated:
			s.Truncated++
		}
		reward += r.Reward
		steps += r.Steps
	}

	n := float64(len(results))
	s.SuccessRate = float64(s.Successes) / n
	s.MeanReward = reward / n
	s.MeanSteps = float64(steps) / n
	return s
}

func printSummary(w io.Writer, s *Summary, elapsed time.Duration) {
	fmt.Fprintf(w, "Config:       %s\n", s.Config)
	fmt.Fprintf(w, "Episodes:     %d\n", s.Episodes)
	fmt.Fprintf(w, "Success rate: %.1f%% (%d goal, %d lava, %d truncated)\n",
		100*s.SuccessRate, s.Successes, s.Lava, s.Truncated)
	fmt.Fprintf(w, "Mean reward:  %.4f\n", s.MeanReward)
	fmt.Fprintf(w, "Mean steps:   %.1f\n", s.MeanSteps)
	if elapsed > 0 {
		fmt.Fprintf(w, "Elapsed:      %s\n", elapsed.Round(time.Millisecond))
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, err := logging.New(cmd.String("log-level"), "text")
	if err != nil {
		return err
	}
	configs, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	cfg, err := configs.LoadConfig(cmd.String("preset"))
	if err != nil {
		return err
	}

	opts := Options{
		Episodes: cmd.Int("episodes"),
		Workers:  cmd.Int("workers"),
		Seed:     cmd.Int64("seed"),
	}
	logger.Info("starting rollouts", "config", cfg.Name, "episodes", opts.Episodes, "workers", opts.Workers)

	start := time.Now()
	summary, _, err := rollout(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	printSummary(os.Stdout, summary, time.Since(start))
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:  "rollout",
		Usage: "random-policy rollouts of an episode preset",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "preset",
				Value: "lava-corners-17",
				Usage: "episode config to play",
			},
			&cli.IntFlag{
				Name:  "episodes",
				Value: 1000,
				Usage: "number of episodes",
			},
			&cli.IntFlag{
				Name:  "workers",
				Value: runtime.NumCPU(),
				Usage: "episodes played in parallel",
			},
			&cli.Int64Flag{
				Name:  "seed",
				Usage: "seed of the first episode",
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "directory with extra episode configs",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: run,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "rollout: %v\n", err)
		os.Exit(1)
	}
}
