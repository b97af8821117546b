package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gdamore/tcell/v2"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/shapegrid/game/config"
	"github.com/wricardo/shapegrid/game/engine"
	"github.com/wricardo/shapegrid/internal/termview"
)

func presetFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "preset",
		Aliases: []string{"p"},
		Value:   config.DefaultConfigName,
		Usage:   "episode config to build",
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "print the layout of one episode",
		Flags: []cli.Flag{
			presetFlag(),
			&cli.IntFlag{
				Name:  "episode",
				Usage: "episode number; each episode is built from seed+episode",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "plain ASCII output",
			},
		},
		Action: runRender,
	}
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:   "play",
		Usage:  "step through an episode in the terminal",
		Flags:  []cli.Flag{presetFlag()},
		Action: runPlay,
	}
}

func presetsCommand() *cli.Command {
	return &cli.Command{
		Name:   "presets",
		Usage:  "list the available episode configs",
		Action: runPresets,
	}
}

func commandWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// newEpisodeEngine builds the engine for --preset and --seed.
func newEpisodeEngine(cmd *cli.Command) (*engine.GameEngine, error) {
	configs, err := newConfigManager(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := configs.LoadConfig(cmd.String("preset"))
	if err != nil {
		return nil, err
	}
	return engine.NewEngine(cfg, cmd.Int64("seed"))
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	eng, err := newEpisodeEngine(cmd)
	if err != nil {
		return err
	}
	for i := 0; i < cmd.Int("episode"); i++ {
		if _, err := eng.Reset(); err != nil {
			return err
		}
	}

	w := commandWriter(cmd)
	var out *termenv.Output
	if cmd.Bool("no-color") {
		out = termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))
	} else {
		out = termenv.NewOutput(w)
	}

	state := eng.GetState()
	fmt.Fprintf(w, "%s seed=%d episode=%d %dx%d agent=(%d,%d) facing %s\n",
		state.ConfigName, state.Seed, state.Episode, state.Width, state.Height,
		state.Pose.Pos.X, state.Pose.Pos.Y, state.Pose.Dir)
	fmt.Fprint(w, termview.RenderANSI(out, eng.GetGrid(), eng.GetPose()))
	return nil
}

func runPresets(ctx context.Context, cmd *cli.Command) error {
	configs, err := newConfigManager(cmd)
	if err != nil {
		return err
	}
	infos, err := configs.ListConfigs()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(commandWriter(cmd), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOPOLOGY\tSIZE\tMAX STEPS\tSOURCE\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%s\t%s\n",
			info.ConfigID, info.Topology, info.Width, info.Height, info.MaxSteps, info.Source, info.Description)
	}
	return tw.Flush()
}

// keyCommand is what a key press asks the play loop to do.
type keyCommand int

const (
	keyNone keyCommand = iota
	keyStep
	keyReset
	keyQuit
)

// keyFor maps arrows and WASD to actions. Space waits, r resets, q and Esc
// quit.
func keyFor(ev *tcell.EventKey) (keyCommand, engine.Action) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return keyQuit, 0
	case tcell.KeyLeft:
		return keyStep, engine.RotateLeft
	case tcell.KeyRight:
		return keyStep, engine.RotateRight
	case tcell.KeyUp:
		return keyStep, engine.MoveForward
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'a', 'A':
			return keyStep, engine.RotateLeft
		case 'd', 'D':
			return keyStep, engine.RotateRight
		case 'w', 'W':
			return keyStep, engine.MoveForward
		case ' ':
			return keyStep, engine.NoOp
		case 'r', 'R':
			return keyReset, 0
		case 'q', 'Q':
			return keyQuit, 0
		}
	}
	return keyNone, 0
}

func runPlay(ctx context.Context, cmd *cli.Command) error {
	eng, err := newEpisodeEngine(cmd)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}
	defer screen.Fini()

	go func() {
		<-ctx.Done()
		screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	return playLoop(screen, eng)
}

// playLoop draws the episode and applies key presses until the player quits.
func playLoop(screen tcell.Screen, eng *engine.GameEngine) error {
	status := eng.GetState().Message
	for {
		drawPlay(screen, eng, status)

		switch ev := screen.PollEvent().(type) {
		case nil, *tcell.EventInterrupt:
			return nil
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			command, action := keyFor(ev)
			switch command {
			case keyQuit:
				return nil
			case keyReset:
				state, err := eng.Reset()
				if err != nil {
					return err
				}
				status = fmt.Sprintf("episode %d", state.Episode)
			case keyStep:
				if eng.IsDone() {
					status = "episode over, press r to reset"
					continue
				}
				res, err := eng.Step(action)
				if err != nil {
					return err
				}
				status = fmt.Sprintf("%s: %s reward=%.3f", action, res.Outcome, res.Reward)
				if msg := eng.GetState().Message; res.Done() && msg != "" {
					status += " " + msg
				}
			}
		}
	}
}

func drawPlay(screen tcell.Screen, eng *engine.GameEngine, status string) {
	screen.Clear()
	state := eng.GetState()
	header := fmt.Sprintf("%s  seed %d  episode %d  steps %d/%d  total %.3f",
		state.ConfigName, state.Seed, state.Episode, state.Steps, state.MaxSteps, state.TotalReward)

	termview.DrawText(screen, 0, 0, tcell.StyleDefault.Bold(true), header)
	termview.Draw(screen, eng.GetGrid(), eng.GetPose(), 0, 2)

	y := state.Height + 3
	termview.DrawText(screen, 0, y, tcell.StyleDefault, status)
	termview.DrawText(screen, 0, y+2, tcell.StyleDefault.Dim(true),
		strings.Join([]string{"arrows/wasd move", "space wait", "r reset", "q quit"}, "  |  "))
	screen.Show()
}
