// Command shapegrid serves grid-world episodes to agents.
//
// Commands:
//  1. "serve" (default) runs the HTTP server with the REST API, WebSocket
//     updates, Prometheus metrics and an /mcp endpoint
//  2. "mcp" runs an MCP stdio server against a running API, or against an
//     internal one when none answers
//  3. "render" prints one episode layout in colour
//  4. "play" steps through an episode interactively in the terminal
//  5. "presets" lists the available episode configs
//
// Every flag can also be set from the environment, and a .env file in the
// working directory is loaded first.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/shapegrid/game/config"
	"github.com/wricardo/shapegrid/internal/logging"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "shapegrid"
)

func main() {
	// A missing .env is fine
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp()
	app.Before = func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
		if envErr != nil && !os.IsNotExist(envErr) {
			fmt.Fprintf(os.Stderr, "warning: error loading .env file: %v\n", envErr)
		}
		return ctx, nil
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newApp builds the command tree. Flags on the root command are visible from
// every subcommand.
func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "grid-world episodes for agents over REST, WebSocket and MCP",
		Version: Version,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "directory with extra episode configs (*.json, *.yaml)",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "debug, info, warn or error",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "text or json",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		}, serveFlags()...),
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			renderCommand(),
			playCommand(),
			presetsCommand(),
		},
		// serve is the default, so its flags are accepted at the root too
		Action: runServe,
	}
}

func newLogger(cmd *cli.Command) (*slog.Logger, error) {
	logger, err := logging.New(cmd.String("log-level"), cmd.String("log-format"))
	if err != nil {
		return nil, err
	}
	return logger.With("app", AppName), nil
}

func newConfigManager(cmd *cli.Command) (*config.Manager, error) {
	configs, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}
	return configs, nil
}
