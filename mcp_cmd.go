package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/shapegrid/transport/mcp"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run an MCP stdio server; starts an internal API when --api-url does not answer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Value:   "http://localhost:8080",
				Usage:   "REST API the tools talk to",
				Sources: cli.EnvVars("SHAPEGRID_API_URL"),
			},
		},
		Action: runMCP,
	}
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	baseURL := strings.TrimRight(cmd.String("api-url"), "/")
	logger.Info("checking for API server", "url", baseURL)

	if apiAvailable(ctx, baseURL) {
		logger.Info("using external API server", "url", baseURL)
	} else {
		logger.Info("no API server found, starting internal one")
		internalURL, stop, err := startInternalAPI(ctx, cmd, logger)
		if err != nil {
			return err
		}
		defer stop()
		baseURL = internalURL
	}

	logger.Info("MCP stdio server ready", "api", baseURL)
	return mcp.NewClient(baseURL).ServeStdio()
}

// apiAvailable probes the health endpoint of a running server.
func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// startInternalAPI serves an in-memory stack on a random loopback port.
func startInternalAPI(ctx context.Context, cmd *cli.Command, logger *slog.Logger) (string, func(), error) {
	configs, err := newConfigManager(cmd)
	if err != nil {
		return "", nil, err
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	st, err := newStack(ctx, configs, stackOptions{
		Store:    storeMemory,
		Registry: prometheus.NewRegistry(),
	}, logger)
	if err != nil {
		listener.Close()
		return "", nil, err
	}

	hubCtx, cancelHub := context.WithCancel(ctx)
	go st.hub.Run(hubCtx)

	httpServer := &http.Server{Handler: st.handler}
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal HTTP server error", "error", err)
		}
	}()

	addr := listener.Addr().String()
	logger.Info("internal API listening", "addr", addr)

	stop := func() {
		cancelHub()
		httpServer.Close()
		st.Close()
	}
	return "http://" + addr, stop, nil
}
