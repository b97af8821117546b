package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/shapegrid/api"
	"github.com/wricardo/shapegrid/game/config"
	"github.com/wricardo/shapegrid/game/metrics"
	"github.com/wricardo/shapegrid/game/service"
	"github.com/wricardo/shapegrid/game/session"
	"github.com/wricardo/shapegrid/transport/mcp"
	"github.com/wricardo/shapegrid/transport/websocket"
)

// Session stores accepted by --store.
const (
	storeMemory = "memory"
	storeFile   = "file"
	storeRedis  = "redis"
	storeSQLite = "sqlite"
)

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "HTTP server port",
			Sources: cli.EnvVars("PORT"),
		},
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "HTTP server host",
			Sources: cli.EnvVars("HOST"),
		},
		&cli.StringFlag{
			Name:    "store",
			Value:   storeFile,
			Usage:   "session store: file, redis, sqlite or memory",
			Sources: cli.EnvVars("SESSION_STORE"),
		},
		&cli.StringFlag{
			Name:    "sessions-dir",
			Value:   "sessions",
			Usage:   "directory for the file store",
			Sources: cli.EnvVars("SESSIONS_DIR"),
		},
		&cli.StringFlag{
			Name:    "redis-addr",
			Value:   "localhost:6379",
			Usage:   "address for the redis store",
			Sources: cli.EnvVars("REDIS_ADDR"),
		},
		&cli.DurationFlag{
			Name:    "redis-ttl",
			Usage:   "expiry for stored redis sessions, 0 keeps them forever",
			Sources: cli.EnvVars("REDIS_TTL"),
		},
		&cli.StringFlag{
			Name:    "sqlite-path",
			Value:   "sessions.db",
			Usage:   "database file for the sqlite store",
			Sources: cli.EnvVars("SQLITE_PATH"),
		},
		&cli.DurationFlag{
			Name:    "cleanup-interval",
			Value:   time.Minute,
			Usage:   "how often idle and orphaned sessions are dropped",
			Sources: cli.EnvVars("CLEANUP_INTERVAL"),
		},
		&cli.DurationFlag{
			Name:    "session-ttl",
			Value:   24 * time.Hour,
			Usage:   "idle time after which a session leaves memory",
			Sources: cli.EnvVars("SESSION_TTL"),
		},
		&cli.Int64Flag{
			Name:    "seed",
			Usage:   "base seed; sessions created without a seed count up from it",
			Sources: cli.EnvVars("SEED"),
		},
		&cli.BoolFlag{
			Name:    "ngrok",
			Usage:   "expose the server through an ngrok tunnel",
			Sources: cli.EnvVars("NGROK_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "ngrok-auth",
			Usage:   "ngrok auth token",
			Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
		},
		&cli.StringFlag{
			Name:    "ngrok-domain",
			Usage:   "custom ngrok domain",
			Sources: cli.EnvVars("NGROK_DOMAIN"),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "run the HTTP server with REST API, WebSocket, metrics and /mcp",
		Action: runServe,
	}
}

// stackOptions selects the stores and wiring of a server stack.
type stackOptions struct {
	Store       string
	SessionsDir string
	RedisAddr   string
	RedisTTL    time.Duration
	SQLitePath  string
	Seed        *int64
	// MCPBaseURL mounts the MCP tools at /mcp, proxying to this API address
	MCPBaseURL string
	// Registry defaults to the global Prometheus registry
	Registry *prometheus.Registry
}

// stack is everything serve runs, wired together.
type stack struct {
	configs  *config.Manager
	sessions *session.Manager
	service  service.GameService
	recorder *metrics.Recorder
	hub      *websocket.Hub
	handler  http.Handler
	closers  []func() error
}

func newStack(ctx context.Context, configs *config.Manager, opts stackOptions, logger *slog.Logger) (*stack, error) {
	st := &stack{configs: configs}

	persistence, closer, err := openStore(ctx, opts, configs)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		st.closers = append(st.closers, closer)
	}

	if persistence != nil {
		st.sessions = session.NewManagerWithPersistence(persistence, logger)
		if err := st.sessions.LoadPersistedSessions(); err != nil {
			logger.Warn("failed to load persisted sessions", "error", err)
		}
	} else {
		st.sessions = session.NewManager(logger)
	}

	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Registry != nil {
		registerer, gatherer = opts.Registry, opts.Registry
	}
	st.recorder = metrics.NewRecorder(registerer)
	st.recorder.SetActiveSessions(st.sessions.Count())

	st.hub = websocket.NewHub(logger)

	serviceOpts := []service.Option{
		service.WithBroadcaster(st.hub),
		service.WithRecorder(st.recorder),
		service.WithLogger(logger),
	}
	if opts.Seed != nil {
		serviceOpts = append(serviceOpts, service.WithSeedFunc(seedCounter(*opts.Seed)))
	}
	st.service = service.NewGameService(st.sessions, configs, serviceOpts...)

	apiServer := api.NewServer(st.service, st.hub, api.WithLogger(logger), api.WithMetrics(gatherer))

	mux := http.NewServeMux()
	mux.Handle("/", apiServer)
	if opts.MCPBaseURL != "" {
		mcpClient := mcp.NewClient(opts.MCPBaseURL)
		mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpClient.GetMCPServer()))
	}
	st.handler = mux

	return st, nil
}

// Close releases the session store.
func (st *stack) Close() error {
	var errs []error
	for _, c := range st.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// openStore returns a nil persistence for the memory store.
func openStore(ctx context.Context, opts stackOptions, configs service.ConfigManager) (session.SessionPersistence, func() error, error) {
	switch opts.Store {
	case storeMemory:
		return nil, nil, nil
	case "", storeFile:
		p, err := session.NewFilePersistence(opts.SessionsDir, configs)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		return p, nil, nil
	case storeRedis:
		var redisOpts []session.RedisOption
		if opts.RedisTTL > 0 {
			redisOpts = append(redisOpts, session.WithTTL(opts.RedisTTL))
		}
		p := session.NewRedisPersistence(opts.RedisAddr, configs, redisOpts...)
		if err := p.Ping(); err != nil {
			p.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", opts.RedisAddr, err)
		}
		return p, p.Close, nil
	case storeSQLite:
		p, err := session.NewSQLitePersistence(ctx, opts.SQLitePath, configs)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", opts.Store)
	}
}

// seedCounter hands out consecutive seeds starting at base.
func seedCounter(base int64) func() int64 {
	var next atomic.Int64
	next.Store(base)
	return func() int64 {
		return next.Add(1) - 1
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	configs, err := newConfigManager(cmd)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	opts := stackOptions{
		Store:       cmd.String("store"),
		SessionsDir: cmd.String("sessions-dir"),
		RedisAddr:   cmd.String("redis-addr"),
		RedisTTL:    cmd.Duration("redis-ttl"),
		SQLitePath:  cmd.String("sqlite-path"),
		MCPBaseURL:  "http://" + addr,
	}
	if cmd.IsSet("seed") {
		seed := cmd.Int64("seed")
		opts.Seed = &seed
	}

	st, err := newStack(ctx, configs, opts, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      st.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		st.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		cleanupLoop(ctx, st.sessions, st.recorder, cmd.Duration("cleanup-interval"), cmd.Duration("session-ttl"), logger)
		return nil
	})

	g.Go(func() error {
		logger.Info("server listening",
			"addr", addr,
			"store", opts.Store,
			"api", fmt.Sprintf("http://%s/api", addr),
			"ws", fmt.Sprintf("ws://%s/ws?session=<id>", addr),
			"mcp", fmt.Sprintf("http://%s/mcp", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			serveNgrok(ctx, st.handler, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), logger)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	err = g.Wait()
	if saveErr := st.sessions.SaveAllSessions(); saveErr != nil {
		logger.Warn("failed to save sessions on shutdown", "error", saveErr)
	}
	logger.Info("server stopped")
	return err
}

// cleanupLoop drops idle sessions from memory and forgets sessions whose
// stored copy went away, until ctx is done.
func cleanupLoop(ctx context.Context, sessions *session.Manager, recorder *metrics.Recorder, interval, ttl time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepSessions(sessions, recorder, ttl, logger)
		}
	}
}

func sweepSessions(sessions *session.Manager, recorder *metrics.Recorder, ttl time.Duration, logger *slog.Logger) {
	expired := 0
	if ttl > 0 {
		expired = sessions.CleanupExpiredSessions(ttl)
	}
	pruned := sessions.PruneOrphans()
	recorder.SetActiveSessions(sessions.Count())

	if expired > 0 || pruned > 0 {
		logger.Info("session cleanup", "expired", expired, "pruned", pruned, "active", sessions.Count())
	}
}

// serveNgrok serves handler through an ngrok tunnel until ctx is done.
// Tunnel failures are logged and leave the local server running.
func serveNgrok(ctx context.Context, handler http.Handler, authToken, domain string, logger *slog.Logger) {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var endpointOpts []ngrokConfig.HTTPEndpointOption
	if domain != "" {
		endpointOpts = append(endpointOpts, ngrokConfig.WithDomain(domain))
	}

	tun, err := ngrok.Listen(ctx, ngrokConfig.HTTPEndpoint(endpointOpts...), ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", "error", err)
		}
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established",
		"url", url,
		"api", url+"/api",
		"ws", url+"/ws?session=<id>",
		"mcp", url+"/mcp")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
}
