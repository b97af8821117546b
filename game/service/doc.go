// Package service provides the business logic layer for shapegrid.
//
// The service package implements:
//   - Multi-session episode management
//   - Single and bulk stepping with stop reason codes
//   - Episode resets and paginated step history
//   - Cell inspection for agents that cannot see the whole grid
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level operations.
// SessionManager handles session creation, retrieval, and persistence.
// ConfigManager resolves episode configurations by name.
// Broadcaster and Recorder receive events and telemetry for every change.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the engine. Each session owns its own engine; the service serialises
// access to them with a single lock so transports can call it concurrently.
//
// Usage:
//
//	sessionMgr := session.NewManager(logger)
//	configMgr, _ := config.NewManager("configs")
//	gameService := service.NewGameService(sessionMgr, configMgr,
//		service.WithBroadcaster(hub), service.WithRecorder(metrics.NewRecorder(reg)))
//
//	info, err := gameService.CreateSession(ctx, "troom-18", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.BulkStep(ctx, info.ID, []string{"forward", "left", "forward"})
//
// Stop reason codes:
//
// BulkStep reports why it stopped early with one of terminated_goal,
// terminated_lava, truncated, invalid_action or episode_done.
package service
