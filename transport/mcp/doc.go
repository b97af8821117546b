// Package mcp exposes the episode API as Model Context Protocol tools.
//
// Client is a thin proxy: every tool call becomes a request against the
// REST API of a running server, and the JSON answer is turned into text an
// agent can read, including the ASCII layout of the grid.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - get_state
//   - step, bulk_step
//   - reset
//   - history
//   - describe_cell
//   - list_configs
//   - instructions
//
// Tool arguments are decoded with mapstructure, so numeric arguments may be
// sent as JSON numbers or strings.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.ServeStdio(); err != nil {
//		log.Fatal(err)
//	}
//
// The server can also mount the tools over HTTP with
// server.NewStreamableHTTPServer(client.GetMCPServer()).
package mcp
