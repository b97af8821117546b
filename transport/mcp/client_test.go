package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wricardo/shapegrid/api"
	"github.com/wricardo/shapegrid/game/config"
	"github.com/wricardo/shapegrid/game/engine"
	"github.com/wricardo/shapegrid/game/service"
	"github.com/wricardo/shapegrid/game/session"
)

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}

	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("Handler returned error: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Expected TextContent, got %T", result.Content[0])
	}
	return text.Text, result.IsError
}

// newBackend starts the REST API on a real service.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	configs, err := config.NewManager("")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	svc := service.NewGameService(session.NewManager(nil), configs)
	server := httptest.NewServer(api.NewServer(svc, nil, api.WithMetrics(prometheus.NewRegistry())))
	t.Cleanup(server.Close)
	return server
}

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	client := NewClient(baseURL)

	if client.baseURL != baseURL {
		t.Errorf("Expected baseURL %s, got %s", baseURL, client.baseURL)
	}
	if client.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if client.GetMCPServer() == nil {
		t.Error("Expected MCP server to be initialized")
	}
}

func TestDecodeArgs(t *testing.T) {
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: map[string]interface{}{
				"session_id": "abcd",
				"x":          float64(3),
				"y":          "4",
			},
		},
	}

	var args cellArgs
	if err := decodeArgs(request, &args); err != nil {
		t.Fatalf("decodeArgs failed: %v", err)
	}
	if args.SessionID != "abcd" || args.X != 3 || args.Y != 4 {
		t.Errorf("Unexpected decoded args: %+v", args)
	}

	request.Params.Arguments = map[string]interface{}{"actions": []interface{}{"left", "forward"}}
	var bulk bulkStepArgs
	if err := decodeArgs(request, &bulk); err != nil {
		t.Fatalf("decodeArgs failed: %v", err)
	}
	if len(bulk.Actions) != 2 || bulk.Actions[1] != "forward" {
		t.Errorf("Unexpected actions: %v", bulk.Actions)
	}
}

func TestClient_apiCallError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "session not found", "code": 404})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	text, isError := callTool(t, client.handleGetState, map[string]interface{}{"session_id": "nope"})
	if !isError {
		t.Error("Expected tool error")
	}
	if !strings.Contains(text, "session not found") {
		t.Errorf("Expected API error message, got %q", text)
	}
}

func TestClient_Episode(t *testing.T) {
	backend := newBackend(t)
	client := NewClient(backend.URL)

	text, isError := callTool(t, client.handleCreateSession, map[string]interface{}{
		"config_id": "donut-16",
		"seed":      float64(5),
	})
	if isError {
		t.Fatalf("create_session failed: %s", text)
	}
	if !strings.Contains(text, "Config: donut-16") || !strings.Contains(text, "Seed: 5") {
		t.Errorf("Unexpected create_session output: %s", text)
	}

	// Recover the id from the first line
	firstLine := strings.SplitN(text, "\n", 2)[0]
	sessionID := strings.TrimSpace(strings.TrimPrefix(firstLine, "Created session:"))
	if sessionID == "" {
		t.Fatalf("Could not parse session id from %q", firstLine)
	}

	text, isError = callTool(t, client.handleStep, map[string]interface{}{
		"session_id": sessionID,
		"action":     "left",
		"intent":     "look around",
	})
	if isError || !strings.Contains(text, "rotated") {
		t.Errorf("Unexpected step output: %s", text)
	}

	text, isError = callTool(t, client.handleStep, map[string]interface{}{
		"session_id": sessionID,
		"action":     "jump",
	})
	if !isError || !strings.Contains(text, "invalid action") {
		t.Errorf("Expected invalid action error, got %q", text)
	}

	text, isError = callTool(t, client.handleBulkStep, map[string]interface{}{
		"session_id": sessionID,
		"actions":    []interface{}{"right", "noop"},
	})
	if isError || !strings.Contains(text, "Executed 2/2 actions") {
		t.Errorf("Unexpected bulk_step output: %s", text)
	}

	text, isError = callTool(t, client.handleBulkStep, map[string]interface{}{
		"session_id": sessionID,
		"actions":    []interface{}{},
	})
	if !isError {
		t.Errorf("Expected error for empty actions, got %q", text)
	}

	text, _ = callTool(t, client.handleHistory, map[string]interface{}{
		"session_id": sessionID,
		"order":      "asc",
	})
	if !strings.Contains(text, "History: 3 steps") {
		t.Errorf("Unexpected history output: %s", text)
	}

	text, _ = callTool(t, client.handleDescribeCell, map[string]interface{}{
		"session_id": sessionID,
		"x":          float64(0),
		"y":          float64(0),
	})
	if !strings.Contains(text, "wall") || !strings.Contains(text, "Blocks movement") {
		t.Errorf("Unexpected describe_cell output: %s", text)
	}

	text, _ = callTool(t, client.handleDescribeCell, map[string]interface{}{
		"session_id": sessionID,
		"x":          float64(-1),
		"y":          float64(0),
	})
	if !strings.Contains(text, "outside the grid") {
		t.Errorf("Unexpected off-grid output: %s", text)
	}

	text, isError = callTool(t, client.handleReset, map[string]interface{}{"session_id": sessionID})
	if isError || !strings.Contains(text, "Episode: 1") {
		t.Errorf("Unexpected reset output: %s", text)
	}

	text, _ = callTool(t, client.handleListSessions, map[string]interface{}{})
	if !strings.Contains(text, "Active Sessions (1)") {
		t.Errorf("Unexpected list_sessions output: %s", text)
	}
}

func TestClient_ListConfigs(t *testing.T) {
	client := NewClient(newBackend(t).URL)

	text, isError := callTool(t, client.handleListConfigs, map[string]interface{}{})
	if isError {
		t.Fatalf("list_configs failed: %s", text)
	}
	for _, name := range engine.BuiltinConfigNames() {
		if !strings.Contains(text, name) {
			t.Errorf("Expected %s in list_configs output", name)
		}
	}
}

func TestFormatGameState(t *testing.T) {
	if got := formatGameState(nil); got != "No game state available" {
		t.Errorf("Unexpected nil output: %q", got)
	}

	state := &engine.GameState{
		Layout:     []string{"#####", "#>..#", "#####"},
		Pose:       engine.Pose{Pos: engine.Position{X: 1, Y: 1}, Dir: engine.Right},
		Steps:      4,
		MaxSteps:   10,
		Terminated: true,
		Outcome:    engine.OutcomeGoal,
		FrontCell:  engine.Cell{Kind: engine.Goal},
	}
	out := formatGameState(state)
	for _, want := range []string{"(1,1) facing right", "Steps: 4/10", "#>..#", "GOAL REACHED", "In front: goal"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestFormatLegend(t *testing.T) {
	out := formatLegend()
	if !strings.Contains(out, "fake_lava") || !strings.Contains(out, "agent facing up") {
		t.Errorf("Legend missing entries:\n%s", out)
	}
}
