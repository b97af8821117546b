package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/wricardo/shapegrid/game/engine"
	"github.com/wricardo/shapegrid/game/service"
)

const instructions = `Shapegrid - MCP Interface

This is a thin client that proxies all requests to the REST API server.

OBJECTIVE:
Each session is a grid world with walls, coloured floor markers and sometimes lava.
The agent has a position and a facing direction. Reach the goal (*) if the episode
has one; stepping onto lava (L) ends the episode with a penalty. Fake lava (F)
looks dangerous but is safe.

ACTIONS:
- left / right: rotate in place
- forward: move one cell in the facing direction (walls block)
- noop: do nothing

AVAILABLE TOOLS:
- create_session, list_sessions, get_session: session management
- get_state: current layout, pose and reward
- step: one action; bulk_step: up to 100 actions
- reset: start the next episode
- history: past steps
- describe_cell: what is at (x, y)
- list_configs: available presets
- instructions: this text

The 'intent' parameter on step/bulk_step is for you: explain your reasoning.`

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API at baseURL
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.mcpServer = server.NewMCPServer(
		"Shapegrid",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
	)
	c.registerTools()
	return c
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// ServeStdio serves the tools on stdin/stdout until the client disconnects.
func (c *Client) ServeStdio() error {
	return server.ServeStdio(c.mcpServer)
}

var actionNames = []string{"left", "right", "forward", "noop"}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new session from a preset"),
		mcp.WithString("config_id", mcp.Description("Preset to use (optional, see list_configs)")),
		mcp.WithNumber("seed", mcp.Description("Seed for grid generation (optional)")),
	), c.handleCreateSession)

	c.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List all active sessions"),
	), c.handleListSessions)

	c.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get details of a specific session"),
		sessionArg(),
	), c.handleGetSession)

	c.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Get the current episode state with an ASCII layout"),
		sessionArg(),
	), c.handleGetState)

	c.mcpServer.AddTool(mcp.NewTool("step",
		mcp.WithDescription("Apply one action"),
		sessionArg(),
		mcp.WithString("action", mcp.Required(), mcp.Enum(actionNames...), mcp.Description("Action to take")),
		mcp.WithString("intent", mcp.Description("Brief explanation of why you are taking this action")),
	), c.handleStep)

	c.mcpServer.AddTool(mcp.NewTool("bulk_step",
		mcp.WithDescription("Apply a sequence of actions, stopping when the episode ends"),
		sessionArg(),
		mcp.WithArray("actions", mcp.Required(), mcp.WithStringEnumItems(actionNames), mcp.Description("Actions in order (max 100)")),
		mcp.WithString("intent", mcp.Description("Brief explanation of the plan behind this sequence")),
	), c.handleBulkStep)

	c.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Start the next episode of a session"),
		sessionArg(),
	), c.handleReset)

	c.mcpServer.AddTool(mcp.NewTool("history",
		mcp.WithDescription("Get the step history of a session"),
		sessionArg(),
		mcp.WithNumber("page", mcp.Description("Page number")),
		mcp.WithNumber("limit", mcp.Description("Items per page")),
		mcp.WithString("order", mcp.Enum("asc", "desc"), mcp.Description("Sort order")),
	), c.handleHistory)

	c.mcpServer.AddTool(mcp.NewTool("describe_cell",
		mcp.WithDescription("Describe one grid cell: kind, colour and whether it blocks or ends the episode"),
		sessionArg(),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Column (0-based)")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Row (0-based)")),
	), c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.NewTool("list_configs",
		mcp.WithDescription("List available presets"),
	), c.handleListConfigs)

	c.mcpServer.AddTool(mcp.NewTool("instructions",
		mcp.WithDescription("Get the rules and the layout legend"),
	), c.handleInstructions)
}

// Tool arguments

type sessionArgs struct {
	SessionID string `mapstructure:"session_id"`
}

type createSessionArgs struct {
	ConfigID string `mapstructure:"config_id"`
	Seed     *int64 `mapstructure:"seed"`
}

type stepArgs struct {
	SessionID string `mapstructure:"session_id"`
	Action    string `mapstructure:"action"`
	Intent    string `mapstructure:"intent"`
}

type bulkStepArgs struct {
	SessionID string   `mapstructure:"session_id"`
	Actions   []string `mapstructure:"actions"`
	Intent    string   `mapstructure:"intent"`
}

type historyArgs struct {
	SessionID string `mapstructure:"session_id"`
	Page      int    `mapstructure:"page"`
	Limit     int    `mapstructure:"limit"`
	Order     string `mapstructure:"order"`
}

type cellArgs struct {
	SessionID string `mapstructure:"session_id"`
	X         int    `mapstructure:"x"`
	Y         int    `mapstructure:"y"`
}

// decodeArgs copies the tool arguments into out. JSON numbers arrive as
// float64, so weak typing is on.
func decodeArgs(request mcp.CallToolRequest, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(request.GetArguments()); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return fmt.Errorf("%s", errResp.Error)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func sessionPath(id string, rest string) string {
	return "/api/sessions/" + url.PathEscape(id) + rest
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createSessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	body := map[string]interface{}{}
	if args.ConfigID != "" {
		body["config_id"] = args.ConfigID
	}
	if args.Seed != nil {
		body["seed"] = *args.Seed
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nConfig: %s\nSeed: %d\n\n%s",
		session.ID, session.ConfigName, session.Seed, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}

	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- %s (Config: %s, Seed: %d, Created: %s)\n",
			s.ID, s.ConfigName, s.Seed, s.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(args.SessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", sessionPath(args.SessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args stepArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.StepOutcome
	body := map[string]string{"action": args.Action}
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/step"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatStepOutcome(&result)), nil
}

func (c *Client) handleBulkStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args bulkStepArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(args.Actions) == 0 {
		return mcp.NewToolResultError("actions must not be empty"), nil
	}

	var result service.BulkStepResult
	body := map[string][]string{"actions": args.Actions}
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/step"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatBulkStepResult(args.SessionID, &result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args sessionArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(args.SessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args historyArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if args.Page > 0 {
		params.Set("page", fmt.Sprint(args.Page))
	}
	if args.Limit > 0 {
		params.Set("limit", fmt.Sprint(args.Limit))
	}
	if args.Order != "" {
		params.Set("order", args.Order)
	}
	path := sessionPath(args.SessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args cellArgs
	if err := decodeArgs(request, &args); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var cell service.CellInfo
	path := sessionPath(args.SessionID, fmt.Sprintf("/cells/%d/%d", args.X, args.Y))
	if err := c.apiCall(ctx, "GET", path, nil, &cell); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatCell(&cell)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := "Available Configurations:\n\n"
	for _, config := range configs {
		result += fmt.Sprintf("• %s (%s)\n  %s\n  Grid: %dx%d, Max steps: %d\n\n",
			config.ConfigID, config.Topology, config.Description, config.Width, config.Height, config.MaxSteps)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions + "\n\n" + formatLegend()), nil
}
