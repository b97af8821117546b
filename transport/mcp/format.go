package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wricardo/shapegrid/game/engine"
	"github.com/wricardo/shapegrid/game/service"
)

var dirNames = [4]string{"right", "down", "left", "up"}

func dirName(d engine.Direction) string {
	if d < 0 || int(d) >= len(dirNames) {
		return fmt.Sprintf("dir(%d)", int(d))
	}
	return dirNames[d]
}

func formatPose(p engine.Pose) string {
	return fmt.Sprintf("(%d,%d) facing %s", p.Pos.X, p.Pos.Y, dirName(p.Dir))
}

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nConfig: %s\nSeed: %d\nCreated: %s\n\n%s",
		session.ID, session.ConfigName, session.Seed,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Pose: %s | Episode: %d | Steps: %d/%d | Reward: %.3f (total %.3f)\n",
		formatPose(state.Pose), state.Episode, state.Steps, state.MaxSteps,
		state.LastReward, state.TotalReward)
	fmt.Fprintf(&b, "In front: %s\n\n", describeKind(state.FrontCell))

	for _, row := range state.Layout {
		b.WriteString(row)
		b.WriteString("\n")
	}

	switch {
	case state.Terminated && state.Outcome == engine.OutcomeGoal:
		b.WriteString("\nGOAL REACHED")
	case state.Terminated:
		b.WriteString("\nEPISODE OVER (lava)")
	case state.Truncated:
		b.WriteString("\nEPISODE OVER (out of steps)")
	}

	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}

	return b.String()
}

func describeKind(c engine.Cell) string {
	if c.Color != "" && c.Kind != engine.Empty {
		return fmt.Sprintf("%s (%s)", c.Kind, c.Color)
	}
	return string(c.Kind)
}

func formatStepLine(s service.StepInfo) string {
	line := fmt.Sprintf("%d. %s: %s -> %s %s reward=%.3f",
		s.Idx, s.Action, formatPose(s.From), formatPose(s.To), s.Outcome, s.Reward)
	if s.Outcome == engine.OutcomeBumped {
		line += fmt.Sprintf(" (blocked by %s)", s.Cell)
	}
	return line + "\n"
}

func formatStepOutcome(result *service.StepOutcome) string {
	var b strings.Builder
	b.WriteString(formatStepLine(result.Step))

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatBulkStepResult(sessionID string, result *service.BulkStepResult) string {
	var b strings.Builder

	configName := ""
	if result.GameState != nil {
		configName = result.GameState.ConfigName
	}
	fmt.Fprintf(&b, "Session: %s • Config: %s\n", sessionID, configName)
	fmt.Fprintf(&b, "Executed %d/%d actions\n", result.StepsExecuted, result.RequestedSteps)
	if result.RequestTruncated {
		fmt.Fprintf(&b, "Only the first %d actions were run\n", result.Limit)
	}
	if result.StoppedReason != "" {
		fmt.Fprintf(&b, "Stopped on action %d: %s\n", result.StoppedOnStep, result.StoppedReason)
	}
	fmt.Fprintf(&b, "Start: %s\nEnd: %s\nReward: %+.3f\n",
		formatPose(result.StartPose), formatPose(result.EndPose), result.RewardDelta)

	if len(result.Steps) > 0 {
		b.WriteString("\nSteps:\n")
		for _, s := range result.Steps {
			b.WriteString(formatStepLine(s))
		}
	}

	if len(result.Events) > 0 {
		b.WriteString("\nEvents:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "History: %d steps (page %d/%d)\n\n", history.TotalSteps, history.Page, history.TotalPages)
	for _, e := range history.Steps {
		fmt.Fprintf(&b, "#%d [ep %d] %s: %s -> %s %s reward=%.3f\n",
			e.StepNumber, e.Episode, e.Action, formatPose(e.From), formatPose(e.To), e.Outcome, e.Reward)
	}
	if history.HasNext {
		b.WriteString("\nMore steps on the next page")
	}
	return b.String()
}

func formatCell(cell *service.CellInfo) string {
	if !cell.InBounds {
		return fmt.Sprintf("(%d,%d) is outside the grid; it behaves like a wall", cell.X, cell.Y)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "(%d,%d): %s\n", cell.X, cell.Y, describeKind(engine.Cell{Kind: cell.Kind, Color: cell.Color}))
	if cell.Blocking {
		b.WriteString("Blocks movement\n")
	} else {
		b.WriteString("Can be entered\n")
	}
	if cell.Terminal {
		b.WriteString("Entering it ends the episode\n")
	}
	if cell.Agent {
		b.WriteString("The agent is here\n")
	}
	return b.String()
}

func formatLegend() string {
	keys := make([]string, 0, len(engine.Legend))
	for k := range engine.Legend {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("LAYOUT LEGEND:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "  %-3s %s\n", k, engine.Legend[k])
	}
	return b.String()
}
