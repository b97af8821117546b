package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wricardo/shapegrid/game/engine"
)

func corridorConfig() *engine.EpisodeConfig {
	return &engine.EpisodeConfig{
		Name:        "corridor",
		Description: "fixed start and goal",
		Params: engine.GenerationParams{
			Width:     19,
			Height:    15,
			Topology:  engine.TopologyPlain,
			Goal:      &engine.Position{X: 5, Y: 1},
			StartPose: &engine.Pose{Pos: engine.Position{X: 1, Y: 1}, Dir: engine.Right},
		},
		MaxSteps: 3,
	}
}

func TestAnalyzeConfig_FixedStart(t *testing.T) {
	a, err := analyzeConfig(corridorConfig(), 4)
	if err != nil {
		t.Fatalf("analyzeConfig failed: %v", err)
	}

	if a.Goals != 1 || a.Targets != 1 {
		t.Errorf("Expected one goal, got goals=%d targets=%d", a.Goals, a.Targets)
	}
	if a.Solvable != 4 {
		t.Errorf("Expected every seed solvable, got %d", a.Solvable)
	}
	if a.MinDistance != 4 || a.MaxDistance != 4 || a.AvgDistance != 4 {
		t.Errorf("Expected distance 4, got min=%d max=%d avg=%v", a.MinDistance, a.MaxDistance, a.AvgDistance)
	}
	if a.Walls != 2*19+2*13 {
		t.Errorf("Expected only border walls, got %d", a.Walls)
	}
}

func TestAnalyzeConfig_Donut(t *testing.T) {
	cfg := engine.BuiltinConfigs()["donut-16"]
	a, err := analyzeConfig(cfg, 5)
	if err != nil {
		t.Fatalf("analyzeConfig failed: %v", err)
	}

	if a.Width != 16 || a.Height != 16 {
		t.Errorf("Expected 16x16, got %dx%d", a.Width, a.Height)
	}
	if a.Walls <= 60 {
		t.Errorf("Expected the band on top of the 60 border walls, got %d", a.Walls)
	}
	if a.Targets != 0 || a.Solvable != 0 || a.MinDistance != -1 {
		t.Errorf("Expected no reward cells, got targets=%d solvable=%d min=%d", a.Targets, a.Solvable, a.MinDistance)
	}
	if a.Free != 16*16-a.Walls {
		t.Errorf("Expected free cells to be everything but walls, got %d", a.Free)
	}
	if a.Reachable <= 0 || a.Reachable > float64(a.Free) {
		t.Errorf("Unexpected reachable mean %v", a.Reachable)
	}
}

func TestAnalyzeConfig_InvalidParams(t *testing.T) {
	cfg := corridorConfig()
	cfg.Params.Width = 2
	if _, err := analyzeConfig(cfg, 1); err == nil {
		t.Error("Expected error for invalid params")
	}
}

func TestPrintAnalysis(t *testing.T) {
	a, err := analyzeConfig(corridorConfig(), 2)
	if err != nil {
		t.Fatalf("analyzeConfig failed: %v", err)
	}

	var buf bytes.Buffer
	printAnalysis(&buf, a)
	out := buf.String()

	for _, want := range []string{
		"=== Analyzing corridor ===",
		"Grid Size: 19 x 15",
		"Reward reachable in all 2 seeds",
		"min 4, max 4",
		"exceeds the step budget",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}
}

func TestPrintAnalysis_NoTargets(t *testing.T) {
	var buf bytes.Buffer
	printAnalysis(&buf, &Analysis{Name: "empty", Seeds: 3, MinDistance: -1})
	if !strings.Contains(buf.String(), "No terminal-reward cells") {
		t.Errorf("Unexpected output:\n%s", buf.String())
	}
}
