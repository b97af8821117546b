package session

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/wricardo/shapegrid/game/engine"
	"github.com/wricardo/shapegrid/game/service"
)

// newPlayedSession builds a session that has taken a few steps.
func newPlayedSession(t *testing.T, id string) *service.Session {
	t.Helper()
	config := createTestConfig()
	eng, err := engine.NewEngine(config, 11)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	for _, a := range []engine.Action{engine.RotateRight, engine.RotateLeft, engine.MoveForward} {
		if _, err := eng.Step(a); err != nil {
			t.Fatalf("Step %s failed: %v", a, err)
		}
	}
	now := time.Now().Truncate(time.Second)
	return &service.Session{
		ID:             id,
		ConfigID:       "test",
		Seed:           11,
		Engine:         eng,
		Config:         config,
		CreatedAt:      now,
		LastAccessedAt: now,
	}
}

// testPersistence runs the behaviour every SessionPersistence shares.
func testPersistence(t *testing.T, p SessionPersistence) {
	t.Run("Save and Load", func(t *testing.T) {
		original := newPlayedSession(t, "contract1")
		if err := p.Save(original); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}

		loaded, err := p.Load("contract1")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}

		if loaded.ID != original.ID {
			t.Errorf("Expected ID %s, got %s", original.ID, loaded.ID)
		}
		if loaded.ConfigID != "test" {
			t.Errorf("Expected config ID 'test', got %s", loaded.ConfigID)
		}
		if loaded.Seed != original.Seed {
			t.Errorf("Expected seed %d, got %d", original.Seed, loaded.Seed)
		}
		if !loaded.CreatedAt.Equal(original.CreatedAt) {
			t.Errorf("Expected CreatedAt %v, got %v", original.CreatedAt, loaded.CreatedAt)
		}

		want := original.Engine.GetState()
		got := loaded.Engine.GetState()
		if got.Pose != want.Pose {
			t.Errorf("Expected pose %+v, got %+v", want.Pose, got.Pose)
		}
		if got.Steps != want.Steps {
			t.Errorf("Expected %d steps, got %d", want.Steps, got.Steps)
		}
		if got.TotalReward != want.TotalReward {
			t.Errorf("Expected total reward %v, got %v", want.TotalReward, got.TotalReward)
		}
		if len(got.StepHistory) != len(want.StepHistory) {
			t.Errorf("Expected %d history entries, got %d", len(want.StepHistory), len(got.StepHistory))
		}
		// The grid is regenerated, not stored, so layouts must agree
		for y := range want.Layout {
			if got.Layout[y] != want.Layout[y] {
				t.Fatalf("Layout row %d differs: want %q got %q", y, want.Layout[y], got.Layout[y])
			}
		}
	})

	t.Run("Save overwrites", func(t *testing.T) {
		session := newPlayedSession(t, "contract2")
		if err := p.Save(session); err != nil {
			t.Fatalf("Failed to save session: %v", err)
		}
		if _, err := session.Engine.Step(engine.RotateRight); err != nil {
			t.Fatalf("Step failed: %v", err)
		}
		if err := p.Save(session); err != nil {
			t.Fatalf("Failed to save session again: %v", err)
		}

		loaded, err := p.Load("contract2")
		if err != nil {
			t.Fatalf("Failed to load session: %v", err)
		}
		if loaded.Engine.GetPose() != session.Engine.GetPose() {
			t.Errorf("Expected pose %+v, got %+v", session.Engine.GetPose(), loaded.Engine.GetPose())
		}
	})

	t.Run("Exists", func(t *testing.T) {
		if !p.Exists("contract1") {
			t.Error("Expected contract1 to exist")
		}
		if p.Exists("never-saved") {
			t.Error("Expected never-saved to not exist")
		}
	})

	t.Run("ListAll", func(t *testing.T) {
		ids, err := p.ListAll()
		if err != nil {
			t.Fatalf("Failed to list sessions: %v", err)
		}
		sort.Strings(ids)
		if len(ids) != 2 || ids[0] != "contract1" || ids[1] != "contract2" {
			t.Errorf("Expected [contract1 contract2], got %v", ids)
		}
	})

	t.Run("Load missing", func(t *testing.T) {
		if _, err := p.Load("never-saved"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := p.Delete("contract2"); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if p.Exists("contract2") {
			t.Error("Expected contract2 to be gone")
		}
		if err := p.Delete("contract2"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
		}
	})

	t.Run("Save nil", func(t *testing.T) {
		if err := p.Save(nil); err == nil {
			t.Error("Expected error saving nil session")
		}
	})
}
