package service

import (
	"context"
	"testing"
	"time"

	"controlling_irrigation/internal/arbiter"
	"controlling_irrigation/internal/hardware"
	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/valve"
)

func newSupervisorRig(t *testing.T) (*SupervisorService, *hardware.Fake, *arbiter.Slot, *memWateringRepo, *memEventRepo) {
	t.Helper()
	vm, err := valve.New(valve.DefaultConfig())
	if err != nil {
		t.Fatalf("valve.New: %v", err)
	}
	f := hardware.NewFake()
	arb := arbiter.NewSlot()
	repo := newMemWateringRepo()
	events := &memEventRepo{}
	history := NewHistoryService(repo, events, logger.NewNop())
	return NewSupervisorService(f, vm, arb, history, logger.NewNop()), f, arb, repo, events
}

func seed(repo *memWateringRepo, id, status string, deadline time.Time) {
	repo.rows[id] = models.WateringRecord{
		ID:         id,
		Position:   1,
		Line:       4,
		Duration:   1,
		Status:     status,
		CreatedAt:  deadline.Add(-time.Minute),
		DeadlineAt: deadline,
	}
}

func TestSupervisor_RecoverForcesSafeStateAndFailsOpenRequests(t *testing.T) {
	sup, f, arb, repo, events := newSupervisorRig(t)
	now := time.Now()
	seed(repo, "pending", models.StatusPending, now.Add(time.Hour))
	seed(repo, "running", models.StatusRunning, now.Add(time.Hour))
	seed(repo, "done", models.StatusSucceeded, now.Add(-time.Hour))

	if err := sup.Recover(context.Background()); err != nil {
		t.Fatalf("Recover: %v", err)
	}

	sets := f.Sets()
	// 11 distinct valve lines plus the pump.
	if len(sets) != 12 {
		t.Fatalf("expected 12 lines forced off, got %d", len(sets))
	}
	last := sets[len(sets)-1]
	if last.Line != valve.DefaultPumpLine || last.Level != hardware.Low {
		t.Fatalf("pump must be stopped last, got %+v", last)
	}
	for _, s := range sets[:len(sets)-1] {
		if s.Level != hardware.High {
			t.Fatalf("valve %d not driven to its off level", s.Line)
		}
	}

	for _, id := range []string{"pending", "running"} {
		rec := repo.rows[id]
		if rec.Status != models.StatusFailed || rec.Error != reasonRestart {
			t.Fatalf("%s: got %s %q", id, rec.Status, rec.Error)
		}
	}
	if repo.rows["done"].Status != models.StatusSucceeded {
		t.Fatalf("terminal row changed")
	}
	if got := events.types(); len(got) != 2 || got[0] != models.EventRecovered {
		t.Fatalf("events = %v", got)
	}
	if arb.Held() {
		t.Fatalf("lease not released")
	}
}

func TestSupervisor_RecoverSkipsWhenLeaseHeldElsewhere(t *testing.T) {
	sup, f, arb, repo, _ := newSupervisorRig(t)
	seed(repo, "running", models.StatusRunning, time.Now().Add(time.Hour))

	lease, err := arb.Acquire(context.Background(), 0)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer lease.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sup.Recover(ctx); err == nil {
		t.Fatalf("expected context error while the lease is held")
	}
	if len(f.Transitions()) != 0 {
		t.Fatalf("hardware touched without the lease")
	}
	if repo.rows["running"].Status != models.StatusRunning {
		t.Fatalf("live request must not be failed")
	}
}

func TestSupervisor_SweepFailsOverdueOnly(t *testing.T) {
	sup, _, _, repo, events := newSupervisorRig(t)
	now := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	seed(repo, "late", models.StatusRunning, now.Add(-time.Second))
	seed(repo, "on-time", models.StatusRunning, now.Add(time.Minute))

	if n := sup.sweep(context.Background(), now); n != 1 {
		t.Fatalf("sweep = %d, want 1", n)
	}
	if repo.rows["late"].Status != models.StatusFailed || repo.rows["late"].Error != reasonTimeout {
		t.Fatalf("late row = %+v", repo.rows["late"])
	}
	if repo.rows["on-time"].Status != models.StatusRunning {
		t.Fatalf("on-time row changed")
	}
	if got := events.types(); len(got) != 1 || got[0] != models.EventTimeout {
		t.Fatalf("events = %v", got)
	}

	if n := sup.sweep(context.Background(), now); n != 0 {
		t.Fatalf("second sweep = %d, want 0", n)
	}
}

func TestSupervisor_RunStopsOnCancel(t *testing.T) {
	sup, _, _, repo, _ := newSupervisorRig(t)
	seed(repo, "late", models.StatusPending, time.Now().Add(-time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for repo.status("late") != models.StatusFailed {
		select {
		case <-deadline:
			t.Fatalf("supervisor never swept")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
