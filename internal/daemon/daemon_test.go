package daemon_test

import (
	"context"
	"testing"
	"time"

	"easel/internal/daemon"
	"easel/internal/logging"
	"easel/internal/queue"
	"easel/internal/stage"
	"easel/internal/testsupport"
	"easel/internal/workflow"
)

type noopStage struct{}

func (noopStage) Prepare(context.Context, *queue.Item) error { return nil }
func (noopStage) Execute(context.Context, *queue.Item) error { return nil }
func (noopStage) HealthCheck(context.Context) stage.Health {
	return stage.Healthy("noop")
}

func newDaemon(t *testing.T) (*daemon.Daemon, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{
		Briefer:    noopStage{},
		Copywriter: noopStage{},
		Renderer:   noopStage{},
		Reviewer:   noopStage{},
	})
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d, store
}

func TestDaemonStartStop(t *testing.T) {
	d, _ := newDaemon(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.PID <= 0 {
		t.Fatalf("expected daemon PID, got %d", status.PID)
	}
	if d.APIAddr() == "" {
		t.Fatal("expected api server to be listening")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonGenerateValidatesProduct(t *testing.T) {
	d, _ := newDaemon(t)
	ctx := context.Background()

	if _, err := d.Generate(ctx, queue.RequestSpec{Product: "  "}); err == nil {
		t.Fatal("expected error for blank product")
	}

	item, err := d.Generate(ctx, queue.RequestSpec{Product: "SmartWatch X2", Style: "urgent"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if item.RequestID == "" {
		t.Fatal("expected request id to be assigned")
	}
	if item.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", item.Status)
	}
}

func TestDaemonWaitForItemReturnsTerminal(t *testing.T) {
	d, store := newDaemon(t)
	ctx := context.Background()

	item, err := d.Generate(ctx, queue.RequestSpec{Product: "Espresso Maker"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	item.Status = queue.StatusCompleted
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("mark item completed: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	finished, err := d.WaitForItem(waitCtx, item.ID)
	if err != nil {
		t.Fatalf("WaitForItem: %v", err)
	}
	if finished.Status != queue.StatusCompleted {
		t.Fatalf("expected completed item, got %s", finished.Status)
	}
}

func TestDaemonWaitForItemObservesStatus(t *testing.T) {
	d, store := newDaemon(t)
	ctx := context.Background()

	item, err := d.Generate(ctx, queue.RequestSpec{Product: "Espresso Maker"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	// Pending items are not terminal, so the wait must run until the deadline.
	shortCtx, cancelShort := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancelShort()
	pending, err := d.WaitForItem(shortCtx, item.ID)
	if err == nil {
		t.Fatal("expected deadline error for pending item")
	}
	if pending == nil || pending.Status != queue.StatusPending {
		t.Fatalf("expected pending snapshot on timeout, got %+v", pending)
	}

	item.SetFailed("render blew up")
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("mark item failed: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	finished, err := d.WaitForItem(waitCtx, item.ID)
	if err != nil {
		t.Fatalf("WaitForItem: %v", err)
	}
	if finished.Status != queue.StatusFailed {
		t.Fatalf("expected failed item, got %s", finished.Status)
	}
}

func TestDaemonQueueMaintenance(t *testing.T) {
	d, store := newDaemon(t)
	ctx := context.Background()

	item, err := d.Generate(ctx, queue.RequestSpec{Product: "SmartWatch X2"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	item.SetFailed("render blew up")
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("mark item failed: %v", err)
	}

	retried, err := d.RetryFailed(ctx, nil)
	if err != nil {
		t.Fatalf("RetryFailed: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 retried item, got %d", retried)
	}

	items, err := d.ListQueue(ctx, []queue.Status{queue.StatusPending})
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 pending item, got %d", len(items))
	}

	removed, err := d.ClearQueue(ctx)
	if err != nil {
		t.Fatalf("ClearQueue: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed item, got %d", removed)
	}
}
