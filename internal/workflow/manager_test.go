package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"easel/internal/config"
	"easel/internal/logging"
	"easel/internal/queue"
	"easel/internal/services"
	"easel/internal/stage"
	"easel/internal/testsupport"
)

type stubHandler struct {
	name       string
	prepareErr error
	execErr    error
	failFirst  int
	execFn     func(*queue.Item)
	calls      int
}

func (s *stubHandler) Prepare(ctx context.Context, item *queue.Item) error {
	item.InitProgress(s.name, s.name+" started")
	return s.prepareErr
}

func (s *stubHandler) Execute(ctx context.Context, item *queue.Item) error {
	s.calls++
	if s.execErr != nil && (s.failFirst == 0 || s.calls <= s.failFirst) {
		return s.execErr
	}
	if s.execFn != nil {
		s.execFn(item)
	}
	return nil
}

func (s *stubHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy(s.name)
}

type recordingNotifier struct {
	mu        sync.Mutex
	queued    []string
	completed []string
	reviews   []string
	errs      []string
}

func (r *recordingNotifier) NotifyRequestQueued(ctx context.Context, product string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queued = append(r.queued, product)
	return nil
}

func (r *recordingNotifier) NotifyBannerCompleted(ctx context.Context, product, bannerFile string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = append(r.completed, product)
	return nil
}

func (r *recordingNotifier) NotifyReviewNeeded(ctx context.Context, product, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews = append(r.reviews, reason)
	return nil
}

func (r *recordingNotifier) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	return nil
}

func (r *recordingNotifier) NotifyError(ctx context.Context, err error, contextLabel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, contextLabel)
	return nil
}

func (r *recordingNotifier) TestNotification(ctx context.Context) error { return nil }

func newTestManager(t *testing.T, set StageSet) (*Manager, *queue.Store, *config.Config, *recordingNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	manager := NewManagerWithNotifier(cfg, store, logging.NewNop(), notifier)
	manager.ConfigureStages(set)
	return manager, store, cfg, notifier
}

func runPipeline(t *testing.T, manager *Manager, store *queue.Store, item *queue.Item, steps int) *queue.Item {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < steps; i++ {
		current, err := store.GetByID(ctx, item.ID)
		if err != nil {
			t.Fatalf("reload item: %v", err)
		}
		if queue.IsTerminal(current.Status) {
			return current
		}
		if err := manager.processItem(ctx, logging.NewNop(), current); err != nil {
			return mustReload(t, store, item.ID)
		}
	}
	return mustReload(t, store, item.ID)
}

func mustReload(t *testing.T, store *queue.Store, id int64) *queue.Item {
	t.Helper()
	item, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload item: %v", err)
	}
	return item
}

func TestProcessItemAdvancesThroughPipeline(t *testing.T) {
	set := StageSet{
		Briefer:    &stubHandler{name: "briefing", execFn: func(i *queue.Item) { i.BriefJSON = `{"product":"SmartWatch X2"}` }},
		Copywriter: &stubHandler{name: "copywriting", execFn: func(i *queue.Item) { i.AdText = "Buy the SmartWatch X2" }},
		Renderer:   &stubHandler{name: "rendering", execFn: func(i *queue.Item) { i.BannerFile = "banner.png" }},
		Reviewer:   &stubHandler{name: "review", execFn: func(i *queue.Item) { i.QAStatus = queue.QAApproved }},
	}
	manager, store, _, notifier := newTestManager(t, set)
	item := testsupport.NewRequest(t, store, "SmartWatch X2")

	final := runPipeline(t, manager, store, item, 4)
	if final.Status != queue.StatusCompleted {
		t.Fatalf("expected completed item, got %q (%s)", final.Status, final.ErrorMessage)
	}
	if final.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}
	if final.BannerFile != "banner.png" || final.AdText == "" {
		t.Fatalf("pipeline fields not persisted: %+v", final)
	}

	summary := manager.Metrics().Snapshot()
	if summary.TotalRequests != 4 || summary.Successful != 4 {
		t.Fatalf("unexpected metrics %+v", summary)
	}
	if len(notifier.completed) != 1 {
		t.Fatalf("expected one completion notification, got %v", notifier.completed)
	}
	if len(notifier.queued) != 1 {
		t.Fatalf("expected one queue start notification, got %v", notifier.queued)
	}
}

func TestProcessItemRoutesValidationFailureToReview(t *testing.T) {
	set := StageSet{
		Briefer: &stubHandler{name: "briefing", execErr: services.Wrap(
			services.ErrValidation, "briefing", "validate inputs", "Request has no product", nil,
		)},
	}
	manager, store, _, notifier := newTestManager(t, set)
	item := testsupport.NewRequest(t, store, "SmartWatch X2")

	final := runPipeline(t, manager, store, item, 1)
	if final.Status != queue.StatusReview {
		t.Fatalf("expected review status, got %q", final.Status)
	}
	if !final.NeedsReview || final.ReviewReason == "" {
		t.Fatalf("expected review metadata, got %+v", final)
	}
	if len(notifier.errs) != 1 {
		t.Fatalf("expected one error notification, got %v", notifier.errs)
	}
}

func TestProcessItemMarksTransientFailureFailed(t *testing.T) {
	briefer := &stubHandler{name: "briefing", execErr: services.Wrap(
		services.ErrExternalTool, "briefing", "call model", "Model unavailable", errors.New("boom"),
	)}
	manager, store, cfg, _ := newTestManager(t, StageSet{Briefer: briefer})
	cfg.Agents.RetryDelaySeconds = 0
	item := testsupport.NewRequest(t, store, "SmartWatch X2")

	final := runPipeline(t, manager, store, item, 1)
	if final.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %q", final.Status)
	}
	if final.ErrorMessage == "" {
		t.Fatal("expected persisted error message")
	}
	if briefer.calls != cfg.Agents.RetryAttempts {
		t.Fatalf("expected %d attempts before failing, got %d", cfg.Agents.RetryAttempts, briefer.calls)
	}

	summary := manager.Metrics().Snapshot()
	if summary.TotalRequests != 1 || summary.Successful != 0 {
		t.Fatalf("unexpected metrics %+v", summary)
	}
}

func TestProcessItemRetriesTransientFailure(t *testing.T) {
	briefer := &stubHandler{
		name:      "briefing",
		failFirst: 2,
		execErr: services.Wrap(
			services.ErrExternalTool, "briefing", "call model", "Model unavailable", errors.New("boom"),
		),
		execFn: func(i *queue.Item) { i.BriefJSON = "{}" },
	}
	manager, store, cfg, _ := newTestManager(t, StageSet{Briefer: briefer})
	cfg.Agents.RetryAttempts = 3
	cfg.Agents.RetryDelaySeconds = 0
	item := testsupport.NewRequest(t, store, "SmartWatch X2")

	final := runPipeline(t, manager, store, item, 1)
	if final.Status != queue.StatusBriefed {
		t.Fatalf("expected briefed status after retries, got %q (%s)", final.Status, final.ErrorMessage)
	}
	if briefer.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", briefer.calls)
	}
}

func TestProcessItemDoesNotRetryValidationFailure(t *testing.T) {
	briefer := &stubHandler{name: "briefing", execErr: services.Wrap(
		services.ErrValidation, "briefing", "validate inputs", "Request has no product", nil,
	)}
	manager, store, cfg, _ := newTestManager(t, StageSet{Briefer: briefer})
	cfg.Agents.RetryDelaySeconds = 0
	item := testsupport.NewRequest(t, store, "SmartWatch X2")

	final := runPipeline(t, manager, store, item, 1)
	if final.Status != queue.StatusReview {
		t.Fatalf("expected review status, got %q", final.Status)
	}
	if briefer.calls != 1 {
		t.Fatalf("expected single attempt for validation failure, got %d", briefer.calls)
	}
}

type blockingHandler struct{}

func (blockingHandler) Prepare(ctx context.Context, item *queue.Item) error { return nil }

func (blockingHandler) Execute(ctx context.Context, item *queue.Item) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingHandler) HealthCheck(ctx context.Context) stage.Health {
	return stage.Healthy("blocking")
}

func TestProcessItemEnforcesStageDeadline(t *testing.T) {
	manager, store, cfg, _ := newTestManager(t, StageSet{Briefer: blockingHandler{}})
	cfg.Agents.RetryAttempts = 1
	cfg.Agents.RetryDelaySeconds = 0
	cfg.Agents.StageTimeoutSeconds = 1
	item := testsupport.NewRequest(t, store, "SmartWatch X2")

	final := runPipeline(t, manager, store, item, 1)
	if final.Status != queue.StatusFailed {
		t.Fatalf("expected failed status after deadline, got %q", final.Status)
	}
	if !strings.Contains(final.ErrorMessage, "deadline") {
		t.Fatalf("expected deadline in error message, got %q", final.ErrorMessage)
	}
}

func TestProcessItemKeepsHandlerAssignedStatus(t *testing.T) {
	set := StageSet{
		Briefer:    &stubHandler{name: "briefing", execFn: func(i *queue.Item) { i.BriefJSON = "{}" }},
		Copywriter: &stubHandler{name: "copywriting", execFn: func(i *queue.Item) { i.AdText = "text" }},
		Renderer:   &stubHandler{name: "rendering", execFn: func(i *queue.Item) { i.BannerFile = "banner.png" }},
		Reviewer: &stubHandler{name: "review", execFn: func(i *queue.Item) {
			i.Status = queue.StatusReview
			i.NeedsReview = true
			i.ReviewReason = "banned_word: contains 'guaranteed'"
		}},
	}
	manager, store, _, notifier := newTestManager(t, set)
	item := testsupport.NewRequest(t, store, "SmartWatch X2")

	final := runPipeline(t, manager, store, item, 4)
	if final.Status != queue.StatusReview {
		t.Fatalf("expected review status from handler, got %q", final.Status)
	}
	if len(notifier.reviews) != 1 {
		t.Fatalf("expected review notification, got %v", notifier.reviews)
	}
}

func TestStartRequiresConfiguredStages(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManagerWithNotifier(cfg, store, logging.NewNop(), &recordingNotifier{})
	if err := manager.Start(context.Background()); err == nil {
		manager.Stop()
		t.Fatal("expected error starting manager without stages")
	}
}

func TestStatusReportsStageHealthAndMetrics(t *testing.T) {
	set := StageSet{
		Briefer:    &stubHandler{name: "briefing"},
		Copywriter: &stubHandler{name: "copywriting"},
	}
	manager, store, _, _ := newTestManager(t, set)
	testsupport.NewRequest(t, store, "SmartWatch X2")

	summary := manager.Status(context.Background())
	if summary.Running {
		t.Fatal("manager should not report running before Start")
	}
	if summary.QueueStats[queue.StatusPending] != 1 {
		t.Fatalf("expected one pending item, got %+v", summary.QueueStats)
	}
	if len(summary.StageHealth) != 2 {
		t.Fatalf("expected health for 2 stages, got %+v", summary.StageHealth)
	}
	if !summary.StageHealth["briefing"].Ready {
		t.Fatalf("expected healthy briefing stage, got %+v", summary.StageHealth["briefing"])
	}
}

func TestStartAndStopProcessesQueuedItem(t *testing.T) {
	set := StageSet{
		Briefer:    &stubHandler{name: "briefing", execFn: func(i *queue.Item) { i.BriefJSON = "{}" }},
		Copywriter: &stubHandler{name: "copywriting", execFn: func(i *queue.Item) { i.AdText = "text" }},
		Renderer:   &stubHandler{name: "rendering", execFn: func(i *queue.Item) { i.BannerFile = "banner.png" }},
		Reviewer:   &stubHandler{name: "review"},
	}
	manager, store, _, _ := newTestManager(t, set)
	item := testsupport.NewRequest(t, store, "SmartWatch X2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := manager.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer manager.Stop()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		current := mustReload(t, store, item.ID)
		if current.Status == queue.StatusCompleted {
			return
		}
		if current.Status == queue.StatusFailed {
			t.Fatalf("item failed: %s", current.ErrorMessage)
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("item did not complete before deadline")
}
