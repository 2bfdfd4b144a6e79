package api

import (
	"testing"
	"time"

	"easel/internal/metrics"
	"easel/internal/queue"
	"easel/internal/stage"
	"easel/internal/workflow"
)

func TestFromQueueItemMapsFields(t *testing.T) {
	created := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	completed := created.Add(95 * time.Second)
	item := &queue.Item{
		ID:              7,
		RequestID:       "req-123",
		Product:         "SmartWatch X2",
		ProductType:     "smartwatch",
		Audience:        "fitness enthusiasts",
		Goal:            "drive preorders",
		Language:        "en",
		Style:           "urgent",
		Status:          queue.StatusCompleted,
		AdText:          "⌚ SmartWatch X2 - order today!",
		BannerFile:      "banner_smartwatch_x2.png",
		BannerURL:       "https://cdn.example.com/banner_smartwatch_x2.png",
		QAStatus:        queue.QAApproved,
		CreatedAt:       created,
		UpdatedAt:       completed,
		CompletedAt:     &completed,
		ProgressStage:   "Reviewing",
		ProgressPercent: 100,
		ProgressMessage: "Banner approved",
	}

	dto := FromQueueItem(item)
	if dto.ID != 7 || dto.RequestID != "req-123" {
		t.Fatalf("unexpected identifiers: %+v", dto)
	}
	if dto.Status != string(queue.StatusCompleted) {
		t.Fatalf("expected completed status, got %s", dto.Status)
	}
	if dto.Progress.Stage != "Reviewing" || dto.Progress.Percent != 100 {
		t.Fatalf("unexpected progress: %+v", dto.Progress)
	}
	if dto.QAStatus != queue.QAApproved {
		t.Fatalf("expected approved QA status, got %s", dto.QAStatus)
	}
	if dto.CreatedAt != "2026-03-14T10:00:00.000Z" {
		t.Fatalf("unexpected created timestamp: %s", dto.CreatedAt)
	}
	if dto.CompletedAt == "" {
		t.Fatalf("expected completed timestamp")
	}
	if dto.ProcessingSeconds != 95 {
		t.Fatalf("expected 95 processing seconds, got %v", dto.ProcessingSeconds)
	}
}

func TestFromQueueItemNilSafe(t *testing.T) {
	dto := FromQueueItem(nil)
	if dto.ID != 0 || dto.Status != "" {
		t.Fatalf("expected zero DTO, got %+v", dto)
	}
	if dto.CompletedAt != "" || dto.ProcessingSeconds != 0 {
		t.Fatalf("expected no completion data, got %+v", dto)
	}
}

func TestFromStatusSummarySortsStageHealth(t *testing.T) {
	last := &queue.Item{ID: 3, Product: "Espresso Maker", Status: queue.StatusRendering}
	summary := workflow.StatusSummary{
		Running:   true,
		LastError: "llm timeout",
		LastItem:  last,
		QueueStats: map[queue.Status]int{
			queue.StatusPending:   2,
			queue.StatusCompleted: 5,
		},
		StageHealth: map[string]stage.Health{
			"rendering": stage.Unhealthy("rendering", "webui unreachable"),
			"briefing":  stage.Healthy("briefing"),
		},
		Metrics: metrics.Summary{TotalRequests: 9, Successful: 8},
	}

	wf := FromStatusSummary(summary)
	if !wf.Running || wf.LastError != "llm timeout" {
		t.Fatalf("unexpected workflow status: %+v", wf)
	}
	if len(wf.StageHealth) != 2 {
		t.Fatalf("expected 2 stage health entries, got %d", len(wf.StageHealth))
	}
	if wf.StageHealth[0].Name != "briefing" || wf.StageHealth[1].Name != "rendering" {
		t.Fatalf("expected sorted stage health, got %+v", wf.StageHealth)
	}
	if wf.StageHealth[1].Ready || wf.StageHealth[1].Detail != "webui unreachable" {
		t.Fatalf("unexpected rendering health: %+v", wf.StageHealth[1])
	}
	if wf.QueueStats["pending"] != 2 || wf.QueueStats["completed"] != 5 {
		t.Fatalf("unexpected queue stats: %+v", wf.QueueStats)
	}
	if wf.Metrics.TotalRequests != 9 {
		t.Fatalf("expected metrics to pass through, got %+v", wf.Metrics)
	}
	if wf.LastItem == nil || wf.LastItem.Product != "Espresso Maker" {
		t.Fatalf("expected last item conversion, got %+v", wf.LastItem)
	}
}

func TestMergeQueueStatsFillsMissingStatuses(t *testing.T) {
	merged := MergeQueueStats(map[queue.Status]int{queue.StatusPending: 4})
	if merged["pending"] != 4 {
		t.Fatalf("expected pending count 4, got %d", merged["pending"])
	}
	if count, ok := merged[string(queue.StatusFailed)]; !ok || count != 0 {
		t.Fatalf("expected zero failed count present, got %d (ok=%v)", count, ok)
	}
	if len(merged) != len(queue.AllStatuses()) {
		t.Fatalf("expected %d statuses, got %d", len(queue.AllStatuses()), len(merged))
	}
}
