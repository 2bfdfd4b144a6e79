package api

import (
	"context"
	"errors"
	"testing"
	"time"

	"easel/internal/queue"
	"easel/internal/testsupport"
)

type mockQueueReader struct {
	items    []*queue.Item
	stats    map[queue.Status]int
	itemErr  error
	statsErr error
}

func (m *mockQueueReader) List(context.Context, ...queue.Status) ([]*queue.Item, error) {
	return m.items, m.itemErr
}

func (m *mockQueueReader) Stats(context.Context) (map[queue.Status]int, error) {
	return m.stats, m.statsErr
}

func (m *mockQueueReader) GetByID(context.Context, int64) (*queue.Item, error) {
	if len(m.items) == 0 {
		return nil, m.itemErr
	}
	return m.items[0], m.itemErr
}

func (m *mockQueueReader) GetByRequestID(context.Context, string) (*queue.Item, error) {
	if len(m.items) == 0 {
		return nil, m.itemErr
	}
	return m.items[0], m.itemErr
}

func TestQueueService_List(t *testing.T) {
	now := time.Now().UTC()
	reader := &mockQueueReader{
		items: []*queue.Item{{
			ID:        1,
			Product:   "SmartWatch X2",
			Status:    queue.StatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}},
	}
	svc := NewQueueService(reader)
	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected item count: %d", len(got))
	}
	if got[0].Product != "SmartWatch X2" {
		t.Fatalf("unexpected product: %q", got[0].Product)
	}
	if got[0].Status != string(queue.StatusPending) {
		t.Fatalf("unexpected status: %q", got[0].Status)
	}
	if got[0].CreatedAt == "" || got[0].UpdatedAt == "" {
		t.Fatalf("expected timestamps to be formatted")
	}
}

func TestQueueService_ListError(t *testing.T) {
	errSentinel := errors.New("boom")
	svc := NewQueueService(&mockQueueReader{itemErr: errSentinel})
	_, err := svc.List(context.Background())
	if !errors.Is(err, errSentinel) {
		t.Fatalf("expected error %v, got %v", errSentinel, err)
	}
}

func TestQueueService_Stats(t *testing.T) {
	svc := NewQueueService(&mockQueueReader{stats: map[queue.Status]int{
		queue.StatusPending: 2,
		queue.StatusFailed:  1,
	}})
	got, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if got[string(queue.StatusPending)] != 2 {
		t.Fatalf("expected pending count 2, got %d", got[string(queue.StatusPending)])
	}
	if got[string(queue.StatusFailed)] != 1 {
		t.Fatalf("expected failed count 1, got %d", got[string(queue.StatusFailed)])
	}
}

func TestQueueService_Describe(t *testing.T) {
	reader := &mockQueueReader{items: []*queue.Item{{ID: 4, RequestID: "req-4", Product: "Espresso Maker"}}}
	svc := NewQueueService(reader)

	dto, err := svc.Describe(context.Background(), 4)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if dto == nil || dto.ID != 4 {
		t.Fatalf("unexpected describe result: %+v", dto)
	}

	byRequest, err := svc.DescribeRequest(context.Background(), "req-4")
	if err != nil {
		t.Fatalf("DescribeRequest returned error: %v", err)
	}
	if byRequest == nil || byRequest.RequestID != "req-4" {
		t.Fatalf("unexpected describe result: %+v", byRequest)
	}
}

func TestQueueService_DescribeMissing(t *testing.T) {
	svc := NewQueueService(&mockQueueReader{})
	dto, err := svc.Describe(context.Background(), 99)
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if dto != nil {
		t.Fatalf("expected nil DTO for missing item, got %+v", dto)
	}
}

func TestQueueService_NilSafe(t *testing.T) {
	var svc *QueueService
	if items, err := svc.List(context.Background()); err != nil || items != nil {
		t.Fatalf("expected nil list on nil service, got %v/%v", items, err)
	}
	if _, err := svc.Retry(context.Background()); err != nil {
		t.Fatalf("Retry on nil service: %v", err)
	}
	if NewQueueService(nil) != nil {
		t.Fatalf("expected nil service for nil reader")
	}
}

func TestQueueServiceMutationsAgainstStore(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	svc := NewQueueService(store)
	ctx := context.Background()

	failed := testsupport.NewRequest(t, store, "SmartWatch X2")
	failed.SetFailed("render blew up")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("update failed item: %v", err)
	}

	done := testsupport.NewRequest(t, store, "Espresso Maker")
	done.Status = queue.StatusCompleted
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("update completed item: %v", err)
	}

	retried, err := svc.Retry(ctx)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried != 1 {
		t.Fatalf("expected 1 retried item, got %d", retried)
	}
	reloaded, err := store.GetByID(ctx, failed.ID)
	if err != nil {
		t.Fatalf("reload retried item: %v", err)
	}
	if reloaded.Status != queue.StatusPending {
		t.Fatalf("expected retried item pending, got %s", reloaded.Status)
	}

	cleared, err := svc.ClearCompleted(ctx)
	if err != nil {
		t.Fatalf("ClearCompleted: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected 1 cleared item, got %d", cleared)
	}

	removed, err := svc.Remove(ctx, failed.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatalf("expected item to be removed")
	}
}
