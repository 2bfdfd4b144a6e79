package api

import (
	"context"

	"easel/internal/queue"
)

// QueueReader abstracts queue persistence interactions needed for API queries.
type QueueReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
	GetByRequestID(ctx context.Context, requestID string) (*queue.Item, error)
}

// QueueMutator abstracts the queue maintenance operations the API exposes.
type QueueMutator interface {
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
	Remove(ctx context.Context, id int64) (bool, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
}

// QueueService exposes queue operations returning API DTOs.
type QueueService struct {
	store   QueueReader
	mutator QueueMutator
}

// NewQueueService constructs a read-only QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	svc := &QueueService{store: store}
	if mutator, ok := store.(QueueMutator); ok {
		svc.mutator = mutator
	}
	return svc
}

// List returns queue items filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromQueueItems(items), nil
}

// Stats returns queue summary counts keyed by status string.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe fetches a single queue item by database ID.
func (s *QueueService) Describe(ctx context.Context, id int64) (*QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromQueueItem(item)
	return &dto, nil
}

// DescribeRequest fetches a single queue item by its request identifier.
func (s *QueueService) DescribeRequest(ctx context.Context, requestID string) (*QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.GetByRequestID(ctx, requestID)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromQueueItem(item)
	return &dto, nil
}

// Retry re-queues failed items. With no IDs every failed item is retried.
func (s *QueueService) Retry(ctx context.Context, ids ...int64) (int64, error) {
	if s == nil || s.mutator == nil {
		return 0, nil
	}
	return s.mutator.RetryFailed(ctx, ids...)
}

// Remove deletes a queue item.
func (s *QueueService) Remove(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.mutator == nil {
		return false, nil
	}
	return s.mutator.Remove(ctx, id)
}

// ClearCompleted removes completed items from the queue.
func (s *QueueService) ClearCompleted(ctx context.Context) (int64, error) {
	if s == nil || s.mutator == nil {
		return 0, nil
	}
	return s.mutator.ClearCompleted(ctx)
}

// ClearFailed removes failed items from the queue.
func (s *QueueService) ClearFailed(ctx context.Context) (int64, error) {
	if s == nil || s.mutator == nil {
		return 0, nil
	}
	return s.mutator.ClearFailed(ctx)
}
