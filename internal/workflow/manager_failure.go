package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"easel/internal/logging"
	"easel/internal/queue"
	"easel/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := logging.WithContext(ctx, base).With(logging.String("component", "workflow-manager"))

	message := failureMessage(stageName, stageErr)
	resolved := services.FailureStatus(stageErr)
	if resolved == queue.StatusReview {
		item.Status = queue.StatusReview
		item.NeedsReview = true
		if strings.TrimSpace(item.ReviewReason) == "" {
			item.ReviewReason = message
		}
		item.ErrorMessage = message
		item.ProgressStage = "Manual review"
		item.ProgressMessage = message
		item.LastHeartbeat = nil
	} else {
		item.SetFailed(message)
	}
	if item.CompletedAt == nil {
		now := time.Now().UTC()
		item.CompletedAt = &now
	}

	logger.Error(
		"stage failed",
		logging.String("stage", stageName),
		logging.String("resolved_status", string(item.Status)),
		logging.String("error_message", message),
		logging.Error(stageErr),
	)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastItem(item)
	m.notifyStageError(ctx, stageName, item, stageErr)
	m.checkQueueCompletion(ctx)
}

func failureMessage(stageName string, stageErr error) string {
	if stageErr == nil {
		if stageName != "" {
			return stageName + " failed without error detail"
		}
		return "workflow failed without error detail"
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = stageName + " failed"
	}
	return message
}
