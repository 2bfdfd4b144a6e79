package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"easel/internal/logging"
	"easel/internal/queue"
	"easel/internal/services"
)

func (m *Manager) processItem(ctx context.Context, logger *slog.Logger, item *queue.Item) error {
	stg, ok := m.stageForStatus(item.Status)
	if !ok {
		logger.Warn("no stage configured for status", logging.String("status", string(item.Status)))
		m.waitForItemOrShutdown(ctx)
		return nil
	}

	traceID := uuid.NewString()
	stageCtx := withStageContext(ctx, stg.name, item, traceID)
	stageLogger := logging.WithContext(stageCtx, logger)

	if err := m.transitionToProcessing(stageCtx, stg.processingStatus, item); err != nil {
		stageLogger.Error("failed to transition item to processing", logging.Error(err))
		m.setLastError(err)
		return err
	}

	return m.executeStage(stageCtx, stageLogger, stg, item)
}

func (m *Manager) executeStage(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, item *queue.Item) error {
	stageStart := time.Now()
	stageLogger.Info(
		"stage started",
		logging.String("processing_status", string(stg.processingStatus)),
		logging.String("product", strings.TrimSpace(item.Product)),
	)

	handler := stg.handler
	if handler == nil {
		stageLogger.Warn("missing stage handler", logging.String("stage", stg.name))
		item.SetFailed(fmt.Sprintf("stage %s missing handler", stg.name))
		if err := m.store.Update(ctx, item); err != nil {
			stageLogger.Error("failed to persist missing handler failure", logging.Error(err))
		}
		err := errors.New("stage handler unavailable")
		m.setLastError(err)
		return err
	}

	if err := handler.Prepare(ctx, item); err != nil {
		m.collector.RecordStage(stg.name, time.Since(stageStart), false)
		m.handleStageFailure(ctx, stg.name, item, err)
		m.setLastError(err)
		return err
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage preparation: %w", err)
		stageLogger.Error("failed to persist stage preparation", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}

	execErr := m.executeWithHeartbeat(ctx, stageLogger, stg, item)
	if execErr != nil {
		if errors.Is(execErr, context.Canceled) {
			stageLogger.Debug("stage interrupted by shutdown")
			return execErr
		}
		m.collector.RecordStage(stg.name, time.Since(stageStart), false)
		m.handleStageFailure(ctx, stg.name, item, execErr)
		m.setLastError(execErr)
		return execErr
	}
	m.collector.RecordStage(stg.name, time.Since(stageStart), true)

	if item.Status == stg.processingStatus || item.Status == "" {
		item.Status = stg.doneStatus
	}
	item.LastHeartbeat = nil
	if queue.IsTerminal(item.Status) && item.CompletedAt == nil {
		now := time.Now().UTC()
		item.CompletedAt = &now
	}
	if item.Status == queue.StatusCompleted {
		if item.ProgressPercent < 100 {
			item.ProgressPercent = 100
		}
		if strings.TrimSpace(item.ProgressMessage) == "" {
			item.ProgressMessage = deriveStageLabel(queue.StatusCompleted)
		}
	}
	if err := m.store.Update(ctx, item); err != nil {
		wrapped := fmt.Errorf("persist stage result: %w", err)
		stageLogger.Error("failed to persist stage result", logging.Error(wrapped))
		m.setLastError(wrapped)
		return wrapped
	}
	stageLogger.Info(
		"stage completed",
		logging.String("next_status", string(item.Status)),
		logging.String("progress_message", strings.TrimSpace(item.ProgressMessage)),
		logging.Duration("stage_duration", time.Since(stageStart)),
	)
	m.setLastItem(item)
	m.notifyItemOutcome(ctx, item)
	m.checkQueueCompletion(ctx)
	return nil
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, item *queue.Item) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &hbWG, item.ID)

	execErr := m.executeWithRetry(ctx, stageLogger, stg, item)
	hbCancel()
	hbWG.Wait()
	return execErr
}

// executeWithRetry applies the configured agents policy: every attempt runs
// under the stage deadline, and retryable failures are re-attempted after the
// configured delay until the attempt budget is exhausted.
func (m *Manager) executeWithRetry(ctx context.Context, stageLogger *slog.Logger, stg pipelineStage, item *queue.Item) error {
	attempts := 1
	var delay time.Duration
	if m.cfg != nil {
		if m.cfg.Agents.RetryAttempts > 0 {
			attempts = m.cfg.Agents.RetryAttempts
		}
		delay = m.cfg.Agents.RetryDelay()
	}

	var execErr error
	for attempt := 1; ; attempt++ {
		execErr = m.executeAttempt(ctx, stg, item)
		if execErr == nil {
			return nil
		}
		if errors.Is(execErr, context.Canceled) || attempt >= attempts || !services.Retryable(execErr) {
			return execErr
		}
		stageLogger.Warn(
			"stage attempt failed, retrying",
			logging.String("stage", stg.name),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", attempts),
			logging.Duration("retry_delay", delay),
			logging.Error(execErr),
		)
		select {
		case <-ctx.Done():
			return execErr
		case <-time.After(delay):
		}
	}
}

func (m *Manager) executeAttempt(ctx context.Context, stg pipelineStage, item *queue.Item) error {
	execCtx := ctx
	var timeout time.Duration
	if m.cfg != nil {
		timeout = m.cfg.Agents.StageTimeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	err := stg.handler.Execute(execCtx, item)
	if err != nil && ctx.Err() == nil && errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stg.name, "execute",
			fmt.Sprintf("stage exceeded %s deadline", timeout), err)
	}
	return err
}

func (m *Manager) transitionToProcessing(ctx context.Context, processing queue.Status, item *queue.Item) error {
	if processing == "" {
		return errors.New("processing status must not be empty")
	}

	now := time.Now().UTC()
	item.Status = processing
	if item.ProgressStage == "" {
		item.ProgressStage = deriveStageLabel(processing)
	}
	if item.ProgressMessage == "" {
		item.ProgressMessage = fmt.Sprintf("%s started", deriveStageLabel(processing))
	}
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	item.LastHeartbeat = &now

	if err := m.store.Update(ctx, item); err != nil {
		return fmt.Errorf("persist processing transition: %w", err)
	}
	m.setLastItem(item)
	m.onItemStarted(ctx, item)
	return nil
}

func withStageContext(ctx context.Context, stageName string, item *queue.Item, traceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if item != nil {
		ctx = services.WithItemID(ctx, item.ID)
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if traceID != "" {
		ctx = services.WithRequestID(ctx, traceID)
	}
	return ctx
}

func deriveStageLabel(status queue.Status) string {
	if status == "" {
		return ""
	}
	parts := strings.Fields(strings.ReplaceAll(string(status), "_", " "))
	for i, part := range parts {
		if part == "" {
			continue
		}
		runes := []rune(strings.ToLower(part))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}
