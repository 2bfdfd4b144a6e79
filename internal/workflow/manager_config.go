package workflow

import "easel/internal/queue"

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	stages := make([]pipelineStage, 0, 4)
	if set.Briefer != nil {
		stages = append(stages, pipelineStage{
			name:             "briefing",
			handler:          set.Briefer,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusBriefing,
			doneStatus:       queue.StatusBriefed,
		})
	}
	if set.Copywriter != nil {
		stages = append(stages, pipelineStage{
			name:             "copywriting",
			handler:          set.Copywriter,
			startStatus:      queue.StatusBriefed,
			processingStatus: queue.StatusCopywriting,
			doneStatus:       queue.StatusCopywritten,
		})
	}
	if set.Renderer != nil {
		stages = append(stages, pipelineStage{
			name:             "rendering",
			handler:          set.Renderer,
			startStatus:      queue.StatusCopywritten,
			processingStatus: queue.StatusRendering,
			doneStatus:       queue.StatusRendered,
		})
	}
	if set.Reviewer != nil {
		stages = append(stages, pipelineStage{
			name:             "review",
			handler:          set.Reviewer,
			startStatus:      queue.StatusRendered,
			processingStatus: queue.StatusReviewing,
			doneStatus:       queue.StatusCompleted,
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = stages
	m.stageByStart = make(map[queue.Status]pipelineStage, len(stages))
	m.statusOrder = m.statusOrder[:0]
	m.processing = m.processing[:0]
	for _, stg := range stages {
		m.stageByStart[stg.startStatus] = stg
		m.statusOrder = append(m.statusOrder, stg.startStatus)
		m.processing = append(m.processing, stg.processingStatus)
	}
}

// StageCount returns the number of configured pipeline stages.
func (m *Manager) StageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stages)
}

func (m *Manager) stageForStatus(status queue.Status) (pipelineStage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stg, ok := m.stageByStart[status]
	return stg, ok
}
