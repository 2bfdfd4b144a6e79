package workflow

import (
	"easel/internal/queue"
	"easel/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Briefer    stage.Handler
	Copywriter stage.Handler
	Renderer   stage.Handler
	Reviewer   stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}
