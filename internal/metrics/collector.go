// Package metrics aggregates pipeline counters for the info and health APIs.
//
// The Collector is safe for concurrent use: stage handlers record outcomes
// from the workflow goroutine while HTTP handlers snapshot them. Counters are
// process-local and reset when the daemon restarts.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector accumulates per-stage outcome counters and timings.
type Collector struct {
	mu sync.Mutex

	totalRequests int64
	successful    int64
	totalDuration time.Duration
	stageCounts   map[string]int64
	stageFailures map[string]int64
}

// NewCollector constructs an empty collector.
func NewCollector() *Collector {
	return &Collector{
		stageCounts:   make(map[string]int64),
		stageFailures: make(map[string]int64),
	}
}

// RecordStage logs one stage execution. Negative durations count as zero.
func (c *Collector) RecordStage(stage string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	if duration < 0 {
		duration = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	if success {
		c.successful++
	} else {
		c.stageFailures[stage]++
	}
	c.totalDuration += duration
	c.stageCounts[stage]++
}

// StageCount describes how often a stage ran and how often it failed.
type StageCount struct {
	Stage    string `json:"stage"`
	Runs     int64  `json:"runs"`
	Failures int64  `json:"failures,omitempty"`
}

// Summary is a point-in-time snapshot of the collector.
type Summary struct {
	TotalRequests     int64        `json:"total_requests"`
	Successful        int64        `json:"successful"`
	SuccessRate       float64      `json:"success_rate"`
	AvgSeconds        float64      `json:"avg_response_seconds"`
	TotalSeconds      float64      `json:"total_response_seconds"`
	StageDistribution []StageCount `json:"stage_distribution,omitempty"`
}

// Snapshot returns the current counters. Stages are sorted by name so the
// output is stable for the API and for logs.
func (c *Collector) Snapshot() Summary {
	if c == nil {
		return Summary{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	summary := Summary{
		TotalRequests: c.totalRequests,
		Successful:    c.successful,
		TotalSeconds:  c.totalDuration.Seconds(),
	}
	if c.totalRequests > 0 {
		summary.AvgSeconds = c.totalDuration.Seconds() / float64(c.totalRequests)
		summary.SuccessRate = float64(c.successful) / float64(c.totalRequests) * 100
	}
	stages := make([]string, 0, len(c.stageCounts))
	for stage := range c.stageCounts {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		summary.StageDistribution = append(summary.StageDistribution, StageCount{
			Stage:    stage,
			Runs:     c.stageCounts[stage],
			Failures: c.stageFailures[stage],
		})
	}
	return summary
}

// Reset clears all counters.
func (c *Collector) Reset() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests = 0
	c.successful = 0
	c.totalDuration = 0
	c.stageCounts = make(map[string]int64)
	c.stageFailures = make(map[string]int64)
}
