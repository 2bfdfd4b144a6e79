package api

import "easel/internal/metrics"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a banner request in a transport-friendly format.
type QueueItem struct {
	ID                int64         `json:"id"`
	RequestID         string        `json:"requestId"`
	Product           string        `json:"product"`
	ProductType       string        `json:"productType,omitempty"`
	Audience          string        `json:"audience,omitempty"`
	Goal              string        `json:"goal,omitempty"`
	Language          string        `json:"language,omitempty"`
	Style             string        `json:"style,omitempty"`
	Status            string        `json:"status"`
	Progress          QueueProgress `json:"progress"`
	AdText            string        `json:"adText,omitempty"`
	BannerFile        string        `json:"bannerFile,omitempty"`
	BannerURL         string        `json:"bannerUrl,omitempty"`
	QAStatus          string        `json:"qaStatus,omitempty"`
	ErrorMessage      string        `json:"errorMessage,omitempty"`
	NeedsReview       bool          `json:"needsReview"`
	ReviewReason      string        `json:"reviewReason,omitempty"`
	CreatedAt         string        `json:"createdAt,omitempty"`
	UpdatedAt         string        `json:"updatedAt,omitempty"`
	CompletedAt       string        `json:"completedAt,omitempty"`
	ProcessingSeconds float64       `json:"processingSeconds,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool            `json:"running"`
	QueueStats  map[string]int  `json:"queueStats"`
	LastError   string          `json:"lastError,omitempty"`
	LastItem    *QueueItem      `json:"lastItem,omitempty"`
	StageHealth []StageHealth   `json:"stageHealth"`
	Metrics     metrics.Summary `json:"metrics"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external dependency.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// StatusLine is a labeled severity/detail pair for status output.
type StatusLine struct {
	Label    string `json:"label"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// DependencySummary aggregates dependency readiness counts.
type DependencySummary struct {
	Total           int    `json:"total"`
	Available       int    `json:"available"`
	MissingRequired int    `json:"missingRequired"`
	MissingOptional int    `json:"missingOptional"`
	Severity        string `json:"severity"`
	Detail          string `json:"detail"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// GenerateRequest is the POST /api/generate payload.
type GenerateRequest struct {
	Product     string `json:"product"`
	ProductType string `json:"product_type,omitempty"`
	Audience    string `json:"audience,omitempty"`
	Goal        string `json:"goal,omitempty"`
	Language    string `json:"language,omitempty"`
	Style       string `json:"style,omitempty"`
	Wait        bool   `json:"wait,omitempty"`
}

// GenerateResponse acknowledges an accepted banner request.
type GenerateResponse struct {
	RequestID string     `json:"request_id"`
	Status    string     `json:"status"`
	Item      *QueueItem `json:"item,omitempty"`
}

// InfoResponse is the GET /api/info payload.
type InfoResponse struct {
	Name      string          `json:"name"`
	Version   string          `json:"version"`
	QueueSize int             `json:"queue_size"`
	Stats     metrics.Summary `json:"stats"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}
