package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusBriefing    Status = "briefing"
	StatusBriefed     Status = "briefed"
	StatusCopywriting Status = "copywriting"
	StatusCopywritten Status = "copywritten"
	StatusRendering   Status = "rendering"
	StatusRendered    Status = "rendered"
	StatusReviewing   Status = "reviewing"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusReview      Status = "review"
)

// QA verdicts persisted on completed or parked items.
const (
	QAApproved = "APPROVED"
	QARejected = "REJECTED"
)

// UserStopReason is the review reason set when a user explicitly stops an item.
const UserStopReason = "Stop requested by user"

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusBriefing,
	StatusBriefed,
	StatusCopywriting,
	StatusCopywritten,
	StatusRendering,
	StatusRendered,
	StatusReviewing,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusBriefing:    {},
	StatusCopywriting: {},
	StatusRendering:   {},
	StatusReviewing:   {},
}

type statusTransition struct {
	from Status
	to   Status
}

var stageRollbackTransitions = []statusTransition{
	{from: StatusBriefing, to: StatusPending},
	{from: StatusCopywriting, to: StatusBriefed},
	{from: StatusRendering, to: StatusCopywritten},
	{from: StatusReviewing, to: StatusRendered},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// RequestSpec describes a new banner generation request.
type RequestSpec struct {
	Product     string
	ProductType string
	Audience    string
	Goal        string
	Language    string
	Style       string
}

// Item represents a banner generation request persisted in SQLite.
type Item struct {
	ID              int64
	RequestID       string
	Product         string
	ProductType     string
	Audience        string
	Goal            string
	Language        string
	Style           string
	Status          Status
	BriefJSON       string
	AdText          string
	VariantsJSON    string
	ImageFile       string
	BannerFile      string
	BannerURL       string
	QAStatus        string
	QAReportJSON    string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	NeedsReview     bool
	ReviewReason    string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsTerminal reports whether the status ends the workflow for an item.
func IsTerminal(status Status) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusReview:
		return true
	default:
		return false
	}
}

// IsUserStopReason reports whether a review reason represents a user-initiated stop.
func IsUserStopReason(reason string) bool {
	return strings.EqualFold(strings.TrimSpace(reason), UserStopReason)
}

// ProcessingTime returns the wall-clock duration from creation to completion,
// or zero when the item has not reached a terminal status yet.
func (i Item) ProcessingTime() time.Duration {
	if i.CompletedAt == nil {
		return 0
	}
	d := i.CompletedAt.Sub(i.CreatedAt)
	if d < 0 {
		return 0
	}
	return d
}

// InitProgress resets progress fields for a new stage.
// If ProgressStage is currently empty, it is set to the provided stage value;
// otherwise the existing stage is preserved (to support resume scenarios).
func (i *Item) InitProgress(stage, message string) {
	if i.ProgressStage == "" {
		i.ProgressStage = stage
	}
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the item as failed with the given error message.
// Clears heartbeat and sets progress fields appropriately.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// IsInWorkflow returns true when an item is actively progressing (or queued to
// progress) through stages.
func (i Item) IsInWorkflow() bool {
	if i.IsProcessing() {
		return true
	}
	switch i.Status {
	case StatusPending, StatusBriefed, StatusCopywritten, StatusRendered:
		return true
	default:
		return false
	}
}
