package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"easel/internal/api"
	"easel/internal/queue"
)

// buildQueueStatusRows orders known statuses by lifecycle position and
// appends any unknown statuses alphabetically.
func buildQueueStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}

	known := make(map[string]bool)
	rows := make([][]string, 0, len(stats))
	for _, status := range queue.AllStatuses() {
		known[string(status)] = true
		count, ok := stats[string(status)]
		if !ok || count == 0 {
			continue
		}
		rows = append(rows, []string{formatStatusLabel(string(status)), strconv.Itoa(count)})
	}

	var extra []string
	for status, count := range stats {
		if known[status] || count == 0 {
			continue
		}
		extra = append(extra, status)
	}
	sort.Strings(extra)
	for _, status := range extra {
		rows = append(rows, []string{formatStatusLabel(status), strconv.Itoa(stats[status])})
	}
	return rows
}

func buildQueueListRows(items []api.QueueItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			truncateCell(item.Product, 40),
			formatStatusLabel(item.Status),
			item.CreatedAt,
			item.RequestID,
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	return strings.ToUpper(status[:1]) + status[1:]
}

func truncateCell(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}

func describeLines(item api.QueueItem) []string {
	lines := []string{
		fmt.Sprintf("ID: %d", item.ID),
		fmt.Sprintf("Request ID: %s", item.RequestID),
		fmt.Sprintf("Product: %s", item.Product),
		fmt.Sprintf("Status: %s", formatStatusLabel(item.Status)),
	}
	if item.Audience != "" {
		lines = append(lines, fmt.Sprintf("Audience: %s", item.Audience))
	}
	if item.Goal != "" {
		lines = append(lines, fmt.Sprintf("Goal: %s", item.Goal))
	}
	if item.Style != "" {
		lines = append(lines, fmt.Sprintf("Style: %s", item.Style))
	}
	if item.Progress.Stage != "" {
		lines = append(lines, fmt.Sprintf("Progress: %s (%.0f%%)", item.Progress.Stage, item.Progress.Percent))
		if item.Progress.Message != "" {
			lines = append(lines, fmt.Sprintf("Progress detail: %s", item.Progress.Message))
		}
	}
	if item.AdText != "" {
		lines = append(lines, fmt.Sprintf("Ad text: %s", item.AdText))
	}
	if item.BannerFile != "" {
		lines = append(lines, fmt.Sprintf("Banner file: %s", item.BannerFile))
	}
	if item.BannerURL != "" {
		lines = append(lines, fmt.Sprintf("Banner URL: %s", item.BannerURL))
	}
	if item.QAStatus != "" {
		lines = append(lines, fmt.Sprintf("QA status: %s", item.QAStatus))
	}
	if item.NeedsReview {
		reason := item.ReviewReason
		if reason == "" {
			reason = "manual review requested"
		}
		lines = append(lines, fmt.Sprintf("Needs review: %s", reason))
	}
	if item.ErrorMessage != "" {
		lines = append(lines, fmt.Sprintf("Error: %s", item.ErrorMessage))
	}
	lines = append(lines, fmt.Sprintf("Created: %s", item.CreatedAt))
	if item.CompletedAt != "" {
		lines = append(lines, fmt.Sprintf("Completed: %s", item.CompletedAt))
	}
	if item.ProcessingSeconds > 0 {
		lines = append(lines, fmt.Sprintf("Processing time: %.1fs", item.ProcessingSeconds))
	}
	return lines
}
