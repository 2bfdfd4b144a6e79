package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"easel/internal/queue"
	"easel/internal/testsupport"
)

func TestGenerateQueuesItem(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, stderr, err := runCLI(t, []string{"generate", "DevTool Pro", "--audience", "developers", "--goal", "signups"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("generate failed: %v (stderr: %s)", err, stderr)
	}
	requireContains(t, stdout, "Queued banner request")

	items, err := env.store.List(context.Background())
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 queued item, got %d", len(items))
	}
	if items[0].Product != "DevTool Pro" {
		t.Fatalf("unexpected product %q", items[0].Product)
	}
	if items[0].Audience != "developers" {
		t.Fatalf("unexpected audience %q", items[0].Audience)
	}
}

func TestGenerateRequiresProduct(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"generate", "   "}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for blank product")
	}
}

func TestQueueStatusAndList(t *testing.T) {
	env := setupCLITestEnv(t)

	stdout, _, err := runCLI(t, []string{"queue", "status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, stdout, "Queue is empty")

	testsupport.NewRequest(t, env.store, "Banner Product")

	stdout, _, err = runCLI(t, []string{"queue", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, stdout, "Banner Product")
	requireContains(t, stdout, "Pending")
}

func TestQueueDescribeShowsItem(t *testing.T) {
	env := setupCLITestEnv(t)
	item := testsupport.NewRequest(t, env.store, "Course Launch")

	stdout, _, err := runCLI(t, []string{"queue", "describe", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue describe: %v", err)
	}
	requireContains(t, stdout, "Course Launch")
	requireContains(t, stdout, item.RequestID)
}

func TestQueueRetryAndClear(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	failed := testsupport.NewRequest(t, env.store, "Failed Product")
	failed.Status = queue.StatusFailed
	failed.ErrorMessage = "render error"
	if err := env.store.Update(ctx, failed); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"queue", "retry"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue retry: %v", err)
	}
	requireContains(t, stdout, "Retried 1 failed items")

	waitFor(t, time.Second, func() bool {
		refreshed, getErr := env.store.GetByID(ctx, failed.ID)
		return getErr == nil && refreshed != nil && refreshed.Status == queue.StatusPending
	})

	stdout, _, err = runCLI(t, []string{"queue", "clear"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, stdout, "Cleared 1 queue items")
}

func TestQueueFallsBackToStoreWhenDaemonDown(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewRequest(t, env.store, "Offline Product")

	missingSocket := filepath.Join(t.TempDir(), "missing.sock")
	stdout, _, err := runCLI(t, []string{"queue", "list"}, missingSocket, env.configPath)
	if err != nil {
		t.Fatalf("queue list without daemon: %v", err)
	}
	requireContains(t, stdout, "Offline Product")
}

func TestLogCommandPrintsLines(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := filepath.Join(env.cfg.Paths.LogDir, "easel.log")
	content := "line one\nline two\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	stdout, _, err := runCLI(t, []string{"log", "--lines", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	requireContains(t, stdout, "line two")
	if strings.Contains(stdout, "line one") {
		t.Fatalf("expected only the last line, got %q", stdout)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	stdout, _, err := runCLI(t, []string{"config", "init"}, filepath.Join(home, "no.sock"), "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, stdout, "Wrote sample configuration")

	target := filepath.Join(home, ".config", "easel", "config.yaml")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, _, err := runCLI(t, []string{"config", "init"}, filepath.Join(home, "no.sock"), ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestQueueStatusRowsOrdering(t *testing.T) {
	rows := buildQueueStatusRows(map[string]int{
		"completed": 2,
		"pending":   1,
		"weird":     3,
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Pending" {
		t.Fatalf("expected pending first, got %q", rows[0][0])
	}
	if rows[1][0] != "Completed" {
		t.Fatalf("expected completed second, got %q", rows[1][0])
	}
	if rows[2][0] != "Weird" {
		t.Fatalf("expected unknown status last, got %q", rows[2][0])
	}
}
