package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"easel/internal/api"
	"easel/internal/config"
	"easel/internal/daemon"
	"easel/internal/logging"
	"easel/internal/queue"
	"easel/internal/storage"
	"easel/internal/testsupport"
	"easel/internal/workflow"
)

func startDaemon(t *testing.T, mutate func(*config.Config)) (*daemon.Daemon, *queue.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if mutate != nil {
		mutate(cfg)
	}
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	mgr.ConfigureStages(workflow.StageSet{
		Briefer:    noopStage{},
		Copywriter: noopStage{},
		Renderer:   noopStage{},
		Reviewer:   noopStage{},
	})
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		d.Close()
	})
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	return d, store, cfg
}

func apiURL(d *daemon.Daemon, path string) string {
	return fmt.Sprintf("http://%s%s", d.APIAddr(), path)
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestAPIHealthEndpoint(t *testing.T) {
	d, _, _ := startDaemon(t, nil)

	resp, err := http.Get(apiURL(d, "/api/health"))
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload map[string]string
	decodeJSON(t, resp, &payload)
	if payload["status"] != "ok" || payload["service"] != "easel" {
		t.Fatalf("unexpected health payload: %+v", payload)
	}
}

func TestAPIGenerateAndFetchQueueItem(t *testing.T) {
	d, _, _ := startDaemon(t, nil)

	body, _ := json.Marshal(api.GenerateRequest{
		Product:     "SmartWatch X2",
		ProductType: "smartwatch",
		Style:       "urgent",
	})
	resp, err := http.Post(apiURL(d, "/api/generate"), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/generate: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var generated api.GenerateResponse
	decodeJSON(t, resp, &generated)
	if generated.RequestID == "" || generated.Item == nil {
		t.Fatalf("unexpected generate response: %+v", generated)
	}

	resp, err = http.Get(apiURL(d, "/api/queue/"+generated.RequestID))
	if err != nil {
		t.Fatalf("GET /api/queue/{requestId}: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var fetched api.QueueItemResponse
	decodeJSON(t, resp, &fetched)
	if fetched.Item.Product != "SmartWatch X2" || fetched.Item.Style != "urgent" {
		t.Fatalf("unexpected queue item: %+v", fetched.Item)
	}
}

func TestAPIGenerateRequiresProduct(t *testing.T) {
	d, _, _ := startDaemon(t, nil)

	resp, err := http.Post(apiURL(d, "/api/generate"), "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("POST /api/generate: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestAPIGenerateWaitReturnsCompletedItem(t *testing.T) {
	d, _, _ := startDaemon(t, nil)

	body, _ := json.Marshal(api.GenerateRequest{Product: "Espresso Maker", Wait: true})
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Post(apiURL(d, "/api/generate"), "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/generate: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var generated api.GenerateResponse
	decodeJSON(t, resp, &generated)
	if generated.Status != string(queue.StatusCompleted) {
		t.Fatalf("expected completed status after wait, got %s", generated.Status)
	}
}

func TestAPIStatusReportsWorkflow(t *testing.T) {
	d, _, _ := startDaemon(t, nil)

	resp, err := http.Get(apiURL(d, "/api/status"))
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	decodeJSON(t, resp, &status)
	if !status.Running {
		t.Fatal("expected running daemon in status payload")
	}
	if len(status.Workflow.StageHealth) != 4 {
		t.Fatalf("expected 4 stage health entries, got %d", len(status.Workflow.StageHealth))
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency report")
	}
}

func TestAPIInfoCountsQueue(t *testing.T) {
	d, _, _ := startDaemon(t, nil)

	if _, err := d.Generate(context.Background(), queue.RequestSpec{Product: "SmartWatch X2"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	resp, err := http.Get(apiURL(d, "/api/info"))
	if err != nil {
		t.Fatalf("GET /api/info: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var info api.InfoResponse
	decodeJSON(t, resp, &info)
	if info.Name != "easel" || info.Version == "" {
		t.Fatalf("unexpected info payload: %+v", info)
	}
	if info.QueueSize < 1 {
		t.Fatalf("expected queue size >= 1, got %d", info.QueueSize)
	}
}

func TestAPIBannerDownload(t *testing.T) {
	d, _, cfg := startDaemon(t, nil)

	files, err := storage.NewLocalStore(cfg.Paths.BannersDir)
	if err != nil {
		t.Fatalf("open banner store: %v", err)
	}
	if _, err := files.Save("banner_test.png", []byte("png-bytes")); err != nil {
		t.Fatalf("save banner: %v", err)
	}

	resp, err := http.Get(apiURL(d, "/api/banners/banner_test.png"))
	if err != nil {
		t.Fatalf("GET /api/banners: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("expected image/png, got %s", ct)
	}

	resp, err = http.Get(apiURL(d, "/api/banners/missing.png"))
	if err != nil {
		t.Fatalf("GET missing banner: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAPIRejectsMissingToken(t *testing.T) {
	d, _, _ := startDaemon(t, func(cfg *config.Config) {
		cfg.Paths.APIToken = "secret-token"
	})

	resp, err := http.Get(apiURL(d, "/api/queue"))
	if err != nil {
		t.Fatalf("GET /api/queue: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, apiURL(d, "/api/queue"), nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("authorized GET /api/queue: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}

	// Health stays open for container probes.
	resp, err = http.Get(apiURL(d, "/api/health"))
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected unauthenticated health, got %d", resp.StatusCode)
	}
}
