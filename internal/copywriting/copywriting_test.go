package copywriting_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"easel/internal/adspec"
	"easel/internal/copywriting"
	"easel/internal/logging"
	"easel/internal/queue"
	"easel/internal/services/textllm"
	"easel/internal/testsupport"
)

func encodeBrief(t *testing.T, brief adspec.Brief) string {
	t.Helper()
	encoded, err := brief.Encode()
	if err != nil {
		t.Fatalf("encode brief: %v", err)
	}
	return encoded
}

func chatHandler(t *testing.T, calls *atomic.Int64, respond func(call int64, prompt string) (string, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		call := calls.Add(1)
		var payload struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode chat request: %v", err)
		}
		prompt := ""
		if len(payload.Messages) > 0 {
			prompt = payload.Messages[len(payload.Messages)-1].Content
		}
		content, status := respond(call, prompt)
		if status != http.StatusOK {
			http.Error(w, "failure", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		body, err := json.Marshal(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
		if err != nil {
			t.Errorf("encode chat response: %v", err)
		}
		w.Write(body)
	}
}

func newCopywriter(t *testing.T, serverURL string) (*copywriting.Copywriter, *queue.Store, *queue.Item) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithLLM(serverURL, "test-key"))
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewRequest(t, store, "SmartWatch X2")
	client := textllm.NewClient(textllm.Config{APIKey: "test-key", BaseURL: serverURL})
	return copywriting.NewCopywriterWithDependencies(cfg, store, logging.NewNop(), client), store, item
}

func TestExecutePinnedStyleGeneratesSingleVariant(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(chatHandler(t, &calls, func(call int64, prompt string) (string, int) {
		if !strings.Contains(prompt, "deadline and scarcity") {
			t.Errorf("expected urgent style instruction in prompt, got %q", prompt)
		}
		return "⏰ Last day! SmartWatch X2 at 30% off. Order now!", http.StatusOK
	}))
	defer server.Close()

	writer, _, item := newCopywriter(t, server.URL)
	item.Style = "urgent"
	item.BriefJSON = encodeBrief(t, adspec.Brief{
		Product:    "SmartWatch X2",
		TextPrompt: "Write an ad banner text for the SmartWatch X2.",
	})

	ctx := context.Background()
	if err := writer.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := writer.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 completion call, got %d", calls.Load())
	}
	if item.AdText != "⏰ Last day! SmartWatch X2 at 30% off. Order now!" {
		t.Fatalf("unexpected ad text %q", item.AdText)
	}

	variants, err := adspec.ParseVariants(item.VariantsJSON)
	if err != nil {
		t.Fatalf("ParseVariants: %v", err)
	}
	if len(variants) != 1 || variants[0].Style != "urgent" || !variants[0].Selected {
		t.Fatalf("unexpected variants %+v", variants)
	}
}

func TestExecuteWithoutStyleCollectsVariants(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(chatHandler(t, &calls, func(call int64, prompt string) (string, int) {
		return fmt.Sprintf("Banner variant %d for SmartWatch X2", call), http.StatusOK
	}))
	defer server.Close()

	writer, _, item := newCopywriter(t, server.URL)
	item.Style = ""
	item.BriefJSON = encodeBrief(t, adspec.Brief{
		Product:    "SmartWatch X2",
		TextPrompt: "Write an ad banner text for the SmartWatch X2.",
	})

	if err := writer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 completion calls, got %d", calls.Load())
	}

	variants, err := adspec.ParseVariants(item.VariantsJSON)
	if err != nil {
		t.Fatalf("ParseVariants: %v", err)
	}
	if len(variants) != 3 {
		t.Fatalf("expected 3 variants, got %d", len(variants))
	}
	if variants[0].Style != "professional" || !variants[0].Selected {
		t.Fatalf("expected professional variant selected first, got %+v", variants[0])
	}
	if item.AdText != variants[0].Text {
		t.Fatalf("ad text %q does not match selected variant %q", item.AdText, variants[0].Text)
	}
}

func TestExecuteRequiresBrief(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no completion call expected without a brief")
	}))
	defer server.Close()

	writer, _, item := newCopywriter(t, server.URL)
	item.BriefJSON = ""
	if err := writer.Execute(context.Background(), item); err == nil {
		t.Fatal("expected error for missing brief")
	}
}

func TestExecuteWrapsGenerationFailure(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(chatHandler(t, &calls, func(call int64, prompt string) (string, int) {
		return "", http.StatusBadRequest
	}))
	defer server.Close()

	writer, _, item := newCopywriter(t, server.URL)
	item.Style = "professional"
	item.BriefJSON = encodeBrief(t, adspec.Brief{
		Product:    "SmartWatch X2",
		TextPrompt: "Write an ad banner text for the SmartWatch X2.",
	})
	if err := writer.Execute(context.Background(), item); err == nil {
		t.Fatal("expected error when every completion fails")
	}
}

func TestHealthCheckRequiresAPIKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	writer := copywriting.NewCopywriter(cfg, store, logging.NewNop())
	if health := writer.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy stage without llm api key")
	}

	cfg.LLM.APIKey = "test-key"
	writer = copywriting.NewCopywriter(cfg, store, logging.NewNop())
	if health := writer.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy stage, got %+v", health)
	}
}
