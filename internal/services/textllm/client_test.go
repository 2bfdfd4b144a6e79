package textllm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewEncoder(w).Encode(chatResponse(`{"ok":true}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(chatResponse("```json\n{\"ok\":true}\n```")); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestGenerateAdCopySendsStyleAndTruncates(t *testing.T) {
	long := strings.Repeat("Buy this watch now! ", 20)
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if err := json.NewEncoder(w).Encode(chatResponse(long)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", Temperature: 0.7})
	text, err := client.GenerateAdCopy(context.Background(), "SmartWatch X2, two week battery", "urgent", 160)
	if err != nil {
		t.Fatalf("GenerateAdCopy returned error: %v", err)
	}
	if len([]rune(text)) != 160 || !strings.HasSuffix(text, "...") {
		t.Fatalf("expected 160-character capped text, got %d: %q", len([]rune(text)), text)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(captured.Messages))
	}
	if !strings.Contains(captured.Messages[1].Content, "deadline and scarcity") {
		t.Fatalf("expected urgent style instruction in prompt: %q", captured.Messages[1].Content)
	}
	if !strings.Contains(captured.Messages[1].Content, "160 characters") {
		t.Fatalf("expected length requirement in prompt: %q", captured.Messages[1].Content)
	}
	if captured.Temperature != 0.7 {
		t.Fatalf("expected configured temperature, got %v", captured.Temperature)
	}
}

func TestGenerateAdCopyShortTextUnchanged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(chatResponse(`"🚀 Track every run. Start free!"`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	text, err := client.GenerateAdCopy(context.Background(), "running tracker app", "clear", 160)
	if err != nil {
		t.Fatalf("GenerateAdCopy returned error: %v", err)
	}
	if text != "🚀 Track every run. Start free!" {
		t.Fatalf("expected quotes stripped and text unchanged, got %q", text)
	}
}

func TestGenerateAdCopyRequiresInput(t *testing.T) {
	client := NewClient(Config{APIKey: "test", Model: "demo"})
	if _, err := client.GenerateAdCopy(context.Background(), "", "clear", 160); err == nil {
		t.Fatal("expected error for missing product info")
	}
	if _, err := client.GenerateAdCopy(context.Background(), "product", "clear", 0); err == nil {
		t.Fatal("expected error for missing max length")
	}
}

func TestGenerateVariantsSkipsFailingStyles(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 2 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := json.NewEncoder(w).Encode(chatResponse("Great product, try it today!")); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"}, WithRetryMaxAttempts(1))
	variants, err := client.GenerateVariants(context.Background(), "SmartWatch X2", 3, 160)
	if err != nil {
		t.Fatalf("GenerateVariants returned error: %v", err)
	}
	if len(variants) != 2 {
		t.Fatalf("expected 2 variants after one failure, got %d", len(variants))
	}
	if _, ok := variants["creative"]; ok {
		t.Fatal("expected failing creative style to be skipped")
	}
}

func TestGenerateVariantsAllStylesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"}, WithRetryMaxAttempts(1))
	if _, err := client.GenerateVariants(context.Background(), "SmartWatch X2", 2, 160); err == nil {
		t.Fatal("expected error when every style fails")
	}
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		if err := json.NewEncoder(w).Encode(chatResponse("ok text")); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryMaxAttempts(2),
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }),
	)
	text, err := client.Complete(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "ok text" {
		t.Fatalf("unexpected content: %q", text)
	}
	if len(sleeps) != 1 || sleeps[0] != time.Second {
		t.Fatalf("expected Retry-After honoured, got %v", sleeps)
	}
}

func TestDecodeModelJSONSanitizes(t *testing.T) {
	var parsed struct {
		Text string `json:"text"`
	}
	payload := "Here is the result:\n```json\n{\"text\":\"hello\"}\n```"
	if err := DecodeModelJSON(payload, &parsed); err != nil {
		t.Fatalf("DecodeModelJSON returned error: %v", err)
	}
	if parsed.Text != "hello" {
		t.Fatalf("unexpected decoded text: %q", parsed.Text)
	}
	if err := DecodeModelJSON("", &parsed); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestIsKnownStyle(t *testing.T) {
	if !IsKnownStyle("Professional") {
		t.Fatal("expected professional to be known")
	}
	if IsKnownStyle("sarcastic") {
		t.Fatal("expected sarcastic to be unknown")
	}
}
