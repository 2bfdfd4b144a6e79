package sdwebui

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var testImage = []byte("\x89PNG fake image bytes")

func imageJSON() string {
	encoded := base64.StdEncoding.EncodeToString(testImage)
	return fmt.Sprintf(`{"images":[%q],"parameters":{"seed":-1}}`, encoded)
}

func TestTxt2ImgSendsConfiguredPayload(t *testing.T) {
	var captured txt2imgRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/txt2img" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		fmt.Fprint(w, imageJSON())
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:        server.URL,
		Steps:          25,
		CFGScale:       7.5,
		Sampler:        "Euler a",
		NegativePrompt: "blurry, low quality",
		TimeoutSeconds: 5,
	})

	image, err := client.Txt2Img(context.Background(), GenerateParams{
		Prompt: "product photo of a smartwatch",
		Width:  640,
		Height: 360,
	})
	if err != nil {
		t.Fatalf("Txt2Img failed: %v", err)
	}
	if string(image) != string(testImage) {
		t.Fatalf("unexpected decoded image: %q", image)
	}
	if captured.Prompt != "product photo of a smartwatch" {
		t.Fatalf("unexpected prompt: %q", captured.Prompt)
	}
	if captured.NegativePrompt != "blurry, low quality" {
		t.Fatalf("expected configured negative prompt, got %q", captured.NegativePrompt)
	}
	if captured.Steps != 25 || captured.Width != 640 || captured.Height != 360 {
		t.Fatalf("unexpected geometry: %+v", captured)
	}
	if captured.CFGScale != 7.5 || captured.SamplerName != "Euler a" || captured.BatchSize != 1 {
		t.Fatalf("unexpected sampler settings: %+v", captured)
	}
}

func TestTxt2ImgRequiresPrompt(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:7860"})
	if _, err := client.Txt2Img(context.Background(), GenerateParams{Width: 640, Height: 360}); err == nil {
		t.Fatal("expected error when prompt missing")
	}
	if _, err := client.Txt2Img(context.Background(), GenerateParams{Prompt: "x"}); err == nil {
		t.Fatal("expected error when geometry missing")
	}
}

func TestUpscaleSendsUpscalerSettings(t *testing.T) {
	var captured upscaleRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/extra-single-image" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		fmt.Fprintf(w, `{"image":%q}`, base64.StdEncoding.EncodeToString(testImage))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Upscaler: "ESRGAN_4x"})
	image, err := client.Upscale(context.Background(), testImage, 3)
	if err != nil {
		t.Fatalf("Upscale failed: %v", err)
	}
	if string(image) != string(testImage) {
		t.Fatalf("unexpected decoded image: %q", image)
	}
	if captured.Upscaler1 != "ESRGAN_4x" || captured.UpscalingResize != 3 {
		t.Fatalf("unexpected upscale settings: %+v", captured)
	}
	decoded, err := base64.StdEncoding.DecodeString(captured.Image)
	if err != nil || string(decoded) != string(testImage) {
		t.Fatalf("expected base64 source image, got %q", captured.Image)
	}
}

func TestImg2ImgDefaultsDenoising(t *testing.T) {
	var captured img2imgRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/img2img" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		fmt.Fprint(w, imageJSON())
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	if _, err := client.Img2Img(context.Background(), testImage, "refine details", 0, 1920, 1080); err != nil {
		t.Fatalf("Img2Img failed: %v", err)
	}
	if captured.DenoisingStrength != 0.75 {
		t.Fatalf("expected default denoising 0.75, got %v", captured.DenoisingStrength)
	}
	if len(captured.InitImages) != 1 {
		t.Fatalf("expected one init image, got %d", len(captured.InitImages))
	}
}

func TestTxt2ImgRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "loading checkpoint", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, imageJSON())
	}))
	defer server.Close()

	var sleeps []time.Duration
	client := NewClient(Config{BaseURL: server.URL},
		WithRetryMaxAttempts(3),
		WithRetryBackoff(time.Millisecond, 10*time.Millisecond),
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) }),
	)

	if _, err := client.Txt2Img(context.Background(), GenerateParams{Prompt: "p", Width: 640, Height: 360}); err != nil {
		t.Fatalf("expected success after retries, got: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(sleeps))
	}
}

func TestTxt2ImgDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad sampler", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL}, WithRetryMaxAttempts(3))
	if _, err := client.Txt2Img(context.Background(), GenerateParams{Prompt: "p", Width: 640, Height: 360}); err == nil {
		t.Fatal("expected error for HTTP 400")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected single attempt for client error, got %d", got)
	}
}

func TestBaseURLReflectsConfiguration(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, imageJSON())
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/"})
	if client.BaseURL() != server.URL {
		t.Fatalf("expected trailing slash trimmed, got %q", client.BaseURL())
	}
	if _, err := client.Txt2Img(context.Background(), GenerateParams{Prompt: "p", Width: 640, Height: 360}); err != nil {
		t.Fatalf("Txt2Img failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatal("expected request routed to configured base URL")
	}
}

func TestPingReportsCheckpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/sd-models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		fmt.Fprint(w, `[{"title":"v1-5-pruned.ckpt [abc]","model_name":"v1-5-pruned"}]`)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	models, err := client.Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if len(models) != 1 || models[0] != "v1-5-pruned" {
		t.Fatalf("unexpected models: %v", models)
	}
}

func TestPingRejectsEmptyModelList(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	if _, err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error when no checkpoints loaded")
	}
}

func TestProgressDecodesState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"progress":0.4,"eta_relative":12.5,"state":{"sampling_step":10,"sampling_steps":25}}`)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	progress, err := client.Progress(context.Background())
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if progress.Progress != 0.4 || progress.State.SamplingSteps != 25 {
		t.Fatalf("unexpected progress: %+v", progress)
	}
}
