package config_test

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"easel/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.StableDiffusion.BaseURL != "http://localhost:7860" {
		t.Fatalf("unexpected base_url %q", cfg.StableDiffusion.BaseURL)
	}
	if cfg.StableDiffusion.Steps != 25 {
		t.Fatalf("unexpected steps %d", cfg.StableDiffusion.Steps)
	}
	if cfg.StableDiffusion.Timeout != 300 {
		t.Fatalf("unexpected timeout %d", cfg.StableDiffusion.Timeout)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8000" {
		t.Fatalf("unexpected api_bind %q", cfg.Paths.APIBind)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.StableDiffusion.Provider = "remote"
	cfg.StableDiffusion.Model = "segmind/tiny-sd"
	cfg.StableDiffusion.Device = "cpu"
	cfg.StableDiffusion.BaseURL = "http://sd.internal:7860"
	cfg.StableDiffusion.Steps = 40
	cfg.StableDiffusion.Timeout = 120
	cfg.Telegram.MaxTextLength = 120

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}

	if loaded.StableDiffusion.Provider != "remote" {
		t.Fatalf("provider = %q", loaded.StableDiffusion.Provider)
	}
	if loaded.StableDiffusion.Model != "segmind/tiny-sd" {
		t.Fatalf("model = %q", loaded.StableDiffusion.Model)
	}
	if loaded.StableDiffusion.Device != "cpu" {
		t.Fatalf("device = %q", loaded.StableDiffusion.Device)
	}
	if loaded.StableDiffusion.BaseURL != "http://sd.internal:7860" {
		t.Fatalf("base_url = %q", loaded.StableDiffusion.BaseURL)
	}
	if loaded.StableDiffusion.Steps != 40 {
		t.Fatalf("steps = %d", loaded.StableDiffusion.Steps)
	}
	if loaded.StableDiffusion.Timeout != 120 {
		t.Fatalf("timeout = %d", loaded.StableDiffusion.Timeout)
	}
	if loaded.Telegram.MaxTextLength != 120 {
		t.Fatalf("max_text_length = %d", loaded.Telegram.MaxTextLength)
	}
}

func TestBannerGeometryPinned(t *testing.T) {
	cfg := config.Default()
	cfg.StableDiffusion.Width = 512
	cfg.StableDiffusion.Height = 512

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.StableDiffusion.Width != config.BannerWidth || loaded.StableDiffusion.Height != config.BannerHeight {
		t.Fatalf("expected pinned banner geometry, got %dx%d", loaded.StableDiffusion.Width, loaded.StableDiffusion.Height)
	}
	if w := loaded.StableDiffusion.LowResWidth(); w != 640 {
		t.Fatalf("lowres width = %d", w)
	}
	if h := loaded.StableDiffusion.LowResHeight(); h != 360 {
		t.Fatalf("lowres height = %d", h)
	}
}

func TestEnvironmentFallbacks(t *testing.T) {
	t.Setenv("SD_BASE_URL", "http://gpu-box:7860/")
	t.Setenv("SD_MODEL", "segmind/tiny-sd")
	t.Setenv("SD_DEVICE", "CPU")
	t.Setenv("SD_STEPS", "12")
	t.Setenv("SD_TIMEOUT", "90")

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StableDiffusion.BaseURL != "http://gpu-box:7860" {
		t.Fatalf("base_url = %q", cfg.StableDiffusion.BaseURL)
	}
	if cfg.StableDiffusion.Model != "segmind/tiny-sd" {
		t.Fatalf("model = %q", cfg.StableDiffusion.Model)
	}
	if cfg.StableDiffusion.Device != "cpu" {
		t.Fatalf("device = %q", cfg.StableDiffusion.Device)
	}
	if cfg.StableDiffusion.Steps != 12 {
		t.Fatalf("steps = %d", cfg.StableDiffusion.Steps)
	}
	if cfg.StableDiffusion.Timeout != 90 {
		t.Fatalf("timeout = %d", cfg.StableDiffusion.Timeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "bad device",
			mutate: func(c *config.Config) { c.StableDiffusion.Device = "tpu" },
			want:   "stable_diffusion.device",
		},
		{
			name:   "bad provider",
			mutate: func(c *config.Config) { c.StableDiffusion.Provider = "cloud" },
			want:   "stable_diffusion.provider",
		},
		{
			name:   "relative base url",
			mutate: func(c *config.Config) { c.StableDiffusion.BaseURL = "localhost:7860" },
			want:   "stable_diffusion.base_url",
		},
		{
			name:   "review threshold",
			mutate: func(c *config.Config) { c.Telegram.ReviewThreshold = 1.5 },
			want:   "telegram.review_threshold",
		},
		{
			name:   "s3 without bucket",
			mutate: func(c *config.Config) { c.Storage.S3.Enabled = true },
			want:   "storage.s3.bucket",
		},
		{
			name: "heartbeat ordering",
			mutate: func(c *config.Config) {
				c.Workflow.HeartbeatInterval = 60
				c.Workflow.HeartbeatTimeout = 30
			},
			want: "workflow.heartbeat_timeout",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.StableDiffusion.Sampler != "Euler a" {
		t.Fatalf("sampler = %q", cfg.StableDiffusion.Sampler)
	}
}

func TestAgentsPipelineBudget(t *testing.T) {
	agents := config.Agents{RetryAttempts: 2, RetryDelaySeconds: 1, StageTimeoutSeconds: 10}
	want := 4 * (2*10*time.Second + 1*time.Second)
	if got := agents.PipelineBudget(4); got != want {
		t.Fatalf("PipelineBudget(4) = %s, want %s", got, want)
	}

	// Degenerate inputs clamp to a single attempt of a single stage.
	if got := (config.Agents{StageTimeoutSeconds: 5}).PipelineBudget(0); got != 5*time.Second {
		t.Fatalf("PipelineBudget(0) = %s, want 5s", got)
	}
	if got := (config.Agents{}).PipelineBudget(4); got != 0 {
		t.Fatalf("PipelineBudget with empty policy = %s, want 0", got)
	}
}
