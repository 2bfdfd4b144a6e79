// Package installer provisions the local environment for easel: prerequisite
// checks, the Stable Diffusion WebUI checkout, the model checkpoint, and the
// environment file consumed by the compose manifest. Every step is idempotent
// so setup can be re-run after a partial failure.
package installer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"easel/internal/config"
	"easel/internal/deps"
	"easel/internal/logging"
	"easel/internal/preflight"
)

const (
	webUIRepoURL    = "https://github.com/AUTOMATIC1111/stable-diffusion-webui.git"
	defaultModelURL = "https://huggingface.co/segmind/tiny-sd/resolve/main/tiny-sd.ckpt"

	webUIDirName = "stable-diffusion-webui"
	modelDirName = "stable-diffusion-models"
	envFileName  = ".env"
)

// Options controls installer behavior.
type Options struct {
	// WorkDir is where the WebUI checkout, model directory, and env file
	// are placed. Defaults to the current directory.
	WorkDir string
	// ModelURL overrides the checkpoint download source.
	ModelURL string
	// SkipModel skips the checkpoint download, for hosts that mount a
	// model volume from elsewhere.
	SkipModel bool
	// Output receives progress bar rendering and step announcements.
	// Defaults to os.Stdout.
	Output io.Writer
}

// StepResult describes the outcome of one installer step.
type StepResult struct {
	Name    string
	Skipped bool
	Detail  string
}

// Installer provisions the easel runtime environment.
type Installer struct {
	cfg    *config.Config
	logger *slog.Logger
	opts   Options
	client *http.Client
}

// New constructs an Installer. A nil logger falls back to a nop logger.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Installer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if strings.TrimSpace(opts.WorkDir) == "" {
		opts.WorkDir = "."
	}
	if strings.TrimSpace(opts.ModelURL) == "" {
		opts.ModelURL = defaultModelURL
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Installer{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "installer"),
		opts:   opts,
		client: &http.Client{Timeout: 30 * time.Minute},
	}
}

// Run executes all installer steps in order and returns their results.
// It stops at the first failing step.
func (i *Installer) Run(ctx context.Context) ([]StepResult, error) {
	var results []StepResult

	prereq, err := i.CheckPrerequisites()
	results = append(results, prereq)
	if err != nil {
		return results, err
	}

	clone, err := i.CloneWebUI(ctx)
	results = append(results, clone)
	if err != nil {
		return results, err
	}

	if !i.opts.SkipModel {
		model, err := i.DownloadModel(ctx)
		results = append(results, model)
		if err != nil {
			return results, err
		}
	}

	env, err := i.WriteEnvFile()
	results = append(results, env)
	if err != nil {
		return results, err
	}

	return results, nil
}

// CheckPrerequisites verifies required host binaries are present.
func (i *Installer) CheckPrerequisites() (StepResult, error) {
	result := StepResult{Name: "Prerequisites"}
	var missing []string
	for _, status := range deps.CheckAll() {
		if status.Available || status.Optional {
			continue
		}
		missing = append(missing, status.Name)
	}
	if len(missing) > 0 {
		result.Detail = "missing: " + strings.Join(missing, ", ")
		return result, fmt.Errorf("missing required dependencies: %s", strings.Join(missing, ", "))
	}
	result.Detail = "all required binaries available"
	return result, nil
}

// CloneWebUI clones the AUTOMATIC1111 WebUI repository if it is not already
// checked out under the work directory.
func (i *Installer) CloneWebUI(ctx context.Context) (StepResult, error) {
	result := StepResult{Name: "Stable Diffusion WebUI"}
	target := filepath.Join(i.opts.WorkDir, webUIDirName)
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		result.Skipped = true
		result.Detail = fmt.Sprintf("already present at %s", target)
		return result, nil
	}

	i.logger.Info("cloning webui repository",
		logging.String(logging.FieldEventType, "webui_clone_started"),
		logging.String("target", target),
	)
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", webUIRepoURL, target)
	cmd.Stdout = i.opts.Output
	cmd.Stderr = i.opts.Output
	if err := cmd.Run(); err != nil {
		return result, fmt.Errorf("clone webui repository: %w", err)
	}
	result.Detail = fmt.Sprintf("cloned to %s", target)
	return result, nil
}

// DownloadModel fetches the model checkpoint into the model directory,
// with a progress bar. An existing checkpoint is left untouched.
func (i *Installer) DownloadModel(ctx context.Context) (StepResult, error) {
	result := StepResult{Name: "Model checkpoint"}
	modelDir := filepath.Join(i.opts.WorkDir, modelDirName)
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		return result, fmt.Errorf("create model directory: %w", err)
	}
	target := filepath.Join(modelDir, modelFileName(i.opts.ModelURL))
	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		result.Skipped = true
		result.Detail = fmt.Sprintf("already present at %s", target)
		return result, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.opts.ModelURL, nil)
	if err != nil {
		return result, fmt.Errorf("build model download request: %w", err)
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("download model: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("download model: unexpected status %s", resp.Status)
	}

	// Download into a temp file first so a partial download never passes
	// the existence check on the next run.
	tmp, err := os.CreateTemp(modelDir, ".download-*")
	if err != nil {
		return result, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetDescription("downloading model"),
		progressbar.OptionSetWriter(i.opts.Output),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
	if _, err := io.Copy(io.MultiWriter(tmp, bar), resp.Body); err != nil {
		tmp.Close()
		return result, fmt.Errorf("write model checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return result, fmt.Errorf("close model checkpoint: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return result, fmt.Errorf("move model checkpoint: %w", err)
	}

	i.logger.Info("model checkpoint downloaded",
		logging.String(logging.FieldEventType, "model_downloaded"),
		logging.String("path", target),
	)
	result.Detail = fmt.Sprintf("downloaded to %s", target)
	return result, nil
}

// WriteEnvFile writes the default environment file read by the compose
// manifest. An existing file is never overwritten.
func (i *Installer) WriteEnvFile() (StepResult, error) {
	result := StepResult{Name: "Environment file"}
	target := filepath.Join(i.opts.WorkDir, envFileName)
	if _, err := os.Stat(target); err == nil {
		result.Skipped = true
		result.Detail = fmt.Sprintf("already present at %s", target)
		return result, nil
	}

	content := defaultEnvContent(i.cfg)
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return result, fmt.Errorf("write env file: %w", err)
	}
	result.Detail = fmt.Sprintf("written to %s", target)
	return result, nil
}

// Verify runs the post-install checks and returns their results.
func (i *Installer) Verify(ctx context.Context) []preflight.Result {
	return preflight.RunAll(ctx, i.cfg)
}

func modelFileName(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	if trimmed == "" {
		return "model.ckpt"
	}
	return trimmed
}

func defaultEnvContent(cfg *config.Config) string {
	baseURL := "http://localhost:7860"
	if cfg != nil && strings.TrimSpace(cfg.StableDiffusion.BaseURL) != "" {
		baseURL = cfg.StableDiffusion.BaseURL
	}
	var b strings.Builder
	b.WriteString("# Stable Diffusion WebUI\n")
	b.WriteString("CLIP_STOP_AT_LAST_LAYERS=2\n")
	b.WriteString("COMMANDLINE_ARGS=--api --listen --port 7860\n")
	b.WriteString("\n# Easel\n")
	b.WriteString("SD_BASE_URL=" + baseURL + "\n")
	return b.String()
}
