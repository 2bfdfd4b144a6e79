package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed sample_config.yaml
var sampleConfig string

// Banner geometry is fixed for Telegram Ads placements (16:9). Configured
// width/height are overridden during normalization; the configured values only
// seed the low-resolution render pass via the upscale factor.
const (
	BannerWidth  = 1920
	BannerHeight = 1080
)

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `yaml:"staging_dir"`
	BannersDir string `yaml:"banners_dir"`
	LogDir     string `yaml:"log_dir"`
	APIBind    string `yaml:"api_bind"`
	APIToken   string `yaml:"api_token"`
}

// StableDiffusion contains connection and render settings for the
// AUTOMATIC1111 Stable Diffusion WebUI.
type StableDiffusion struct {
	Provider       string  `yaml:"provider"`
	Model          string  `yaml:"model"`
	Device         string  `yaml:"device"`
	BaseURL        string  `yaml:"base_url"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	Steps          int     `yaml:"steps"`
	Timeout        int     `yaml:"timeout"`
	CFGScale       float64 `yaml:"cfg_scale"`
	Sampler        string  `yaml:"sampler"`
	NegativePrompt string  `yaml:"negative_prompt"`
	Upscaler       string  `yaml:"upscaler"`
	UpscaleFactor  float64 `yaml:"upscale_factor"`
}

// LLM contains connection settings for the ad-copy chat completions backend.
type LLM struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Agents contains retry and timeout policy for pipeline stages.
type Agents struct {
	RetryAttempts       int `yaml:"retry_attempts"`
	RetryDelaySeconds   int `yaml:"retry_delay_seconds"`
	StageTimeoutSeconds int `yaml:"stage_timeout_seconds"`
}

// Telegram contains Telegram Ads placement constraints.
type Telegram struct {
	MaxTextLength   int     `yaml:"max_text_length"`
	RulesFile       string  `yaml:"rules_file"`
	ReviewThreshold float64 `yaml:"review_threshold"`
}

// S3 contains object storage settings for published banners.
type S3 struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Prefix          string `yaml:"prefix"`
}

// Storage groups banner publishing backends.
type Storage struct {
	S3 S3 `yaml:"s3"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `yaml:"ntfy_topic"`
	RequestTimeout int    `yaml:"request_timeout"`
	Completed      bool   `yaml:"completed"`
	Review         bool   `yaml:"review"`
	Errors         bool   `yaml:"errors"`
}

// Workflow contains configuration for daemon timing and intervals.
type Workflow struct {
	QueuePollInterval  int `yaml:"queue_poll_interval"`
	ErrorRetryInterval int `yaml:"error_retry_interval"`
	HeartbeatInterval  int `yaml:"heartbeat_interval"`
	HeartbeatTimeout   int `yaml:"heartbeat_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// Config encapsulates all configuration values for easel.
//
// Configuration sections by subsystem:
//   - Paths: directories and API bind address
//   - StableDiffusion: WebUI connection plus render parameters
//   - LLM: chat completions backend for ad copy
//   - Agents: per-stage retry and timeout policy
//   - Telegram: ad placement constraints and compliance rules
//   - Storage: banner publishing backends (S3)
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals and timeouts
//   - Logging: log format and level
type Config struct {
	Paths           Paths           `yaml:"paths"`
	StableDiffusion StableDiffusion `yaml:"stable_diffusion"`
	LLM             LLM             `yaml:"llm"`
	Agents          Agents          `yaml:"agents"`
	Telegram        Telegram        `yaml:"telegram"`
	Storage         Storage         `yaml:"storage"`
	Notifications   Notifications   `yaml:"notifications"`
	Workflow        Workflow        `yaml:"workflow"`
	Logging         Logging         `yaml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/easel/config.yaml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		data, err := os.ReadFile(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/easel/config.yaml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("config.yaml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// Save writes the configuration to the given path as YAML. Values written by
// Save read back identically through Load.
func (c *Config) Save(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(expanded); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(expanded, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.BannersDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueueDatabasePath returns the location of the request queue database.
func (c *Config) QueueDatabasePath() string {
	return filepath.Join(c.Paths.StagingDir, "queue.db")
}

// RequestTimeout returns the per-call WebUI timeout as a duration.
func (s StableDiffusion) RequestTimeout() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

// LowResWidth returns the width of the first render pass. The low resolution
// image is upscaled by UpscaleFactor to reach the banner geometry.
func (s StableDiffusion) LowResWidth() int {
	if s.UpscaleFactor <= 1 {
		return s.Width
	}
	return int(float64(s.Width) / s.UpscaleFactor)
}

// LowResHeight returns the height of the first render pass.
func (s StableDiffusion) LowResHeight() int {
	if s.UpscaleFactor <= 1 {
		return s.Height
	}
	return int(float64(s.Height) / s.UpscaleFactor)
}

// RequestTimeout returns the chat completions timeout as a duration.
func (l LLM) RequestTimeout() time.Duration {
	return time.Duration(l.TimeoutSeconds) * time.Second
}

// RetryDelay returns the delay between stage retry attempts.
func (a Agents) RetryDelay() time.Duration {
	return time.Duration(a.RetryDelaySeconds) * time.Second
}

// StageTimeout returns the per-stage execution deadline.
func (a Agents) StageTimeout() time.Duration {
	return time.Duration(a.StageTimeoutSeconds) * time.Second
}

// PipelineBudget returns the worst-case wall time for a request to traverse
// the given number of pipeline stages under the retry policy.
func (a Agents) PipelineBudget(stages int) time.Duration {
	if stages < 1 {
		stages = 1
	}
	attempts := a.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	perStage := time.Duration(attempts)*a.StageTimeout() + time.Duration(attempts-1)*a.RetryDelay()
	return time.Duration(stages) * perStage
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
