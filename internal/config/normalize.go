package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeStableDiffusion(); err != nil {
		return err
	}
	if err := c.normalizeLLM(); err != nil {
		return err
	}
	c.normalizeAgents()
	if err := c.normalizeTelegram(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StagingDir) == "" {
		c.Paths.StagingDir = defaultStagingDir
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.BannersDir) == "" {
		c.Paths.BannersDir = defaultBannersDir
	}
	if c.Paths.BannersDir, err = expandPath(c.Paths.BannersDir); err != nil {
		return fmt.Errorf("paths.banners_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

// normalizeStableDiffusion applies SD_* environment fallbacks and pins the
// banner geometry. The WebUI renders a low resolution pass first; the final
// 1920x1080 frame comes from the upscale step, so configured width/height are
// forced to the banner constants.
func (c *Config) normalizeStableDiffusion() error {
	sd := &c.StableDiffusion

	// SD_* environment variables win over file values so a containerized
	// daemon can be pointed at a different WebUI without editing config.yaml.
	if value, ok := os.LookupEnv("SD_MODEL"); ok && strings.TrimSpace(value) != "" {
		sd.Model = value
	}
	sd.Model = strings.TrimSpace(sd.Model)
	if sd.Model == "" {
		sd.Model = defaultSDModel
	}

	if value, ok := os.LookupEnv("SD_DEVICE"); ok && strings.TrimSpace(value) != "" {
		sd.Device = value
	}
	sd.Device = strings.ToLower(strings.TrimSpace(sd.Device))
	if sd.Device == "" {
		sd.Device = defaultSDDevice
	}

	if value, ok := os.LookupEnv("SD_BASE_URL"); ok && strings.TrimSpace(value) != "" {
		sd.BaseURL = value
	}
	sd.BaseURL = strings.TrimSpace(sd.BaseURL)
	if sd.BaseURL == "" {
		sd.BaseURL = defaultSDBaseURL
	}
	sd.BaseURL = strings.TrimRight(sd.BaseURL, "/")

	if value, ok := os.LookupEnv("SD_STEPS"); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
			sd.Steps = parsed
		}
	}
	if sd.Steps <= 0 {
		sd.Steps = defaultSDSteps
	}

	if value, ok := os.LookupEnv("SD_TIMEOUT"); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
			sd.Timeout = parsed
		}
	}
	if sd.Timeout <= 0 {
		sd.Timeout = defaultSDTimeout
	}

	sd.Provider = strings.ToLower(strings.TrimSpace(sd.Provider))
	if sd.Provider == "" {
		sd.Provider = defaultSDProvider
	}
	if sd.CFGScale <= 0 {
		sd.CFGScale = defaultSDCFGScale
	}
	sd.Sampler = strings.TrimSpace(sd.Sampler)
	if sd.Sampler == "" {
		sd.Sampler = defaultSDSampler
	}
	if strings.TrimSpace(sd.NegativePrompt) == "" {
		sd.NegativePrompt = defaultSDNegativePrompt
	}
	sd.Upscaler = strings.TrimSpace(sd.Upscaler)
	if sd.Upscaler == "" {
		sd.Upscaler = defaultSDUpscaler
	}
	if sd.UpscaleFactor <= 0 {
		sd.UpscaleFactor = defaultSDUpscaleFactor
	}

	// Telegram banner placements are fixed at 1920x1080.
	sd.Width = BannerWidth
	sd.Height = BannerHeight

	return nil
}

func (c *Config) normalizeLLM() error {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = defaultLLMTemperature
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeAgents() {
	if c.Agents.RetryAttempts <= 0 {
		c.Agents.RetryAttempts = defaultAgentRetryAttempts
	}
	if c.Agents.RetryDelaySeconds <= 0 {
		c.Agents.RetryDelaySeconds = defaultAgentRetryDelaySeconds
	}
	if c.Agents.StageTimeoutSeconds <= 0 {
		c.Agents.StageTimeoutSeconds = defaultAgentStageTimeoutSeconds
	}
}

func (c *Config) normalizeTelegram() error {
	if c.Telegram.MaxTextLength <= 0 {
		c.Telegram.MaxTextLength = defaultTelegramMaxTextLength
	}
	if strings.TrimSpace(c.Telegram.RulesFile) == "" {
		c.Telegram.RulesFile = defaultTelegramRulesFile
	}
	var err error
	if c.Telegram.RulesFile, err = expandPath(c.Telegram.RulesFile); err != nil {
		return fmt.Errorf("telegram.rules_file: %w", err)
	}
	if c.Telegram.ReviewThreshold <= 0 {
		c.Telegram.ReviewThreshold = defaultTelegramReviewThreshold
	}
	return nil
}

func (c *Config) normalizeStorage() {
	s3 := &c.Storage.S3
	s3.Bucket = strings.TrimSpace(s3.Bucket)
	s3.Region = strings.TrimSpace(s3.Region)
	s3.Endpoint = strings.TrimSpace(s3.Endpoint)
	s3.Prefix = strings.Trim(strings.TrimSpace(s3.Prefix), "/")
	if s3.AccessKeyID == "" {
		if value, ok := os.LookupEnv("AWS_ACCESS_KEY_ID"); ok {
			s3.AccessKeyID = strings.TrimSpace(value)
		}
	}
	if s3.SecretAccessKey == "" {
		if value, ok := os.LookupEnv("AWS_SECRET_ACCESS_KEY"); ok {
			s3.SecretAccessKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
