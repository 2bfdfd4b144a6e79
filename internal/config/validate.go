package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStableDiffusion(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStableDiffusion() error {
	sd := c.StableDiffusion
	switch sd.Provider {
	case "local", "remote":
	default:
		return fmt.Errorf("stable_diffusion.provider must be local or remote, got %q", sd.Provider)
	}
	switch sd.Device {
	case "cuda", "cpu", "mps":
	default:
		return fmt.Errorf("stable_diffusion.device must be cuda, cpu, or mps, got %q", sd.Device)
	}
	parsed, err := url.Parse(sd.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("stable_diffusion.base_url must be an absolute URL, got %q", sd.BaseURL)
	}
	if err := ensurePositiveMap(map[string]int{
		"stable_diffusion.steps":   sd.Steps,
		"stable_diffusion.timeout": sd.Timeout,
	}); err != nil {
		return err
	}
	if sd.UpscaleFactor < 1 {
		return errors.New("stable_diffusion.upscale_factor must be >= 1")
	}
	return nil
}

func (c *Config) validateLLM() error {
	parsed, err := url.Parse(c.LLM.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("llm.base_url must be an absolute URL, got %q", c.LLM.BaseURL)
	}
	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("llm.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.MaxTextLength <= 0 {
		return errors.New("telegram.max_text_length must be positive")
	}
	if c.Telegram.ReviewThreshold < 0 || c.Telegram.ReviewThreshold > 1 {
		return errors.New("telegram.review_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateStorage() error {
	s3 := c.Storage.S3
	if !s3.Enabled {
		return nil
	}
	if s3.Bucket == "" {
		return errors.New("storage.s3.bucket must be set when storage.s3.enabled is true")
	}
	if s3.Region == "" && s3.Endpoint == "" {
		return errors.New("storage.s3.region or storage.s3.endpoint must be set when storage.s3.enabled is true")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if strings.TrimSpace(c.Notifications.NtfyTopic) != "" && c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
