package sdwebui

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout    = 300 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3

	defaultSteps    = 25
	defaultCFGScale = 7.5
	defaultSampler  = "Euler a"
	defaultUpscaler = "ESRGAN_4x"
)

// Config captures the runtime settings required to talk to the WebUI.
type Config struct {
	BaseURL        string
	Steps          int
	CFGScale       float64
	Sampler        string
	NegativePrompt string
	Upscaler       string
	TimeoutSeconds int
}

// Client wraps the AUTOMATIC1111 WebUI REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a WebUI client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Steps:          cfg.Steps,
			CFGScale:       cfg.CFGScale,
			Sampler:        strings.TrimSpace(cfg.Sampler),
			NegativePrompt: strings.TrimSpace(cfg.NegativePrompt),
			Upscaler:       strings.TrimSpace(cfg.Upscaler),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "http://localhost:7860"
	}
	if client.cfg.Steps <= 0 {
		client.cfg.Steps = defaultSteps
	}
	if client.cfg.CFGScale <= 0 {
		client.cfg.CFGScale = defaultCFGScale
	}
	if client.cfg.Sampler == "" {
		client.cfg.Sampler = defaultSampler
	}
	if client.cfg.Upscaler == "" {
		client.cfg.Upscaler = defaultUpscaler
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// BaseURL reports the endpoint the client sends requests to.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// GenerateParams describes a single txt2img render.
type GenerateParams struct {
	Prompt         string
	NegativePrompt string
	Steps          int
	Width          int
	Height         int
}

// Progress describes the state of an in-flight render.
type Progress struct {
	Progress    float64 `json:"progress"`
	ETARelative float64 `json:"eta_relative"`
	State       struct {
		JobCount      int `json:"job_count"`
		SamplingStep  int `json:"sampling_step"`
		SamplingSteps int `json:"sampling_steps"`
	} `json:"state"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("sdwebui request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type txt2imgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt"`
	Steps          int     `json:"steps"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	CFGScale       float64 `json:"cfg_scale"`
	SamplerName    string  `json:"sampler_name"`
	BatchSize      int     `json:"batch_size"`
}

type img2imgRequest struct {
	InitImages        []string `json:"init_images"`
	Prompt            string   `json:"prompt"`
	DenoisingStrength float64  `json:"denoising_strength"`
	Steps             int      `json:"steps"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
}

type upscaleRequest struct {
	Image           string  `json:"image"`
	UpscalingResize float64 `json:"upscaling_resize"`
	Upscaler1       string  `json:"upscaler_1"`
}

type imagesResponse struct {
	Images     []string       `json:"images"`
	Parameters map[string]any `json:"parameters"`
	Info       string         `json:"info"`
}

type upscaleResponse struct {
	Image string `json:"image"`
}

// Txt2Img renders an image from a prompt and returns the decoded PNG bytes.
func (c *Client) Txt2Img(ctx context.Context, params GenerateParams) ([]byte, error) {
	prompt := strings.TrimSpace(params.Prompt)
	if prompt == "" {
		return nil, errors.New("sdwebui txt2img: prompt required")
	}
	negative := strings.TrimSpace(params.NegativePrompt)
	if negative == "" {
		negative = c.cfg.NegativePrompt
	}
	steps := params.Steps
	if steps <= 0 {
		steps = c.cfg.Steps
	}
	if params.Width <= 0 || params.Height <= 0 {
		return nil, errors.New("sdwebui txt2img: width and height required")
	}
	payload := txt2imgRequest{
		Prompt:         prompt,
		NegativePrompt: negative,
		Steps:          steps,
		Width:          params.Width,
		Height:         params.Height,
		CFGScale:       c.cfg.CFGScale,
		SamplerName:    c.cfg.Sampler,
		BatchSize:      1,
	}
	body, err := c.postWithRetry(ctx, "/sdapi/v1/txt2img", payload, "sdwebui txt2img")
	if err != nil {
		return nil, err
	}
	return decodeFirstImage(body, "sdwebui txt2img")
}

// Img2Img re-renders an image guided by a prompt.
func (c *Client) Img2Img(ctx context.Context, image []byte, prompt string, denoising float64, width, height int) ([]byte, error) {
	if len(image) == 0 {
		return nil, errors.New("sdwebui img2img: image required")
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("sdwebui img2img: prompt required")
	}
	if denoising <= 0 {
		denoising = 0.75
	}
	payload := img2imgRequest{
		InitImages:        []string{base64.StdEncoding.EncodeToString(image)},
		Prompt:            prompt,
		DenoisingStrength: denoising,
		Steps:             c.cfg.Steps,
		Width:             width,
		Height:            height,
	}
	body, err := c.postWithRetry(ctx, "/sdapi/v1/img2img", payload, "sdwebui img2img")
	if err != nil {
		return nil, err
	}
	return decodeFirstImage(body, "sdwebui img2img")
}

// Upscale enlarges a rendered image with the configured upscaler.
func (c *Client) Upscale(ctx context.Context, image []byte, factor float64) ([]byte, error) {
	if len(image) == 0 {
		return nil, errors.New("sdwebui upscale: image required")
	}
	if factor < 1 {
		return nil, errors.New("sdwebui upscale: factor must be at least 1")
	}
	payload := upscaleRequest{
		Image:           base64.StdEncoding.EncodeToString(image),
		UpscalingResize: factor,
		Upscaler1:       c.cfg.Upscaler,
	}
	body, err := c.postWithRetry(ctx, "/sdapi/v1/extra-single-image", payload, "sdwebui upscale")
	if err != nil {
		return nil, err
	}
	var parsed upscaleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("sdwebui upscale: decode response: %w", err)
	}
	if strings.TrimSpace(parsed.Image) == "" {
		return nil, errors.New("sdwebui upscale: empty image in response")
	}
	decoded, err := base64.StdEncoding.DecodeString(parsed.Image)
	if err != nil {
		return nil, fmt.Errorf("sdwebui upscale: decode image: %w", err)
	}
	return decoded, nil
}

// Progress reports the state of the current render.
func (c *Client) Progress(ctx context.Context) (Progress, error) {
	var progress Progress
	body, err := c.getOnce(ctx, "/sdapi/v1/progress?skip_current_image=true")
	if err != nil {
		return progress, err
	}
	if err := json.Unmarshal(body, &progress); err != nil {
		return progress, fmt.Errorf("sdwebui progress: decode response: %w", err)
	}
	return progress, nil
}

// Ping verifies the WebUI is reachable and reports the loaded checkpoints.
func (c *Client) Ping(ctx context.Context) ([]string, error) {
	body, err := c.getOnce(ctx, "/sdapi/v1/sd-models")
	if err != nil {
		return nil, err
	}
	var models []struct {
		Title     string `json:"title"`
		ModelName string `json:"model_name"`
	}
	if err := json.Unmarshal(body, &models); err != nil {
		return nil, fmt.Errorf("sdwebui ping: decode response: %w", err)
	}
	if len(models) == 0 {
		return nil, errors.New("sdwebui ping: no checkpoints loaded")
	}
	names := make([]string, 0, len(models))
	for _, model := range models {
		if model.ModelName != "" {
			names = append(names, model.ModelName)
		} else {
			names = append(names, model.Title)
		}
	}
	return names, nil
}

func decodeFirstImage(body []byte, op string) ([]byte, error) {
	var parsed imagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if len(parsed.Images) == 0 || strings.TrimSpace(parsed.Images[0]) == "" {
		return nil, fmt.Errorf("%s: empty images in response", op)
	}
	decoded, err := base64.StdEncoding.DecodeString(parsed.Images[0])
	if err != nil {
		return nil, fmt.Errorf("%s: decode image: %w", op, err)
	}
	return decoded, nil
}

func (c *Client) postWithRetry(ctx context.Context, path string, payload any, op string) ([]byte, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.postOnce(ctx, path, payload)
		if err == nil {
			return body, nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return nil, err
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return nil, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) postOnce(ctx context.Context, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sdwebui request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("sdwebui request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) getOnce(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("sdwebui request: new request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sdwebui request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sdwebui request: read body (timeout=%s): %w", c.timeoutDuration(), err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	return body, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil {
		return defaultHTTPTimeout
	}
	if c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil {
		return 1
	}
	if c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}
	if err == nil {
		return 0, false
	}
	if ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Connection refused while the WebUI finishes loading is the common
		// failure mode right after compose up, so retry those too.
		if urlErr.Timeout() || errors.Is(urlErr.Err, io.EOF) {
			return c.backoffDelay(attempt), true
		}
		var opErr *net.OpError
		if errors.As(urlErr.Err, &opErr) {
			return c.backoffDelay(attempt), true
		}
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c != nil {
		if c.retryBaseDelay >= 0 {
			base = c.retryBaseDelay
		}
		if c.retryMaxDelay > 0 {
			maxDelay = c.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}

	retryCount := attempt
	if retryCount <= 0 {
		retryCount = 1
	}

	delay := base
	for i := 1; i < retryCount; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("sdwebui retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
