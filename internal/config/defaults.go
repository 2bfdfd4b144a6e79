package config

const (
	defaultStagingDir = "~/.local/share/easel/staging"
	defaultBannersDir = "~/.local/share/easel/banners"
	defaultLogDir     = "~/.local/share/easel/logs"
	defaultAPIBind    = "127.0.0.1:8000"

	defaultSDProvider       = "local"
	defaultSDModel          = "runwayml/stable-diffusion-v1-5"
	defaultSDDevice         = "cuda"
	defaultSDBaseURL        = "http://localhost:7860"
	defaultSDSteps          = 25
	defaultSDTimeout        = 300
	defaultSDCFGScale       = 7.5
	defaultSDSampler        = "Euler a"
	defaultSDNegativePrompt = "blurry, low quality, distorted, watermark, text artifacts"
	defaultSDUpscaler       = "ESRGAN_4x"
	defaultSDUpscaleFactor  = 3

	defaultLLMBaseURL        = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel          = "gpt-4o-mini"
	defaultLLMTemperature    = 0.7
	defaultLLMMaxTokens      = 400
	defaultLLMTimeoutSeconds = 60

	defaultAgentRetryAttempts       = 3
	defaultAgentRetryDelaySeconds   = 1
	defaultAgentStageTimeoutSeconds = 300

	defaultTelegramMaxTextLength   = 160
	defaultTelegramRulesFile       = "~/.config/easel/rules/telegram_ads.json"
	defaultTelegramReviewThreshold = 0.7

	defaultNotifyRequestTimeout = 10

	defaultWorkflowQueuePollInterval  = 2
	defaultWorkflowErrorRetryInterval = 10
	defaultWorkflowHeartbeatInterval  = 15
	defaultWorkflowHeartbeatTimeout   = 120

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			BannersDir: defaultBannersDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		StableDiffusion: StableDiffusion{
			Provider:       defaultSDProvider,
			Model:          defaultSDModel,
			Device:         defaultSDDevice,
			BaseURL:        defaultSDBaseURL,
			Width:          BannerWidth,
			Height:         BannerHeight,
			Steps:          defaultSDSteps,
			Timeout:        defaultSDTimeout,
			CFGScale:       defaultSDCFGScale,
			Sampler:        defaultSDSampler,
			NegativePrompt: defaultSDNegativePrompt,
			Upscaler:       defaultSDUpscaler,
			UpscaleFactor:  defaultSDUpscaleFactor,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Temperature:    defaultLLMTemperature,
			MaxTokens:      defaultLLMMaxTokens,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Agents: Agents{
			RetryAttempts:       defaultAgentRetryAttempts,
			RetryDelaySeconds:   defaultAgentRetryDelaySeconds,
			StageTimeoutSeconds: defaultAgentStageTimeoutSeconds,
		},
		Telegram: Telegram{
			MaxTextLength:   defaultTelegramMaxTextLength,
			RulesFile:       defaultTelegramRulesFile,
			ReviewThreshold: defaultTelegramReviewThreshold,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Review:         true,
			Errors:         true,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultWorkflowQueuePollInterval,
			ErrorRetryInterval: defaultWorkflowErrorRetryInterval,
			HeartbeatInterval:  defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:   defaultWorkflowHeartbeatTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
