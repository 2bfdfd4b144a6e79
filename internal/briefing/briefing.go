// Package briefing turns a raw banner request into a creative brief the
// downstream stages consume.
package briefing

import (
	"context"
	"strings"

	"log/slog"

	"easel/internal/adspec"
	"easel/internal/config"
	"easel/internal/logging"
	"easel/internal/queue"
	"easel/internal/services"
	"easel/internal/services/textllm"
	"easel/internal/stage"
)

// Briefer builds the copywriting and image prompts for a queued request.
type Briefer struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	llm    *textllm.Client
}

// NewBriefer constructs the briefing stage handler using default dependencies.
// The LLM client is optional; without an API key the stage produces the
// template brief on its own.
func NewBriefer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Briefer {
	var client *textllm.Client
	if strings.TrimSpace(cfg.LLM.APIKey) != "" {
		client = textllm.NewClient(textllm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			Temperature:    cfg.LLM.Temperature,
			MaxTokens:      cfg.LLM.MaxTokens,
			TimeoutSeconds: cfg.LLM.TimeoutSeconds,
		})
	}
	return NewBrieferWithDependencies(cfg, store, logger, client)
}

// NewBrieferWithDependencies allows injecting collaborators (used in tests).
func NewBrieferWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, llm *textllm.Client) *Briefer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "briefing"))
	}
	return &Briefer{store: store, cfg: cfg, logger: stageLogger, llm: llm}
}

func (b *Briefer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, b.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Briefing"
	}
	item.ProgressMessage = "Preparing creative brief"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting brief preparation",
		logging.String("product", strings.TrimSpace(item.Product)),
		logging.String("style", strings.TrimSpace(item.Style)),
	)
	return nil
}

func (b *Briefer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, b.logger)
	product := strings.TrimSpace(item.Product)
	if product == "" {
		return services.Wrap(
			services.ErrValidation,
			"briefing",
			"validate inputs",
			"Request has no product; supply a product name when queueing",
			nil,
		)
	}

	brief := buildBrief(b.cfg, item)
	b.updateProgress(ctx, item, "Drafting prompts", 30)

	if b.llm != nil {
		enriched, err := b.enrichBrief(ctx, brief)
		if err != nil {
			logger.Warn("brief enrichment failed, keeping template prompts", logging.Error(err))
		} else {
			brief = enriched
			logger.Info("brief enriched by language model", logging.Int("key_messages", len(brief.KeyMessages)))
		}
	}

	b.updateProgress(ctx, item, "Encoding brief", 80)
	encoded, err := brief.Encode()
	if err != nil {
		return services.Wrap(services.ErrTransient, "briefing", "encode brief", "Failed to encode creative brief", err)
	}
	item.BriefJSON = encoded
	item.ProgressMessage = "Creative brief ready"
	item.ProgressPercent = 100
	logger.Info(
		"brief completed",
		logging.String("product", product),
		logging.String("prompt_version", brief.Meta.PromptVersion),
	)
	return nil
}

// HealthCheck reports briefing readiness. The stage works without an LLM, so
// only the configuration itself is verified.
func (b *Briefer) HealthCheck(ctx context.Context) stage.Health {
	const name = "briefing"
	if b.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(b.cfg.StableDiffusion.NegativePrompt) == "" {
		return stage.Unhealthy(name, "negative prompt not configured")
	}
	return stage.Healthy(name)
}

type enrichment struct {
	ImagePrompt string   `json:"image_prompt"`
	KeyMessages []string `json:"key_messages"`
}

func (b *Briefer) enrichBrief(ctx context.Context, brief adspec.Brief) (adspec.Brief, error) {
	content, err := b.llm.CompleteJSON(ctx, enrichmentSystemPrompt, enrichmentPrompt(brief))
	if err != nil {
		return adspec.Brief{}, err
	}
	var payload enrichment
	if err := textllm.DecodeModelJSON(content, &payload); err != nil {
		return adspec.Brief{}, err
	}
	if prompt := strings.TrimSpace(payload.ImagePrompt); prompt != "" {
		brief.ImagePrompt = prompt
		brief.Meta.PromptVersion = enrichedPromptVersion
	}
	for _, message := range payload.KeyMessages {
		if message = strings.TrimSpace(message); message != "" {
			brief.KeyMessages = append(brief.KeyMessages, message)
		}
	}
	return brief, nil
}

func (b *Briefer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, b.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := b.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist briefing progress", logging.Error(err))
		return
	}
	*item = copy
}
