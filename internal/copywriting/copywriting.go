// Package copywriting generates the banner ad text from the creative brief.
package copywriting

import (
	"context"
	"fmt"
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

// variantCount is how many styled candidates the stage requests when the
// queue item does not pin a style.
const variantCount = 3

// Copywriter produces ad text variants and selects one for the banner.
type Copywriter struct {
	store  *queue.Store
	cfg    *config.Config
	logger *slog.Logger
	llm    *textllm.Client
}

// NewCopywriter constructs the copywriting stage handler using default dependencies.
func NewCopywriter(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Copywriter {
	client := textllm.NewClient(textllm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		TimeoutSeconds: cfg.LLM.TimeoutSeconds,
	})
	return NewCopywriterWithDependencies(cfg, store, logger, client)
}

// NewCopywriterWithDependencies allows injecting collaborators (used in tests).
func NewCopywriterWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, llm *textllm.Client) *Copywriter {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "copywriting"))
	}
	return &Copywriter{store: store, cfg: cfg, logger: stageLogger, llm: llm}
}

func (c *Copywriter) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Copywriting"
	}
	item.ProgressMessage = "Preparing ad copy generation"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting copywriting preparation",
		logging.String("product", strings.TrimSpace(item.Product)),
	)
	return nil
}

func (c *Copywriter) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, c.logger)
	brief, err := stage.RequireBrief(item.BriefJSON)
	if err != nil {
		return err
	}
	if c.llm == nil {
		return services.Wrap(
			services.ErrConfiguration,
			"copywriting",
			"resolve llm client",
			"Text LLM not configured; set llm.api_key in your easel config.yaml",
			nil,
		)
	}

	maxLength := c.cfg.Telegram.MaxTextLength
	style := strings.ToLower(strings.TrimSpace(item.Style))
	if style == "" {
		style = strings.ToLower(strings.TrimSpace(brief.Style))
	}

	var variants []adspec.Variant
	if textllm.IsKnownStyle(style) {
		c.updateProgress(ctx, item, fmt.Sprintf("Writing %s copy", style), 30)
		text, genErr := c.llm.GenerateAdCopy(ctx, brief.TextPrompt, style, maxLength)
		if genErr != nil {
			return services.Wrap(services.ErrExternalTool, "copywriting", "generate ad copy", "Ad copy generation failed", genErr)
		}
		variants = append(variants, adspec.Variant{
			Text:     text,
			Style:    style,
			Length:   len([]rune(text)),
			Selected: true,
		})
	} else {
		c.updateProgress(ctx, item, "Writing copy variants", 30)
		generated, genErr := c.llm.GenerateVariants(ctx, brief.TextPrompt, variantCount, maxLength)
		if genErr != nil {
			return services.Wrap(services.ErrExternalTool, "copywriting", "generate variants", "Ad copy generation failed", genErr)
		}
		variants = orderVariants(generated)
	}

	selected, ok := adspec.SelectedVariant(variants)
	if !ok {
		return services.Wrap(services.ErrExternalTool, "copywriting", "select variant", "No ad copy variants produced", nil)
	}

	c.updateProgress(ctx, item, "Persisting ad copy", 80)
	encoded, err := adspec.EncodeVariants(variants)
	if err != nil {
		return services.Wrap(services.ErrTransient, "copywriting", "encode variants", "Failed to encode ad copy variants", err)
	}
	item.VariantsJSON = encoded
	item.AdText = selected.Text
	item.ProgressMessage = fmt.Sprintf("Ad copy ready (%d characters)", selected.Length)
	item.ProgressPercent = 100
	logger.Info(
		"copywriting completed",
		logging.String("style", selected.Style),
		logging.Int("length", selected.Length),
		logging.Int("variants", len(variants)),
	)
	return nil
}

// HealthCheck verifies the LLM credentials are present.
func (c *Copywriter) HealthCheck(ctx context.Context) stage.Health {
	const name = "copywriting"
	if c.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(c.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy(name, "llm api key not configured")
	}
	if c.llm == nil {
		return stage.Unhealthy(name, "llm client unavailable")
	}
	return stage.Healthy(name)
}

// orderVariants flattens the style-keyed results into the documented style
// order and marks the first as selected.
func orderVariants(generated map[string]string) []adspec.Variant {
	variants := make([]adspec.Variant, 0, len(generated))
	for _, style := range textllm.CopyStyles {
		text, ok := generated[style]
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		variants = append(variants, adspec.Variant{
			Text:     text,
			Style:    style,
			Length:   len([]rune(text)),
			Selected: len(variants) == 0,
		})
	}
	return variants
}

func (c *Copywriter) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, c.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := c.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist copywriting progress", logging.Error(err))
		return
	}
	*item = copy
}
