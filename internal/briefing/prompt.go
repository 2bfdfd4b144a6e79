package briefing

import (
	"fmt"
	"strings"

	"easel/internal/adspec"
	"easel/internal/config"
	"easel/internal/queue"
)

const (
	templatePromptVersion = "v3_english_for_sd"
	enrichedPromptVersion = "v4_llm_refined"
)

const enrichmentSystemPrompt = "You are an art director for advertising banners. " +
	"Respond with a JSON object containing \"image_prompt\" (a single-line English " +
	"Stable Diffusion prompt under 77 tokens) and \"key_messages\" (up to three short " +
	"selling points). No other fields, no prose."

func enrichmentPrompt(brief adspec.Brief) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Product: %s\n", brief.Product)
	if brief.ProductType != "" {
		fmt.Fprintf(&sb, "Product type: %s\n", brief.ProductType)
	}
	if brief.Audience != "" {
		fmt.Fprintf(&sb, "Audience: %s\n", brief.Audience)
	}
	if brief.Goal != "" {
		fmt.Fprintf(&sb, "Campaign goal: %s\n", brief.Goal)
	}
	fmt.Fprintf(&sb, "Current draft prompt: %s\n", brief.ImagePrompt)
	sb.WriteString("Refine the draft into a stronger product photography prompt.")
	return sb.String()
}

// buildBrief renders the deterministic template brief from the request fields.
// Image prompts are always English; diffusion checkpoints are trained on
// English captions.
func buildBrief(cfg *config.Config, item *queue.Item) adspec.Brief {
	product := strings.TrimSpace(item.Product)
	productType := strings.TrimSpace(item.ProductType)
	if productType == "" {
		productType = "product"
	}
	audience := strings.TrimSpace(item.Audience)
	if audience == "" {
		audience = "general audience"
	}
	goal := strings.TrimSpace(item.Goal)
	if goal == "" {
		goal = "drive interest and clicks"
	}
	language := strings.TrimSpace(item.Language)
	if language == "" {
		language = "en"
	}

	maxLength := cfg.Telegram.MaxTextLength
	textPrompt := fmt.Sprintf(
		"Write an ad banner text for the %s %s.\nAudience: %s.\nGoal: %s.\nMaximum %d characters, include an emoji.",
		productType, product, audience, goal, maxLength,
	)

	shortImagePrompt := fmt.Sprintf(
		"professional product photo of %s %s, emphasis on premium design, clean white background, studio lighting, detailed, advertisement",
		product, productType,
	)

	fullImagePrompt := fmt.Sprintf(
		"professional product photography of a modern %s,\n%s,\nemphasis on premium build quality,\nproduct shot on clean white background,\nstudio lighting, sharp focus, highly detailed,\ncommercial advertisement style,\nminimalist design,\n8k resolution, professional photo",
		productType, product,
	)

	return adspec.Brief{
		Product:         product,
		ProductType:     productType,
		Audience:        audience,
		Goal:            goal,
		Language:        language,
		Style:           strings.TrimSpace(item.Style),
		TextPrompt:      textPrompt,
		ImagePrompt:     shortImagePrompt,
		FullImagePrompt: fullImagePrompt,
		NegativePrompt:  strings.TrimSpace(cfg.StableDiffusion.NegativePrompt),
		Meta: adspec.Meta{
			Product:        product,
			PromptLanguage: "en",
			PromptVersion:  templatePromptVersion,
		},
	}
}
