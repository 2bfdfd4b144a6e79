package textllm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"easel/internal/textutil"
)

// copywriterSystemPrompt frames every copy generation request.
const copywriterSystemPrompt = "You are an experienced copywriter for Telegram ad banners. " +
	"Respond with the banner text only, no preamble and no quotation marks."

// CopyStyles lists the known copy styles in variant generation order.
var CopyStyles = []string{"professional", "creative", "urgent", "emotional", "clear"}

var styleInstructions = map[string]string{
	"professional": "Professional, businesslike tone. Emphasize benefits and reliability.",
	"creative":     "Creative, memorable tone. Use metaphors and vivid imagery.",
	"urgent":       "Urgent offer. Create a sense of deadline and scarcity.",
	"emotional":    "Emotional tone. Appeal to the customer's feelings and desires.",
	"clear":        "Direct and plain tone. Facts and benefits only.",
}

// IsKnownStyle reports whether the supplied style has a dedicated instruction.
func IsKnownStyle(style string) bool {
	_, ok := styleInstructions[strings.ToLower(strings.TrimSpace(style))]
	return ok
}

// GenerateAdCopy produces banner text for the product in the requested style,
// capped at maxLength characters. Unknown styles fall back to professional.
func (c *Client) GenerateAdCopy(ctx context.Context, productInfo, style string, maxLength int) (string, error) {
	productInfo = strings.TrimSpace(productInfo)
	if productInfo == "" {
		return "", errors.New("textllm copy: product info required")
	}
	if maxLength <= 0 {
		return "", errors.New("textllm copy: max length required")
	}
	content, err := c.Complete(ctx, copywriterSystemPrompt, adCopyPrompt(productInfo, style, maxLength))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(strings.Trim(strings.TrimSpace(content), `"`))
	if text == "" {
		return "", errors.New("textllm copy: empty banner text")
	}
	return textutil.TruncateWithEllipsis(text, maxLength), nil
}

// GenerateVariants produces up to count candidates, one per copy style.
// Styles that fail are skipped; an error is returned only when every style fails.
func (c *Client) GenerateVariants(ctx context.Context, productInfo string, count, maxLength int) (map[string]string, error) {
	if count <= 0 || count > len(CopyStyles) {
		count = len(CopyStyles)
	}
	variants := make(map[string]string, count)
	var lastErr error
	for _, style := range CopyStyles[:count] {
		if ctx.Err() != nil {
			return variants, ctx.Err()
		}
		text, err := c.GenerateAdCopy(ctx, productInfo, style, maxLength)
		if err != nil {
			lastErr = err
			continue
		}
		variants[style] = text
	}
	if len(variants) == 0 {
		if lastErr == nil {
			lastErr = errors.New("no styles requested")
		}
		return nil, fmt.Errorf("textllm variants: %w", lastErr)
	}
	return variants, nil
}

func adCopyPrompt(productInfo, style string, maxLength int) string {
	instruction, ok := styleInstructions[strings.ToLower(strings.TrimSpace(style))]
	if !ok {
		instruction = styleInstructions["professional"]
	}
	return fmt.Sprintf(`Write the text for a Telegram ad banner.

ABOUT THE PRODUCT:
%s

REQUIREMENTS:
1. Style: %s
2. Maximum length: %d characters (Telegram Ads limit)
3. The text must stand on its own and grab attention
4. Include a call to action
5. Lead with the single biggest benefit
6. Avoid cliches and boilerplate phrasing

FORMAT:
- Body text only (up to %d characters)
- Emoji are allowed where they fit

Example of a good text:
"🚀 Boost conversion by 40%%! Telegram ad automation. Start free today!"

Write the text:`, productInfo, instruction, maxLength, maxLength)
}
