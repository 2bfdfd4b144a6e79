// Package textllm provides an OpenAI-compatible chat client for ad copy generation.
//
// This package is used by:
//   - Briefing stage: turn a raw product request into a structured creative brief
//   - Copywriting stage: generate banner text variants in different styles
//
// # Copy Generation
//
// GenerateAdCopy sends the product description to the configured model with a
// style-specific instruction and caps the result at the Telegram Ads character
// limit. GenerateVariants walks the known styles and collects one candidate
// per style, skipping styles that fail.
//
// # Configuration
//
// Requires api_key, model, and optionally base_url, temperature, max_tokens,
// timeout. The base URL must point at a chat/completions-compatible endpoint.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts, receive plain text.
// Client.CompleteJSON: send system/user prompts, receive JSON payload.
// Client.GenerateAdCopy: styled, length-capped banner copy.
// Client.GenerateVariants: one candidate per copy style.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately.
package textllm
