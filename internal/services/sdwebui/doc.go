// Package sdwebui wraps the AUTOMATIC1111 Stable Diffusion WebUI HTTP API.
//
// The Client issues txt2img, img2img, and extra-single-image (upscale)
// requests against a WebUI instance and decodes the base64 image payloads the
// API returns. Transient failures (HTTP 5xx, 408, 429, timeouts) are retried
// with exponential backoff; Retry-After headers are honoured when present.
//
// # Entry Points
//
// NewClient: construct a client from config.StableDiffusion settings.
// Client.Txt2Img: render an image from a prompt.
// Client.Upscale: enlarge a rendered image with the configured upscaler.
// Client.Img2Img: re-render an image guided by a prompt.
// Client.Ping: verify the WebUI is reachable and a checkpoint is loaded.
// Client.Progress: report the progress of the current render.
package sdwebui
