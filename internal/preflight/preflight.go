package preflight

import (
	"context"

	"easel/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Working directories (always checked)
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Banners directory", cfg.Paths.BannersDir))

	// Stable Diffusion WebUI (always checked, the pipeline cannot render without it)
	results = append(results, CheckWebUI(ctx, cfg.StableDiffusion.BaseURL))

	// Copywriting LLM
	if cfg.LLM.APIKey != "" {
		results = append(results, CheckLLM(ctx, "Copywriting LLM", cfg.LLM))
	}

	return results
}
