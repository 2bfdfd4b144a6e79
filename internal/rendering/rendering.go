// Package rendering generates the banner image through the Stable Diffusion
// WebUI and writes it to the banners directory.
package rendering

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"easel/internal/config"
	"easel/internal/logging"
	"easel/internal/queue"
	"easel/internal/services"
	"easel/internal/services/sdwebui"
	"easel/internal/stage"
	"easel/internal/storage"
)

// Renderer runs the two-pass render: a low resolution txt2img pass followed by
// an upscale to the banner geometry.
type Renderer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	sd       *sdwebui.Client
	files    *storage.LocalStore
	uploader storage.Uploader
}

// NewRenderer constructs the rendering stage handler using default dependencies.
// The banners directory and S3 uploader are resolved lazily on first execution.
func NewRenderer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Renderer {
	client := sdwebui.NewClient(sdwebui.Config{
		BaseURL:        cfg.StableDiffusion.BaseURL,
		Steps:          cfg.StableDiffusion.Steps,
		CFGScale:       cfg.StableDiffusion.CFGScale,
		Sampler:        cfg.StableDiffusion.Sampler,
		NegativePrompt: cfg.StableDiffusion.NegativePrompt,
		Upscaler:       cfg.StableDiffusion.Upscaler,
		TimeoutSeconds: cfg.StableDiffusion.Timeout,
	})
	return NewRendererWithDependencies(cfg, store, logger, client, nil, nil)
}

// NewRendererWithDependencies allows injecting collaborators (used in tests).
func NewRendererWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, client *sdwebui.Client, files *storage.LocalStore, uploader storage.Uploader) *Renderer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "rendering"))
	}
	return &Renderer{store: store, cfg: cfg, logger: stageLogger, sd: client, files: files, uploader: uploader}
}

func (r *Renderer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Rendering"
	}
	item.ProgressMessage = "Preparing banner render"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting render preparation",
		logging.String("product", strings.TrimSpace(item.Product)),
		logging.String("base_url", r.sd.BaseURL()),
	)
	return nil
}

func (r *Renderer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	brief, err := stage.RequireBrief(item.BriefJSON)
	if err != nil {
		return err
	}
	prompt := strings.TrimSpace(brief.ImagePrompt)
	if prompt == "" {
		return services.Wrap(
			services.ErrValidation,
			"rendering",
			"validate inputs",
			"Brief has no image prompt; rerun briefing",
			nil,
		)
	}
	if err := r.ensureCollaborators(ctx); err != nil {
		return err
	}

	sd := r.cfg.StableDiffusion
	lowWidth, lowHeight := sd.LowResWidth(), sd.LowResHeight()
	r.updateProgress(ctx, item, fmt.Sprintf("Generating base image %dx%d", lowWidth, lowHeight), 10)
	logger.Info(
		"requesting base image",
		logging.String("base_url", r.sd.BaseURL()),
		logging.Int("width", lowWidth),
		logging.Int("height", lowHeight),
	)
	low, err := r.sd.Txt2Img(ctx, sdwebui.GenerateParams{
		Prompt:         prompt,
		NegativePrompt: brief.NegativePrompt,
		Steps:          sd.Steps,
		Width:          lowWidth,
		Height:         lowHeight,
	})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "rendering", "txt2img", "Base image generation failed", err)
	}

	lowName := storage.LowResFileName(item.RequestID)
	if _, err := r.files.Save(lowName, low); err != nil {
		return services.Wrap(services.ErrTransient, "rendering", "save base image", "Failed to write base image", err)
	}
	item.ImageFile = lowName

	final := low
	if sd.UpscaleFactor > 1 {
		r.updateProgress(ctx, item, fmt.Sprintf("Upscaling x%.1f", sd.UpscaleFactor), 60)
		final, err = r.sd.Upscale(ctx, low, sd.UpscaleFactor)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "rendering", "upscale", "Banner upscale failed", err)
		}
	}

	r.updateProgress(ctx, item, "Saving banner", 90)
	bannerName := storage.BannerFileName(item.RequestID, item.Product)
	bannerPath, err := r.files.Save(bannerName, final)
	if err != nil {
		return services.Wrap(services.ErrTransient, "rendering", "save banner", "Failed to write banner file", err)
	}
	item.BannerFile = bannerName
	logger.Info("banner written", logging.String("path", bannerPath), logging.Int("bytes", len(final)))

	if r.uploader != nil {
		url, uploadErr := r.uploader.Upload(ctx, storage.UploadParams{
			Name:        bannerName,
			Data:        final,
			ContentType: "image/png",
		})
		if uploadErr != nil {
			logger.Warn("banner upload failed", logging.Error(uploadErr))
		} else {
			item.BannerURL = url
			logger.Info("banner uploaded", logging.String("url", url))
		}
	}

	item.ProgressMessage = fmt.Sprintf("Banner rendered: %s", bannerName)
	item.ProgressPercent = 100
	return nil
}

// HealthCheck verifies the WebUI endpoint and banners directory configuration.
func (r *Renderer) HealthCheck(ctx context.Context) stage.Health {
	const name = "rendering"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(r.cfg.StableDiffusion.BaseURL) == "" {
		return stage.Unhealthy(name, "stable diffusion base_url not configured")
	}
	if strings.TrimSpace(r.cfg.Paths.BannersDir) == "" {
		return stage.Unhealthy(name, "banners directory not configured")
	}
	if r.sd == nil {
		return stage.Unhealthy(name, "webui client unavailable")
	}
	return stage.Healthy(name)
}

func (r *Renderer) ensureCollaborators(ctx context.Context) error {
	if r.files == nil {
		files, err := storage.NewLocalStore(r.cfg.Paths.BannersDir)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "rendering", "open banners dir", "Failed to prepare banners directory", err)
		}
		r.files = files
	}
	if r.uploader == nil && r.cfg.Storage.S3.Enabled {
		uploader, err := storage.NewS3Uploader(ctx, r.cfg)
		if err != nil {
			logger := logging.WithContext(ctx, r.logger)
			logger.Warn("s3 uploader unavailable, keeping local copy only", logging.Error(err))
		} else if uploader != nil {
			r.uploader = uploader
		}
	}
	return nil
}

func (r *Renderer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, r.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := r.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist rendering progress", logging.Error(err))
		return
	}
	*item = copy
}
