// Package review runs QA compliance over the finished banner before it is
// marked completed.
package review

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"easel/internal/adspec"
	"easel/internal/compliance"
	"easel/internal/config"
	"easel/internal/logging"
	"easel/internal/queue"
	"easel/internal/services"
	"easel/internal/stage"
)

// Reviewer checks the ad text against the Telegram Ads rule set and measures
// how well it matches the creative brief.
type Reviewer struct {
	store   *queue.Store
	cfg     *config.Config
	logger  *slog.Logger
	checker *compliance.Checker
}

// NewReviewer constructs the review stage handler using default dependencies.
// A broken rules file falls back to the embedded defaults.
func NewReviewer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Reviewer {
	rules, err := compliance.LoadRules(cfg.Telegram.RulesFile)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to load compliance rules, using defaults", logging.Error(err))
		}
		rules = compliance.DefaultRules()
	}
	return NewReviewerWithDependencies(cfg, store, logger, compliance.NewChecker(rules))
}

// NewReviewerWithDependencies allows injecting collaborators (used in tests).
func NewReviewerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, checker *compliance.Checker) *Reviewer {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String("component", "review"))
	}
	return &Reviewer{store: store, cfg: cfg, logger: stageLogger, checker: checker}
}

func (r *Reviewer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Reviewing"
	}
	item.ProgressMessage = "Preparing compliance review"
	item.ProgressPercent = 0
	item.ErrorMessage = ""
	logger.Info(
		"starting review preparation",
		logging.String("product", strings.TrimSpace(item.Product)),
	)
	return nil
}

func (r *Reviewer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, r.logger)
	adText := strings.TrimSpace(item.AdText)
	if adText == "" {
		return services.Wrap(
			services.ErrValidation,
			"reviewing",
			"validate inputs",
			"No ad text present for review; run copywriting first",
			nil,
		)
	}
	if item.BannerFile == "" {
		return services.Wrap(
			services.ErrValidation,
			"reviewing",
			"validate inputs",
			"No banner file present for review; run rendering first",
			nil,
		)
	}

	r.updateProgress(ctx, item, "Checking Telegram Ads rules", 30)
	report := r.checker.Check(adText)

	brief, err := stage.ParseBrief(item.BriefJSON)
	if err == nil && !brief.IsZero() {
		relevance := compliance.RelevanceScore(adText, briefText(brief))
		report.Score = relevance
		threshold := r.cfg.Telegram.ReviewThreshold
		if threshold > 0 && relevance < threshold {
			report.AddIssue("low_relevance", "warning",
				fmt.Sprintf("relevance %.2f below threshold %.2f", relevance, threshold))
			report.Status = queue.QARejected
		}
	}

	r.updateProgress(ctx, item, "Recording verdict", 80)
	encoded, err := report.Encode()
	if err != nil {
		return services.Wrap(services.ErrTransient, "reviewing", "encode report", "Failed to encode QA report", err)
	}
	item.QAReportJSON = encoded
	item.QAStatus = report.Status

	if report.Approved {
		item.NeedsReview = false
		item.ReviewReason = ""
		item.ProgressMessage = "QA approved"
		item.ProgressPercent = 100
		logger.Info("review approved", logging.Float64("score", report.Score))
		return nil
	}

	summary := report.IssueSummary()
	item.Status = queue.StatusReview
	item.NeedsReview = true
	item.ReviewReason = summary
	item.ProgressStage = "Manual review"
	item.ProgressMessage = "Held for review: " + summary
	item.ProgressPercent = 100
	logger.Info(
		"review rejected",
		logging.Float64("score", report.Score),
		logging.Int("issues", len(report.Issues)),
		logging.String("summary", summary),
	)
	return nil
}

// HealthCheck verifies the rule set is loaded.
func (r *Reviewer) HealthCheck(ctx context.Context) stage.Health {
	const name = "review"
	if r.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if r.checker == nil {
		return stage.Unhealthy(name, "rule checker unavailable")
	}
	if strings.TrimSpace(r.checker.Rules().Version) == "" {
		return stage.Unhealthy(name, "rule set has no version")
	}
	return stage.Healthy(name)
}

// briefText flattens the brief into the reference text the relevance score
// compares against.
func briefText(brief adspec.Brief) string {
	parts := []string{brief.Product, brief.ProductType, brief.Goal, brief.TextPrompt}
	parts = append(parts, brief.KeyMessages...)
	var sb strings.Builder
	for _, part := range parts {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(part)
	}
	return sb.String()
}

func (r *Reviewer) updateProgress(ctx context.Context, item *queue.Item, message string, percent float64) {
	logger := logging.WithContext(ctx, r.logger)
	copy := *item
	copy.ProgressMessage = message
	copy.ProgressPercent = percent
	if err := r.store.Update(ctx, &copy); err != nil {
		logger.Warn("failed to persist review progress", logging.Error(err))
		return
	}
	*item = copy
}
