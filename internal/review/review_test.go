package review_test

import (
	"context"
	"strings"
	"testing"

	"easel/internal/adspec"
	"easel/internal/compliance"
	"easel/internal/logging"
	"easel/internal/queue"
	"easel/internal/review"
	"easel/internal/testsupport"
)

func newReviewer(t *testing.T) (*review.Reviewer, *queue.Item) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewRequest(t, store, "SmartWatch X2")
	item.BannerFile = "banner_smartwatch_x2_12345678.png"

	brief := adspec.Brief{
		Product:     "SmartWatch X2",
		Goal:        "drive smartwatch orders",
		TextPrompt:  "Write an ad banner text for the SmartWatch X2 smartwatch.",
		KeyMessages: []string{"7 day battery", "AMOLED display"},
	}
	encoded, err := brief.Encode()
	if err != nil {
		t.Fatalf("encode brief: %v", err)
	}
	item.BriefJSON = encoded

	checker := compliance.NewChecker(compliance.DefaultRules())
	return review.NewReviewerWithDependencies(cfg, store, logging.NewNop(), checker), item
}

func TestExecuteApprovesCompliantText(t *testing.T) {
	reviewer, item := newReviewer(t)
	item.AdText = "⌚ SmartWatch X2 smartwatch: 7 day battery, AMOLED display. Order the smartwatch today!"

	ctx := context.Background()
	if err := reviewer.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := reviewer.Execute(ctx, item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.QAStatus != queue.QAApproved {
		t.Fatalf("expected approved status, got %q", item.QAStatus)
	}
	if item.NeedsReview {
		t.Fatal("approved item should not need review")
	}
	report, err := adspec.ParseReport(item.QAReportJSON)
	if err != nil {
		t.Fatalf("ParseReport: %v", err)
	}
	if !report.Approved || report.RulesVersion != "tg_ads_2026" {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Score <= 0 {
		t.Fatalf("expected positive relevance score, got %v", report.Score)
	}
}

func TestExecuteParksBannedTextInReview(t *testing.T) {
	reviewer, item := newReviewer(t)
	item.AdText = "SmartWatch X2: guaranteed results, risk-free purchase!"

	if err := reviewer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.QAStatus != queue.QARejected {
		t.Fatalf("expected rejected status, got %q", item.QAStatus)
	}
	if item.Status != queue.StatusReview {
		t.Fatalf("expected review status, got %q", item.Status)
	}
	if !item.NeedsReview || item.ReviewReason == "" {
		t.Fatalf("expected review reason, got %+v", item)
	}
	if !strings.Contains(item.ReviewReason, "banned_word") {
		t.Fatalf("expected banned_word issue in reason, got %q", item.ReviewReason)
	}
}

func TestExecuteFlagsLowRelevance(t *testing.T) {
	reviewer, item := newReviewer(t)
	item.AdText = "Fresh bread delivered every morning. Order now!"

	if err := reviewer.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if item.QAStatus != queue.QARejected {
		t.Fatalf("expected rejection for irrelevant text, got %q", item.QAStatus)
	}
	if !strings.Contains(item.ReviewReason, "low_relevance") {
		t.Fatalf("expected low_relevance issue, got %q", item.ReviewReason)
	}
}

func TestExecuteRequiresAdTextAndBanner(t *testing.T) {
	reviewer, item := newReviewer(t)
	item.AdText = ""
	if err := reviewer.Execute(context.Background(), item); err == nil {
		t.Fatal("expected error without ad text")
	}

	reviewer, item = newReviewer(t)
	item.AdText = "SmartWatch X2 smartwatch. Order today!"
	item.BannerFile = ""
	if err := reviewer.Execute(context.Background(), item); err == nil {
		t.Fatal("expected error without banner file")
	}
}

func TestHealthCheck(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	reviewer := review.NewReviewer(cfg, store, logging.NewNop())
	if health := reviewer.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy review stage, got %+v", health)
	}
}
