package compliance

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"easel/internal/adspec"
	"easel/internal/queue"
	"easel/internal/textutil"
)

// Checker applies a rule set to finished ad text.
type Checker struct {
	rules Rules
}

// NewChecker constructs a checker over the supplied rules.
func NewChecker(rules Rules) *Checker {
	return &Checker{rules: rules}
}

// Rules returns the rule set the checker applies.
func (c *Checker) Rules() Rules {
	return c.rules
}

// Check evaluates the ad text and returns a report. The report status is
// queue.QAApproved when no issues were found, queue.QARejected otherwise.
func (c *Checker) Check(text string) adspec.Report {
	report := adspec.Report{
		Approved:     true,
		RulesVersion: c.rules.Version,
		CheckedAt:    time.Now().UTC().Format(time.RFC3339),
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		report.AddIssue("empty_text", "error", "ad text is empty")
		report.Status = queue.QARejected
		return report
	}

	if c.rules.MaxTextLength > 0 {
		if length := textutil.RuneLength(trimmed); length > c.rules.MaxTextLength {
			report.AddIssue("max_length", "error",
				fmt.Sprintf("text exceeds %d characters (%d)", c.rules.MaxTextLength, length))
		}
	}

	lowered := strings.ToLower(trimmed)
	for _, word := range c.rules.BannedWords {
		if word = strings.ToLower(strings.TrimSpace(word)); word == "" {
			continue
		}
		if strings.Contains(lowered, word) {
			report.AddIssue("banned_word", "error", "contains '"+word+"'")
		}
	}
	for _, claim := range c.rules.SuperlativeClaims {
		if claim = strings.ToLower(strings.TrimSpace(claim)); claim == "" {
			continue
		}
		if strings.Contains(lowered, claim) {
			report.AddIssue("superlative_claim", "warning", "unverifiable claim '"+claim+"'")
		}
	}

	if c.rules.MaxCapsRatio > 0 {
		if ratio := capsRatio(trimmed); ratio > c.rules.MaxCapsRatio {
			report.AddIssue("caps_ratio", "warning", "too many uppercase letters")
		}
	}
	if c.rules.MaxExclamations > 0 {
		if strings.Count(trimmed, "!") > c.rules.MaxExclamations {
			report.AddIssue("exclamations", "warning", "too many exclamation marks")
		}
	}

	if report.Approved {
		report.Status = queue.QAApproved
	} else {
		report.Status = queue.QARejected
	}
	return report
}

// RelevanceScore measures how well the ad text matches the creative brief,
// as the cosine similarity of term-frequency fingerprints in [0, 1].
func RelevanceScore(adText, briefText string) float64 {
	return textutil.CosineSimilarity(
		textutil.NewFingerprint(adText),
		textutil.NewFingerprint(briefText),
	)
}

func capsRatio(text string) float64 {
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}
