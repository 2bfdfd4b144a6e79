package adspec

import (
	"encoding/json"
	"slices"
	"strings"
)

// Brief captures the creative direction produced by the briefing stage and
// consumed by copywriting and rendering.
type Brief struct {
	Product     string `json:"product"`
	ProductType string `json:"product_type,omitempty"`
	Audience    string `json:"audience,omitempty"`
	Goal        string `json:"goal,omitempty"`
	Language    string `json:"language,omitempty"`
	Style       string `json:"style,omitempty"`

	TextPrompt      string   `json:"target_text_prompt"`
	ImagePrompt     string   `json:"target_image_prompt"`
	FullImagePrompt string   `json:"full_image_prompt,omitempty"`
	NegativePrompt  string   `json:"negative_prompt,omitempty"`
	KeyMessages     []string `json:"key_messages,omitempty"`

	Meta Meta `json:"meta,omitempty"`
}

// Meta records provenance details for a generated brief.
type Meta struct {
	Product        string `json:"product,omitempty"`
	PromptLanguage string `json:"prompt_language,omitempty"`
	PromptVersion  string `json:"prompt_version,omitempty"`
}

// Variant is one candidate ad text considered during copywriting.
type Variant struct {
	Text     string `json:"text"`
	Style    string `json:"style,omitempty"`
	Length   int    `json:"length"`
	Selected bool   `json:"selected,omitempty"`
}

// Report captures the compliance verdict for a finished banner and text pair.
type Report struct {
	Status       string  `json:"status"`
	Approved     bool    `json:"is_approved"`
	Score        float64 `json:"score,omitempty"`
	Issues       []Issue `json:"issues,omitempty"`
	RulesVersion string  `json:"rules_version,omitempty"`
	CheckedAt    string  `json:"checked_at,omitempty"`
}

// Issue describes a single rule violation found during review.
type Issue struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// ParseBrief loads a brief from JSON, returning an empty brief on blank input.
func ParseBrief(raw string) (Brief, error) {
	var brief Brief
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return brief, nil
	}
	if err := json.Unmarshal([]byte(raw), &brief); err != nil {
		return Brief{}, err
	}
	brief.KeyMessages = slices.Clone(brief.KeyMessages)
	return brief, nil
}

// Encode serialises the brief to JSON.
func (b Brief) Encode() (string, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// IsZero reports whether the brief carries no creative direction yet.
func (b Brief) IsZero() bool {
	return strings.TrimSpace(b.TextPrompt) == "" && strings.TrimSpace(b.ImagePrompt) == ""
}

// ParseVariants loads copy variants from JSON, returning nil on blank input.
func ParseVariants(raw string) ([]Variant, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var variants []Variant
	if err := json.Unmarshal([]byte(raw), &variants); err != nil {
		return nil, err
	}
	return variants, nil
}

// EncodeVariants serialises copy variants to JSON.
func EncodeVariants(variants []Variant) (string, error) {
	if len(variants) == 0 {
		return "", nil
	}
	data, err := json.Marshal(variants)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SelectedVariant returns the variant marked as selected, falling back to the
// first variant when none is marked.
func SelectedVariant(variants []Variant) (Variant, bool) {
	for _, v := range variants {
		if v.Selected {
			return v, true
		}
	}
	if len(variants) > 0 {
		return variants[0], true
	}
	return Variant{}, false
}

// ParseReport loads a compliance report from JSON, returning an empty report
// on blank input.
func ParseReport(raw string) (Report, error) {
	var report Report
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return report, nil
	}
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return Report{}, err
	}
	return report, nil
}

// Encode serialises the report to JSON.
func (r Report) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AddIssue appends a violation and clears the approved flag.
func (r *Report) AddIssue(rule, severity, detail string) {
	if r == nil {
		return
	}
	r.Approved = false
	r.Issues = append(r.Issues, Issue{Rule: rule, Severity: severity, Detail: detail})
}

// IssueSummary joins issue details into a single human-readable line.
func (r Report) IssueSummary() string {
	if len(r.Issues) == 0 {
		return ""
	}
	parts := make([]string, 0, len(r.Issues))
	for _, issue := range r.Issues {
		if issue.Detail != "" {
			parts = append(parts, issue.Detail)
		} else {
			parts = append(parts, issue.Rule)
		}
	}
	return strings.Join(parts, "; ")
}
