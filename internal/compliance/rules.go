package compliance

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

//go:embed default_rules.json
var defaultRulesJSON []byte

// Rules defines the checks applied to finished ad text.
type Rules struct {
	Version           string   `json:"version"`
	MaxTextLength     int      `json:"max_text_length"`
	BannedWords       []string `json:"banned_words"`
	SuperlativeClaims []string `json:"superlative_claims"`
	MaxCapsRatio      float64  `json:"max_caps_ratio"`
	MaxExclamations   int      `json:"max_exclamations"`
}

// DefaultRules returns the embedded rule set.
func DefaultRules() Rules {
	var rules Rules
	if err := json.Unmarshal(defaultRulesJSON, &rules); err != nil {
		panic(fmt.Sprintf("embedded rules invalid: %v", err))
	}
	return rules
}

// LoadRules reads a rule file, falling back to the embedded defaults when the
// path is empty or the file does not exist.
func LoadRules(path string) (Rules, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRules(), nil
		}
		return Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	var rules Rules
	if err := json.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	rules.applyDefaults()
	return rules, nil
}

func (r *Rules) applyDefaults() {
	defaults := DefaultRules()
	if r.Version == "" {
		r.Version = defaults.Version
	}
	if r.MaxTextLength <= 0 {
		r.MaxTextLength = defaults.MaxTextLength
	}
	if r.MaxCapsRatio <= 0 {
		r.MaxCapsRatio = defaults.MaxCapsRatio
	}
	if r.MaxExclamations <= 0 {
		r.MaxExclamations = defaults.MaxExclamations
	}
}
