// Package compliance checks finished ad text against Telegram Ads placement rules.
//
// Rules are loaded from a JSON file (telegram.rules_file in config.yaml); when
// the file is missing the embedded default rule set is used. Each check
// produces an adspec.Report with an APPROVED or REJECTED status and the list
// of violated rules, which the review stage persists on the queue item.
//
// # Rule Set
//
// max_text_length: hard character cap (Telegram Ads allows 160).
// banned_words: words that get ads rejected outright.
// superlative_claims: unverifiable claims that need substantiation.
// max_caps_ratio: upper bound on the share of uppercase letters.
// max_exclamations: upper bound on exclamation marks.
package compliance
