// Package textutil provides text processing utilities for ad copy handling.
//
// The primary use cases are:
//   - Truncating generated copy to the Telegram Ads character limit
//   - Creating token-based fingerprints to score copy relevance against a brief
//   - Sanitizing product names for safe use in banner filenames
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// The tokenization process lowercases text, splits on non-alphanumeric characters,
// and filters tokens shorter than 3 characters.
package textutil
