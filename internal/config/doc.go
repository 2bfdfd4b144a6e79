// Package config loads, validates, and normalizes easel's YAML configuration.
//
// Configuration lives in config.yaml. Load merges file contents over
// repository defaults, applies SD_* environment fallbacks, expands paths, and
// pins the output banner geometry before validation runs.
package config
