package stage

import (
	"easel/internal/adspec"
	"easel/internal/services"
)

// ParseBrief parses a stored creative brief and returns it.
// On failure it returns a services.ErrValidation suitable for stage Execute methods.
func ParseBrief(raw string) (adspec.Brief, error) {
	brief, err := adspec.ParseBrief(raw)
	if err != nil {
		return adspec.Brief{}, services.Wrap(
			services.ErrValidation, "stage", "parse brief",
			"Creative brief missing or invalid; rerun briefing", err)
	}
	return brief, nil
}

// RequireBrief parses a stored brief and rejects empty payloads.
func RequireBrief(raw string) (adspec.Brief, error) {
	brief, err := ParseBrief(raw)
	if err != nil {
		return adspec.Brief{}, err
	}
	if brief.IsZero() {
		return adspec.Brief{}, services.Wrap(
			services.ErrValidation, "stage", "parse brief",
			"Creative brief missing or invalid; rerun briefing", nil)
	}
	return brief, nil
}
