// Package adspec defines the structured payloads shared between workflow stages.
//
// The Brief type captures the creative direction produced during briefing:
// the copywriting instruction, the render prompt, and the request metadata
// that later stages need without re-reading the original request. Variants
// record the alternative ad texts considered during copywriting, and Report
// records the compliance verdict from review. All three are persisted as JSON
// on the queue item, so stages read and extend these payloads rather than
// maintaining separate state.
//
// # Entry Points
//
// ParseBrief / Brief.Encode: load and persist the creative brief.
// ParseVariants / EncodeVariants: load and persist copy variants.
// ParseReport / Report.Encode: load and persist the compliance report.
package adspec
