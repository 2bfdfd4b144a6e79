// Package preflight provides readiness checks for the external services and
// filesystem paths the banner pipeline depends on.
//
// These checks run in two contexts:
//   - "easel setup --verify" runs RunAll to validate a fresh installation.
//   - The CLI "easel status" command uses individual check functions
//     (CheckWebUI, CheckDirectoryAccess) to display service health.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
