// Package daemon hosts the long-running banner generation service. It owns
// the single-instance lock, starts and stops the workflow manager, and serves
// the HTTP API that accepts generation requests and exposes queue state.
package daemon
