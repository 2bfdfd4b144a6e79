// Package api defines the transport-neutral DTOs shared by the daemon HTTP
// API, the IPC surface, and the CLI, plus converters from internal queue and
// workflow types.
package api
