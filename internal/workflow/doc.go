// Package workflow advances queue items through the banner pipeline.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into the registered stage handlers (briefing, copywriting, rendering,
// review) while capturing progress and failure metadata. It also aggregates
// queue stats and per-stage metrics, calls stage health checks, and emits
// notifications when processing starts or completes.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition items; this package is the
// authoritative home for that coordination logic.
package workflow
