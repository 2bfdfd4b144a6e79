// Package notifications publishes workflow events to an ntfy topic.
//
// The service is a no-op unless notifications.ntfy_topic is set in
// config.yaml. Individual event groups (completed banners, review holds,
// errors) can be toggled independently.
package notifications
