// Package storage persists finished banners and publishes them.
//
// LocalStore writes banner files into the configured banners directory and
// serves them back for the HTTP API. When S3 publishing is enabled in
// config.yaml, S3Uploader mirrors each finished banner to a bucket (AWS or any
// S3-compatible endpoint such as MinIO) and returns the public URL recorded on
// the queue item.
package storage
