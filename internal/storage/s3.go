package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"easel/internal/config"
)

// UploadParams describes one object to publish.
type UploadParams struct {
	Name        string
	Data        []byte
	ContentType string
	Metadata    map[string]string
}

// Uploader publishes a finished banner and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, params UploadParams) (string, error)
}

// S3Uploader publishes banners to an S3 bucket.
type S3Uploader struct {
	client   *s3.Client
	bucket   string
	prefix   string
	endpoint string
	region   string
}

// NewS3Uploader builds an uploader from the storage section of config.yaml.
// Returns nil when S3 publishing is disabled.
func NewS3Uploader(ctx context.Context, cfg *config.Config) (*S3Uploader, error) {
	s3cfg := cfg.Storage.S3
	if !s3cfg.Enabled {
		return nil, nil
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if s3cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(s3cfg.Region))
	}
	if s3cfg.AccessKeyID != "" && s3cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s3cfg.AccessKeyID, s3cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(s3cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Uploader{
		client:   client,
		bucket:   s3cfg.Bucket,
		prefix:   strings.Trim(s3cfg.Prefix, "/"),
		endpoint: strings.TrimRight(s3cfg.Endpoint, "/"),
		region:   s3cfg.Region,
	}, nil
}

// Upload puts the object into the bucket and returns its public URL.
func (u *S3Uploader) Upload(ctx context.Context, params UploadParams) (string, error) {
	if u == nil || u.client == nil {
		return "", fmt.Errorf("storage: s3 uploader not configured")
	}
	key := u.objectKey(params.Name)
	contentType := params.ContentType
	if contentType == "" {
		contentType = "image/png"
	}
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(params.Data),
		Metadata:    params.Metadata,
	})
	if err != nil {
		return "", fmt.Errorf("storage: put object %s: %w", key, err)
	}
	return u.ObjectURL(params.Name), nil
}

// ObjectURL returns the public URL an uploaded object is served from.
func (u *S3Uploader) ObjectURL(name string) string {
	key := u.objectKey(name)
	if u.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", u.endpoint, u.bucket, key)
	}
	if u.region != "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.bucket, u.region, key)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, key)
}

func (u *S3Uploader) objectKey(name string) string {
	name = strings.TrimLeft(strings.TrimSpace(name), "/")
	if u.prefix == "" {
		return name
	}
	return u.prefix + "/" + name
}
