package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Bucket    string `yaml:"bucket"`

	// PublicBaseURL overrides the endpoint for read links, e.g. a CDN origin.
	PublicBaseURL string `yaml:"publicBaseURL"`
}

// MinIOStorage implements ObjectStorage using MinIO S3-compatible APIs.
type MinIOStorage struct {
	core    *minio.Core
	baseURL string
}

func NewMinIOStorage(cfg MinIOConfig) (*MinIOStorage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("minio accessKey is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio secretKey is required")
	}
	core, err := minio.NewCore(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio core failed: %w", err)
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		baseURL = scheme + "://" + cfg.Endpoint
	}
	return &MinIOStorage{core: core, baseURL: baseURL}, nil
}

func (s *MinIOStorage) PresignPut(ctx context.Context, bucket, objectKey string, ttl time.Duration) (string, error) {
	if objectKey == "" {
		return "", fmt.Errorf("objectKey is required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	u, err := s.core.Client.PresignedPutObject(ctx, bucket, objectKey, ttl)
	if err != nil {
		return "", fmt.Errorf("minio presign put failed: %w", err)
	}
	return u.String(), nil
}

func (s *MinIOStorage) StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error) {
	info, err := s.core.StatObject(ctx, bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		return ObjectStat{}, fmt.Errorf("minio stat object failed: %w", err)
	}
	return ObjectStat{
		SizeBytes:   info.Size,
		ETag:        info.ETag,
		ContentType: info.ContentType,
	}, nil
}

func (s *MinIOStorage) PublicURL(bucket, objectKey string) string {
	return s.baseURL + "/" + url.PathEscape(bucket) + "/" + escapeKey(objectKey)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
