package storage

import (
	"context"
	"time"
)

// ObjectStorage is the slice of an S3-compatible store used for user media:
// clients upload directly through presigned URLs and the service only signs and inspects.
type ObjectStorage interface {
	// PresignPut returns a URL accepting a single HTTP PUT of the object body.
	PresignPut(ctx context.Context, bucket, objectKey string, ttl time.Duration) (string, error)

	// StatObject returns size and content type for an uploaded object.
	StatObject(ctx context.Context, bucket, objectKey string) (ObjectStat, error)

	// PublicURL is the stable read location of an object.
	PublicURL(bucket, objectKey string) string
}

// ObjectStat contains object metadata used for validation.
type ObjectStat struct {
	SizeBytes   int64
	ETag        string
	ContentType string
}
