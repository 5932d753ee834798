package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"stackit/internal/common/storage"
	"stackit/internal/forum/model"
	pkgerrors "stackit/pkg/errors"

	"github.com/google/uuid"
)

const (
	defaultMediaKeyPrefix  = "media"
	defaultMediaPresignTTL = 15 * time.Minute
	defaultMediaMaxBytes   = 5 << 20
)

var mediaExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// MediaConfig holds configuration for MediaService.
type MediaConfig struct {
	Bucket     string
	KeyPrefix  string
	PresignTTL time.Duration
	MaxBytes   int64

	Now func() time.Time
}

// MediaService hands out presigned upload URLs for images embedded in question and
// answer bodies. The object store receives the bytes directly.
type MediaService struct {
	storage storage.ObjectStorage
	config  MediaConfig
}

func NewMediaService(objectStorage storage.ObjectStorage, cfg MediaConfig) *MediaService {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultMediaKeyPrefix
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	if cfg.PresignTTL <= 0 {
		cfg.PresignTTL = defaultMediaPresignTTL
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMediaMaxBytes
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	return &MediaService{storage: objectStorage, config: cfg}
}

// UploadRequest describes a file the client is about to upload.
type UploadRequest struct {
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// UploadTicket tells the client where to PUT the file and where it will be served.
type UploadTicket struct {
	ObjectKey string    `json:"object_key"`
	UploadURL string    `json:"upload_url"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MediaObject is a confirmed upload.
type MediaObject struct {
	ObjectKey   string `json:"object_key"`
	URL         string `json:"url"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// RequestUpload validates the declared file and signs an upload URL under the actor's prefix.
func (s *MediaService) RequestUpload(ctx context.Context, actor model.Actor, req UploadRequest) (UploadTicket, error) {
	if err := requireContributor(actor); err != nil {
		return UploadTicket{}, err
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := mediaExtensions[contentType]
	if !ok {
		return UploadTicket{}, pkgerrors.New(pkgerrors.MediaTypeUnsupported).WithDetail("content_type", req.ContentType)
	}
	if req.SizeBytes <= 0 {
		return UploadTicket{}, pkgerrors.ValidationError("size_bytes", "must be positive")
	}
	if req.SizeBytes > s.config.MaxBytes {
		return UploadTicket{}, pkgerrors.New(pkgerrors.MediaTooLarge).WithDetail("max_bytes", s.config.MaxBytes)
	}

	now := s.config.Now()
	key := path.Join(s.userPrefix(actor.ID), now.Format("2006/01"), uuid.NewString()+ext)
	uploadURL, err := s.storage.PresignPut(ctx, s.config.Bucket, key, s.config.PresignTTL)
	if err != nil {
		return UploadTicket{}, pkgerrors.Wrap(fmt.Errorf("presign upload failed: %w", err), pkgerrors.MediaPresignFailed)
	}
	return UploadTicket{
		ObjectKey: key,
		UploadURL: uploadURL,
		PublicURL: s.storage.PublicURL(s.config.Bucket, key),
		ExpiresAt: now.Add(s.config.PresignTTL),
	}, nil
}

// ConfirmUpload checks an uploaded object against the limits and returns its public URL.
func (s *MediaService) ConfirmUpload(ctx context.Context, actor model.Actor, objectKey string) (MediaObject, error) {
	if err := requireContributor(actor); err != nil {
		return MediaObject{}, err
	}
	if !strings.HasPrefix(objectKey, s.userPrefix(actor.ID)+"/") || strings.Contains(objectKey, "..") {
		return MediaObject{}, pkgerrors.New(pkgerrors.PermissionDenied).WithMessage("object does not belong to the caller")
	}
	stat, err := s.storage.StatObject(ctx, s.config.Bucket, objectKey)
	if err != nil {
		return MediaObject{}, pkgerrors.Wrap(fmt.Errorf("stat upload failed: %w", err), pkgerrors.NotFound)
	}
	if stat.SizeBytes > s.config.MaxBytes {
		return MediaObject{}, pkgerrors.New(pkgerrors.MediaTooLarge).WithDetail("max_bytes", s.config.MaxBytes)
	}
	if _, ok := mediaExtensions[strings.ToLower(stat.ContentType)]; !ok {
		return MediaObject{}, pkgerrors.New(pkgerrors.MediaTypeUnsupported).WithDetail("content_type", stat.ContentType)
	}
	return MediaObject{
		ObjectKey:   objectKey,
		URL:         s.storage.PublicURL(s.config.Bucket, objectKey),
		SizeBytes:   stat.SizeBytes,
		ContentType: stat.ContentType,
	}, nil
}

func (s *MediaService) userPrefix(userID string) string {
	return s.config.KeyPrefix + "/" + userID
}
