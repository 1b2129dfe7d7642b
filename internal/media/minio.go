package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Leul120/portfolio/internal/config"
	"github.com/Leul120/portfolio/internal/domain"
)

const (
	presignTTL = 7 * 24 * time.Hour
	cacheTTL   = 6 * 24 * time.Hour
	cachePref  = "avatar-url:"
)

type MinioStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
	cache     Cache
}

// NewMinio connects and creates the bucket when missing. cache may be nil.
func NewMinio(ctx context.Context, cfg config.MinIOConfig, cache Cache) (*MinioStore, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinioStore{client: cli, bucket: cfg.Bucket, publicURL: cfg.PublicURL, cache: cache}, nil
}

func (s *MinioStore) Upload(ctx context.Context, owner, filename, contentType string, r io.Reader, size int64) (*domain.Image, error) {
	if err := CheckUpload(contentType, size); err != nil {
		return nil, err
	}
	key := objectKey(owner, filename)
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return nil, err
	}
	url, err := s.URL(ctx, key)
	if err != nil {
		return nil, err
	}
	return &domain.Image{ID: key, URL: url, ContentType: contentType, Size: size}, nil
}

func (s *MinioStore) Remove(ctx context.Context, id string) error {
	if s.cache != nil {
		_ = s.cache.Del(ctx, cachePref+id)
	}
	return s.client.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
}

// URL returns the public address when one is configured, otherwise a presigned GET that
// is cached for a little less than its lifetime.
func (s *MinioStore) URL(ctx context.Context, id string) (string, error) {
	if strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid object name %q", id)
	}
	if s.publicURL != "" {
		return s.publicURL + "/" + s.bucket + "/" + id, nil
	}
	if s.cache != nil {
		if u, ok := s.cache.Get(ctx, cachePref+id); ok {
			return u, nil
		}
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, id, presignTTL, nil)
	if err != nil {
		return "", err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cachePref+id, u.String(), cacheTTL)
	}
	return u.String(), nil
}

func objectKey(owner, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 8 {
		ext = ""
	}
	return owner + "/" + uuid.NewString() + ext
}
