package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Leul120/portfolio/internal/domain"
)

const MaxImageSize = 5 << 20

var (
	ErrNotConfigured   = errors.New("image store not configured")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
)

// Store keeps profile pictures. Image.ID is the store key; URL may be short-lived.
type Store interface {
	Upload(ctx context.Context, owner, filename, contentType string, r io.Reader, size int64) (*domain.Image, error)
	Remove(ctx context.Context, id string) error
	URL(ctx context.Context, id string) (string, error)
}

// Cache is the slice of a string cache the store needs; repo.Redis satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, val string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CheckUpload accepts image/* content up to MaxImageSize.
func CheckUpload(contentType string, size int64) error {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, contentType)
	}
	if size <= 0 || size > MaxImageSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, size)
	}
	return nil
}

// Unavailable is the Store used when no object store is configured.
type Unavailable struct{}

func (Unavailable) Upload(context.Context, string, string, string, io.Reader, int64) (*domain.Image, error) {
	return nil, ErrNotConfigured
}
func (Unavailable) Remove(context.Context, string) error { return ErrNotConfigured }
func (Unavailable) URL(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
