package avatar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// DefaultMaxBytes caps avatar uploads at 5 MiB
const DefaultMaxBytes = 5 << 20

var (
	ErrEmptyFile       = errors.New("avatar file is empty")
	ErrTooLarge        = errors.New("avatar file is too large")
	ErrUnsupportedType = errors.New("avatar must be an image")
)

// Uploader stores an avatar and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, userID string, file domain.AvatarFile) (string, error)
}

// readImage validates file and buffers it. Both backends want a sized,
// seekable body.
func readImage(file domain.AvatarFile, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedType, file.ContentType)
	}
	if file.Body == nil {
		return nil, ErrEmptyFile
	}
	data, err := io.ReadAll(io.LimitReader(file.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read avatar: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// objectKey builds avatars/{user_id}/{uuid}{ext}
func objectKey(userID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("avatars/%s/%s%s", userID, uuid.New().String(), ext)
}
