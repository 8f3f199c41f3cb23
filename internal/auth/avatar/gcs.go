package avatar

import (
	"bytes"
	"context"
	"fmt"
	"io"

	fbstorage "firebase.google.com/go/v4/storage"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// GCSUploader writes avatars to the Firebase Storage bucket.
type GCSUploader struct {
	client   *fbstorage.Client
	bucket   string
	maxBytes int64
}

// NewGCSUploader creates an uploader for bucket
func NewGCSUploader(client *fbstorage.Client, bucket string, maxBytes int64) *GCSUploader {
	return &GCSUploader{client: client, bucket: bucket, maxBytes: maxBytes}
}

// Upload stores file and returns its public URL
func (u *GCSUploader) Upload(ctx context.Context, userID string, file domain.AvatarFile) (string, error) {
	data, err := readImage(file, u.maxBytes)
	if err != nil {
		return "", err
	}

	bucket, err := u.client.Bucket(u.bucket)
	if err != nil {
		return "", fmt.Errorf("failed to open bucket %s: %w", u.bucket, err)
	}

	key := objectKey(userID, file.Name)
	w := bucket.Object(key).NewWriter(ctx)
	w.ContentType = file.ContentType
	w.CacheControl = "public, max-age=3600"

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to write avatar: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize avatar: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", u.bucket, key), nil
}
