package avatar

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// S3Uploader writes avatars to an S3 bucket.
type S3Uploader struct {
	client    *s3.Client
	bucket    string
	publicURL string
	maxBytes  int64
}

// NewS3Uploader creates an uploader. publicURL is the base used to build the
// returned link; when empty the virtual-hosted S3 URL for region is used.
func NewS3Uploader(client *s3.Client, bucket, region, publicURL string, maxBytes int64) *S3Uploader {
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return &S3Uploader{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
	}
}

// Upload stores file and returns its public URL
func (u *S3Uploader) Upload(ctx context.Context, userID string, file domain.AvatarFile) (string, error) {
	data, err := readImage(file, u.maxBytes)
	if err != nil {
		return "", err
	}

	key := objectKey(userID, file.Name)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(file.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put avatar: %w", err)
	}

	return fmt.Sprintf("%s/%s", u.publicURL, key), nil
}
