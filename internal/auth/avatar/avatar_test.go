package avatar

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

func TestReadImage(t *testing.T) {
	t.Run("rejects non-image content", func(t *testing.T) {
		_, err := readImage(domain.AvatarFile{ContentType: "application/pdf", Body: strings.NewReader("x")}, 0)
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("rejects empty body", func(t *testing.T) {
		_, err := readImage(domain.AvatarFile{ContentType: "image/png", Body: strings.NewReader("")}, 0)
		assert.ErrorIs(t, err, ErrEmptyFile)

		_, err = readImage(domain.AvatarFile{ContentType: "image/png"}, 0)
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		_, err := readImage(domain.AvatarFile{ContentType: "image/png", Body: bytes.NewReader(make([]byte, 11))}, 10)
		assert.ErrorIs(t, err, ErrTooLarge)
	})

	t.Run("accepts file at the limit", func(t *testing.T) {
		data, err := readImage(domain.AvatarFile{ContentType: "image/jpeg", Body: bytes.NewReader(make([]byte, 10))}, 10)
		require.NoError(t, err)
		assert.Len(t, data, 10)
	})
}

func TestObjectKey(t *testing.T) {
	key := objectKey("user-1", "Me.PNG")
	assert.True(t, strings.HasPrefix(key, "avatars/user-1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.NotEqual(t, key, objectKey("user-1", "Me.PNG"))
}

func TestS3Uploader_Upload(t *testing.T) {
	var mu sync.Mutex
	var gotMethod, gotPath, gotType string
	var gotBody []byte

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := s3.NewFromConfig(aws.Config{
		Region:      "us-east-1",
		Credentials: aws.AnonymousCredentials{},
	}, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(server.URL)
		o.UsePathStyle = true
	})

	uploader := NewS3Uploader(client, "avatars-bucket", "us-east-1", "https://cdn.shop.ng/", 0)
	url, err := uploader.Upload(context.Background(), "user-9", domain.AvatarFile{
		Name:        "face.jpg",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg-bytes"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.shop.ng/avatars/user-9/"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.True(t, strings.HasPrefix(gotPath, "/avatars-bucket/avatars/user-9/"))
	assert.Equal(t, "image/jpeg", gotType)
	assert.Contains(t, string(gotBody), "jpeg-bytes")
}
