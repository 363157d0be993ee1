package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignUploadOffline(t *testing.T) {
	p, err := NewPresigner(context.Background(), S3Config{
		Bucket:    "avatars",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minio",
		SecretKey: "minio-secret",
		Expires:   5 * time.Minute,
	})
	require.NoError(t, err)

	raw, expiresAt, err := p.PresignUpload(context.Background(), "avatars/1/abc.png", "image/png")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), expiresAt, 5*time.Second)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/avatars/avatars/1/abc.png", u.Path)
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Equal(t, "300", u.Query().Get("X-Amz-Expires"))
}

func TestNewPresignerRequiresConfig(t *testing.T) {
	_, err := NewPresigner(context.Background(), S3Config{Bucket: "avatars"})
	assert.Error(t, err)
	assert.False(t, S3Config{}.Enabled())
}
