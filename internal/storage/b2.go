package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kurin/blazer/b2"
)

type B2Backend struct {
	bucket *b2.Bucket
}

func NewB2Backend(ctx context.Context, accountID, appKey, bucketName string) (*B2Backend, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create b2 client: %w", err)
	}

	bucket, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &B2Backend{bucket: bucket}, nil
}

func (b *B2Backend) Put(ctx context.Context, key string, body io.ReadSeeker, _ int64, contentType string) (string, error) {
	w := b.bucket.Object(key).NewWriter(ctx, b2.WithAttrsOption(&b2.Attrs{ContentType: contentType}))

	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %w", err)
	}

	return b2FileURL(b.bucket.BaseURL(), b.bucket.Name(), key), nil
}

// b2FileURL builds the friendly download URL of a public bucket object.
func b2FileURL(baseURL, bucket, key string) string {
	return fmt.Sprintf("%s/file/%s/%s", strings.TrimSuffix(baseURL, "/"), bucket, key)
}
