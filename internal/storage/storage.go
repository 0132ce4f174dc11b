package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"submission_service/internal/domain"
	"submission_service/internal/errdefs"
	"submission_service/pkg/retry"
)

// Backend stores an object under key and returns its public URL.
type Backend interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (string, error)
}

type Options struct {
	StagingDir string
	Folder     string
	MaxRetries int
	BaseDelay  time.Duration
}

type BlobStore struct {
	backend    Backend
	stagingDir string
	folder     string
	maxRetries int
	baseDelay  time.Duration
	breaker    *retry.CircuitBreaker
	now        func() time.Time
}

func NewBlobStore(backend Backend, opts Options) (*BlobStore, error) {
	if opts.StagingDir == "" {
		opts.StagingDir = os.TempDir()
	}
	if opts.Folder == "" {
		opts.Folder = "Assignment_Submission"
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = 200 * time.Millisecond
	}

	if err := os.MkdirAll(opts.StagingDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}

	return &BlobStore{
		backend:    backend,
		stagingDir: opts.StagingDir,
		folder:     opts.Folder,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		breaker:    retry.NewCircuitBreaker(5, 30*time.Second),
		now:        time.Now,
	}, nil
}

// Stage copies an uploaded multipart file into the staging directory. Any
// file type is accepted. The caller owns the returned attachment and must
// Discard it.
func (s *BlobStore) Stage(field string, header *multipart.FileHeader) (*domain.Attachment, error) {
	extension := strings.ToLower(path.Ext(header.Filename))

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() { _ = src.Close() }()

	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s-%d-%s%s", field, s.now().UnixMilli(), hex.EncodeToString(suffix), extension)
	stagedPath := filepath.Join(s.stagingDir, name)

	dst, err := os.OpenFile(stagedPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	size, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(stagedPath)
		return nil, fmt.Errorf("failed to stage upload: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &domain.Attachment{
		Path:        stagedPath,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        size,
	}, nil
}

// Upload sends the staged attachment to the backend and returns its URL.
// Transient backend failures are retried behind a circuit breaker.
func (s *BlobStore) Upload(ctx context.Context, attachment *domain.Attachment) (string, error) {
	if attachment == nil {
		return "", fmt.Errorf("attachment is required: %w", errdefs.ErrInvalidArgument)
	}

	key := s.objectKey(attachment.Filename)

	return retry.WithCircuitBreaker(ctx, s.breaker, s.maxRetries, s.baseDelay, func() (string, error) {
		f, err := os.Open(attachment.Path)
		if err != nil {
			return "", fmt.Errorf("failed to open staged file: %w", err)
		}
		defer func() { _ = f.Close() }()

		return s.backend.Put(ctx, key, f, attachment.Size, attachment.ContentType)
	})
}

// Discard removes a staged file. A file that is already gone is not an error.
func (s *BlobStore) Discard(stagedPath string) error {
	if stagedPath == "" {
		return nil
	}
	if err := os.Remove(stagedPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *BlobStore) objectKey(filename string) string {
	return fmt.Sprintf("%s/post_%d-%s%s", s.folder, s.now().UnixMilli(), uuid.NewString(), strings.ToLower(path.Ext(filename)))
}
