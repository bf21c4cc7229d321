package uploads

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
)

// UploadService coordinates document payload storage and returns the
// metadata the engine persists alongside the owning execution record.
type UploadService struct {
	Driver StorageDriver
}

func NewUploadService(driver StorageDriver) *UploadService {
	return &UploadService{Driver: driver}
}

// countingReader counts bytes as the driver consumes them, so the recorded
// size always reflects the stored payload rather than a caller-declared one.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Upload stores the payload under a fresh key and returns its metadata.
func (s *UploadService) Upload(ctx context.Context, filename string, reader io.Reader, mime string) (*FileMetadata, error) {
	if mime == "" {
		mime = "application/octet-stream"
	}
	id := uuid.New()
	ext := filepath.Ext(filename)
	key := fmt.Sprintf("%s%s", id.String(), ext)

	counted := &countingReader{r: reader}
	if err := s.Driver.Save(ctx, key, counted, mime); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned file", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	metadata := &FileMetadata{
		ID:       id,
		Name:     filename,
		Key:      key,
		URL:      url,
		Size:     counted.n,
		MimeType: mime,
	}

	slog.InfoContext(ctx, "document payload stored", "id", id, "key", key, "size", counted.n)
	return metadata, nil
}

// Download retrieves the payload content and its MIME type.
func (s *UploadService) Download(ctx context.Context, key string) (io.ReadCloser, string, error) {
	return s.Driver.Get(ctx, key)
}

// Remove deletes the payload for a key.
func (s *UploadService) Remove(ctx context.Context, key string) error {
	return s.Driver.Delete(ctx, key)
}
