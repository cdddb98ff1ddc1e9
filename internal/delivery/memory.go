package delivery

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pkordes/community-admin/backend/internal/domain"
)

// File is one delivered file held in memory.
type File struct {
	Name     string
	MimeType string
	Content  []byte
}

// MemorySink collects delivered files in order. Safe for concurrent use.
type MemorySink struct {
	mu    sync.Mutex
	files []File
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Deliver appends a copy of content.
func (s *MemorySink) Deliver(ctx context.Context, content []byte, filename, mimeType string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delivery.MemorySink.Deliver: %w: %v", domain.ErrDelivery, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, File{
		Name:     filename,
		MimeType: mimeType,
		Content:  append([]byte(nil), content...),
	})
	return nil
}

// Files returns the delivered files in delivery order.
func (s *MemorySink) Files() []File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]File, len(s.files))
	copy(out, s.files)
	return out
}

// WriteZip writes every delivered file into a zip archive on w.
// Entries keep delivery order and carry modified as their timestamp.
func (s *MemorySink) WriteZip(w io.Writer, modified time.Time) error {
	zw := zip.NewWriter(w)
	for _, f := range s.Files() {
		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return fmt.Errorf("delivery.MemorySink.WriteZip: %s: %w", f.Name, err)
		}
		if _, err := entry.Write(f.Content); err != nil {
			return fmt.Errorf("delivery.MemorySink.WriteZip: %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("delivery.MemorySink.WriteZip: %w", err)
	}
	return nil
}
