package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkordes/community-admin/backend/internal/domain"
)

// DirSink writes each file into a directory, replacing existing files with
// the same name.
type DirSink struct {
	dir string
}

// NewDirSink returns a sink rooted at dir. The directory is created on the
// first delivery.
func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

// Deliver writes content to dir/filename. filename must be a bare name.
func (s *DirSink) Deliver(ctx context.Context, content []byte, filename, _ string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delivery.DirSink.Deliver: %w: %v", domain.ErrDelivery, err)
	}
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return fmt.Errorf("delivery.DirSink.Deliver: %w: invalid filename %q", domain.ErrDelivery, filename)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("delivery.DirSink.Deliver: %w: %v", domain.ErrDelivery, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, filename), content, 0o644); err != nil {
		return fmt.Errorf("delivery.DirSink.Deliver: %w: %v", domain.ErrDelivery, err)
	}
	return nil
}
