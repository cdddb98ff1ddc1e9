package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/community-admin/backend/internal/domain"
)

// FileCreator is the slice of repo.ExportFileRepo a StoreSink needs.
type FileCreator interface {
	Create(ctx context.Context, file domain.ExportFile) (domain.ExportFile, error)
}

// StoreSink persists delivered files under a single batch id, owned by the
// user who requested the batch.
type StoreSink struct {
	files   FileCreator
	batchID uuid.UUID
	owner   string

	mu    sync.Mutex
	saved []domain.ExportFile
}

// NewStoreSink returns a sink that stores files for batchID on behalf of owner.
func NewStoreSink(files FileCreator, batchID uuid.UUID, owner string) *StoreSink {
	return &StoreSink{files: files, batchID: batchID, owner: owner}
}

// BatchID implements Batched.
func (s *StoreSink) BatchID() uuid.UUID { return s.batchID }

// Deliver inserts the file and remembers the stored row.
func (s *StoreSink) Deliver(ctx context.Context, content []byte, filename, mimeType string) error {
	stored, err := s.files.Create(ctx, domain.ExportFile{
		BatchID:   s.batchID,
		CreatedBy: s.owner,
		Filename:  filename,
		MimeType:  mimeType,
		Content:   content,
	})
	if err != nil {
		return fmt.Errorf("delivery.StoreSink.Deliver: %w: %v", domain.ErrDelivery, err)
	}
	s.mu.Lock()
	s.saved = append(s.saved, stored)
	s.mu.Unlock()
	return nil
}

// Saved returns the stored files in delivery order.
func (s *StoreSink) Saved() []domain.ExportFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ExportFile, len(s.saved))
	copy(out, s.saved)
	return out
}
