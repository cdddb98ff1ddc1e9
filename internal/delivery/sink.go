// Package delivery hands finished export files to their destination.
//
// The export engine only knows Sink. Which implementation is used depends on
// the caller: the CLI writes into a directory, the HTTP download endpoint
// buffers files in memory, and batch requests persist them in Postgres.
package delivery

import (
	"context"

	"github.com/google/uuid"
)

// Sink receives one serialized file. A returned error fails the export
// unit that produced the file.
type Sink interface {
	Deliver(ctx context.Context, content []byte, filename, mimeType string) error
}

// SinkFunc adapts a plain function to Sink.
type SinkFunc func(ctx context.Context, content []byte, filename, mimeType string) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, content []byte, filename, mimeType string) error {
	return f(ctx, content, filename, mimeType)
}

// Batched is implemented by sinks that group their files under an id.
// A batch run delivering into such a sink reports that id as its own.
type Batched interface {
	BatchID() uuid.UUID
}
