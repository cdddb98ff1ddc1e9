package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/community-admin/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ExportFileRepo persists files produced by batch exports so they can be
// downloaded after the batch request returns.
type ExportFileRepo interface {
	// Create inserts a file and returns it with DB-generated id and created_at.
	Create(ctx context.Context, file domain.ExportFile) (domain.ExportFile, error)

	// GetByID returns a file including its content.
	// Returns domain.ErrNotFound if no file with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.ExportFile, error)

	// ListByBatch returns the files of one batch in delivery order, without content.
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.ExportFile, error)

	// DeleteBatch removes every file of a batch and returns how many were deleted.
	DeleteBatch(ctx context.Context, batchID uuid.UUID) (int64, error)
}

// pgExportFileRepo is the Postgres implementation of ExportFileRepo.
type pgExportFileRepo struct {
	db db
}

// NewExportFileRepo constructs an ExportFileRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewExportFileRepo(db db) ExportFileRepo {
	return &pgExportFileRepo{db: db}
}

// Create inserts a new export_files row.
func (r *pgExportFileRepo) Create(ctx context.Context, file domain.ExportFile) (domain.ExportFile, error) {
	const q = `
		INSERT INTO export_files (batch_id, created_by, filename, mime_type, content)
		VALUES (@batch_id, @created_by, @filename, @mime_type, @content)
		RETURNING id, batch_id, created_by, filename, mime_type, content, created_at`

	args := pgx.NamedArgs{
		"batch_id":   file.BatchID,
		"created_by": file.CreatedBy,
		"filename":   file.Filename,
		"mime_type":  file.MimeType,
		"content":    file.Content,
	}

	result, err := scanExportFile(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("repo.ExportFileRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a file by primary key.
func (r *pgExportFileRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ExportFile, error) {
	const q = `
		SELECT id, batch_id, created_by, filename, mime_type, content, created_at
		FROM export_files
		WHERE id = @id`

	result, err := scanExportFile(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.ExportFile{}, fmt.Errorf("repo.ExportFileRepo.GetByID: %w", err)
	}
	return result, nil
}

// ListByBatch returns a batch's files ordered by insertion (delivery) order.
// Content is left empty; callers fetch it per file with GetByID.
func (r *pgExportFileRepo) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]domain.ExportFile, error) {
	const q = `
		SELECT id, batch_id, created_by, filename, mime_type, ''::bytea, created_at
		FROM export_files
		WHERE batch_id = @batch_id
		ORDER BY seq`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"batch_id": batchID})
	if err != nil {
		return nil, fmt.Errorf("repo.ExportFileRepo.ListByBatch: %w", err)
	}
	defer rows.Close()

	files := []domain.ExportFile{}
	for rows.Next() {
		f, err := scanExportFile(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ExportFileRepo.ListByBatch: scan: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ExportFileRepo.ListByBatch: rows: %w", err)
	}
	return files, nil
}

// DeleteBatch removes all files for batchID.
func (r *pgExportFileRepo) DeleteBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	const q = `DELETE FROM export_files WHERE batch_id = @batch_id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"batch_id": batchID})
	if err != nil {
		return 0, fmt.Errorf("repo.ExportFileRepo.DeleteBatch: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanExportFile maps a single database row into a domain.ExportFile.
func scanExportFile(s scanner) (domain.ExportFile, error) {
	var (
		f       domain.ExportFile
		id      pgtype.UUID
		batchID pgtype.UUID
	)

	err := s.Scan(&id, &batchID, &f.CreatedBy, &f.Filename, &f.MimeType, &f.Content, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExportFile{}, domain.ErrNotFound
		}
		return domain.ExportFile{}, err
	}

	f.ID = uuid.UUID(id.Bytes)
	f.BatchID = uuid.UUID(batchID.Bytes)
	return f, nil
}
