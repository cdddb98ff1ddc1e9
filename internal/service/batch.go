package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/community-admin/backend/internal/delivery"
	"github.com/pkordes/community-admin/backend/internal/domain"
	"github.com/pkordes/community-admin/backend/internal/metrics"
	"github.com/pkordes/community-admin/backend/internal/serialize"
)

// reportName is the file name stem of a multi-category JSON export.
const reportName = "user-data-export"

// UnitAggregator is the aggregation step of a batch run.
// *Aggregator satisfies it.
type UnitAggregator interface {
	Aggregate(ctx context.Context, projectID, userID string, categories []domain.Category) (domain.AggregateResult, error)
}

// BatchExporter runs export units one after another and delivers their
// files to a sink.
type BatchExporter struct {
	agg     UnitAggregator
	sink    delivery.Sink
	log     *slog.Logger
	metrics *metrics.Exporter
	nowFn   func() time.Time
}

// NewBatchExporter constructs a BatchExporter. log and m may be nil.
func NewBatchExporter(agg UnitAggregator, sink delivery.Sink, log *slog.Logger, m *metrics.Exporter) *BatchExporter {
	if log == nil {
		log = slog.Default()
	}
	return &BatchExporter{
		agg:     agg,
		sink:    sink,
		log:     log,
		metrics: m,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for filenames and summary timestamps.
func (b *BatchExporter) WithClock(now func() time.Time) *BatchExporter {
	b.nowFn = now
	return b
}

// ExportBatch processes units sequentially in input order. A failing unit
// is recorded in its outcome and the run continues with the next one.
// Totals count successful units only.
func (b *BatchExporter) ExportBatch(ctx context.Context, units []domain.ExportUnit) domain.BatchSummary {
	summary := domain.BatchSummary{
		BatchID:   uuid.New(),
		StartedAt: b.nowFn(),
		Outcomes:  make([]domain.UnitOutcome, 0, len(units)),
	}
	if batched, ok := b.sink.(delivery.Batched); ok {
		summary.BatchID = batched.BatchID()
	}
	if len(units) > 0 {
		summary.Totals.Format = units[0].Format
	}

	for _, u := range units {
		start := time.Now()
		outcome := b.exportUnit(ctx, u)
		summary.Outcomes = append(summary.Outcomes, outcome)

		status := "success"
		if outcome.Success {
			summary.Totals.TotalFiles += len(outcome.Files)
			summary.Totals.TotalRecords += outcome.RecordCount
			b.log.InfoContext(ctx, "export unit finished",
				"batch_id", summary.BatchID,
				"unit", u.String(),
				"records", outcome.RecordCount,
				"files", len(outcome.Files),
			)
		} else {
			status = "failed"
			b.log.ErrorContext(ctx, "export unit failed",
				"batch_id", summary.BatchID,
				"unit", u.String(),
				"delivered_files", len(outcome.Files),
				"error", outcome.Error,
			)
		}
		b.metrics.UnitFinished(status, time.Since(start))
	}

	summary.FinishedAt = b.nowFn()
	return summary
}

func (b *BatchExporter) exportUnit(ctx context.Context, u domain.ExportUnit) domain.UnitOutcome {
	outcome := domain.UnitOutcome{Unit: u, Files: []string{}}

	result, err := b.agg.Aggregate(ctx, u.ProjectID, u.UserID, u.Categories)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	files, err := b.render(u, result)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	// Every file is rendered before the first delivery, so only a sink
	// failure can leave a unit partially delivered.
	for _, f := range files {
		if err := b.sink.Deliver(ctx, f.content, f.name, u.Format.MimeType()); err != nil {
			if len(outcome.Files) > 0 {
				err = fmt.Errorf("%w (%d of %d files delivered)", err, len(outcome.Files), len(files))
			}
			outcome.Error = err.Error()
			return outcome
		}
		b.metrics.FileDelivered(string(u.Format), len(f.content))
		outcome.Files = append(outcome.Files, f.name)
	}

	outcome.Success = true
	outcome.RecordCount = result.TotalRecords()
	return outcome
}

type plannedFile struct {
	name    string
	content []byte
}

// render serializes a unit's aggregate into the files it produces.
// JSON yields one file holding the whole aggregate; CSV yields one file per
// category.
func (b *BatchExporter) render(u domain.ExportUnit, result domain.AggregateResult) ([]plannedFile, error) {
	date := b.nowFn().UTC().Format("2006-01-02")

	switch u.Format {
	case domain.FormatJSON:
		name := reportName
		if cats := result.Categories(); len(cats) == 1 {
			name = string(cats[0])
		}
		content, err := serialize.JSON(result)
		if err != nil {
			return nil, fmt.Errorf("service.BatchExporter: %w", err)
		}
		return []plannedFile{{name: Filename(name, u, date), content: content}}, nil

	case domain.FormatCSV:
		files := make([]plannedFile, 0, len(result.Data))
		for _, d := range result.Data {
			content, err := serialize.CSV(d.Rows(), string(d.Category))
			if err != nil {
				return nil, fmt.Errorf("service.BatchExporter: %s: %w", d.Category, err)
			}
			files = append(files, plannedFile{name: Filename(string(d.Category), u, date), content: content})
		}
		return files, nil

	default:
		return nil, fmt.Errorf("service.BatchExporter: %w: unsupported format %q", domain.ErrValidation, u.Format)
	}
}

// Filename builds "<name>[-<userId>]-<YYYY-MM-DD>.<ext>".
func Filename(name string, u domain.ExportUnit, date string) string {
	if u.LabelUser {
		name += "-" + u.UserID
	}
	return fmt.Sprintf("%s-%s.%s", name, date, u.Format.Extension())
}
