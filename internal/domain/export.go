package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CategoryData is the outcome of one category fetch.
// Singleton categories use Single (nil when the document is missing or the
// fetch failed); list categories use Records (never nil after a fetch).
type CategoryData struct {
	Category Category
	Single   Record
	Records  []Record
}

// Count is the number of records the category contributes: 0 or 1 for
// singletons, the sequence length otherwise.
func (d CategoryData) Count() int {
	if d.Category.Singleton() {
		if d.Single == nil {
			return 0
		}
		return 1
	}
	return len(d.Records)
}

// Rows returns the category as a sequence, wrapping a singleton.
func (d CategoryData) Rows() []Record {
	if d.Category.Singleton() {
		if d.Single == nil {
			return []Record{}
		}
		return []Record{d.Single}
	}
	if d.Records == nil {
		return []Record{}
	}
	return d.Records
}

// MarshalJSON encodes a singleton as an object or null and a list as an
// array, never null.
func (d CategoryData) MarshalJSON() ([]byte, error) {
	if d.Category.Singleton() {
		if d.Single == nil {
			return []byte("null"), nil
		}
		return json.Marshal(d.Single)
	}
	return json.Marshal(d.Rows())
}

// CategoryCount is one entry of ExportMetadata.DataTypes.
type CategoryCount struct {
	Category Category
	Count    int
}

// ExportMetadata describes an AggregateResult.
type ExportMetadata struct {
	ExportDate string
	ProjectID  string
	UserID     string
	DataTypes  []CategoryCount
}

// MarshalJSON keeps dataTypes in category order.
func (m ExportMetadata) MarshalJSON() ([]byte, error) {
	counts := make([]Field, 0, len(m.DataTypes))
	for _, c := range m.DataTypes {
		counts = append(counts, Field{Key: string(c.Category), Value: c.Count})
	}
	dataTypes, err := MarshalFields(counts)
	if err != nil {
		return nil, err
	}
	return MarshalFields([]Field{
		{"exportDate", m.ExportDate},
		{"projectId", optional(&m.ProjectID)},
		{"userId", m.UserID},
		{"dataTypes", json.RawMessage(dataTypes)},
	})
}

// AggregateResult is all selected categories' data for one user.
// Every selected category has an entry even when its fetch failed.
type AggregateResult struct {
	Metadata ExportMetadata
	Data     []CategoryData
}

// Get returns the entry for c.
func (a AggregateResult) Get(c Category) (CategoryData, bool) {
	for _, d := range a.Data {
		if d.Category == c {
			return d, true
		}
	}
	return CategoryData{}, false
}

// Categories lists the result's keys in order.
func (a AggregateResult) Categories() []Category {
	out := make([]Category, len(a.Data))
	for i, d := range a.Data {
		out[i] = d.Category
	}
	return out
}

// TotalRecords sums Count over every category.
func (a AggregateResult) TotalRecords() int {
	n := 0
	for _, d := range a.Data {
		n += d.Count()
	}
	return n
}

// MarshalJSON emits metadata first, then one key per category.
func (a AggregateResult) MarshalJSON() ([]byte, error) {
	fields := make([]Field, 0, len(a.Data)+1)
	fields = append(fields, Field{Key: "metadata", Value: a.Metadata})
	for _, d := range a.Data {
		fields = append(fields, Field{Key: string(d.Category), Value: d})
	}
	return MarshalFields(fields)
}

// ExportUnit is one (project, user, categories, format) request.
// LabelUser embeds the user id in produced filenames; multi-user batches set it.
type ExportUnit struct {
	ProjectID  string
	UserID     string
	Categories []Category
	Format     Format
	LabelUser  bool
}

// String describes the unit for summaries and logs.
func (u ExportUnit) String() string {
	names := make([]string, len(u.Categories))
	for i, c := range u.Categories {
		names[i] = string(c)
	}
	return fmt.Sprintf("%s/%s [%s] %s", u.ProjectID, u.UserID, strings.Join(names, ","), u.Format)
}

// MarshalJSON encodes the unit descriptor for BatchSummary responses.
func (u ExportUnit) MarshalJSON() ([]byte, error) {
	type unitJSON struct {
		ProjectID  string     `json:"projectId,omitempty"`
		UserID     string     `json:"userId"`
		Categories []Category `json:"categories"`
		Format     Format     `json:"format"`
	}
	return json.Marshal(unitJSON{u.ProjectID, u.UserID, u.Categories, u.Format})
}

// UnitOutcome records what happened to one ExportUnit. Files lists every
// file the sink accepted, so a unit that failed mid-delivery still names the
// files it left behind.
type UnitOutcome struct {
	Unit        ExportUnit `json:"unit"`
	Success     bool       `json:"success"`
	RecordCount int        `json:"recordCount"`
	Files       []string   `json:"files"`
	Error       string     `json:"error,omitempty"`
}

// BatchTotals sums successful outcomes only.
type BatchTotals struct {
	TotalFiles   int    `json:"totalFiles"`
	TotalRecords int    `json:"totalRecords"`
	Format       Format `json:"format"`
}

// BatchSummary is the outcome report for a set of ExportUnits.
type BatchSummary struct {
	BatchID    uuid.UUID     `json:"batchId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Outcomes   []UnitOutcome `json:"outcomes"`
	Totals     BatchTotals   `json:"totals"`
}

// Failed returns the outcomes that did not succeed.
func (s BatchSummary) Failed() []UnitOutcome {
	var out []UnitOutcome
	for _, o := range s.Outcomes {
		if !o.Success {
			out = append(out, o)
		}
	}
	return out
}

// ExportFile is a delivered file persisted by the file store.
// CreatedBy is the user who requested the batch; only they may read it back.
type ExportFile struct {
	ID        uuid.UUID
	BatchID   uuid.UUID
	CreatedBy string
	Filename  string
	MimeType  string
	Content   []byte
	CreatedAt time.Time
}

// Size is the content length in bytes.
func (f ExportFile) Size() int { return len(f.Content) }
