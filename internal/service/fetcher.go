package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkordes/community-admin/backend/internal/domain"
	"github.com/pkordes/community-admin/backend/internal/metrics"
	"github.com/pkordes/community-admin/backend/internal/repo"
)

// source describes where a category lives in the document store.
// Singleton categories are read with GetDocument; list categories are
// queried by owning user and sorted newest first on sortField.
type source struct {
	path      func(projectID, userID string) string
	sortField string
	decode    func(repo.RawDocument) domain.Record
}

var sources = map[domain.Category]source{
	domain.CategoryProfile: {
		path:   func(_, uid string) string { return repo.CollectionPath("users", uid) },
		decode: decodeProfile,
	},
	domain.CategoryProjectMembership: {
		path:   func(pid, uid string) string { return repo.CollectionPath("projects", pid, "users", uid) },
		decode: decodeMembership,
	},
	domain.CategoryGatePasses: {
		path:      func(pid, _ string) string { return repo.CollectionPath("projects", pid, "gatePasses") },
		sortField: "createdAt",
		decode:    decodeGatePass,
	},
	domain.CategoryGuestPasses: {
		path:      func(pid, _ string) string { return repo.CollectionPath("projects", pid, "guestPasses") },
		sortField: "createdAt",
		decode:    decodeGuestPass,
	},
	domain.CategoryOrders: {
		path:      func(pid, _ string) string { return repo.CollectionPath("projects", pid, "orders") },
		sortField: "createdAt",
		decode:    decodeOrder,
	},
	domain.CategoryBookings: {
		path:      func(pid, _ string) string { return repo.CollectionPath("projects", pid, "bookings") },
		sortField: "date",
		decode:    decodeBooking,
	},
}

// SortField returns the field a list category is ordered on (newest first).
func SortField(c domain.Category) string {
	return sources[c].sortField
}

// Fetcher retrieves and normalizes one category of records for one user.
type Fetcher struct {
	store   repo.DocumentStore
	log     *slog.Logger
	metrics *metrics.Exporter
}

// NewFetcher constructs a Fetcher. m may be nil.
func NewFetcher(store repo.DocumentStore, log *slog.Logger, m *metrics.Exporter) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{store: store, log: log, metrics: m}
}

// Fetch returns the category's records. It never fails: a store error is
// logged and the category comes back empty (nil for singletons), so one bad
// category cannot block the others.
func (f *Fetcher) Fetch(ctx context.Context, projectID, userID string, c domain.Category) domain.CategoryData {
	data, err := f.fetch(ctx, projectID, userID, c)
	if err != nil {
		f.log.WarnContext(ctx, "category fetch failed",
			"category", c,
			"project_id", projectID,
			"user_id", userID,
			"error", err,
		)
		f.metrics.FetchFailed(string(c))
		return domain.CategoryData{Category: c, Records: emptyRecords(c)}
	}
	f.metrics.RecordsFetched(string(c), data.Count())
	return data
}

func (f *Fetcher) fetch(ctx context.Context, projectID, userID string, c domain.Category) (domain.CategoryData, error) {
	src, ok := sources[c]
	if !ok {
		return domain.CategoryData{}, fmt.Errorf("service.Fetcher.Fetch: %w: unknown category %q", domain.ErrValidation, c)
	}
	path := src.path(projectID, userID)

	if c.Singleton() {
		doc, err := f.store.GetDocument(ctx, path)
		if err != nil {
			return domain.CategoryData{}, fmt.Errorf("service.Fetcher.Fetch %s: %w", c, err)
		}
		out := domain.CategoryData{Category: c}
		if doc != nil {
			out.Single = src.decode(*doc)
		}
		return out, nil
	}

	docs, err := f.store.QueryCollection(ctx, path,
		[]repo.Filter{{Field: "userId", Op: repo.OpEqual, Value: userID}},
		src.sortField, repo.Descending,
	)
	if err != nil {
		return domain.CategoryData{}, fmt.Errorf("service.Fetcher.Fetch %s: %w", c, err)
	}
	records := make([]domain.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, src.decode(d))
	}
	return domain.CategoryData{Category: c, Records: records}, nil
}

func emptyRecords(c domain.Category) []domain.Record {
	if c.Singleton() {
		return nil
	}
	return []domain.Record{}
}

// --- document decoding -------------------------------------------------------

// docReader pulls declared fields out of a raw document and leaves the rest
// for the Extra passthrough. A declared field is only claimed when its
// stored value fits the declared type; anything else stays unclaimed and is
// exported as stored.
type docReader struct {
	data map[string]any
	used map[string]bool
}

func newDocReader(d repo.RawDocument) *docReader {
	return &docReader{data: d.Data, used: map[string]bool{"id": true}}
}

// claim marks key as decoded when ok, or when the field is absent.
func (r *docReader) claim(key string, ok bool) bool {
	if ok || r.data[key] == nil {
		r.used[key] = true
	}
	return ok
}

func (r *docReader) str(key string) *string {
	s, ok := r.data[key].(string)
	if !r.claim(key, ok) {
		return nil
	}
	return &s
}

func (r *docReader) timestamp(key string) string {
	s, ok := NormalizeTimestamp(r.data[key])
	r.claim(key, ok)
	return s
}

func (r *docReader) integer(key string) *int64 {
	n, ok := asInt64(r.data[key])
	if !r.claim(key, ok) {
		return nil
	}
	return &n
}

func (r *docReader) number(key string) *float64 {
	n, ok := asFloat64(r.data[key])
	if !r.claim(key, ok) {
		return nil
	}
	return &n
}

func (r *docReader) value(key string) any {
	r.used[key] = true
	return normalizeValue(r.data[key])
}

// extra returns the undeclared fields, normalized, or nil if there are none.
func (r *docReader) extra() map[string]any {
	var out map[string]any
	for k, v := range r.data {
		if r.used[k] {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = normalizeValue(v)
	}
	return out
}

func decodeProfile(d repo.RawDocument) domain.Record {
	r := newDocReader(d)
	p := domain.Profile{
		ID:          d.ID,
		Email:       r.str("email"),
		DisplayName: r.str("displayName"),
		PhoneNumber: r.str("phoneNumber"),
		Role:        r.str("role"),
		CreatedAt:   r.timestamp("createdAt"),
		UpdatedAt:   r.timestamp("updatedAt"),
	}
	p.Extra = r.extra()
	return p
}

func decodeMembership(d repo.RawDocument) domain.Record {
	r := newDocReader(d)
	m := domain.ProjectMembership{
		ID:              d.ID,
		UserID:          r.str("userId"),
		ProjectID:       r.str("projectId"),
		Unit:            r.str("unit"),
		Role:            r.str("role"),
		GuestPassQuota:  r.integer("guestPassQuota"),
		GuestPassesUsed: r.integer("guestPassesUsed"),
		JoinedAt:        r.timestamp("joinedAt"),
		UpdatedAt:       r.timestamp("updatedAt"),
	}
	m.Extra = r.extra()
	return m
}

func decodeGatePass(d repo.RawDocument) domain.Record {
	r := newDocReader(d)
	g := domain.GatePass{
		ID:            d.ID,
		UserID:        r.str("userId"),
		Type:          r.str("type"),
		Purpose:       r.str("purpose"),
		VehicleNumber: r.str("vehicleNumber"),
		Status:        r.str("status"),
		ValidFrom:     r.timestamp("validFrom"),
		ValidUntil:    r.timestamp("validUntil"),
		CreatedAt:     r.timestamp("createdAt"),
		UpdatedAt:     r.timestamp("updatedAt"),
	}
	g.Extra = r.extra()
	return g
}

func decodeGuestPass(d repo.RawDocument) domain.Record {
	r := newDocReader(d)
	g := domain.GuestPass{
		ID:         d.ID,
		UserID:     r.str("userId"),
		GuestName:  r.str("guestName"),
		GuestPhone: r.str("guestPhone"),
		VisitDate:  r.timestamp("visitDate"),
		Status:     r.str("status"),
		CreatedAt:  r.timestamp("createdAt"),
		UpdatedAt:  r.timestamp("updatedAt"),
	}
	g.Extra = r.extra()
	return g
}

func decodeOrder(d repo.RawDocument) domain.Record {
	r := newDocReader(d)
	o := domain.Order{
		ID:          d.ID,
		UserID:      r.str("userId"),
		ServiceName: r.str("serviceName"),
		Items:       r.value("items"),
		Total:       r.number("total"),
		Status:      r.str("status"),
		Notes:       r.str("notes"),
		CreatedAt:   r.timestamp("createdAt"),
		UpdatedAt:   r.timestamp("updatedAt"),
	}
	o.Extra = r.extra()
	return o
}

func decodeBooking(d repo.RawDocument) domain.Record {
	r := newDocReader(d)
	b := domain.Booking{
		ID:           d.ID,
		UserID:       r.str("userId"),
		FacilityName: r.str("facilityName"),
		Date:         r.timestamp("date"),
		TimeSlot:     r.str("timeSlot"),
		Status:       r.str("status"),
		Notes:        r.str("notes"),
		CreatedAt:    r.timestamp("createdAt"),
		UpdatedAt:    r.timestamp("updatedAt"),
	}
	b.Extra = r.extra()
	return b
}
