package domain

// Timestamp fields on every record type hold normalized ISO-8601 strings
// ("2006-01-02T15:04:05.000Z"). The empty string means the field was absent
// and encodes as null. Other declared fields are pointers: nil means absent,
// a pointer to "" is a stored empty string. Extra carries document fields
// this version does not declare, plus declared fields whose stored value did
// not fit the declared type; those are exported as stored, in the declared
// field's position.

// Profile is the global user document (users/{uid}).
type Profile struct {
	ID          string
	Email       *string
	DisplayName *string
	PhoneNumber *string
	Role        *string
	CreatedAt   string
	UpdatedAt   string
	Extra       map[string]any
}

func (p Profile) RecordID() string { return p.ID }

func (p Profile) Fields() []Field {
	return withExtra([]Field{
		{"id", p.ID},
		{"email", optional(p.Email)},
		{"displayName", optional(p.DisplayName)},
		{"phoneNumber", optional(p.PhoneNumber)},
		{"role", optional(p.Role)},
		{"createdAt", timestamp(p.CreatedAt)},
		{"updatedAt", timestamp(p.UpdatedAt)},
	}, p.Extra)
}

func (p Profile) MarshalJSON() ([]byte, error) { return MarshalFields(p.Fields()) }

// ProjectMembership is the per-project user document
// (projects/{pid}/users/{uid}). It carries the guest-pass quota.
type ProjectMembership struct {
	ID              string
	UserID          *string
	ProjectID       *string
	Unit            *string
	Role            *string
	GuestPassQuota  *int64
	GuestPassesUsed *int64
	JoinedAt        string
	UpdatedAt       string
	Extra           map[string]any
}

func (m ProjectMembership) RecordID() string { return m.ID }

func (m ProjectMembership) Fields() []Field {
	return withExtra([]Field{
		{"id", m.ID},
		{"userId", optional(m.UserID)},
		{"projectId", optional(m.ProjectID)},
		{"unit", optional(m.Unit)},
		{"role", optional(m.Role)},
		{"guestPassQuota", optional(m.GuestPassQuota)},
		{"guestPassesUsed", optional(m.GuestPassesUsed)},
		{"joinedAt", timestamp(m.JoinedAt)},
		{"updatedAt", timestamp(m.UpdatedAt)},
	}, m.Extra)
}

func (m ProjectMembership) MarshalJSON() ([]byte, error) { return MarshalFields(m.Fields()) }

// GatePass authorizes a service visit or vehicle through the gate.
type GatePass struct {
	ID            string
	UserID        *string
	Type          *string
	Purpose       *string
	VehicleNumber *string
	Status        *string
	ValidFrom     string
	ValidUntil    string
	CreatedAt     string
	UpdatedAt     string
	Extra         map[string]any
}

func (g GatePass) RecordID() string { return g.ID }

func (g GatePass) Fields() []Field {
	return withExtra([]Field{
		{"id", g.ID},
		{"userId", optional(g.UserID)},
		{"type", optional(g.Type)},
		{"purpose", optional(g.Purpose)},
		{"vehicleNumber", optional(g.VehicleNumber)},
		{"status", optional(g.Status)},
		{"validFrom", timestamp(g.ValidFrom)},
		{"validUntil", timestamp(g.ValidUntil)},
		{"createdAt", timestamp(g.CreatedAt)},
		{"updatedAt", timestamp(g.UpdatedAt)},
	}, g.Extra)
}

func (g GatePass) MarshalJSON() ([]byte, error) { return MarshalFields(g.Fields()) }

// GuestPass admits a named guest on a visit date. Guest passes count
// against the resident's quota.
type GuestPass struct {
	ID         string
	UserID     *string
	GuestName  *string
	GuestPhone *string
	VisitDate  string
	Status     *string
	CreatedAt  string
	UpdatedAt  string
	Extra      map[string]any
}

func (g GuestPass) RecordID() string { return g.ID }

func (g GuestPass) Fields() []Field {
	return withExtra([]Field{
		{"id", g.ID},
		{"userId", optional(g.UserID)},
		{"guestName", optional(g.GuestName)},
		{"guestPhone", optional(g.GuestPhone)},
		{"visitDate", timestamp(g.VisitDate)},
		{"status", optional(g.Status)},
		{"createdAt", timestamp(g.CreatedAt)},
		{"updatedAt", timestamp(g.UpdatedAt)},
	}, g.Extra)
}

func (g GuestPass) MarshalJSON() ([]byte, error) { return MarshalFields(g.Fields()) }

// Order is a service order placed by a resident. Items is kept as the
// nested structure the store returned.
type Order struct {
	ID          string
	UserID      *string
	ServiceName *string
	Items       any
	Total       *float64
	Status      *string
	Notes       *string
	CreatedAt   string
	UpdatedAt   string
	Extra       map[string]any
}

func (o Order) RecordID() string { return o.ID }

func (o Order) Fields() []Field {
	return withExtra([]Field{
		{"id", o.ID},
		{"userId", optional(o.UserID)},
		{"serviceName", optional(o.ServiceName)},
		{"items", o.Items},
		{"total", optional(o.Total)},
		{"status", optional(o.Status)},
		{"notes", optional(o.Notes)},
		{"createdAt", timestamp(o.CreatedAt)},
		{"updatedAt", timestamp(o.UpdatedAt)},
	}, o.Extra)
}

func (o Order) MarshalJSON() ([]byte, error) { return MarshalFields(o.Fields()) }

// Booking reserves a shared facility for a date and time slot.
type Booking struct {
	ID           string
	UserID       *string
	FacilityName *string
	Date         string
	TimeSlot     *string
	Status       *string
	Notes        *string
	CreatedAt    string
	UpdatedAt    string
	Extra        map[string]any
}

func (b Booking) RecordID() string { return b.ID }

func (b Booking) Fields() []Field {
	return withExtra([]Field{
		{"id", b.ID},
		{"userId", optional(b.UserID)},
		{"facilityName", optional(b.FacilityName)},
		{"date", timestamp(b.Date)},
		{"timeSlot", optional(b.TimeSlot)},
		{"status", optional(b.Status)},
		{"notes", optional(b.Notes)},
		{"createdAt", timestamp(b.CreatedAt)},
		{"updatedAt", timestamp(b.UpdatedAt)},
	}, b.Extra)
}

func (b Booking) MarshalJSON() ([]byte, error) { return MarshalFields(b.Fields()) }

// optional dereferences p; nil encodes as null.
func optional[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

// timestamp maps an unset normalized timestamp to null.
func timestamp(s string) any {
	if s == "" {
		return nil
	}
	return s
}
