// Package domain contains the core data types for the community admin export engine.
// This package has no internal dependencies and is imported by every other
// internal package (repo, service, serialize, handler).
package domain

import (
	"fmt"
	"strings"
)

// Category names one kind of exportable record set.
type Category string

const (
	CategoryProfile           Category = "profile"
	CategoryProjectMembership Category = "projectMembership"
	CategoryGatePasses        Category = "gatePasses"
	CategoryGuestPasses       Category = "guestPasses"
	CategoryOrders            Category = "orders"
	CategoryBookings          Category = "bookings"

	// CategoryAll is the synthetic aggregate; it expands to AllCategories.
	CategoryAll Category = "all"
)

// AllCategories is the fixed, canonical category order.
// AggregateResult keys and CSV file sets follow this order.
var AllCategories = []Category{
	CategoryProfile,
	CategoryProjectMembership,
	CategoryGatePasses,
	CategoryGuestPasses,
	CategoryOrders,
	CategoryBookings,
}

// Valid reports whether c is a known category (including CategoryAll).
func (c Category) Valid() bool {
	if c == CategoryAll {
		return true
	}
	for _, k := range AllCategories {
		if c == k {
			return true
		}
	}
	return false
}

// Singleton reports whether the category resolves to a single document
// rather than an ordered list.
func (c Category) Singleton() bool {
	return c == CategoryProfile || c == CategoryProjectMembership
}

// ProjectScoped reports whether the category lives under a project.
// The user profile is global.
func (c Category) ProjectScoped() bool {
	return c != CategoryProfile
}

func (c Category) String() string { return string(c) }

// ParseCategories converts caller-supplied names into categories.
// Names are trimmed; empty entries are ignored. An unknown name or an
// empty selection is an ErrValidation.
func ParseCategories(names []string) ([]Category, error) {
	var out []Category
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		c := Category(n)
		if !c.Valid() {
			return nil, fmt.Errorf("%w: unknown category %q", ErrValidation, n)
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", ErrValidation)
	}
	return out, nil
}

// Expand replaces CategoryAll with AllCategories, drops duplicates and
// returns the selection in canonical order.
func Expand(cats []Category) []Category {
	want := make(map[Category]bool, len(cats))
	for _, c := range cats {
		if c == CategoryAll {
			for _, k := range AllCategories {
				want[k] = true
			}
			continue
		}
		want[c] = true
	}
	out := make([]Category, 0, len(want))
	for _, k := range AllCategories {
		if want[k] {
			out = append(out, k)
		}
	}
	return out
}

// ContainsAll reports whether the selection includes CategoryAll.
func ContainsAll(cats []Category) bool {
	for _, c := range cats {
		if c == CategoryAll {
			return true
		}
	}
	return false
}

// Format is the serialization format of an export.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format name. An empty name defaults to JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q", ErrValidation, s)
	}
}

// Extension returns the file extension (without the dot).
func (f Format) Extension() string { return string(f) }

// MimeType returns the content type used when delivering files of this format.
func (f Format) MimeType() string {
	if f == FormatCSV {
		return "text/csv"
	}
	return "application/json"
}
