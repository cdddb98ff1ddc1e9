package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/community-admin/backend/internal/domain"
)

func TestParseCategories(t *testing.T) {
	cats, err := domain.ParseCategories([]string{" orders", "", "profile "})

	require.NoError(t, err)
	assert.Equal(t, []domain.Category{domain.CategoryOrders, domain.CategoryProfile}, cats)
}

func TestParseCategories_Errors(t *testing.T) {
	_, err := domain.ParseCategories([]string{"orders", "invoices"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = domain.ParseCategories([]string{"", "  "})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name string
		in   []domain.Category
		want []domain.Category
	}{
		{"all", []domain.Category{domain.CategoryAll}, domain.AllCategories},
		{"all with duplicates", []domain.Category{domain.CategoryOrders, domain.CategoryAll}, domain.AllCategories},
		{"canonical order", []domain.Category{domain.CategoryBookings, domain.CategoryProfile}, []domain.Category{domain.CategoryProfile, domain.CategoryBookings}},
		{"dedup", []domain.Category{domain.CategoryOrders, domain.CategoryOrders}, []domain.Category{domain.CategoryOrders}},
		{"empty", nil, []domain.Category{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.Expand(tc.in))
		})
	}
}

func TestCategory_Kinds(t *testing.T) {
	assert.True(t, domain.CategoryProfile.Singleton())
	assert.True(t, domain.CategoryProjectMembership.Singleton())
	assert.False(t, domain.CategoryOrders.Singleton())

	assert.False(t, domain.CategoryProfile.ProjectScoped())
	assert.True(t, domain.CategoryBookings.ProjectScoped())

	assert.True(t, domain.CategoryAll.Valid())
	assert.False(t, domain.Category("invoices").Valid())
}

func TestParseFormat(t *testing.T) {
	f, err := domain.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatJSON, f)

	f, err = domain.ParseFormat(" CSV ")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatCSV, f)
	assert.Equal(t, "csv", f.Extension())
	assert.Equal(t, "text/csv", f.MimeType())

	_, err = domain.ParseFormat("xml")
	require.ErrorIs(t, err, domain.ErrValidation)
}
