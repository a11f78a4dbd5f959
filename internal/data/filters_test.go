package data

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aoideee/kitobchi/internal/validator"
)

func TestCalculateMetadata(t *testing.T) {
	m := calculateMetadata(15, Filters{Page: 2, PageSize: 10})
	assert.Equal(t, Metadata{Total: 15, Page: 2, PageSize: 10, TotalPages: 2}, m)

	m = calculateMetadata(20, Filters{Page: 1, PageSize: 10})
	assert.Equal(t, 2, m.TotalPages)

	m = calculateMetadata(0, Filters{Page: 1, PageSize: 10})
	assert.Equal(t, 0, m.TotalPages)
	assert.Equal(t, 1, m.Page)
}

func TestFiltersLimitOffset(t *testing.T) {
	f := Filters{Page: 3, PageSize: 25}
	assert.Equal(t, 25, f.limit())
	assert.Equal(t, 50, f.offset())
}

func TestValidateFilters(t *testing.T) {
	v := validator.New()
	ValidateFilters(v, Filters{Page: 0, PageSize: 101})
	assert.Contains(t, v.Errors, "page")
	assert.Contains(t, v.Errors, "page_size")

	v = validator.New()
	ValidateBookFilters(v, BookFilters{
		Filters:     Filters{Page: 1, PageSize: 100},
		ListingType: "swap",
		MinPrice:    ptr(-5.0),
	})
	assert.Equal(t, "must be either sell or free", v.Errors["listing_type"])
	assert.Contains(t, v.Errors, "min_price")
	assert.NotContains(t, v.Errors, "page_size")
}

func TestBookFiltersConditionsApprovedOnly(t *testing.T) {
	c := BookFilters{}.conditions()
	assert.Equal(t, "WHERE b.status = 'approved'", c.where())
	assert.Empty(t, c.args)
}

func TestBookFiltersConditionsAllPredicates(t *testing.T) {
	f := BookFilters{
		CategoryID:  ptr(int64(2)),
		LanguageID:  ptr(int64(4)),
		ListingType: ListingSell,
		MinPrice:    ptr(10.0),
		MaxPrice:    ptr(99.5),
		Author:      "Navoiy",
		Location:    "Samarqand",
		Search:      "50%_off",
	}
	c := f.conditions()

	want := "WHERE b.status = 'approved'" +
		" AND b.category_id = $1" +
		" AND b.language_id = $2" +
		" AND b.listing_type = $3" +
		" AND b.price >= $4" +
		" AND b.price <= $5" +
		" AND b.author ILIKE $6" +
		" AND b.location ILIKE $7" +
		" AND (b.title ILIKE $8 OR b.author ILIKE $8)"
	assert.Equal(t, want, c.where())
	assert.Equal(t, []any{int64(2), int64(4), "sell", 10.0, 99.5, "%Navoiy%", "%Samarqand%", `%50\%\_off%`}, c.args)

	limit, args := c.page(Filters{Page: 2, PageSize: 10})
	assert.Equal(t, "LIMIT $9 OFFSET $10", limit)
	assert.Len(t, args, 10)
	assert.Equal(t, 10, args[8])
	assert.Equal(t, 10, args[9])
	assert.Len(t, c.args, 8, "page must not mutate the count query arguments")
}
