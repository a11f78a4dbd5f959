package data

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aoideee/kitobchi/internal/validator"
)

// Filters holds the pagination parameters extracted from URL query strings.
type Filters struct {
	Page     int // Current page number (1-indexed)
	PageSize int // Number of records per page
}

// limit returns the SQL LIMIT value derived from PageSize.
func (f Filters) limit() int { return f.PageSize }

// offset returns the SQL OFFSET value derived from Page and PageSize.
func (f Filters) offset() int { return (f.Page - 1) * f.PageSize }

// ValidateFilters checks page >= 1 and 1 <= page_size <= 100.
func ValidateFilters(v *validator.Validator, f Filters) {
	v.Check(f.Page >= 1, "page", "must be greater than or equal to 1")
	v.Check(f.Page <= 10_000_000, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize >= 1, "page_size", "must be greater than or equal to 1")
	v.Check(f.PageSize <= 100, "page_size", "must be a maximum of 100")
}

// Metadata contains pagination information returned alongside list responses.
type Metadata struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// calculateMetadata computes page metadata from the total over the filtered
// set (before LIMIT/OFFSET).
func calculateMetadata(total int, f Filters) Metadata {
	totalPages := 0
	if f.PageSize > 0 {
		totalPages = (total + f.PageSize - 1) / f.PageSize
	}
	return Metadata{
		Total:      total,
		Page:       f.Page,
		PageSize:   f.PageSize,
		TotalPages: totalPages,
	}
}

// BookFilters are the optional predicates of the public listing query.
// Zero values mean "no filter".
type BookFilters struct {
	CategoryID  *int64
	LanguageID  *int64
	ListingType ListingType
	MinPrice    *float64
	MaxPrice    *float64
	Author      string
	Location    string
	Search      string
	Filters
}

func ValidateBookFilters(v *validator.Validator, f BookFilters) {
	ValidateFilters(v, f.Filters)
	if f.ListingType != "" {
		v.Check(validator.PermittedValue(f.ListingType, ListingSell, ListingFree), "listing_type", "must be either sell or free")
	}
	if f.MinPrice != nil {
		v.Check(*f.MinPrice >= 0, "min_price", "must be greater than or equal to zero")
	}
	if f.MaxPrice != nil {
		v.Check(*f.MaxPrice >= 0, "max_price", "must be greater than or equal to zero")
	}
}

// conditions accumulates WHERE clauses with numbered placeholders. Each
// clause is a format string whose %[1]s verb is replaced by the placeholder
// of its argument, so one argument can be referenced more than once.
type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(clause string, arg any) {
	c.args = append(c.args, arg)
	c.clauses = append(c.clauses, fmt.Sprintf(clause, c.placeholder()))
}

// raw adds a clause without arguments.
func (c *conditions) raw(clause string) {
	c.clauses = append(c.clauses, clause)
}

func (c *conditions) placeholder() string {
	return "$" + strconv.Itoa(len(c.args))
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(c.clauses, " AND ")
}

// page appends LIMIT and OFFSET arguments and returns their clause.
func (c *conditions) page(f Filters) (string, []any) {
	args := append(append([]any{}, c.args...), f.limit(), f.offset())
	n := len(c.args)
	return fmt.Sprintf("LIMIT $%d OFFSET $%d", n+1, n+2), args
}

// likePattern escapes LIKE metacharacters so user input matches literally.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// conditions builds the WHERE clause of the public listing query. Only
// approved books are ever visible through it.
func (f BookFilters) conditions() *conditions {
	c := &conditions{}
	c.raw("b.status = 'approved'")
	if f.CategoryID != nil {
		c.add("b.category_id = %s", *f.CategoryID)
	}
	if f.LanguageID != nil {
		c.add("b.language_id = %s", *f.LanguageID)
	}
	if f.ListingType != "" {
		c.add("b.listing_type = %s", string(f.ListingType))
	}
	if f.MinPrice != nil {
		c.add("b.price >= %s", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		c.add("b.price <= %s", *f.MaxPrice)
	}
	if s := strings.TrimSpace(f.Author); s != "" {
		c.add("b.author ILIKE %s", likePattern(s))
	}
	if s := strings.TrimSpace(f.Location); s != "" {
		c.add("b.location ILIKE %s", likePattern(s))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		c.add("(b.title ILIKE %[1]s OR b.author ILIKE %[1]s)", likePattern(s))
	}
	return c
}
