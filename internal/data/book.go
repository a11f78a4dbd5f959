// Package data provides the data models and database interaction logic
// for the book marketplace.
package data

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/aoideee/kitobchi/internal/validator"
)

// ListingType says whether a listing is for sale or a free giveaway.
type ListingType string

const (
	ListingSell ListingType = "sell"
	ListingFree ListingType = "free"
)

// Status is the moderation state of a listing.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// MaxImages is the upper bound on image URLs attached to a listing.
const MaxImages = 3

// Book represents a single listing stored in the "books" table.
// Nullable columns are pointers so they serialize as JSON null.
type Book struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	Description *string     `json:"description"`
	Images      []string    `json:"images"`
	SellerID    int64       `json:"seller_id"`
	CategoryID  *int64      `json:"category_id"`
	LanguageID  *int64      `json:"language_id"`
	ListingType ListingType `json:"listing_type"`
	Price       *float64    `json:"price"`
	Location    *string     `json:"location"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// CreateBookInput holds the fields a client supplies when creating a listing.
type CreateBookInput struct {
	Title       string      `json:"title"`
	Author      string      `json:"author"`
	Description *string     `json:"description"`
	Images      []string    `json:"images"`
	CategoryID  *int64      `json:"category_id"`
	LanguageID  *int64      `json:"language_id"`
	ListingType ListingType `json:"listing_type"`
	Price       *float64    `json:"price"`
	Location    *string     `json:"location"`
}

// Book maps the input onto a new pending listing owned by sellerID.
func (in CreateBookInput) Book(sellerID int64) *Book {
	images := in.Images
	if images == nil {
		images = []string{}
	}
	return &Book{
		Title:       strings.TrimSpace(in.Title),
		Author:      strings.TrimSpace(in.Author),
		Description: in.Description,
		Images:      images,
		SellerID:    sellerID,
		CategoryID:  in.CategoryID,
		LanguageID:  in.LanguageID,
		ListingType: in.ListingType,
		Price:       in.Price,
		Location:    in.Location,
		Status:      StatusPending,
	}
}

// Optional distinguishes a JSON key that was absent (Set is false) from one
// that was explicitly null (Set is true, Value is nil).
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// UpdateBookInput holds the fields a client may supply when updating a listing.
// Pointer fields cannot be cleared; Optional fields can be set to null.
type UpdateBookInput struct {
	Title       *string           `json:"title"`
	Author      *string           `json:"author"`
	Description Optional[string]  `json:"description"`
	Images      *[]string         `json:"images"`
	CategoryID  Optional[int64]   `json:"category_id"`
	LanguageID  Optional[int64]   `json:"language_id"`
	ListingType *ListingType      `json:"listing_type"`
	Price       Optional[float64] `json:"price"`
	Location    Optional[string]  `json:"location"`
}

// ApplyTo copies every provided field onto book. The caller validates the
// merged result with ValidateBook.
func (in UpdateBookInput) ApplyTo(book *Book) {
	if in.Title != nil {
		book.Title = strings.TrimSpace(*in.Title)
	}
	if in.Author != nil {
		book.Author = strings.TrimSpace(*in.Author)
	}
	if in.Description.Set {
		book.Description = in.Description.Value
	}
	if in.Images != nil {
		book.Images = *in.Images
		if book.Images == nil {
			book.Images = []string{}
		}
	}
	if in.CategoryID.Set {
		book.CategoryID = in.CategoryID.Value
	}
	if in.LanguageID.Set {
		book.LanguageID = in.LanguageID.Value
	}
	if in.ListingType != nil {
		book.ListingType = *in.ListingType
	}
	if in.Price.Set {
		book.Price = in.Price.Value
	}
	if in.Location.Set {
		book.Location = in.Location.Value
	}
}

// ValidateBook checks field constraints and the price/listing-type coupling.
func ValidateBook(v *validator.Validator, book *Book) {
	v.Check(validator.NotBlank(book.Title), "title", "must be provided")
	v.Check(validator.MaxChars(book.Title, 255), "title", "must not be more than 255 characters long")

	v.Check(validator.NotBlank(book.Author), "author", "must be provided")
	v.Check(validator.MaxChars(book.Author, 255), "author", "must not be more than 255 characters long")

	v.Check(len(book.Images) <= MaxImages, "images", "must not contain more than 3 images")
	for _, img := range book.Images {
		v.Check(validator.NotBlank(img), "images", "must not contain empty URLs")
	}

	if book.Location != nil {
		v.Check(validator.MaxChars(*book.Location, 255), "location", "must not be more than 255 characters long")
	}
	if book.CategoryID != nil {
		v.Check(*book.CategoryID > 0, "category_id", "must be a positive integer")
	}
	if book.LanguageID != nil {
		v.Check(*book.LanguageID > 0, "language_id", "must be a positive integer")
	}

	v.Check(validator.PermittedValue(book.ListingType, ListingSell, ListingFree), "listing_type", "must be either sell or free")

	if book.Price != nil {
		v.Check(*book.Price >= 0, "price", "must be greater than or equal to zero")
	}
	switch book.ListingType {
	case ListingSell:
		v.Check(book.Price != nil, "price", "must be provided for sell listings")
	case ListingFree:
		v.Check(book.Price == nil, "price", "must be null for free listings")
	}
}
