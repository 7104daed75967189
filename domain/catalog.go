package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ID is a catalog identifier. The remote service emits identifiers either as
// JSON numbers or as strings, both decode into the same textual form.
type ID string

// UnmarshalJSON implements the json.Unmarshaler interface.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshalling id %s : %w", data, err)
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unmarshalling id %s : %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier as used in request paths.
func (id ID) String() string {
	return string(id)
}

// NavigationItem is a top-level category listed by GET /navigation.
type NavigationItem struct {
	ID            ID         `json:"id"`
	Slug          string     `json:"slug"`
	Title         string     `json:"title"`
	LastScrapedAt *time.Time `json:"lastScrapedAt,omitempty"`
}

// CategorySummary is a child category or a category reference inside another payload.
type CategorySummary struct {
	ID           ID     `json:"id"`
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	ProductCount int    `json:"productCount"`
}

// Category is returned by GET /categories/slug/{slug}.
type Category struct {
	ID           ID                `json:"id"`
	Title        string            `json:"title"`
	Slug         string            `json:"slug"`
	ProductCount int               `json:"productCount"`
	Children     []CategorySummary `json:"children"`
	Products     []ProductSummary  `json:"products"`

	rawID any // id as sent by the service, a json.Number or a string
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (c *Category) UnmarshalJSON(data []byte) error {
	type plain Category
	if err := json.Unmarshal(data, (*plain)(c)); err != nil {
		return fmt.Errorf("unmarshalling category : %w", err)
	}

	var raw struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshalling category id : %w", err)
	}

	c.rawID = nil
	if len(raw.ID) == 0 {
		return nil
	}
	decoder := json.NewDecoder(bytes.NewReader(raw.ID))
	decoder.UseNumber()
	if err := decoder.Decode(&c.rawID); err != nil {
		return fmt.Errorf("unmarshalling category id : %w", err)
	}
	return nil
}

// IDValue returns the id with the JSON type the service sent it with.
// Numeric ids come back as json.Number so they encode as numbers again.
func (c Category) IDValue() any {
	if c.rawID == nil {
		return c.ID.String()
	}
	return c.rawID
}

// ProductSummary is a product as listed inside a category.
type ProductSummary struct {
	ID       ID          `json:"id"`
	Title    string      `json:"title"`
	Author   string      `json:"author,omitempty"`
	Price    json.Number `json:"price,omitempty"`
	Currency string      `json:"currency,omitempty"`
	ImageURL string      `json:"imageUrl,omitempty"`
}

// Product is returned by GET /products/{id}.
// Detail and Reviews are absent until the detail has been scraped.
type Product struct {
	ID        ID             `json:"id"`
	Title     string         `json:"title"`
	Author    string         `json:"author,omitempty"`
	Price     json.Number    `json:"price,omitempty"`
	Currency  string         `json:"currency,omitempty"`
	ImageURL  string         `json:"imageUrl,omitempty"`
	SourceURL string         `json:"sourceUrl"`
	Detail    *ProductDetail `json:"detail,omitempty"`
	Reviews   []Review       `json:"reviews,omitempty"`
}

// ProductDetail holds the scraped long-form information of a product.
type ProductDetail struct {
	Description     string      `json:"description,omitempty"`
	Publisher       string      `json:"publisher,omitempty"`
	ISBN            string      `json:"isbn,omitempty"`
	PublicationDate *time.Time  `json:"publicationDate,omitempty"`
	RatingsAvg      json.Number `json:"ratingsAvg,omitempty"`
	ReviewsCount    int         `json:"reviewsCount,omitempty"`
	Recommendations []string    `json:"recommendations,omitempty"`
}

// Review is a single customer review of a product.
type Review struct {
	ID         ID         `json:"id"`
	Author     string     `json:"author,omitempty"`
	Rating     int        `json:"rating"`
	Text       string     `json:"text"`
	ReviewedAt *time.Time `json:"reviewedAt,omitempty"`
}

// Rating returns the average rating, or 0 when there is none or it cannot be parsed.
func (d *ProductDetail) Rating() float64 {
	if d == nil || d.RatingsAvg == "" {
		return 0
	}
	rating, err := d.RatingsAvg.Float64()
	if err != nil {
		return 0
	}
	return rating
}
