package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind names one of the synchronised collections. The value doubles as the
// local table name and the remote collection name.
type Kind string

const (
	KindCategory Kind = "categories"
	KindProduct  Kind = "products"
)

// Kinds lists every synchronised kind in reconciliation order.
var Kinds = []Kind{KindCategory, KindProduct}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCategory || k == KindProduct
}

// Metadata carries the identity and sync bookkeeping shared by every record.
// Timestamps are milliseconds since the Unix epoch.
type Metadata struct {
	ID        string `json:"id" db:"id"`
	CreatedAt int64  `json:"createdAt" db:"created_at"`
	UpdatedAt int64  `json:"updatedAt" db:"updated_at"`
	IsSynced  bool   `json:"isSynced" db:"is_synced"`
	IsDeleted bool   `json:"isDeleted" db:"is_deleted"`
}

// Meta returns the record's metadata for in-place stamping.
func (m *Metadata) Meta() *Metadata {
	return m
}

// Record is implemented by *Category and *Product.
type Record interface {
	Kind() Kind
	Meta() *Metadata
	Validate() error
}

// Category groups products in the catalogue.
type Category struct {
	Metadata
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}

// Kind implements Record.
func (Category) Kind() Kind { return KindCategory }

// Validate checks the user-editable fields.
func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return NewDomainError(ErrCodeInvalidInput, "category name is required")
	}
	return nil
}

// Product is a sellable item. CategoryID refers to Category.ID by convention only.
type Product struct {
	Metadata
	Name        string          `json:"name" db:"name"`
	Description string          `json:"description" db:"description"`
	Price       decimal.Decimal `json:"price" db:"price"`
	CategoryID  string          `json:"categoryId" db:"category_id"`
	Stock       int             `json:"stock" db:"stock"`
}

// Kind implements Record.
func (Product) Kind() Kind { return KindProduct }

// Validate checks the user-editable fields.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return NewDomainError(ErrCodeInvalidInput, "product name is required")
	}
	if p.Price.IsNegative() {
		return NewDomainError(ErrCodeInvalidInput, "product price must not be negative")
	}
	if p.Stock < 0 {
		return NewDomainError(ErrCodeInvalidInput, "product stock must not be negative")
	}
	return nil
}
