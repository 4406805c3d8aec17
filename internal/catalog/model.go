package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// CategoryNone is the reserved category for uncategorized items.
	CategoryNone = "none"
	DefaultImage = "https://via.placeholder.com/300x200"
)

type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Summary is the display block joined onto order line items.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Category    string `json:"category"`
}

func (i *Item) Summary() *Summary {
	return &Summary{ID: i.ID, Name: i.Name, Description: i.Description, Image: i.Image, Category: i.Category}
}

// Filter narrows ListCatalogItems. A nil field means "no constraint", so
// Available distinguishes unset from false.
type Filter struct {
	Category  *string
	Available *bool
}

func (f Filter) Match(it Item) bool {
	if f.Category != nil && it.Category != *f.Category {
		return false
	}
	if f.Available != nil && it.Available != *f.Available {
		return false
	}
	return true
}

type CreateInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Available   *bool           `json:"available"`
}

// Patch is a partial update; nil fields are left untouched.
type Patch struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Image       *string          `json:"image"`
	Available   *bool            `json:"available"`
}
