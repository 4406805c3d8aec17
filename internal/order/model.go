package order

import (
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/catalog"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// AllStatuses is the display order used by statistics.
var AllStatuses = []Status{StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type FulfillmentMode string

const (
	ModePickup   FulfillmentMode = "pickup"
	ModeDelivery FulfillmentMode = "delivery"
)

func (m FulfillmentMode) Valid() bool {
	return m == ModePickup || m == ModeDelivery
}

// LineItem is a priced snapshot of one catalog item at order time. Item is
// read-time enrichment and is never persisted.
type LineItem struct {
	ID            string           `json:"id,omitempty"`
	CatalogItemID string           `json:"menuItemId"`
	Quantity      int              `json:"quantity"`
	UnitPrice     decimal.Decimal  `json:"price"`
	Item          *catalog.Summary `json:"menuItem,omitempty"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Order struct {
	ID              string           `json:"id"`
	AccountID       string           `json:"userId"`
	Items           []LineItem       `json:"items"`
	TotalPrice      decimal.Decimal  `json:"totalPrice"`
	DeliveryFee     decimal.Decimal  `json:"deliveryFee"`
	Status          Status           `json:"status"`
	FulfillmentMode FulfillmentMode  `json:"deliveryType"`
	DeliveryAddress string           `json:"deliveryAddress,omitempty"`
	PickupDateTime  *time.Time       `json:"pickupDateTime,omitempty"`
	Phone           string           `json:"phone"`
	Notes           string           `json:"notes"`
	IdempotencyKey  string           `json:"-"`
	Customer        *account.Summary `json:"user,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type LineInput struct {
	CatalogItemID string          `json:"menuItem"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"price"`
}

type CreateInput struct {
	Items           []LineInput     `json:"items"`
	FulfillmentMode FulfillmentMode `json:"deliveryType"`
	DeliveryAddress string          `json:"deliveryAddress"`
	PickupDateTime  string          `json:"pickupDateTime"`
	Phone           string          `json:"phone"`
	Notes           string          `json:"notes"`
	IdempotencyKey  string          `json:"-"`
}

type Statistics struct {
	Total    int             `json:"total"`
	ByStatus map[Status]int  `json:"byStatus"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// NewStatistics returns zeroed counters for every status.
func NewStatistics() *Statistics {
	st := &Statistics{ByStatus: make(map[Status]int, len(AllStatuses)), Revenue: decimal.Zero}
	for _, s := range AllStatuses {
		st.ByStatus[s] = 0
	}
	return st
}

// Add folds one order into the counters. Cancelled orders are not revenue.
func (st *Statistics) Add(status Status, total decimal.Decimal) {
	st.Total++
	st.ByStatus[status]++
	if status != StatusCancelled {
		st.Revenue = st.Revenue.Add(total)
	}
}
