package order

import (
	"context"

	"dishdash-be/internal/catalog"
)

// Repository is the order part of the storage contract. CreateOrder writes
// the order and all of its line items as one unit.
type Repository interface {
	CreateOrder(ctx context.Context, o Order) (*Order, error)
	FindOrderByID(ctx context.Context, id string) (*Order, error)
	FindOrderByIdempotencyKey(ctx context.Context, accountID, key string) (*Order, error)
	ListOrdersByAccount(ctx context.Context, accountID string) ([]Order, error)
	ListAllOrders(ctx context.Context) ([]Order, error)
	SetOrderStatus(ctx context.Context, id string, from, to Status) (*Order, error)
	OrderStatistics(ctx context.Context) (*Statistics, error)
}

// CatalogReader is what order creation needs to check submitted prices.
type CatalogReader interface {
	FindCatalogItemByID(ctx context.Context, id string) (*catalog.Item, error)
}

// Metrics receives order events; a nil Metrics is ignored.
type Metrics interface {
	OrderCreated(mode string)
	StatusChanged(from, to string)
}
