package catalog

import "context"

// Repository is the catalog part of the storage contract.
type Repository interface {
	CreateCatalogItem(ctx context.Context, it Item) (*Item, error)
	FindCatalogItemByID(ctx context.Context, id string) (*Item, error)
	ListCatalogItems(ctx context.Context, filter Filter) ([]Item, error)
	UpdateCatalogItem(ctx context.Context, it Item) (*Item, error)
}
