package account

import "context"

// Repository is the identity part of the storage contract. Find methods
// return (nil, nil) when nothing matches.
type Repository interface {
	CreateAccount(ctx context.Context, a Account) (*Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*Account, error)
	FindAccountByID(ctx context.Context, id string) (*Account, error)
	UpdateAccount(ctx context.Context, a Account) (*Account, error)
	ListAccounts(ctx context.Context, filter Filter) ([]Account, error)
}
