package redisstore

import (
	"time"

	"dishdash-be/internal/account"
	"dishdash-be/internal/order"

	"github.com/shopspring/decimal"
)

// accountDoc is the stored form of an account. It keeps the credential
// hash that the API shape hides.
type accountDoc struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	PasswordHash    string    `json:"password_hash"`
	Role            string    `json:"role"`
	Phone           string    `json:"phone"`
	Address         string    `json:"address"`
	ProfilePhoto    string    `json:"profile_photo"`
	ThemePreference string    `json:"theme_preference"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func toAccountDoc(a account.Account) accountDoc {
	return accountDoc{
		ID:              a.ID,
		Email:           a.Email,
		Name:            a.Name,
		PasswordHash:    a.PasswordHash,
		Role:            string(a.Role),
		Phone:           a.Phone,
		Address:         a.Address,
		ProfilePhoto:    a.ProfilePhoto,
		ThemePreference: string(a.ThemePreference),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func (d accountDoc) account() account.Account {
	return account.Account{
		ID:              d.ID,
		Email:           d.Email,
		Name:            d.Name,
		PasswordHash:    d.PasswordHash,
		Role:            account.Role(d.Role),
		Phone:           d.Phone,
		Address:         d.Address,
		ProfilePhoto:    d.ProfilePhoto,
		ThemePreference: account.Theme(d.ThemePreference),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

type lineDoc struct {
	ID            string          `json:"id"`
	CatalogItemID string          `json:"menu_item_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"price"`
}

// orderDoc embeds its line items so one SET writes the whole order.
type orderDoc struct {
	ID              string          `json:"id"`
	Seq             int64           `json:"seq"`
	AccountID       string          `json:"account_id"`
	Items           []lineDoc       `json:"items"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	DeliveryFee     decimal.Decimal `json:"delivery_fee"`
	Status          string          `json:"status"`
	DeliveryType    string          `json:"delivery_type"`
	DeliveryAddress string          `json:"delivery_address,omitempty"`
	PickupDateTime  *time.Time      `json:"pickup_datetime,omitempty"`
	Phone           string          `json:"phone"`
	Notes           string          `json:"notes,omitempty"`
	IdempotencyKey  string          `json:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toOrderDoc(o order.Order) orderDoc {
	d := orderDoc{
		ID:              o.ID,
		AccountID:       o.AccountID,
		Items:           make([]lineDoc, len(o.Items)),
		TotalPrice:      o.TotalPrice,
		DeliveryFee:     o.DeliveryFee,
		Status:          string(o.Status),
		DeliveryType:    string(o.FulfillmentMode),
		DeliveryAddress: o.DeliveryAddress,
		PickupDateTime:  o.PickupDateTime,
		Phone:           o.Phone,
		Notes:           o.Notes,
		IdempotencyKey:  o.IdempotencyKey,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for i, li := range o.Items {
		d.Items[i] = lineDoc{ID: li.ID, CatalogItemID: li.CatalogItemID, Quantity: li.Quantity, UnitPrice: li.UnitPrice}
	}
	return d
}

func (d orderDoc) order() order.Order {
	o := order.Order{
		ID:              d.ID,
		AccountID:       d.AccountID,
		Items:           make([]order.LineItem, len(d.Items)),
		TotalPrice:      d.TotalPrice,
		DeliveryFee:     d.DeliveryFee,
		Status:          order.Status(d.Status),
		FulfillmentMode: order.FulfillmentMode(d.DeliveryType),
		DeliveryAddress: d.DeliveryAddress,
		PickupDateTime:  d.PickupDateTime,
		Phone:           d.Phone,
		Notes:           d.Notes,
		IdempotencyKey:  d.IdempotencyKey,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	for i, li := range d.Items {
		o.Items[i] = order.LineItem{ID: li.ID, CatalogItemID: li.CatalogItemID, Quantity: li.Quantity, UnitPrice: li.UnitPrice}
	}
	return o
}
