package order

import "dishdash-be/internal/apperr"

func errOrderNotFound() error {
	return apperr.NotFound("order not found")
}

func errAccessDenied() error {
	return apperr.Forbidden("access denied")
}

func errUnknownItem(id string) error {
	return apperr.Invalid("unknown_item: menu item %s does not exist", id)
}

func errItemUnavailable(name string) error {
	return apperr.Invalid("item_unavailable: %s is not available", name)
}

func errPriceMismatch(name string) error {
	return apperr.Invalid("price_mismatch: submitted price for %s does not match the menu", name)
}
