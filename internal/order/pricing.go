package order

import "github.com/shopspring/decimal"

// Limits that keep every amount inside the stored NUMERIC(10,2) columns.
const MaxQuantity = 10000

var MaxTotal = decimal.RequireFromString("99999999.99")

// DefaultDeliveryFee applies to delivery orders unless configured otherwise.
var DefaultDeliveryFee = decimal.NewFromInt(5)

func Subtotal(lines []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// FeeFor returns the fee charged for mode; pickup is free.
func FeeFor(mode FulfillmentMode, deliveryFee decimal.Decimal) decimal.Decimal {
	if mode == ModeDelivery {
		return deliveryFee
	}
	return decimal.Zero
}

func Total(lines []LineItem, mode FulfillmentMode, deliveryFee decimal.Decimal) decimal.Decimal {
	return Subtotal(lines).Add(FeeFor(mode, deliveryFee)).Round(2)
}
