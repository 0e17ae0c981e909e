package pricing

import (
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
	"github.com/angelmondragon/crumbly-backend/pkg/money"
)

// DiscountAmount is subtotal*percent/100 rounded half-up, capped at subtotal.
func DiscountAmount(subtotal int64, percent int) int64 {
	if subtotal <= 0 || percent <= 0 {
		return 0
	}
	amount := money.Percentage(subtotal, percent)
	if amount > subtotal {
		return subtotal
	}
	return amount
}

// ComputeTotals returns subtotal + shipping - discount after checking the
// amounts can form a valid order.
func ComputeTotals(subtotal, shippingCost, discountAmount int64) (int64, error) {
	switch {
	case subtotal < 0:
		return 0, pkgerrors.Field("subtotal", "subtotal must not be negative")
	case shippingCost < 0:
		return 0, pkgerrors.Field("shippingCost", "shipping cost must not be negative")
	case discountAmount < 0:
		return 0, pkgerrors.Field("discountAmount", "discount amount must not be negative")
	case discountAmount > subtotal:
		return 0, pkgerrors.Field("discountAmount", "discount amount exceeds subtotal")
	}
	return subtotal + shippingCost - discountAmount, nil
}
