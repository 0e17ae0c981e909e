package orders

import (
	"regexp"
	"strings"

	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
)

const (
	maxItems        = 100
	maxItemQuantity = 999
)

// maxUnitPrice keeps maxItems*maxItemQuantity*maxUnitPrice well inside int64.
const maxUnitPrice int64 = 1_000_000_000

const maxAmount = maxItems * maxItemQuantity * maxUnitPrice

var (
	emailPattern      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	nationalIDPattern = regexp.MustCompile(`^\d{6,10}$`)
	mobilePattern     = regexp.MustCompile(`^3\d{9}$`)
	phoneSeparators   = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
)

// NormalizePhone strips separators and the +57 country prefix.
func NormalizePhone(phone string) string {
	cleaned := phoneSeparators.Replace(strings.TrimSpace(phone))
	cleaned = strings.TrimPrefix(cleaned, "+57")
	if len(cleaned) == 12 && strings.HasPrefix(cleaned, "57") {
		cleaned = cleaned[2:]
	}
	return cleaned
}

// NormalizeNationalID drops the dots and spaces customers type into a cédula.
func NormalizeNationalID(id string) string {
	return strings.NewReplacer(".", "", " ", "", "-", "").Replace(strings.TrimSpace(id))
}

// validateInput checks the submission shape and returns the first failure.
// It normalises the customer fields in place.
func validateInput(in *CreateOrderInput) error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.ToLower(strings.TrimSpace(in.CustomerEmail))
	in.CustomerPhone = NormalizePhone(in.CustomerPhone)
	in.CustomerNationalID = NormalizeNationalID(in.CustomerNationalID)
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.ShippingCity = strings.TrimSpace(in.ShippingCity)
	in.ShippingDepartment = strings.TrimSpace(in.ShippingDepartment)
	in.ShippingNotes = strings.TrimSpace(in.ShippingNotes)

	switch {
	case in.CustomerName == "":
		return pkgerrors.Field("customerName", "name is required")
	case in.CustomerEmail == "":
		return pkgerrors.Field("customerEmail", "email is required")
	case !emailPattern.MatchString(in.CustomerEmail):
		return pkgerrors.Field("customerEmail", "email is not valid")
	case in.CustomerPhone == "":
		return pkgerrors.Field("customerPhone", "phone is required")
	case !mobilePattern.MatchString(in.CustomerPhone):
		return pkgerrors.Field("customerPhone", "phone must be a 10-digit mobile number starting with 3")
	case in.CustomerNationalID == "":
		return pkgerrors.Field("customerNationalId", "national id is required")
	case !nationalIDPattern.MatchString(in.CustomerNationalID):
		return pkgerrors.Field("customerNationalId", "national id must have 6 to 10 digits")
	}

	if in.DeliveryMethod == "" {
		in.DeliveryMethod = enums.DeliveryMethodDelivery
	}
	if !in.DeliveryMethod.IsValid() {
		return pkgerrors.Field("deliveryMethod", "delivery method must be DELIVERY or PICKUP")
	}
	if in.DeliveryMethod == enums.DeliveryMethodDelivery {
		switch {
		case in.ShippingAddress == "":
			return pkgerrors.Field("shippingAddress", "address is required for delivery")
		case in.ShippingCity == "":
			return pkgerrors.Field("shippingCity", "city is required for delivery")
		case in.ShippingDepartment == "":
			return pkgerrors.Field("shippingDepartment", "department is required for delivery")
		}
	}

	if in.PaymentMethod == "" {
		in.PaymentMethod = enums.PaymentMethodGateway
	}
	if !in.PaymentMethod.IsValid() {
		return pkgerrors.Field("paymentMethod", "payment method is not supported")
	}
	if in.PaymentMethod == enums.PaymentMethodCash && in.DeliveryMethod != enums.DeliveryMethodPickup {
		return pkgerrors.Field("paymentMethod", "cash payment is only available for pickup")
	}

	if in.DeliveryDate.IsZero() {
		return pkgerrors.Field("deliveryDate", "delivery date is required")
	}

	if len(in.Items) == 0 {
		return pkgerrors.Field("items", "at least one item is required")
	}
	if len(in.Items) > maxItems {
		return pkgerrors.Field("items", "too many items")
	}
	for i := range in.Items {
		item := &in.Items[i]
		item.ProductID = strings.TrimSpace(item.ProductID)
		item.Name = strings.TrimSpace(item.Name)
		switch {
		case item.ProductID == "":
			return pkgerrors.Field("items", "every item needs a product id")
		case item.Name == "":
			return pkgerrors.Field("items", "every item needs a name")
		case item.UnitPrice <= 0:
			return pkgerrors.Field("items", "item prices must be positive")
		case item.UnitPrice > maxUnitPrice:
			return pkgerrors.Field("items", "item price is too large")
		case item.Quantity <= 0 || item.Quantity > maxItemQuantity:
			return pkgerrors.Field("items", "item quantities must be positive whole numbers")
		}
	}

	switch {
	case in.Subtotal <= 0:
		return pkgerrors.Field("subtotal", "subtotal must be positive")
	case in.Subtotal > maxAmount:
		return pkgerrors.Field("subtotal", "subtotal is too large")
	case in.ShippingCost > maxAmount:
		return pkgerrors.Field("shippingCost", "shipping cost is too large")
	case in.ShippingCost < 0:
		return pkgerrors.Field("shippingCost", "shipping cost must not be negative")
	case in.DiscountAmount < 0:
		return pkgerrors.Field("discountAmount", "discount amount must not be negative")
	case in.DiscountAmount > in.Subtotal:
		return pkgerrors.Field("discountAmount", "discount amount exceeds subtotal")
	case in.Total <= 0:
		return pkgerrors.Field("total", "total must be positive")
	case in.Total != in.Subtotal+in.ShippingCost-in.DiscountAmount:
		return pkgerrors.Field("total", "total does not equal subtotal plus shipping minus discount")
	}
	return nil
}

func itemsSubtotal(items []ItemInput) int64 {
	var sum int64
	for _, item := range items {
		sum += item.UnitPrice * int64(item.Quantity)
	}
	return sum
}
