package enums

import "fmt"

// PaymentStatus tracks settlement of an order against the gateway.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusPaid,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}

// GatewayTransactionStatus is the status reported by the payment gateway.
type GatewayTransactionStatus string

const (
	GatewayStatusApproved GatewayTransactionStatus = "APPROVED"
	GatewayStatusDeclined GatewayTransactionStatus = "DECLINED"
	GatewayStatusError    GatewayTransactionStatus = "ERROR"
	GatewayStatusVoided   GatewayTransactionStatus = "VOIDED"
	GatewayStatusPending  GatewayTransactionStatus = "PENDING"
)

// PaymentStatus maps a gateway status onto the order's payment status.
// Unknown statuses map to PENDING.
func (g GatewayTransactionStatus) PaymentStatus() PaymentStatus {
	switch g {
	case GatewayStatusApproved:
		return PaymentStatusPaid
	case GatewayStatusDeclined, GatewayStatusError:
		return PaymentStatusFailed
	case GatewayStatusVoided:
		return PaymentStatusRefunded
	default:
		return PaymentStatusPending
	}
}
