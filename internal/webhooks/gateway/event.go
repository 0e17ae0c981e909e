package gatewaywebhook

import (
	"encoding/json"
	"strings"

	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
)

// EventTransactionUpdated is the only event type the reconciler acts on.
const EventTransactionUpdated = "transaction.updated"

// Event is the gateway's webhook envelope.
type Event struct {
	Event       string    `json:"event"`
	Data        EventData `json:"data"`
	Environment string    `json:"environment,omitempty"`
	Timestamp   int64     `json:"timestamp,omitempty"`
	SentAt      string    `json:"sent_at,omitempty"`
}

type EventData struct {
	Transaction Transaction `json:"transaction"`
}

// Transaction is the gateway's view of a payment attempt.
type Transaction struct {
	ID                string                         `json:"id"`
	Reference         string                         `json:"reference"`
	Status            enums.GatewayTransactionStatus `json:"status"`
	AmountInCents     int64                          `json:"amount_in_cents"`
	Currency          string                         `json:"currency"`
	PaymentMethodType string                         `json:"payment_method_type,omitempty"`
	CustomerEmail     string                         `json:"customer_email,omitempty"`
	StatusMessage     string                         `json:"status_message,omitempty"`
}

// DecodeEvent parses a verified webhook body.
func DecodeEvent(raw []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook payload")
	}
	event.Event = strings.TrimSpace(event.Event)
	event.Data.Transaction.Status = enums.GatewayTransactionStatus(strings.ToUpper(strings.TrimSpace(string(event.Data.Transaction.Status))))
	return &event, nil
}

// DedupeKey identifies one status report for one gateway transaction. Events
// without a transaction id are keyed by reference; an empty key means the
// event cannot be deduplicated.
func (e *Event) DedupeKey() string {
	txn := e.Data.Transaction
	switch {
	case txn.ID != "":
		return txn.ID + ":" + string(txn.Status)
	case txn.Reference != "":
		return "ref:" + txn.Reference + ":" + string(txn.Status)
	default:
		return ""
	}
}
