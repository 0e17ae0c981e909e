package payments

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/crumbly-backend/pkg/money"
)

// ReferencePrefix marks references minted by this service.
const ReferencePrefix = "CRB-"

// NewReference returns a fresh opaque payment reference. A new one is minted
// for every attempt so a failed payment can be retried.
func NewReference() string {
	return ReferencePrefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// AmountInCents converts an order total to the gateway's cent amount.
func AmountInCents(total int64) int64 {
	return money.ToCents(total)
}

// IntegritySignature is the hex sha256 of reference, amount in cents, currency
// and integrity secret concatenated. The gateway recomputes it bit for bit.
func IntegritySignature(reference string, amountInCents int64, currency, secret string) string {
	sum := sha256.Sum256([]byte(reference + strconv.FormatInt(amountInCents, 10) + currency + secret))
	return hex.EncodeToString(sum[:])
}
