package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/crumbly-backend/pkg/errors"
)

var (
	ErrCodeNotFound    = pkgerrors.New(pkgerrors.CodeNotFound, "discount code not found or not active")
	ErrCodeAlreadyUsed = pkgerrors.New(pkgerrors.CodeConflict, "discount code already used with this email")
)

// NormalizeCode upper-cases and trims a discount code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeEmail lower-cases and trims an email for redemption matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Resolver struct {
	repo  Repository
	table *ShippingTable
}

func NewResolver(repo Repository, table *ShippingTable) (*Resolver, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if table == nil {
		table = DefaultShippingTable(DefaultShippingFallback)
	}
	return &Resolver{repo: repo, table: table}, nil
}

func (r *Resolver) ShippingCost(department, city string) int64 {
	return r.table.ShippingCost(department, city)
}

// Shipping loads the active free-shipping rules and resolves the effective charge.
func (r *Resolver) Shipping(ctx context.Context, method enums.DeliveryMethod, department, city string, subtotal int64) (ShippingQuote, error) {
	if method == enums.DeliveryMethodPickup {
		return ShippingQuote{}, nil
	}
	rules, err := r.repo.ActiveFreeShippingRules(ctx)
	if err != nil {
		return ShippingQuote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load free shipping rules")
	}
	return EffectiveShipping(r.table, method, department, city, subtotal, rules), nil
}

// ValidateDiscountCode returns the code's percent when it is active at now and
// email has not redeemed it before. An empty email skips the redemption check.
func (r *Resolver) ValidateDiscountCode(ctx context.Context, code, email string, now time.Time) (int, error) {
	row, err := r.lookupCode(ctx, code, now)
	if err != nil {
		return 0, err
	}
	if email = NormalizeEmail(email); email != "" {
		used, err := r.repo.RedemptionExists(ctx, email, row.Code)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check discount redemption")
		}
		if used {
			return 0, ErrCodeAlreadyUsed
		}
	}
	return row.Percent, nil
}

func (r *Resolver) lookupCode(ctx context.Context, code string, now time.Time) (*models.DiscountCode, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, ErrCodeNotFound
	}
	row, err := r.repo.FindActiveDiscountCode(ctx, normalized)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount code")
	}
	if row == nil || !row.ActiveAt(now) {
		return nil, ErrCodeNotFound
	}
	return row, nil
}

// PriceInput is a cart ready to be priced.
type PriceInput struct {
	DeliveryMethod enums.DeliveryMethod
	Department     string
	City           string
	Subtotal       int64
	DiscountCode   string
	Email          string
	Now            time.Time
}

// Breakdown is the authoritative price of a cart.
type Breakdown struct {
	Subtotal        int64
	Shipping        ShippingQuote
	DiscountCode    *string
	DiscountPercent int
	DiscountAmount  int64
	Total           int64
}

// Price resolves shipping and discount and computes the total. A discount
// code that fails validation fails the whole call.
func (r *Resolver) Price(ctx context.Context, in PriceInput) (*Breakdown, error) {
	if in.Subtotal < 0 {
		return nil, pkgerrors.Field("subtotal", "subtotal must not be negative")
	}
	shipping, err := r.Shipping(ctx, in.DeliveryMethod, in.Department, in.City, in.Subtotal)
	if err != nil {
		return nil, err
	}

	out := &Breakdown{Subtotal: in.Subtotal, Shipping: shipping}
	if code := NormalizeCode(in.DiscountCode); code != "" {
		percent, err := r.ValidateDiscountCode(ctx, code, in.Email, in.Now)
		if err != nil {
			return nil, err
		}
		out.DiscountCode = &code
		out.DiscountPercent = percent
		out.DiscountAmount = DiscountAmount(in.Subtotal, percent)
	}

	out.Total, err = ComputeTotals(out.Subtotal, out.Shipping.Cost, out.DiscountAmount)
	if err != nil {
		return nil, err
	}
	return out, nil
}
