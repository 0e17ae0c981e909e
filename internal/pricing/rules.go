package pricing

import (
	"sort"

	"github.com/angelmondragon/crumbly-backend/pkg/db/models"
	"github.com/angelmondragon/crumbly-backend/pkg/enums"
	"github.com/angelmondragon/crumbly-backend/pkg/textnorm"
)

// ApplyFreeShipping returns the highest-priority active rule that matches.
// Rules sharing a priority keep their input order; nothing else breaks ties.
func ApplyFreeShipping(rules []models.FreeShippingRule, subtotal int64, city, department string) (bool, *models.FreeShippingRule) {
	ordered := make([]models.FreeShippingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })

	for i := range ordered {
		rule := ordered[i]
		if !rule.IsActive {
			continue
		}
		if ruleMatches(rule, subtotal, city, department) {
			return true, &rule
		}
	}
	return false, nil
}

func ruleMatches(rule models.FreeShippingRule, subtotal int64, city, department string) bool {
	switch rule.Type {
	case enums.FreeShippingAlwaysFree:
		return true
	case enums.FreeShippingMinimumPurchase:
		return rule.MinimumAmount != nil && subtotal >= *rule.MinimumAmount
	case enums.FreeShippingSpecificLocation:
		return wildcardContains(rule.Cities, city) && wildcardContains(rule.Departments, department)
	default:
		return false
	}
}

// An empty configured list matches every value.
func wildcardContains(list []string, value string) bool {
	if len(list) == 0 {
		return true
	}
	return textnorm.Contains(list, value)
}

// ShippingQuote is the resolved shipping charge for one cart.
type ShippingQuote struct {
	BaseCost     int64
	Cost         int64
	FreeShipping bool
	Rule         *models.FreeShippingRule
}

// EffectiveShipping applies the pickup and free-shipping overrides to the zone cost.
func EffectiveShipping(table *ShippingTable, method enums.DeliveryMethod, department, city string, subtotal int64, rules []models.FreeShippingRule) ShippingQuote {
	if method == enums.DeliveryMethodPickup {
		return ShippingQuote{}
	}
	quote := ShippingQuote{BaseCost: table.ShippingCost(department, city)}
	quote.FreeShipping, quote.Rule = ApplyFreeShipping(rules, subtotal, city, department)
	if !quote.FreeShipping {
		quote.Cost = quote.BaseCost
	}
	return quote
}
