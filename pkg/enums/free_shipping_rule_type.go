package enums

import "fmt"

// FreeShippingRuleType selects the predicate a free-shipping rule evaluates.
type FreeShippingRuleType string

const (
	FreeShippingMinimumPurchase  FreeShippingRuleType = "MINIMUM_PURCHASE"
	FreeShippingSpecificLocation FreeShippingRuleType = "SPECIFIC_LOCATION"
	FreeShippingAlwaysFree       FreeShippingRuleType = "ALWAYS_FREE"
)

var validFreeShippingRuleTypes = []FreeShippingRuleType{
	FreeShippingMinimumPurchase,
	FreeShippingSpecificLocation,
	FreeShippingAlwaysFree,
}

func (t FreeShippingRuleType) String() string {
	return string(t)
}

func (t FreeShippingRuleType) IsValid() bool {
	for _, candidate := range validFreeShippingRuleTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseFreeShippingRuleType converts raw input into a FreeShippingRuleType.
func ParseFreeShippingRuleType(value string) (FreeShippingRuleType, error) {
	for _, candidate := range validFreeShippingRuleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid free shipping rule type %q", value)
}
