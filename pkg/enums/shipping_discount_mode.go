package enums

import "fmt"

// ShippingDiscountMode determines how a discount policy treats shipping.
type ShippingDiscountMode string

const (
	// ShippingDiscountNone leaves shipping untouched.
	ShippingDiscountNone ShippingDiscountMode = "none"
	// ShippingDiscountApply includes shipping in the discount allocation:
	// percentage discounts take the same percentage off shipping, fixed
	// discounts treat shipping as one more capped bucket in the split.
	ShippingDiscountApply ShippingDiscountMode = "discount"
	// ShippingDiscountFree waives the entire shipping charge.
	ShippingDiscountFree ShippingDiscountMode = "free"
	// ShippingDiscountFreeCheap waives shipping only when the selected
	// shipping option is the cheapest one offered.
	ShippingDiscountFreeCheap ShippingDiscountMode = "free_cheap"
)

var validShippingDiscountModes = []ShippingDiscountMode{
	ShippingDiscountNone,
	ShippingDiscountApply,
	ShippingDiscountFree,
	ShippingDiscountFreeCheap,
}

// String implements fmt.Stringer.
func (m ShippingDiscountMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ShippingDiscountMode.
func (m ShippingDiscountMode) IsValid() bool {
	for _, candidate := range validShippingDiscountModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseShippingDiscountMode converts raw input into a ShippingDiscountMode.
func ParseShippingDiscountMode(value string) (ShippingDiscountMode, error) {
	for _, candidate := range validShippingDiscountModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping discount mode %q", value)
}
