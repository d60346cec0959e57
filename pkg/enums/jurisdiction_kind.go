package enums

import "fmt"

// JurisdictionKind classifies a taxing authority.
type JurisdictionKind string

const (
	JurisdictionKindState    JurisdictionKind = "state"
	JurisdictionKindCounty   JurisdictionKind = "county"
	JurisdictionKindCity     JurisdictionKind = "city"
	JurisdictionKindDistrict JurisdictionKind = "district"
)

var validJurisdictionKinds = []JurisdictionKind{
	JurisdictionKindState,
	JurisdictionKindCounty,
	JurisdictionKindCity,
	JurisdictionKindDistrict,
}

// String implements fmt.Stringer.
func (k JurisdictionKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known JurisdictionKind.
func (k JurisdictionKind) IsValid() bool {
	for _, candidate := range validJurisdictionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseJurisdictionKind converts raw input into a JurisdictionKind.
func ParseJurisdictionKind(value string) (JurisdictionKind, error) {
	for _, candidate := range validJurisdictionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid jurisdiction kind %q", value)
}
