package types

import "strings"

// Address is the buyer shipping address snapshot stored on the order as
// jsonb. Tax processors read State, PostalCode and Country from it.
type Address struct {
	Line1      string  `json:"line1"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
}

// Zip returns the five-digit portion of the postal code.
func (a Address) Zip() string {
	code := strings.TrimSpace(a.PostalCode)
	if idx := strings.IndexByte(code, '-'); idx >= 0 {
		return code[:idx]
	}
	return code
}

// Plus4 returns the ZIP+4 extension, or empty when absent.
func (a Address) Plus4() string {
	code := strings.TrimSpace(a.PostalCode)
	if idx := strings.IndexByte(code, '-'); idx >= 0 && idx+1 < len(code) {
		return code[idx+1:]
	}
	return ""
}

// NormalizedCountry upper-cases the country, defaulting to US.
func (a Address) NormalizedCountry() string {
	country := strings.ToUpper(strings.TrimSpace(a.Country))
	if country == "" {
		return "US"
	}
	return country
}

// NormalizedState upper-cases the administrative area.
func (a Address) NormalizedState() string {
	return strings.ToUpper(strings.TrimSpace(a.State))
}
