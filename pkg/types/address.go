package types

import "strings"

// PostalCodeSentinel marks an address whose raw record carried no postal code.
const PostalCodeSentinel = "000000"

// Address is a delivery address materialized from the backend's free-text
// address records. The backend stores addresses as an ordered string list per
// user; Index is the position in that list and is the key every update call
// uses, so it must survive local add/edit/remove.
type Address struct {
	ID            int    `json:"id"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	State         string `json:"state,omitempty"`
	PostalCode    string `json:"postal_code"`
	CompanyName   string `json:"company_name,omitempty"`
	GSTNumber     string `json:"gst_number,omitempty"`
	FullAddress   string `json:"full_address"`
	Index         int    `json:"-"`
}

// JoinFull rebuilds the comma-joined backend representation.
func (a Address) JoinFull() string {
	parts := []string{strings.TrimSpace(a.StreetAddress), strings.TrimSpace(a.City)}
	if state := strings.TrimSpace(a.State); state != "" {
		parts = append(parts, state)
	}
	if code := strings.TrimSpace(a.PostalCode); code != "" {
		parts = append(parts, code)
	}
	clean := parts[:0]
	for _, part := range parts {
		if part != "" {
			clean = append(clean, part)
		}
	}
	return strings.Join(clean, ", ")
}
