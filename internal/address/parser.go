// Package address manages the user's delivery addresses. The backend stores
// each address as one free-text string in an ordered list; every mutation is
// keyed by the position in that list, so the parser and the book both carry
// the positional index around.
package address

import (
	"regexp"
	"strings"

	"github.com/angelmondragon/storefront-engine/pkg/types"
)

const defaultCity = "City"

var (
	postalCodePattern  = regexp.MustCompile(`\d{6}`)
	exactPostalPattern = regexp.MustCompile(`^\d{6}$`)
)

// Parse materializes a structured address from a free-text record.
//
// Rule order matters: the first 6-digit run is taken as the postal code and
// removed, the remainder is split on commas, then parts are assigned
// right-to-left (state, city) with everything left over forming the street.
func Parse(raw string) types.Address {
	addr := types.Address{
		PostalCode:  types.PostalCodeSentinel,
		City:        defaultCity,
		FullAddress: strings.TrimSpace(raw),
	}

	remainder := raw
	if code := postalCodePattern.FindString(raw); code != "" {
		addr.PostalCode = code
		remainder = strings.Replace(raw, code, "", 1)
	}

	var parts []string
	for _, part := range strings.Split(remainder, ",") {
		part = strings.Trim(part, ", \t\n")
		if part != "" {
			parts = append(parts, part)
		}
	}

	switch {
	case len(parts) >= 3:
		addr.State = parts[len(parts)-1]
		addr.City = parts[len(parts)-2]
		addr.StreetAddress = strings.Join(parts[:len(parts)-2], ", ")
	case len(parts) == 2:
		addr.City = parts[1]
		addr.StreetAddress = parts[0]
	case len(parts) == 1:
		addr.StreetAddress = parts[0]
	}

	return addr
}
