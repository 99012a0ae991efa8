// internal/domain/address/validate.go
package address

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	pincodePattern = regexp.MustCompile(`^[1-9]\d{5}$`)
	mobilePattern  = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// States lists the Indian states and union territories accepted in an address.
var States = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh", "Goa",
	"Gujarat", "Haryana", "Himachal Pradesh", "Jammu and Kashmir", "Jharkhand",
	"Karnataka", "Kerala", "Ladakh", "Madhya Pradesh", "Maharashtra", "Manipur",
	"Meghalaya", "Mizoram", "Nagaland", "Odisha", "Punjab", "Rajasthan", "Sikkim",
	"Tamil Nadu", "Telangana", "Tripura", "Uttar Pradesh", "Uttarakhand", "West Bengal",
	"Andaman and Nicobar Islands", "Chandigarh", "Dadra and Nagar Haveli and Daman and Diu",
	"Delhi", "Lakshadweep", "Puducherry",
}

// ValidPincode reports whether p is a six digit pincode not starting with 0.
func ValidPincode(p string) bool { return pincodePattern.MatchString(p) }

// ValidMobile reports whether m is a ten digit Indian mobile number.
func ValidMobile(m string) bool { return mobilePattern.MatchString(m) }

// ValidState reports whether s names a known state, ignoring case.
func ValidState(s string) bool {
	for _, st := range States {
		if strings.EqualFold(st, strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

// Validate checks required fields and formats. The returned error names the first bad field.
func (r *Request) Validate() error {
	if r.AddressType == "" {
		r.AddressType = TypeShipping
	}
	if !r.AddressType.Valid() {
		return fmt.Errorf("address_type must be shipping or billing")
	}
	required := []struct{ name, value string }{
		{"first_name", r.FirstName},
		{"address_line_1", r.AddressLine1},
		{"city", r.City},
		{"state", r.State},
		{"pincode", r.Pincode},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	if !ValidPincode(r.Pincode) {
		return fmt.Errorf("invalid pincode %q", r.Pincode)
	}
	if !ValidState(r.State) {
		return fmt.Errorf("unknown state %q", r.State)
	}
	if r.Mobile != "" && !ValidMobile(r.Mobile) {
		return fmt.Errorf("invalid mobile number")
	}
	return nil
}
