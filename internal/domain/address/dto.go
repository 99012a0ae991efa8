// internal/domain/address/dto.go
package address

// Request is the create/update payload for an address.
type Request struct {
	AddressType          Type   `json:"address_type"`
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Company              string `json:"company"`
	AddressLine1         string `json:"address_line_1"`
	AddressLine2         string `json:"address_line_2"`
	Landmark             string `json:"landmark"`
	City                 string `json:"city"`
	State                string `json:"state"`
	Pincode              string `json:"pincode"`
	Mobile               string `json:"mobile"`
	IsDefault            bool   `json:"is_default"`
	DeliveryInstructions string `json:"delivery_instructions"`
}

// Apply copies the request fields onto a.
func (r *Request) Apply(a *Address) {
	a.AddressType = r.AddressType
	a.FirstName = r.FirstName
	a.LastName = r.LastName
	a.Company = r.Company
	a.AddressLine1 = r.AddressLine1
	a.AddressLine2 = r.AddressLine2
	a.Landmark = r.Landmark
	a.City = r.City
	a.State = r.State
	a.Pincode = r.Pincode
	a.Mobile = r.Mobile
	a.IsDefault = r.IsDefault
	a.DeliveryInstructions = r.DeliveryInstructions
}

// ListResponse wraps the address list as the API returns it.
type ListResponse struct {
	Addresses []Address `json:"addresses"`
}

// ItemResponse wraps a single address as the API returns it.
type ItemResponse struct {
	Address *Address `json:"address"`
}
