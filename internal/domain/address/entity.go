// internal/domain/address/entity.go
package address

import "time"

type Type string

const (
	TypeShipping Type = "shipping"
	TypeBilling  Type = "billing"
)

func (t Type) Valid() bool {
	return t == TypeShipping || t == TypeBilling
}

// Address is a postal address owned by one user.
type Address struct {
	ID                   string    `json:"id" db:"id"`
	OwnerID              string    `json:"owner_id" db:"owner_id"`
	AddressType          Type      `json:"address_type" db:"address_type"`
	FirstName            string    `json:"first_name" db:"first_name"`
	LastName             string    `json:"last_name" db:"last_name"`
	Company              string    `json:"company" db:"company"`
	AddressLine1         string    `json:"address_line_1" db:"address_line_1"`
	AddressLine2         string    `json:"address_line_2" db:"address_line_2"`
	Landmark             string    `json:"landmark" db:"landmark"`
	City                 string    `json:"city" db:"city"`
	State                string    `json:"state" db:"state"`
	Pincode              string    `json:"pincode" db:"pincode"`
	Mobile               string    `json:"mobile" db:"mobile"`
	IsDefault            bool      `json:"is_default" db:"is_default"`
	DeliveryInstructions string    `json:"delivery_instructions" db:"delivery_instructions"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}
