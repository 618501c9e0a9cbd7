package models

import (
	"time"

	"github.com/lib/pq"
)

// Contact types recognized by the back office. A contact may carry several.
const (
	ContactTypeSupplier      = "supplier"
	ContactTypeCustomer      = "customer"
	ContactTypeSubcontractor = "subcontractor"
)

// Contact represents a person or business in the address book. Suppliers are
// contacts tagged with the "supplier" contact type.
type Contact struct {
	ID           int            `db:"id" json:"id"`
	FullName     string         `db:"full_name" json:"name"`
	Email        *string        `db:"email" json:"email,omitempty"`
	MobilePhone  *string        `db:"mobile_phone" json:"mobilePhone,omitempty"`
	OfficePhone  *string        `db:"office_phone" json:"officePhone,omitempty"`
	Address      *string        `db:"address" json:"address,omitempty"`
	ABN          *string        `db:"abn" json:"abn,omitempty"`
	Rating       *int           `db:"rating" json:"rating,omitempty"`
	ContactTypes pq.StringArray `db:"contact_types" json:"contactTypes"`
	Notes        *string        `db:"notes" json:"notes,omitempty"`
	IsActive     bool           `db:"is_active" json:"isActive"`
	CreatedAt    time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updatedAt"`
}

// IsSupplier reports whether the contact is tagged as a supplier.
func (c *Contact) IsSupplier() bool {
	for _, t := range c.ContactTypes {
		if t == ContactTypeSupplier {
			return true
		}
	}
	return false
}
