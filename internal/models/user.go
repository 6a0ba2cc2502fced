package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User roles.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Address types.
const (
	AddressTypeHome  = "home"
	AddressTypeWork  = "work"
	AddressTypeOther = "other"
)

// User represents a phone-verified customer account. The additional
// addresses live inside the row as an owned JSON collection; they are not
// rows of their own and their ids are plain generated strings.
type User struct {
	BaseModel
	Name                string          `json:"name"`
	Phone               string          `gorm:"uniqueIndex" json:"phone"`
	Email               *string         `gorm:"uniqueIndex" json:"email,omitempty"`
	Role                string          `gorm:"default:customer" json:"role"`
	Slug                string          `gorm:"uniqueIndex" json:"slug"`
	IsVerified          bool            `json:"isVerified"`
	IsActive            bool            `gorm:"default:true" json:"isActive"`
	DateOfBirth         *time.Time      `json:"dateOfBirth,omitempty"`
	Address             *PrimaryAddress `gorm:"type:jsonb" json:"address"`
	AdditionalAddresses AddressList     `gorm:"type:jsonb" json:"additionalAddresses"`
	GiftReceived        bool            `json:"giftReceived"`
}

// PrimaryAddress is the structured main address stored on the user row.
type PrimaryAddress struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	FullAddress string `json:"fullAddress"`
}

// NewPrimaryAddress builds a PrimaryAddress with the derived full-address string.
func NewPrimaryAddress(street, city, state, pincode string) *PrimaryAddress {
	parts := make([]string, 0, 4)
	for _, p := range []string{street, city, state, pincode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return &PrimaryAddress{
		Street:      street,
		City:        city,
		State:       state,
		Pincode:     pincode,
		FullAddress: strings.Join(parts, ", "),
	}
}

// Value implements driver.Valuer for the jsonb column.
func (a PrimaryAddress) Value() (driver.Value, error) {
	return json.Marshal(a)
}

// Scan implements sql.Scanner for the jsonb column.
func (a *PrimaryAddress) Scan(value interface{}) error {
	return scanJSON(value, a)
}

// Address is one element of a user's embedded address collection.
type Address struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Pincode   string    `json:"pincode"`
	Type      string    `json:"type"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewAddressID generates an identifier for an embedded address.
func NewAddressID() string {
	return uuid.NewString()
}

// AddressList is the owned, ordered address collection of a user.
//
// Invariant: at most one entry has IsDefault set whenever the list is
// non-empty. Every mutation goes through the helpers below so the invariant
// is maintained in exactly one place.
type AddressList []Address

// Value implements driver.Valuer for the jsonb column.
func (l AddressList) Value() (driver.Value, error) {
	if l == nil {
		l = AddressList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for the jsonb column.
func (l *AddressList) Scan(value interface{}) error {
	return scanJSON(value, l)
}

// Find returns the index of the address with the given id, or -1.
func (l AddressList) Find(id string) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

// Default returns the current default address, if any.
func (l AddressList) Default() *Address {
	for i := range l {
		if l[i].IsDefault {
			return &l[i]
		}
	}
	return nil
}

// Append adds an address to the list. The first address into an empty
// collection becomes the default.
func (l AddressList) Append(addr Address) AddressList {
	if len(l) == 0 {
		addr.IsDefault = true
	}
	return append(l, addr)
}

// WithDefault returns the list with IsDefault set on the matching entry and
// cleared on every other entry. An unknown id clears nothing and sets
// nothing beyond the total reassignment, leaving the list without a default;
// callers that must not lose the default check Find first.
func (l AddressList) WithDefault(id string) AddressList {
	out := make(AddressList, len(l))
	for i := range l {
		out[i] = l[i]
		out[i].IsDefault = l[i].ID == id
	}
	return out
}

// Without removes the address with the given id. If the removed entry was
// the default and entries remain, the first remaining entry is promoted.
// The boolean reports whether the id was present.
func (l AddressList) Without(id string) (AddressList, bool) {
	idx := l.Find(id)
	if idx < 0 {
		return l, false
	}

	wasDefault := l[idx].IsDefault
	out := make(AddressList, 0, len(l)-1)
	out = append(out, l[:idx]...)
	out = append(out, l[idx+1:]...)

	if wasDefault && len(out) > 0 {
		out[0].IsDefault = true
	}
	return out, true
}

func scanJSON(value, dest interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
