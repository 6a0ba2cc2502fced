package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/krishna/internal/models"
)

// AddressService maintains the embedded address collection of a user,
// preserving the single-default invariant through the AddressList helpers.
type AddressService struct {
	db *gorm.DB
}

// NewAddressService constructs an AddressService.
func NewAddressService(db *gorm.DB) *AddressService {
	return &AddressService{db: db}
}

// AddressInput is the payload for adding an address. Empty name/phone fall
// back to the owning user's values; an empty type becomes "other".
type AddressInput struct {
	Name    string
	Phone   string
	Street  string
	City    string
	State   string
	Pincode string
	Type    string
}

// AddressPatch is the partial update merged over an existing address.
type AddressPatch struct {
	Name    *string
	Phone   *string
	Street  *string
	City    *string
	State   *string
	Pincode *string
	Type    *string
}

// Add appends a new address to the user's collection. The first address
// into an empty collection becomes the default.
func (s *AddressService) Add(userID uuid.UUID, in AddressInput) (*models.Address, models.AddressList, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	addr := models.Address{
		ID:        models.NewAddressID(),
		Name:      in.Name,
		Phone:     in.Phone,
		Street:    in.Street,
		City:      in.City,
		State:     in.State,
		Pincode:   in.Pincode,
		Type:      in.Type,
		IsDefault: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if addr.Name == "" {
		addr.Name = user.Name
	}
	if addr.Phone == "" {
		addr.Phone = user.Phone
	}
	if addr.Type == "" {
		addr.Type = models.AddressTypeOther
	}

	list := user.AdditionalAddresses.Append(addr)
	if err := s.save(user, list); err != nil {
		return nil, nil, err
	}

	return &list[len(list)-1], list, nil
}

// Update merges the patch over the matching address and stamps updatedAt.
func (s *AddressService) Update(userID uuid.UUID, addressID string, patch AddressPatch) (*models.Address, models.AddressList, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return nil, nil, err
	}

	list := user.AdditionalAddresses
	idx := list.Find(addressID)
	if idx < 0 {
		return nil, nil, ErrAddressNotFound
	}

	addr := &list[idx]
	if patch.Name != nil {
		addr.Name = *patch.Name
	}
	if patch.Phone != nil {
		addr.Phone = *patch.Phone
	}
	if patch.Street != nil {
		addr.Street = *patch.Street
	}
	if patch.City != nil {
		addr.City = *patch.City
	}
	if patch.State != nil {
		addr.State = *patch.State
	}
	if patch.Pincode != nil {
		addr.Pincode = *patch.Pincode
	}
	if patch.Type != nil {
		addr.Type = *patch.Type
	}
	addr.UpdatedAt = time.Now()

	if err := s.save(user, list); err != nil {
		return nil, nil, err
	}

	return addr, list, nil
}

// Remove deletes the matching address. Removing the default promotes the
// first remaining address, if any.
func (s *AddressService) Remove(userID uuid.UUID, addressID string) (models.AddressList, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return nil, err
	}

	list, found := user.AdditionalAddresses.Without(addressID)
	if !found {
		return nil, ErrAddressNotFound
	}

	if err := s.save(user, list); err != nil {
		return nil, err
	}

	return list, nil
}

// SetDefault makes the matching address the only default. An unknown id is
// a no-op and the collection is returned unchanged.
func (s *AddressService) SetDefault(userID uuid.UUID, addressID string) (models.AddressList, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return nil, err
	}

	list := user.AdditionalAddresses
	if list.Find(addressID) < 0 {
		return list, nil
	}

	list = list.WithDefault(addressID)
	if err := s.save(user, list); err != nil {
		return nil, err
	}

	return list, nil
}

// List returns the user's address collection.
func (s *AddressService) List(userID uuid.UUID) (models.AddressList, error) {
	user, err := s.loadUser(userID)
	if err != nil {
		return nil, err
	}
	return user.AdditionalAddresses, nil
}

func (s *AddressService) loadUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *AddressService) save(user *models.User, list models.AddressList) error {
	user.AdditionalAddresses = list
	return s.db.Model(user).Updates(map[string]interface{}{
		"additional_addresses": list,
		"updated_at":           time.Now(),
	}).Error
}
