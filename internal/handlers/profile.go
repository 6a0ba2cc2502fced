package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/krishna/internal/middleware"
	"github.com/example/krishna/internal/models"
	"github.com/example/krishna/internal/services"
	"github.com/example/krishna/internal/utils"
)

// ProfileHandler manages the authenticated user's address book and coupons.
type ProfileHandler struct {
	db        *gorm.DB
	addresses *services.AddressService
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB, addresses *services.AddressService) *ProfileHandler {
	return &ProfileHandler{db: db, addresses: addresses}
}

type addressRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Type    string `json:"type"`
}

// AddAddress appends an address to the user's collection.
func (h *ProfileHandler) AddAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req addressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	address, list, err := h.addresses.Add(userID, services.AddressInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Street:  req.Street,
		City:    req.City,
		State:   req.State,
		Pincode: req.Pincode,
		Type:    req.Type,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":             true,
		"message":             "Address added successfully",
		"address":             address,
		"additionalAddresses": list,
	})
}

type updateAddressRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Street  *string `json:"street"`
	City    *string `json:"city"`
	State   *string `json:"state"`
	Pincode *string `json:"pincode"`
	Type    *string `json:"type"`
}

// UpdateAddress merges a patch over an existing address.
func (h *ProfileHandler) UpdateAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateAddressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	address, list, err := h.addresses.Update(userID, c.Params("addressId"), services.AddressPatch{
		Name:    req.Name,
		Phone:   req.Phone,
		Street:  req.Street,
		City:    req.City,
		State:   req.State,
		Pincode: req.Pincode,
		Type:    req.Type,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"message":             "Address updated successfully",
		"address":             address,
		"additionalAddresses": list,
	})
}

// DeleteAddress removes an address, promoting a new default when needed.
func (h *ProfileHandler) DeleteAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	list, err := h.addresses.Remove(userID, c.Params("addressId"))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"message":             "Address deleted successfully",
		"additionalAddresses": list,
	})
}

// SetDefaultAddress makes the matching address the only default.
func (h *ProfileHandler) SetDefaultAddress(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	list, err := h.addresses.SetDefault(userID, c.Params("addressId"))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"message":             "Default address updated successfully",
		"additionalAddresses": list,
	})
}

// ListAddresses returns the user's address collection.
func (h *ProfileHandler) ListAddresses(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	list, err := h.addresses.List(userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":             true,
		"additionalAddresses": list,
	})
}

// ListCoupons returns the coupons granted to the user.
func (h *ProfileHandler) ListCoupons(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	query := h.db.Where("user_id = ?", userID).Model(&models.UserCoupon{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var items []models.UserCoupon
	if err := query.Preload("Coupon").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&items).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    items,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}
