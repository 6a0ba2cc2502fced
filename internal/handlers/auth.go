package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/krishna/internal/config"
	"github.com/example/krishna/internal/middleware"
	"github.com/example/krishna/internal/services"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	auth *services.AuthService
	cfg  *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

type registerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Register starts a phone registration and dispatches the verification OTP.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.auth.Register(services.RegisterInput{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	message := "Registration successful. OTP sent for verification."
	if result.TestUser {
		message = "Test user registered. Use the fixed test OTP for verification."
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": message,
		"userId":  result.UserID,
		"phone":   result.Phone,
		"slug":    result.Slug,
	})
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

// VerifyOTP completes a registration with the submitted code.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Phone == "" || req.OTP == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone and otp are required")
	}

	session, err := h.auth.CompleteRegistration(req.Phone, req.OTP)
	if err != nil {
		return mapServiceError(c, err)
	}

	h.setTokenCookie(c, session.Token)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Registration completed successfully",
		"token":   session.Token,
		"user":    session.User,
	})
}

type loginRequest struct {
	Phone string `json:"phone"`
}

// Login dispatches a login OTP to a registered phone.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.auth.Login(req.Phone)
	if err != nil {
		return mapServiceError(c, err)
	}

	message := "OTP sent for login verification"
	if result.TestUser {
		message = "Test user detected. Use the fixed test OTP to login."
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"phone":   result.Phone,
	})
}

// VerifyLogin completes a login with the submitted code.
func (h *AuthHandler) VerifyLogin(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Phone == "" || req.OTP == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone and otp are required")
	}

	session, err := h.auth.CompleteLogin(req.Phone, req.OTP)
	if err != nil {
		return mapServiceError(c, err)
	}

	h.setTokenCookie(c, session.Token)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"token":   session.Token,
		"user":    session.User,
	})
}

type resendOTPRequest struct {
	Phone   string `json:"phone"`
	Purpose string `json:"purpose"`
}

// ResendOTP invalidates the outstanding code and issues a fresh one.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req resendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.auth.ResendOTP(req.Phone, req.Purpose); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "OTP resent successfully",
		"phone":   req.Phone,
	})
}

// Logout clears the session cookie. Tokens are stateless, so there is
// nothing to revoke server-side.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// GetMe returns the authenticated user's profile.
func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := h.auth.CurrentUser(userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

type updateMeRequest struct {
	Name        *string                `json:"name"`
	Email       *string                `json:"email"`
	DateOfBirth *time.Time             `json:"dateOfBirth"`
	Address     *primaryAddressRequest `json:"address"`
}

type primaryAddressRequest struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
}

// UpdateMe updates the authenticated user's profile. Role and phone cannot
// be changed through this endpoint.
func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateMeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	input := services.ProfileUpdateInput{
		Name:        req.Name,
		Email:       req.Email,
		DateOfBirth: req.DateOfBirth,
	}
	if req.Address != nil {
		input.Address = &services.PrimaryAddressInput{
			Street:  req.Address.Street,
			City:    req.Address.City,
			State:   req.Address.State,
			Pincode: req.Address.Pincode,
		}
	}

	user, err := h.auth.UpdateProfile(userID, input)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated successfully",
		"user":    user,
	})
}

type completeProfileRequest struct {
	DateOfBirth *time.Time             `json:"dateOfBirth"`
	Address     *primaryAddressRequest `json:"address"`
}

// CompleteProfile records date of birth and primary address after signup.
func (h *AuthHandler) CompleteProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req completeProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var address *services.PrimaryAddressInput
	if req.Address != nil {
		address = &services.PrimaryAddressInput{
			Street:  req.Address.Street,
			City:    req.Address.City,
			State:   req.Address.State,
			Pincode: req.Address.Pincode,
		}
	}

	user, err := h.auth.CompleteProfile(userID, req.DateOfBirth, address)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile completed successfully",
		"user":    user,
	})
}

func (h *AuthHandler) setTokenCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Expires:  time.Now().Add(h.cfg.TokenExpires),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// mapServiceError translates the service-layer failure taxonomy into HTTP
// responses. Unknown errors propagate to the recover/error middleware.
func mapServiceError(c *fiber.Ctx, err error) error {
	var validation *services.ValidationError
	if errors.As(err, &validation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "validation failed",
			"errors":  validation.Fields,
		})
	}

	switch {
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrAddressNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrPhoneExists),
		errors.Is(err, services.ErrEmailExists):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrOTPNotFound),
		errors.Is(err, services.ErrOTPInvalid),
		errors.Is(err, services.ErrOTPExpired):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrAccountDeactivated):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrSMSDelivery):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	default:
		return err
	}
}
