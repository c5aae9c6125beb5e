package handlers

import (
	"autoparts/internal/apperr"
	"autoparts/internal/middleware"
	"autoparts/internal/models"
	"autoparts/internal/services"

	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// AuthResponse is the body of a successful register or login.
type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// RegisterRoutes registers the authentication routes. Extra handlers, such as
// a rate limiter, run before every auth route.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler, extra ...fiber.Handler) {
	authRoutes := router.Group("/auth", extra...)
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/me", authRequired, h.HandleMe)
	authRoutes.Put("/me", authRequired, h.HandleUpdateMe)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var in models.RegisterInput
	if err := c.BodyParser(&in); err != nil {
		return apperr.Validation("body", "Invalid request body")
	}

	res, err := h.authService.Register(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   res.Token,
		User:    res.User,
	})
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var in models.LoginInput
	if err := c.BodyParser(&in); err != nil {
		return apperr.Validation("body", "Invalid request body")
	}

	res, err := h.authService.Login(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(AuthResponse{
		Success: true,
		Message: "Login successful",
		Token:   res.Token,
		User:    res.User,
	})
}

// HandleMe returns the authenticated user.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return apperr.Auth("Access token required")
	}
	user, err := h.authService.CurrentUser(c.UserContext(), claims.UserID)
	if err != nil {
		return err
	}
	return c.JSON(Response{Success: true, Data: user})
}

// HandleUpdateMe updates the name and/or password of the authenticated user.
func (h *AuthHandler) HandleUpdateMe(c *fiber.Ctx) error {
	claims, ok := middleware.Claims(c)
	if !ok {
		return apperr.Auth("Access token required")
	}
	var in models.ProfileInput
	if err := c.BodyParser(&in); err != nil {
		return apperr.Validation("body", "Invalid request body")
	}

	user, err := h.authService.UpdateProfile(c.UserContext(), claims.UserID, in)
	if err != nil {
		return err
	}
	return c.JSON(Response{Success: true, Message: "Profile updated successfully", Data: user})
}
