package handlers

import (
	"log"

	"campusshop/internal/middleware"
	"campusshop/internal/services"
	"campusshop/internal/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	sessions    *session.Manager
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/me", h.HandleMe)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates a customer account and logs the visitor in.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, "Validation failed", err)
	}

	login, err := h.authService.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return respondError(c, err, "Could not register user")
	}

	st := middleware.State(c)
	if err := h.sessions.Login(c.UserContext(), st, login); err != nil {
		return respondError(c, err, "Could not register user")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    login.UserProfile,
	})
}

// HandleLogin authenticates against the shop API and attaches the login to
// the visitor session.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, "Validation failed", err)
	}

	login, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err, "Authentication failed")
	}

	st := middleware.State(c)
	if err := h.sessions.Login(c.UserContext(), st, login); err != nil {
		return respondError(c, err, "Authentication failed")
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    login.UserProfile,
	})
}

// HandleLogout drops the login and any checkout in progress.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	st := middleware.State(c)
	if err := h.sessions.Logout(c.UserContext(), st); err != nil {
		return respondError(c, err, "Could not log out")
	}
	log.Printf("Session %s logged out", st.ID)
	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}

// HandleMe returns the current login, if any.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	login := middleware.State(c).Login()
	if login == nil {
		return c.JSON(fiber.Map{
			"authenticated": false,
		})
	}
	return c.JSON(fiber.Map{
		"authenticated": true,
		"user":          login.UserProfile,
		"displayName":   login.DisplayName(),
	})
}
