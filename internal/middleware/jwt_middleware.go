package middleware

import (
	"errors"
	"log"
	"strings"

	"campusshop/internal/services"
	"campusshop/internal/session"

	"github.com/gofiber/fiber/v2"
)

// SessionTokenHeader carries a newly issued visitor token back to the client.
const SessionTokenHeader = "X-Session-Token"

const stateKey = "session_state"

// SessionRequired is a Fiber middleware that resolves the visitor state from
// the Bearer token. Requests without a token get a fresh anonymous session
// whose token is returned in the X-Session-Token header.
func SessionRequired(authService *services.AuthService, manager *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return startSession(c, authService, manager)
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		sessionID, err := authService.SessionID(parts[1])
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   err.Error(),
			})
		}

		st, err := manager.Get(c.UserContext(), sessionID)
		if errors.Is(err, session.ErrUnknownSession) {
			// The token is genuine but its session is gone; start over.
			return startSession(c, authService, manager)
		}
		if err != nil {
			log.Printf("Failed to load session %s: %v", sessionID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not load session",
				"error":   err.Error(),
			})
		}

		c.Locals(stateKey, st)
		return c.Next()
	}
}

func startSession(c *fiber.Ctx, authService *services.AuthService, manager *session.Manager) error {
	st := manager.Create()
	token, err := authService.IssueToken(st.ID)
	if err != nil {
		log.Printf("Failed to issue token for session %s: %v", st.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create session",
			"error":   err.Error(),
		})
	}

	c.Set(SessionTokenHeader, token)
	c.Locals(stateKey, st)
	return c.Next()
}

// LoginRequired rejects anonymous visitors. It must run after SessionRequired.
func LoginRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		st := State(c)
		if st == nil || !st.Authenticated() {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message":  "Please log in first",
				"redirect": "/login",
			})
		}
		return c.Next()
	}
}

// State returns the visitor state stored by SessionRequired.
func State(c *fiber.Ctx) *session.State {
	st, _ := c.Locals(stateKey).(*session.State)
	return st
}
