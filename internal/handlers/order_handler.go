package handlers

import (
	"campusshop/internal/middleware"
	"campusshop/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for the order history.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders", middleware.LoginRequired())
	orderRoutes.Get("/", h.HandleGetOrders)
}

// HandleGetOrders returns the normalized order history of the logged-in
// customer.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	login := middleware.State(c).Login()
	if login == nil {
		// Logged out between the route guard and here.
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message":  "Please log in to see your orders",
			"redirect": "/login",
		})
	}
	history, err := h.service.History(c.UserContext(), login.Email)
	if err != nil {
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(history)
}
