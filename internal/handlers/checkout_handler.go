package handlers

import (
	"log"

	"campusshop/internal/checkout"
	"campusshop/internal/middleware"
	"campusshop/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// CheckoutHandler drives the checkout workflow of the visitor.
type CheckoutHandler struct {
	addresses checkout.AddressSource
	orders    checkout.OrderSubmitter
	clearCart bool // empty the cart after a successful order
	validate  *validator.Validate
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(addresses checkout.AddressSource, orders checkout.OrderSubmitter, clearCart bool) *CheckoutHandler {
	return &CheckoutHandler{
		addresses: addresses,
		orders:    orders,
		clearCart: clearCart,
		validate:  validator.New(),
	}
}

// RegisterRoutes registers the checkout routes with the Fiber app.
func (h *CheckoutHandler) RegisterRoutes(router fiber.Router) {
	checkoutRoutes := router.Group("/checkout")
	checkoutRoutes.Post("/", h.HandleStart)
	checkoutRoutes.Get("/", h.HandleGet)
	checkoutRoutes.Delete("/", h.HandleCancel)
	checkoutRoutes.Put("/address", h.HandleSelectAddress)
	checkoutRoutes.Put("/payment", h.HandleSelectPayment)
	checkoutRoutes.Post("/next", h.HandleNext)
	checkoutRoutes.Post("/back", h.HandleBack)
	checkoutRoutes.Post("/submit", h.HandleSubmit)
}

// StartCheckoutRequest represents the request body for entering checkout.
// Name and Email are only read for guest checkouts.
type StartCheckoutRequest struct {
	Guest bool   `json:"guest"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SelectAddressRequest represents the request body for choosing an address.
type SelectAddressRequest struct {
	AddressID int64 `json:"addressId" validate:"required"`
}

// SelectPaymentRequest represents the request body for choosing a payment method.
type SelectPaymentRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

// HandleStart enters checkout at the address step, replacing any checkout
// already in progress.
func (h *CheckoutHandler) HandleStart(c *fiber.Ctx) error {
	var req StartCheckoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c, err)
		}
	}

	st := middleware.State(c)
	params := checkout.Params{
		Mode:      checkout.ModeAuthenticated,
		Session:   st.Login(),
		Cart:      st.Cart,
		Addresses: h.addresses,
		Orders:    h.orders,
	}
	if req.Guest {
		params.Mode = checkout.ModeGuest
		params.Session = nil
		params.Contact = checkout.Contact{Name: req.Name, Email: req.Email}
	}

	w, err := checkout.Start(c.UserContext(), params)
	if err != nil {
		return respondError(c, err, "Could not start checkout")
	}
	st.SetCheckout(w)
	log.Printf("Session %s entered %s checkout", st.ID, w.Mode())

	return c.Status(fiber.StatusCreated).JSON(w.View())
}

// active returns the running checkout or writes a 404 response.
func (h *CheckoutHandler) active(c *fiber.Ctx) (*checkout.Workflow, error) {
	w, ok := middleware.State(c).Checkout()
	if !ok {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message":  "No checkout in progress",
			"redirect": "/cart",
		})
	}
	return w, nil
}

// HandleGet returns the current checkout view.
func (h *CheckoutHandler) HandleGet(c *fiber.Ctx) error {
	w, err := h.active(c)
	if w == nil {
		return err
	}
	return c.JSON(w.View())
}

// HandleCancel leaves checkout.
func (h *CheckoutHandler) HandleCancel(c *fiber.Ctx) error {
	middleware.State(c).EndCheckout()
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSelectAddress picks one of the saved addresses.
func (h *CheckoutHandler) HandleSelectAddress(c *fiber.Ctx) error {
	w, err := h.active(c)
	if w == nil {
		return err
	}

	var req SelectAddressRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, "Validation failed", err)
	}

	if err := w.SelectAddress(req.AddressID); err != nil {
		return respondError(c, err, "Could not select address")
	}
	return c.JSON(w.View())
}

// HandleSelectPayment picks the payment method.
func (h *CheckoutHandler) HandleSelectPayment(c *fiber.Ctx) error {
	w, err := h.active(c)
	if w == nil {
		return err
	}

	var req SelectPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, "Validation failed", err)
	}

	method, err := models.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Unknown payment method",
			"error":   err.Error(),
		})
	}
	if err := w.SelectPayment(method); err != nil {
		return respondError(c, err, "Could not select payment method")
	}
	return c.JSON(w.View())
}

// HandleNext advances one step.
func (h *CheckoutHandler) HandleNext(c *fiber.Ctx) error {
	w, err := h.active(c)
	if w == nil {
		return err
	}
	if err := w.Next(); err != nil {
		return respondError(c, err, "Could not continue checkout")
	}
	return c.JSON(w.View())
}

// HandleBack goes back one step.
func (h *CheckoutHandler) HandleBack(c *fiber.Ctx) error {
	w, err := h.active(c)
	if w == nil {
		return err
	}
	if err := w.Back(); err != nil {
		return respondError(c, err, "Could not go back")
	}
	return c.JSON(w.View())
}

// HandleSubmit places the order from the review step.
func (h *CheckoutHandler) HandleSubmit(c *fiber.Ctx) error {
	w, err := h.active(c)
	if w == nil {
		return err
	}

	st := middleware.State(c)
	created, err := w.Submit(c.UserContext())
	if err != nil {
		return respondError(c, err, "Could not submit order")
	}

	st.EndCheckout()
	if h.clearCart {
		st.Cart.Clear()
	}
	log.Printf("Session %s placed order %d", st.ID, created.ID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"orderId": created.ID,
	})
}
