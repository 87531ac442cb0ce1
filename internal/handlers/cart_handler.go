package handlers

import (
	"campusshop/internal/cart"
	"campusshop/internal/middleware"
	"campusshop/internal/models"
	"campusshop/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// CartHandler handles HTTP requests for the visitor's cart.
type CartHandler struct {
	products *services.ProductService
	validate *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(products *services.ProductService) *CartHandler {
	return &CartHandler{
		products: products,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the cart routes with the Fiber app.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Patch("/items/:id", h.HandleUpdateQuantity)
	cartRoutes.Delete("/items/:id", h.HandleRemoveItem)
}

// CartLineView is a cart line with its subtotal.
type CartLineView struct {
	models.CartLine
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// CartView is the cart as rendered by the cart page and the header badge.
type CartView struct {
	Lines     []CartLineView  `json:"lines"`
	ItemCount int             `json:"itemCount"`
	Total     decimal.Decimal `json:"total"`
}

func newCartView(store *cart.Store) CartView {
	lines := store.Lines()
	view := CartView{
		Lines: make([]CartLineView, 0, len(lines)),
		Total: cart.Total(lines),
	}
	for _, l := range lines {
		view.Lines = append(view.Lines, CartLineView{CartLine: l, LineTotal: l.LineTotal()})
		view.ItemCount += l.Quantity
	}
	return view
}

// AddItemRequest represents the request body for adding a product.
type AddItemRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
}

// UpdateQuantityRequest represents the request body for changing a quantity.
// Zero or less removes the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

// HandleGetCart returns the cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	return c.JSON(newCartView(middleware.State(c).Cart))
}

// HandleClearCart empties the cart.
func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	st := middleware.State(c)
	st.Cart.Clear()
	return c.JSON(newCartView(st.Cart))
}

// HandleAddItem adds one unit of a catalog product. The product is looked
// up so that its current name and price are snapshotted.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req AddItemRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, "Validation failed", err)
	}

	product, err := h.products.GetProductByID(c.UserContext(), req.ProductID)
	if err != nil {
		return respondError(c, err, "Could not add product to cart")
	}

	st := middleware.State(c)
	st.Cart.AddItem(*product)
	return c.JSON(newCartView(st.Cart))
}

// HandleUpdateQuantity sets the quantity of a line.
func (h *CartHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Product ID must be a number",
		})
	}

	var req UpdateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, "Validation failed", err)
	}

	st := middleware.State(c)
	st.Cart.UpdateQuantity(int64(id), *req.Quantity)
	return c.JSON(newCartView(st.Cart))
}

// HandleRemoveItem removes a line from the cart.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Product ID must be a number",
		})
	}

	st := middleware.State(c)
	st.Cart.RemoveItem(int64(id))
	return c.JSON(newCartView(st.Cart))
}
