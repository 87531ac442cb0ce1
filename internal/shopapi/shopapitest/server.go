// Package shopapitest runs an in-process fake of the remote shop API for tests.
package shopapitest

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"campusshop/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

// Start serves app on a random local port and returns its base URL
// (including the /api prefix). The app is shut down when the test ends.
func Start(t *testing.T, app *fiber.App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})
	return "http://" + ln.Addr().String() + "/api"
}

// Account is a customer known to the fake server.
type Account struct {
	models.UserProfile
	Password string
	Token    string
}

// Server is a minimal, in-memory version of the remote shop API.
type Server struct {
	URL string

	mu        sync.Mutex
	products  map[int64]models.Product
	order     []int64
	accounts  []Account
	addresses map[string][]models.Address
	history   map[string][]map[string]any
	received  []ReceivedOrder
	nextOrder int64

	// AddressStatus, when non-zero, makes GET /addresses fail with it.
	AddressStatus int
	// OrderStatus, when non-zero, makes POST /orders fail with it.
	OrderStatus int
}

// ReceivedOrder records a POST /orders call.
type ReceivedOrder struct {
	Token   string
	Request models.OrderRequest
}

// NewServer starts a fake API seeded with products.
func NewServer(t *testing.T, products ...models.Product) *Server {
	t.Helper()
	s := &Server{
		products:  make(map[int64]models.Product),
		addresses: make(map[string][]models.Address),
		history:   make(map[string][]map[string]any),
		nextOrder: 1000,
	}
	for _, p := range products {
		s.products[p.ID] = p
		s.order = append(s.order, p.ID)
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	api := app.Group("/api")
	api.Get("/products", s.handleProducts)
	api.Get("/products/:id", s.handleProduct)
	api.Post("/auth/login", s.handleLogin)
	api.Post("/auth/register", s.handleRegister)
	api.Get("/addresses", s.handleAddresses)
	api.Post("/orders", s.handleCreateOrder)
	api.Get("/orders", s.handleOrders)

	s.URL = Start(t, app)
	return s
}

// SetProduct replaces a catalog entry, e.g. to change its price.
func (s *Server) SetProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		s.order = append(s.order, p.ID)
	}
	s.products[p.ID] = p
}

// AddAccount registers a customer that can log in.
func (s *Server) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, a)
}

// SetAddresses sets the saved addresses returned for token.
func (s *Server) SetAddresses(token string, addresses ...models.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[token] = addresses
}

// SetHistory sets the raw order records returned for email.
func (s *Server) SetHistory(email string, records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[email] = records
}

// Received returns the orders posted so far.
func (s *Server) Received() []ReceivedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ReceivedOrder, len(s.received))
	copy(out, s.received)
	return out
}

func (s *Server) handleProducts(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]models.Product, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, s.products[id])
	}
	return c.JSON(list)
}

func (s *Server) handleProduct(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return c.SendStatus(fiber.StatusNotFound)
	}
	return c.JSON(p)
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == req.Email && a.Password == req.Password {
			return c.JSON(models.Session{Token: a.Token, UserProfile: a.UserProfile})
		}
	}
	return c.Status(fiber.StatusUnauthorized).SendString("Invalid email or password")
}

func (s *Server) handleRegister(c *fiber.Ctx) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == req.Email {
			return c.Status(fiber.StatusConflict).SendString("Email already registered")
		}
	}
	a := Account{
		UserProfile: models.UserProfile{ID: int64(len(s.accounts) + 1), Name: req.Name, Email: req.Email},
		Password:    req.Password,
		Token:       "token-" + req.Email,
	}
	s.accounts = append(s.accounts, a)
	return c.JSON(models.Session{Token: a.Token, UserProfile: a.UserProfile})
}

func (s *Server) handleAddresses(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AddressStatus != 0 {
		return c.Status(s.AddressStatus).SendString("address service unavailable")
	}
	list, ok := s.addresses[token]
	if !ok {
		return c.Status(fiber.StatusUnauthorized).SendString("unknown token")
	}
	return c.JSON(list)
}

func (s *Server) handleCreateOrder(c *fiber.Ctx) error {
	var req models.OrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.OrderStatus != 0 {
		return c.Status(s.OrderStatus).SendString("order rejected")
	}
	s.received = append(s.received, ReceivedOrder{
		Token:   strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "),
		Request: req,
	})
	s.nextOrder++
	return c.JSON(fiber.Map{"id": s.nextOrder, "customerEmail": req.CustomerEmail})
}

func (s *Server) handleOrders(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records, ok := s.history[c.Query("email")]
	if !ok {
		records = []map[string]any{}
	}
	return c.JSON(records)
}
