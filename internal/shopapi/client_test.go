package shopapi_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"campusshop/internal/models"
	"campusshop/internal/shopapi"
	"campusshop/internal/shopapi/shopapitest"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seed = []models.Product{
	{ID: 1, Name: "Campus Hoodie", Description: "Hoodie with logo", Price: decimal.RequireFromString("49.90"), ImageURL: "https://example.com/images/hoodie.png"},
	{ID: 2, Name: "Coffee Mug", Price: decimal.RequireFromString("12.50")},
}

func TestClient_Products(t *testing.T) {
	srv := shopapitest.NewServer(t, seed...)
	client := shopapi.NewClient(shopapi.Config{BaseURL: srv.URL})

	products, err := client.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Campus Hoodie", products[0].Name)
	assert.True(t, decimal.RequireFromString("49.90").Equal(products[0].Price))
	assert.Equal(t, "https://example.com/images/hoodie.png", products[0].ImageURL)
}

func TestClient_ProductNotFound(t *testing.T) {
	srv := shopapitest.NewServer(t, seed...)
	client := shopapi.NewClient(shopapi.Config{BaseURL: srv.URL})

	p, err := client.Product(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Coffee Mug", p.Name)

	_, err = client.Product(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shopapi.ErrNotFound))
	assert.Equal(t, "product not found", err.Error())
}

func TestClient_HTTPErrorMessage(t *testing.T) {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/api/products", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusServiceUnavailable).SendString("catalog is down")
	})
	app.Get("/api/addresses", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "token expired"})
	})
	app.Get("/api/orders", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusInternalServerError).Send(nil)
	})
	client := shopapi.NewClient(shopapi.Config{BaseURL: shopapitest.Start(t, app)})

	_, err := client.Products(context.Background())
	var httpErr *shopapi.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, fiber.StatusServiceUnavailable, httpErr.StatusCode)
	assert.Equal(t, "catalog is down", httpErr.Message)
	assert.False(t, errors.Is(err, shopapi.ErrNotFound))

	_, err = client.Addresses(context.Background(), "abc")
	require.Error(t, err)
	assert.Equal(t, "token expired", err.Error())

	// Empty bodies fall back to the generic message of the operation.
	_, err = client.Orders(context.Background(), "a@b.de")
	require.Error(t, err)
	assert.Equal(t, "failed to load orders", err.Error())
}

func TestClient_TransportError(t *testing.T) {
	client := shopapi.NewClient(shopapi.Config{BaseURL: "http://127.0.0.1:1/api"})

	_, err := client.Products(context.Background())
	var transportErr *shopapi.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.NotEmpty(t, err.Error())
}

func TestClient_LoginAndRegister(t *testing.T) {
	srv := shopapitest.NewServer(t)
	srv.AddAccount(shopapitest.Account{
		UserProfile: models.UserProfile{ID: 7, Name: "Mia", Email: "mia@campus.de"},
		Password:    "secret",
		Token:       "tok-mia",
	})
	client := shopapi.NewClient(shopapi.Config{BaseURL: srv.URL})
	ctx := context.Background()

	session, err := client.Login(ctx, "mia@campus.de", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-mia", session.Token)
	assert.Equal(t, "Mia", session.Name)
	assert.Equal(t, int64(7), session.ID)

	_, err = client.Login(ctx, "mia@campus.de", "wrong")
	var authErr *shopapi.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Invalid email or password", authErr.Message)

	session, err = client.Register(ctx, "Jonas", "jonas@campus.de", "pw123456")
	require.NoError(t, err)
	assert.Equal(t, "jonas@campus.de", session.Email)

	_, err = client.Register(ctx, "Jonas", "jonas@campus.de", "pw123456")
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, "Email already registered", authErr.Message)
}

func TestClient_AddressesAndOrders(t *testing.T) {
	srv := shopapitest.NewServer(t, seed...)
	srv.SetAddresses("tok", models.Address{ID: 1, City: "Berlin"}, models.Address{ID: 2, City: "Bonn", DefaultAddress: true})
	srv.SetHistory("mia@campus.de", map[string]any{"id": 5, "status": "NEW", "totalAmount": 12.5})
	client := shopapi.NewClient(shopapi.Config{BaseURL: srv.URL})
	ctx := context.Background()

	addresses, err := client.Addresses(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, addresses, 2)
	assert.True(t, addresses[1].DefaultAddress)

	addressID := int64(2)
	created, err := client.SubmitOrder(ctx, "tok", models.OrderRequest{
		CustomerName:  "Mia",
		CustomerEmail: "mia@campus.de",
		AddressID:     &addressID,
		PaymentMethod: models.PaymentCard,
		Items:         []models.OrderItem{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	received := srv.Received()
	require.Len(t, received, 1)
	assert.Equal(t, "tok", received[0].Token)
	assert.Equal(t, models.PaymentCard, received[0].Request.PaymentMethod)
	require.NotNil(t, received[0].Request.AddressID)
	assert.Equal(t, int64(2), *received[0].Request.AddressID)

	records, err := client.Orders(ctx, "mia@campus.de")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "NEW", records[0]["status"])

	records, err = client.Orders(ctx, "nobody@campus.de")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestClient_CancelledContextDiscardsResponse(t *testing.T) {
	release := make(chan struct{})
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/api/products", func(c *fiber.Ctx) error {
		<-release
		return c.JSON([]models.Product{})
	})
	client := shopapi.NewClient(shopapi.Config{BaseURL: shopapitest.Start(t, app)})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	products, err := client.Products(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, products)
}
