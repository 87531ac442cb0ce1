package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"campusshop/internal/config"
	"campusshop/internal/middleware"
	"campusshop/internal/models"
	"campusshop/internal/repositories"
	"campusshop/internal/services"
	"campusshop/internal/shopapi/shopapitest"
)

// MockRabbitMQClient is a mock implementation of the RabbitMQ publisher
type MockRabbitMQClient struct {
	mock.Mock
}

func (m *MockRabbitMQClient) Publish(exchange, routingKey string, body []byte) error {
	args := m.Called(exchange, routingKey, body)
	return args.Error(0)
}

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var (
	hoodie = models.Product{ID: 1, Name: "Hoodie", Description: "Campus hoodie", Price: decimal.RequireFromString("10.00")}
	mug    = models.Product{ID: 2, Name: "Mug", Description: "Coffee mug", Price: decimal.RequireFromString("5.00")}
)

func testConfig(apiURL string) *config.Config {
	return &config.Config{
		AppPort:          ":0",
		APIBaseURL:       apiURL,
		JWTSecret:        "test_jwt_secret",
		SessionTTL:       time.Hour,
		SessionStore:     config.StoreMemory,
		RabbitMQExchange: "shop_events",
	}
}

// call performs a JSON request and decodes the JSON response body, if any.
func call(t *testing.T, app *fiber.App, method, path, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1) // -1 for no timeout
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestHealth(t *testing.T) {
	server := shopapitest.NewServer(t)
	app, _ := buildApp(testConfig(server.URL), repositories.NewMockSessionRepository(), nil)

	resp, body := call(t, app, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "disabled", body["events"])
	assert.Equal(t, config.StoreMemory, body["sessionStore"])
}

func TestStorefrontCheckoutFlow(t *testing.T) {
	server := shopapitest.NewServer(t, hoodie, mug)
	server.AddAccount(shopapitest.Account{
		UserProfile: models.UserProfile{ID: 7, Name: "Mia", Email: "mia@campus.de"},
		Password:    "secret",
		Token:       "remote-mia",
	})
	server.SetAddresses("remote-mia",
		models.Address{ID: 1, FirstName: "Mia", Street: "Dorm 1", City: "Campus"},
		models.Address{ID: 2, FirstName: "Mia", Street: "Main St 5", City: "Campus", DefaultAddress: true},
	)
	server.SetHistory("mia@campus.de", map[string]any{
		"id": 900, "status": "paid", "totalAmount": 25,
		"items": []map[string]any{{"productName": "Hoodie", "quantity": 2}, {"name": "Mug", "quantity": 1}},
	})

	mq := new(MockRabbitMQClient)
	mq.On("Publish", "shop_events", services.OrderSubmittedRoutingKey, mock.Anything).Return(nil).Once()

	app, sessions := buildApp(testConfig(server.URL), repositories.NewMockSessionRepository(), mq)

	// First contact hands out a visitor token.
	resp, _ := call(t, app, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := resp.Header.Get(middleware.SessionTokenHeader)
	require.NotEmpty(t, token)
	assert.Equal(t, 1, sessions.Len())

	for _, id := range []int64{1, 1, 2} {
		resp, _ = call(t, app, http.MethodPost, "/api/cart/items", token, fiber.Map{"productId": id})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, cart := call(t, app, http.MethodGet, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), cart["itemCount"])
	assert.Equal(t, "25", cart["total"])

	// Checkout needs a login.
	resp, body := call(t, app, http.MethodPost, "/api/checkout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "/login", body["redirect"])

	resp, body = call(t, app, http.MethodPost, "/api/auth/login", token, fiber.Map{"email": "mia@campus.de", "password": "secret"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Login successful", body["message"])

	resp, body = call(t, app, http.MethodPost, "/api/checkout", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "address", body["stepName"])

	// The default address is preselected once the background fetch is done.
	require.Eventually(t, func() bool {
		_, view := call(t, app, http.MethodGet, "/api/checkout", token, nil)
		addresses, _ := view["addresses"].(map[string]any)
		return addresses["state"] == string(models.StateReady)
	}, 2*time.Second, 10*time.Millisecond)
	_, view := call(t, app, http.MethodGet, "/api/checkout", token, nil)
	assert.Equal(t, float64(2), view["selectedAddressId"])

	_, view = call(t, app, http.MethodPost, "/api/checkout/next", token, nil)
	assert.Equal(t, "payment", view["stepName"])
	_, view = call(t, app, http.MethodPut, "/api/checkout/payment", token, fiber.Map{"paymentMethod": "paypal"})
	assert.Equal(t, "PAYPAL", view["paymentMethod"])
	_, view = call(t, app, http.MethodPost, "/api/checkout/next", token, nil)
	assert.Equal(t, "review", view["stepName"])

	resp, body = call(t, app, http.MethodPost, "/api/checkout/submit", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(1001), body["orderId"])

	received := server.Received()
	require.Len(t, received, 1)
	assert.Equal(t, "remote-mia", received[0].Token)
	assert.Equal(t, "Mia", received[0].Request.CustomerName)
	assert.Equal(t, "mia@campus.de", received[0].Request.CustomerEmail)
	require.NotNil(t, received[0].Request.AddressID)
	assert.Equal(t, int64(2), *received[0].Request.AddressID)
	assert.Equal(t, models.PaymentPayPal, received[0].Request.PaymentMethod)
	assert.Equal(t, []models.OrderItem{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 1}}, received[0].Request.Items)
	mq.AssertExpectations(t)

	// The checkout is gone, the cart is kept by default.
	resp, _ = call(t, app, http.MethodGet, "/api/checkout", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_, cart = call(t, app, http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, float64(3), cart["itemCount"])

	resp, history := call(t, app, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary, _ := history["summary"].(map[string]any)
	assert.Equal(t, float64(1), summary["count"])
	assert.Equal(t, "25", summary["total"])
}

func TestOpenSessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		cfg := testConfig("")
		repo, closeStore, err := openSessionRepository(ctx, cfg)
		require.NoError(t, err)
		defer closeStore()
		assert.IsType(t, &repositories.MockSessionRepository{}, repo)
	})

	t.Run("sqlite", func(t *testing.T) {
		cfg := testConfig("")
		cfg.SessionStore = config.StoreSQLite
		cfg.DatabaseDSN = filepath.Join(t.TempDir(), "sessions.db")
		repo, closeStore, err := openSessionRepository(ctx, cfg)
		require.NoError(t, err)
		defer closeStore()

		require.NoError(t, repo.Save(ctx, &models.StoredSession{ID: "abc", Token: "remote", Email: "mia@campus.de"}))
		got, err := repo.GetByID(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, "remote", got.Token)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig("")
		cfg.SessionStore = config.StoreRedis
		cfg.RedisAddr = mr.Addr()
		repo, closeStore, err := openSessionRepository(ctx, cfg)
		require.NoError(t, err)
		defer closeStore()
		assert.IsType(t, &repositories.RedisSessionRepository{}, repo)
	})

	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		cfg := testConfig("")
		cfg.SessionStore = config.StoreRedis
		cfg.RedisAddr = addr
		_, _, err := openSessionRepository(ctx, cfg)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := testConfig("")
		cfg.SessionStore = "mongo"
		_, _, err := openSessionRepository(ctx, cfg)
		assert.Error(t, err)
	})
}

func TestLogOrderEvent(t *testing.T) {
	body, err := json.Marshal(services.OrderSubmittedEvent{OrderID: 1001, CustomerEmail: "mia@campus.de", ItemCount: 3})
	require.NoError(t, err)
	assert.NoError(t, logOrderEvent(amqp.Delivery{RoutingKey: services.OrderSubmittedRoutingKey, Body: body}))
	assert.Error(t, logOrderEvent(amqp.Delivery{Body: []byte("not json")}))
}

func TestEvictIdleSessions_Stops(t *testing.T) {
	server := shopapitest.NewServer(t)
	_, sessions := buildApp(testConfig(server.URL), repositories.NewMockSessionRepository(), nil)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		evictIdleSessions(sessions, time.Hour, stop)
		close(done)
	}()
	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eviction loop did not stop")
	}
}
