// Package shopapi is the client of the remote shop REST API: catalog,
// authentication, addresses and orders.
package shopapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campusshop/internal/models"

	"github.com/gofiber/fiber/v2"
)

// DefaultBaseURL is where the shop API listens in local development.
const DefaultBaseURL = "http://localhost:9090/api"

// Config holds the remote API connection details.
type Config struct {
	BaseURL   string
	Timeout   time.Duration // zero means no timeout
	UserAgent string
}

// Client talks to the remote shop API. It is safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fiber.Client
}

// NewClient creates a new Client.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		baseURL: base,
		timeout: cfg.Timeout,
		http:    &fiber.Client{UserAgent: cfg.UserAgent},
	}
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Products fetches the full catalog.
func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	body, err := c.do(ctx, fiber.MethodGet, "/products", "", nil, "failed to load products")
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := decodeList(body, &products); err != nil {
		return nil, decodeError("products", err)
	}
	return products, nil
}

// Product fetches a single product. A 404 matches ErrNotFound.
func (c *Client) Product(ctx context.Context, id int64) (*models.Product, error) {
	body, err := c.do(ctx, fiber.MethodGet, "/products/"+strconv.FormatInt(id, 10), "", nil, "failed to load product")
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == fiber.StatusNotFound {
			httpErr.Message = "product not found"
		}
		return nil, err
	}
	var product models.Product
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, decodeError("product", err)
	}
	return &product, nil
}

// Login exchanges credentials for a session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.Session, error) {
	payload := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/auth/login", payload, "login failed")
}

// Register creates an account and returns its session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*models.Session, error) {
	payload := map[string]string{"name": name, "email": email, "password": password}
	return c.authenticate(ctx, "/auth/register", payload, "registration failed")
}

func (c *Client) authenticate(ctx context.Context, path string, payload any, fallback string) (*models.Session, error) {
	body, err := c.do(ctx, fiber.MethodPost, path, "", payload, fallback)
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return nil, &AuthError{StatusCode: httpErr.StatusCode, Message: httpErr.Message}
		}
		return nil, err
	}
	var session models.Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, decodeError("authentication", err)
	}
	return &session, nil
}

// Addresses fetches the saved addresses of the customer owning token.
func (c *Client) Addresses(ctx context.Context, token string) ([]models.Address, error) {
	body, err := c.do(ctx, fiber.MethodGet, "/addresses", token, nil, "failed to load addresses")
	if err != nil {
		return nil, err
	}
	var addresses []models.Address
	if err := decodeList(body, &addresses); err != nil {
		return nil, decodeError("addresses", err)
	}
	return addresses, nil
}

// SubmitOrder posts an order. token may be empty for guest orders.
func (c *Client) SubmitOrder(ctx context.Context, token string, req models.OrderRequest) (*models.CreatedOrder, error) {
	body, err := c.do(ctx, fiber.MethodPost, "/orders", token, req, "failed to submit order")
	if err != nil {
		return nil, err
	}
	var created models.CreatedOrder
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, decodeError("order", err)
	}
	return &created, nil
}

// Orders fetches the raw order history of email. Records are returned as
// generic JSON objects since their field names are not stable upstream.
func (c *Client) Orders(ctx context.Context, email string) ([]map[string]any, error) {
	path := "/orders?email=" + url.QueryEscape(email)
	body, err := c.do(ctx, fiber.MethodGet, path, "", nil, "failed to load orders")
	if err != nil {
		return nil, err
	}
	var records []map[string]any
	if !isJSONArray(body) {
		return []map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, decodeError("orders", err)
	}
	return records, nil
}

type response struct {
	code int
	body []byte
	errs []error
}

// do performs one request. A response completing after ctx is done is
// dropped and ctx.Err() returned instead.
func (c *Client) do(ctx context.Context, method, path, token string, payload any, fallback string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target := c.baseURL + path
	var agent *fiber.Agent
	switch method {
	case fiber.MethodGet:
		agent = c.http.Get(target)
	case fiber.MethodPost:
		agent = c.http.Post(target)
	default:
		return nil, fmt.Errorf("unsupported method %s", method)
	}

	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	if payload != nil {
		agent.JSON(payload)
	}
	if c.timeout > 0 {
		agent.Timeout(c.timeout)
	}

	done := make(chan response, 1)
	go func() {
		code, body, errs := agent.Bytes()
		done <- response{code: code, body: body, errs: errs}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp := <-done:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(resp.errs) > 0 {
			return nil, &TransportError{Err: errors.Join(resp.errs...)}
		}
		if resp.code < fiber.StatusOK || resp.code >= fiber.StatusMultipleChoices {
			return nil, &HTTPError{StatusCode: resp.code, Message: messageFromBody(resp.body, fallback)}
		}
		return resp.body, nil
	}
}

// decodeList decodes a JSON array into v. Anything other than an array
// leaves v empty, matching how list pages treat odd payloads.
func decodeList[T any](body []byte, v *[]T) error {
	if !isJSONArray(body) {
		*v = []T{}
		return nil
	}
	return json.Unmarshal(body, v)
}

func isJSONArray(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '['
}
