package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"campusshop/internal/models"
	"campusshop/internal/orderhistory"

	"github.com/go-playground/validator/v10"
)

// OrderAPI is the remote order endpoint.
type OrderAPI interface {
	SubmitOrder(ctx context.Context, token string, req models.OrderRequest) (*models.CreatedOrder, error)
	Orders(ctx context.Context, email string) ([]map[string]any, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// OrderSubmittedRoutingKey is the routing key of order.submitted events.
const OrderSubmittedRoutingKey = "order.submitted"

// OrderSubmittedEvent is published after the shop API accepted an order.
type OrderSubmittedEvent struct {
	OrderID       int64                `json:"orderId"`
	CustomerEmail string               `json:"customerEmail"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	Guest         bool                 `json:"guest"`
	ItemCount     int                  `json:"itemCount"`
	Items         []models.OrderItem   `json:"items"`
	SubmittedAt   time.Time            `json:"submittedAt"`
}

// OrderService handles business logic related to orders.
type OrderService struct {
	api       OrderAPI
	publisher EventPublisher // optional
	exchange  string
	validate  *validator.Validate
}

// NewOrderService creates a new OrderService. publisher may be nil, in
// which case no events are published.
func NewOrderService(api OrderAPI, publisher EventPublisher, exchange string) *OrderService {
	return &OrderService{
		api:       api,
		publisher: publisher,
		exchange:  exchange,
		validate:  validator.New(),
	}
}

// SubmitOrder validates and places an order. token may be empty for guests.
func (s *OrderService) SubmitOrder(ctx context.Context, token string, req models.OrderRequest) (*models.CreatedOrder, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}

	created, err := s.api.SubmitOrder(ctx, token, req)
	if err != nil {
		log.Printf("Error submitting order for %s: %v", req.CustomerEmail, err)
		return nil, err
	}
	log.Printf("Order %d submitted for %s", created.ID, req.CustomerEmail)

	s.publishSubmitted(created, token == "", req)
	return created, nil
}

func (s *OrderService) publishSubmitted(created *models.CreatedOrder, guest bool, req models.OrderRequest) {
	if s.publisher == nil {
		return
	}

	event := OrderSubmittedEvent{
		OrderID:       created.ID,
		CustomerEmail: req.CustomerEmail,
		PaymentMethod: req.PaymentMethod,
		Guest:         guest,
		Items:         req.Items,
		SubmittedAt:   time.Now().UTC(),
	}
	for _, it := range req.Items {
		event.ItemCount += it.Quantity
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal order submitted event: %v", err)
		return
	}
	// The order is already placed; a broker outage must not fail the checkout.
	if err := s.publisher.Publish(s.exchange, OrderSubmittedRoutingKey, body); err != nil {
		log.Printf("Warning: Failed to publish order submitted event for order %d: %v", created.ID, err)
		return
	}
	log.Printf("Successfully published order submitted event for order %d", created.ID)
}

// History fetches and normalizes the order history of email.
func (s *OrderService) History(ctx context.Context, email string) (orderhistory.History, error) {
	records, err := s.api.Orders(ctx, email)
	if err != nil {
		return orderhistory.History{}, err
	}
	return orderhistory.NormalizeAll(records), nil
}
