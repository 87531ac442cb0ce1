package rabbitmq

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     Config
	mu      sync.Mutex // amqp channels are not safe for concurrent publishing
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL        string
	Exchange   string // topic exchange for shop events
	Queue      string // queue bound to order events
	BindingKey string
}

func (c *Config) setDefaults() {
	if c.Exchange == "" {
		c.Exchange = "shop_events"
	}
	if c.Queue == "" {
		c.Queue = "order_events"
	}
	if c.BindingKey == "" {
		c.BindingKey = "order.*"
	}
}

// NewClient creates a new RabbitMQ client.
// It connects to RabbitMQ, declares the shop exchange and binds the order
// event queue to it.
func NewClient(cfg Config) (*Client, error) {
	cfg.setDefaults()

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() // Close connection if channel creation fails
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Printf("RabbitMQ client connected, exchange %s and queue %s declared.", cfg.Exchange, cfg.Queue)

	return &Client{
		conn:    conn,
		channel: ch,
		cfg:     cfg,
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg Config) error {
	err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	_, err = ch.QueueDeclare(
		cfg.Queue, // name
		true,      // durable (persists messages across broker restarts)
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", cfg.Queue, err)
	}

	if err := ch.QueueBind(cfg.Queue, cfg.BindingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", cfg.Queue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish sends a persistent JSON message to exchange with routingKey.
func (c *Client) Publish(exchange, routingKey string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.channel.Publish(
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Make message persistent
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	log.Printf(" [x] Sent %s event: %s", routingKey, body)
	return nil
}

// MessageHandler processes one delivery. A nil error acknowledges it.
type MessageHandler func(msg amqp.Delivery) error

// ConsumeOrderEvents starts a goroutine that feeds the order event queue
// into messageHandler.
func (c *Client) ConsumeOrderEvents(messageHandler MessageHandler) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	c.mu.Lock()
	msgs, err := c.channel.Consume(
		c.cfg.Queue, // queue
		"",          // consumer tag
		false,       // auto-ack: set to false to manually acknowledge messages
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	log.Printf(" [*] Waiting for order events on %s", c.cfg.Queue)
	go Process(msgs, messageHandler)
	return nil
}

// Process runs messageHandler for every delivery until msgs is closed.
// Failed deliveries are rejected without requeue so a poison message does
// not loop forever.
func Process(msgs <-chan amqp.Delivery, messageHandler MessageHandler) {
	for msg := range msgs {
		if err := messageHandler(msg); err != nil {
			log.Printf("Error processing message %d: %v", msg.DeliveryTag, err)
			if nackErr := msg.Nack(false, false); nackErr != nil {
				log.Printf("Error nacking message %d: %v", msg.DeliveryTag, nackErr)
			}
			continue
		}
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Printf("Error acking message %d: %v", msg.DeliveryTag, ackErr)
		}
	}
}
