package rabbitmq

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"autoparts/internal/models"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *zap.Logger
	mu      sync.Mutex
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL   string
	Queue string
}

// NewClient connects to RabbitMQ, opens a channel and declares the durable
// part event queue.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Queue == "" {
		cfg.Queue = "part_events"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareQueue(ch, cfg.Queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", cfg.Queue, err)
	}

	log.Info("RabbitMQ client connected", zap.String("queue", cfg.Queue))

	return &Client{
		conn:    conn,
		channel: ch,
		queue:   cfg.Queue,
		log:     log,
	}, nil
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

// Close closes the RabbitMQ channel and connection.
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
	if len(errs) > 0 {
		return fmt.Errorf("errors closing RabbitMQ client: %v", errs)
	}
	return nil
}

// NewPartEventMessage encodes event as a persistent JSON message.
func NewPartEventMessage(event models.PartEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal part event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         event.Type,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
	}, nil
}

// DecodePartEvent decodes a message body produced by NewPartEventMessage.
func DecodePartEvent(body []byte) (models.PartEvent, error) {
	var event models.PartEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return models.PartEvent{}, fmt.Errorf("failed to decode part event: %w", err)
	}
	if event.Type == "" || event.PartID == 0 {
		return models.PartEvent{}, fmt.Errorf("malformed part event %q", body)
	}
	return event, nil
}

// PublishPartEvent publishes event to the part event queue through the
// default exchange.
func (c *Client) PublishPartEvent(event models.PartEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	msg, err := NewPartEventMessage(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.channel.Publish("", c.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish part event: %w", err)
	}
	c.log.Debug("part event published", zap.String("type", event.Type), zap.Uint("part_id", event.PartID))
	return nil
}

// ConsumePartEvents delivers queued part events to handler on a separate
// goroutine. Messages are acked when handler succeeds; undecodable messages
// are dropped and failed ones requeued once.
func (c *Client) ConsumePartEvents(handler func(models.PartEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info("waiting for part events", zap.String("queue", c.queue))

	go func() {
		for msg := range msgs {
			c.handle(msg, handler)
		}
		c.log.Info("part event consumer stopped")
	}()
	return nil
}

func (c *Client) handle(msg amqp.Delivery, handler func(models.PartEvent) error) {
	event, err := DecodePartEvent(msg.Body)
	if err != nil {
		c.log.Warn("dropping part event", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.log.Error("failed to nack message", zap.Error(nackErr))
		}
		return
	}
	if err := handler(event); err != nil {
		c.log.Warn("failed to process part event", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
			c.log.Error("failed to nack message", zap.Error(nackErr))
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		c.log.Error("failed to ack message", zap.Error(ackErr))
	}
}

// LogPartEvent returns a handler that logs each event, reporting events
// older than lag as delayed.
func LogPartEvent(log *zap.Logger, lag time.Duration) func(models.PartEvent) error {
	return func(event models.PartEvent) error {
		fields := []zap.Field{
			zap.String("type", event.Type),
			zap.Uint("part_id", event.PartID),
			zap.String("category", event.Category),
			zap.Int("stock", event.Stock),
		}
		if age := time.Since(event.OccurredAt); age > lag {
			log.Warn("delayed part event", append(fields, zap.Duration("age", age))...)
			return nil
		}
		log.Info("part event", fields...)
		return nil
	}
}
