package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	// Declare exchange
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Bind queue to exchange
	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

func (c *Client) publish(ctx context.Context, kind string, body []byte) error {
	wrapped, err := json.Marshal(envelope{Kind: kind, Body: body})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent, // make message persistent
			Timestamp:    time.Now(),
			Body:         wrapped,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// PublishTransactionExport publishes a transaction export message
func (c *Client) PublishTransactionExport(ctx context.Context, id, version int64) error {
	msg := NewTransactionExportMessage(id, version)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, kindExport, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published transaction export message",
		"id", id,
		"version", version,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// PublishTransactionDelete publishes a transaction delete message
func (c *Client) PublishTransactionDelete(ctx context.Context, id int64) error {
	msg := NewTransactionDeleteMessage(id)
	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, kindDelete, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published transaction delete message",
		"id", id,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// Handler receives decoded export and delete messages from the queue.
type Handler interface {
	HandleExport(ctx context.Context, msg *TransactionExportMessage) error
	HandleDelete(ctx context.Context, msg *TransactionDeleteMessage) error
}

// Consume reads messages from the queue until ctx is cancelled, dispatching
// each to the handler. Failed deliveries are requeued; unparseable ones are
// rejected without requeue.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming export messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			if err := c.dispatch(ctx, handler, delivery.Body); err != nil {
				var perm *permanentError
				if errors.As(err, &perm) {
					slog.ErrorContext(ctx, "Rejecting message", "error", err)
					delivery.Nack(false, false) // reject and don't requeue
					continue
				}
				slog.ErrorContext(ctx, "Failed to handle message", "error", err)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false) // acknowledge successful processing
		}
	}
}

func (c *Client) dispatch(ctx context.Context, handler Handler, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &permanentError{fmt.Errorf("unmarshal envelope: %w", err)}
	}

	switch env.Kind {
	case kindExport:
		msg, err := TransactionExportMessageFromJSON(env.Body)
		if err != nil {
			return &permanentError{fmt.Errorf("unmarshal export message: %w", err)}
		}
		slog.InfoContext(ctx, "Processing transaction export message",
			"id", msg.ID,
			"version", msg.Version)
		return handler.HandleExport(ctx, msg)
	case kindDelete:
		msg, err := TransactionDeleteMessageFromJSON(env.Body)
		if err != nil {
			return &permanentError{fmt.Errorf("unmarshal delete message: %w", err)}
		}
		slog.InfoContext(ctx, "Processing transaction delete message", "id", msg.ID)
		return handler.HandleDelete(ctx, msg)
	default:
		return &permanentError{fmt.Errorf("unknown message kind %q", env.Kind)}
	}
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
