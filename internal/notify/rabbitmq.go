// Package notify publishes events about newly stored articles to RabbitMQ.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"maptimes/internal/domain"
)

const ActionCreated = "created"

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

// RabbitMQ publishes persistent JSON messages to a direct exchange. It is
// not safe for concurrent use; the ingestion run publishes sequentially.
type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger = logger.With("component", "notify")
	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

// declareTopology sets up a durable direct exchange with one durable queue
// bound to the routing key.
func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

type ArticleMessage struct {
	Action    string         `json:"action"`
	Article   domain.Article `json:"article"`
	Timestamp time.Time      `json:"timestamp"`
}

func newPublishing(article *domain.Article, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(ArticleMessage{
		Action:    ActionCreated,
		Article:   *article,
		Timestamp: now.UTC(),
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal message: %w", err)
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    now,
	}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, article *domain.Article) error {
	msg, err := newPublishing(article, time.Now())
	if err != nil {
		return err
	}

	if err := r.channel.PublishWithContext(ctx, r.exchange, r.routingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	r.logger.Debug("published article", "article_id", article.ID, "feed_id", article.FeedID)
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
