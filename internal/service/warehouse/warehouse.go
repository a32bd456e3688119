package warehouse

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/iurnickita/dairyshop/internal/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Сообщение о заказе для склада

type OrderItem struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

type OrderMessage struct {
	OrderID  int         `json:"orderId"`
	Customer string      `json:"customer"`
	Items    []OrderItem `json:"items"`
}

func NewOrderMessage(order model.Order) OrderMessage {
	msg := OrderMessage{
		OrderID:  order.ID,
		Customer: order.Customer,
		Items:    make([]OrderItem, 0, len(order.Lines)),
	}
	for _, line := range order.Lines {
		msg.Items = append(msg.Items, OrderItem{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return msg
}

type Publisher interface {
	Publish(ctx context.Context, order model.Order) error
	Close() error
}

// NewPublisher подключается к брокеру, без адреса публикация отключена.
func NewPublisher(uri string, queue string) (Publisher, error) {
	if uri == "" {
		return nopPublisher{}, nil
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("dial warehouse broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open warehouse channel: %w", err)
	}
	if _, err = ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &amqpPublisher{conn: conn, ch: ch, queue: queue}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, model.Order) error { return nil }

func (nopPublisher) Close() error { return nil }

type amqpPublisher struct {
	// канал AMQP не потокобезопасен
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func (p *amqpPublisher) Publish(ctx context.Context, order model.Order) error {
	body, err := json.Marshal(NewOrderMessage(order))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
