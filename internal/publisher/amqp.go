package publisher

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher sends booking events to a durable RabbitMQ queue through
// the default exchange.
type AMQPPublisher struct {
	conn    *amqp.Connection
	queue   string
	metrics PublisherMetrics

	mu sync.Mutex
	ch *amqp.Channel
}

func NewAMQPPublisher(url, queue string, m PublisherMetrics) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p := &AMQPPublisher{conn: conn, ch: ch, queue: queue, metrics: m}
	if m != nil {
		m.SetConnected(true)
		closed := conn.NotifyClose(make(chan *amqp.Error, 1))
		go func() {
			if err := <-closed; err != nil {
				log.Printf("rabbitmq: connection closed: %v", err)
			}
			m.SetConnected(false)
		}()
	}
	return p, nil
}

func (p *AMQPPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *AMQPPublisher) PublishBooking(msg BookingMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	p.mu.Unlock()
	observe(p.metrics, start, err)
	if err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
	}
	return err
}
