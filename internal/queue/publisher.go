package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ErrBufferFull is returned by Publisher.Publish when the background
// sender is behind and the event was dropped.
var ErrBufferFull = errors.New("event buffer full")

const publisherBuffer = 256

// Publisher sends ReservationEvents to QueueName.  Publish only
// enqueues; one background goroutine started by Run owns the broker
// connection, reuses it across events and redials after a failure, so
// a broker outage never blocks the request path.
type Publisher struct {
	url         string
	dialTimeout time.Duration
	sendTimeout time.Duration
	log         *logrus.Entry
	events      chan ReservationEvent

	// deliver is replaced in tests.
	deliver func(ctx context.Context, ev ReservationEvent) error

	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a Publisher for the broker at url.  Events are
// only sent once Run is running.
func NewPublisher(url string, log *logrus.Logger) *Publisher {
	p := &Publisher{
		url:         url,
		dialTimeout: 2 * time.Second,
		sendTimeout: 5 * time.Second,
		log:         log.WithField("component", "publisher"),
		events:      make(chan ReservationEvent, publisherBuffer),
	}
	p.deliver = p.send
	return p
}

// Publish enqueues ev without blocking.  A full buffer drops the event
// and returns ErrBufferFull; callers treat that as non-fatal.
func (p *Publisher) Publish(_ context.Context, ev ReservationEvent) error {
	select {
	case p.events <- ev:
		return nil
	default:
		p.log.WithFields(logrus.Fields{"event": ev.Type, "reservation_id": ev.ReservationID}).
			Warn("event buffer full, dropping event")
		return ErrBufferFull
	}
}

// Run delivers queued events until ctx is done.  Events still queued at
// shutdown are dropped.
func (p *Publisher) Run(ctx context.Context) {
	defer p.reset()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-p.events:
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.sendTimeout)
			if err := p.deliver(sctx, ev); err != nil {
				p.log.WithError(err).WithFields(logrus.Fields{
					"event": ev.Type, "reservation_id": ev.ReservationID,
				}).Warn("rabbitmq publish failed")
			}
			cancel()
		}
	}
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

// send publishes ev as a persistent JSON message on the shared channel.
func (p *Publisher) send(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, err := p.channel()
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", QueueName, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Nop discards every event.  It is used when the queue is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, ReservationEvent) error { return nil }
