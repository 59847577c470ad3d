// Package notify is the boundary to the external notification dispatcher.
// Delivery is fire-and-forget: failures are logged and swallowed, and must
// never fail a bid submission or a status transition.
package notify

import (
	"encoding/json"

	"auction-engine/internal/realtime"
	"auction-engine/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier hands auction events to the outbound delivery collaborator.
type Notifier interface {
	Dispatch(ev realtime.Event)
}

// NopNotifier discards every event. Used when no broker is configured.
type NopNotifier struct{}

func (NopNotifier) Dispatch(realtime.Event) {}

// AMQPNotifier publishes events as JSON messages to a RabbitMQ queue.
type AMQPNotifier struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewAMQPNotifier connects to the broker and declares the durable queue the
// downstream dispatcher consumes from.
func NewAMQPNotifier(url, queue string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPNotifier{conn: conn, ch: ch, queue: queue}, nil
}

// Dispatch publishes the event. Errors are logged and swallowed.
func (n *AMQPNotifier) Dispatch(ev realtime.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		utils.Error("notify: failed to encode event", map[string]any{
			"auction_id": ev.AuctionID,
			"event_type": string(ev.Type),
			"error":      err.Error(),
		})
		return
	}

	err = n.ch.Publish("", n.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		utils.Error("notify: failed to publish event", map[string]any{
			"auction_id": ev.AuctionID,
			"event_type": string(ev.Type),
			"error":      err.Error(),
		})
	}
}

// Close releases the channel and connection.
func (n *AMQPNotifier) Close() {
	if n.ch != nil {
		n.ch.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}
