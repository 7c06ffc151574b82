package notify

import (
	"encoding/json"
	"log"

	"github.com/streadway/amqp"

	appErrors "github.com/mailops/console-backend/internal/errors"
)

// Exchange names for the two change streams. Both carry hints, not data:
// "something changed, re-read". Consumers always re-fetch on delivery.
const (
	CampaignChanges = "campaign_changes"
	RecordChanges   = "send_record_changes"
)

// Event is a change hint for one campaign.
type Event struct {
	CampaignID string `json:"campaign_id"`
}

// Subscriber hands out per-campaign hint streams. Implemented by Broker;
// faked in monitor tests.
type Subscriber interface {
	Subscribe(exchange, campaignID string) (<-chan Event, func(), error)
}

// Publisher is the dispatcher-side half (see cmd/dispatchsim).
type Publisher interface {
	Publish(exchange string, ev Event) error
}

// Broker is the AMQP implementation of both halves.
type Broker struct {
	Conn *amqp.Connection
}

func NewBroker(conn *amqp.Connection) *Broker {
	return &Broker{Conn: conn}
}

// Subscribe opens an exclusive queue bound to the given change exchange and
// delivers hints for the given campaign. Hints are auto-acked: a dropped
// hint is harmless because the poll loop covers missed events. The returned
// cancel func tears the subscription down; it is safe to call twice.
func (b *Broker) Subscribe(exchange, campaignID string) (<-chan Event, func(), error) {
	ch, err := b.Conn.Channel()
	if err != nil {
		return nil, nil, appErrors.NewChannelUnavailable(exchange, err)
	}

	if err := declareExchange(ch, exchange); err != nil {
		ch.Close()
		return nil, nil, appErrors.NewChannelUnavailable(exchange, err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, nil, appErrors.NewChannelUnavailable(exchange, err)
	}

	if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		ch.Close()
		return nil, nil, appErrors.NewChannelUnavailable(exchange, err)
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, nil, appErrors.NewChannelUnavailable(exchange, err)
	}

	events := make(chan Event, 1)
	go func() {
		defer close(events)
		for d := range deliveries {
			var ev Event
			if err := json.Unmarshal(d.Body, &ev); err != nil {
				log.Println("⚠️ dropping malformed change hint:", err)
				continue
			}
			if ev.CampaignID != campaignID {
				continue
			}
			select {
			case events <- ev:
			default:
				// consumer busy; a dropped hint is covered by its poll
			}
		}
	}()

	cancel := func() { _ = ch.Close() }
	return events, cancel, nil
}

// Publish broadcasts a change hint to all subscribers of the exchange.
func (b *Broker) Publish(exchange string, ev Event) error {
	ch, err := b.Conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := declareExchange(ch, exchange); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return ch.Publish(exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func declareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(
		name,
		"fanout",
		false, // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

var _ Subscriber = (*Broker)(nil)
var _ Publisher = (*Broker)(nil)
