package rabbit

import (
	"context"
	"encoding/json"
	"sync"

	"bitbucket.org/airenas/callnotes/internal/pkg/api"
	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	errc "bitbucket.org/airenas/callnotes/internal/pkg/err"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

type channelRunner interface {
	RunOnChannelWithRetry(f runOnChannelFunc) error
}

//Publisher publishes processing outcomes to a fanout exchange
type Publisher struct {
	provider channelRunner
	exchange string
	declared bool
	m        sync.Mutex
}

//NewPublisher initializes rabbit publisher
func NewPublisher(provider *ChannelProvider, exchange string) (*Publisher, error) {
	if provider == nil {
		return nil, errors.New("No channel provider")
	}
	return newPublisher(provider, exchange)
}

func newPublisher(provider channelRunner, exchange string) (*Publisher, error) {
	if exchange == "" {
		return nil, errc.Configuration("No events.exchange")
	}
	return &Publisher{provider: provider, exchange: exchange}, nil
}

//Publish sends the outcome as JSON
func (p *Publisher) Publish(ctx context.Context, o *api.Outcome) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "Can't publish event")
	}
	b, err := json.Marshal(o)
	if err != nil {
		return errors.Wrap(err, "Can't marshal outcome")
	}
	cmdapp.Log.Debugf("Publishing event %s(%s)", o.Status, o.FileName)
	err = p.provider.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
		if err := p.declare(ch); err != nil {
			return err
		}
		return ch.Publish(
			p.exchange,
			"",
			false, // mandatory
			false,
			amqp.Publishing{
				DeliveryMode: amqp.Persistent,
				ContentType:  "application/json",
				MessageId:    o.ID,
				Timestamp:    o.Time,
				Body:         b,
			})
	})
	if err != nil {
		p.reset()
		return errors.Wrap(err, "Can't publish event")
	}
	return nil
}

func (p *Publisher) declare(ch *amqp.Channel) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.declared || ch == nil {
		return nil
	}
	err := ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeFanout,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrapf(err, "Can't declare exchange %s", p.exchange)
	}
	p.declared = true
	return nil
}

func (p *Publisher) reset() {
	p.m.Lock()
	defer p.m.Unlock()
	p.declared = false
}
