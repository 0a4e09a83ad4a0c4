package notify

import (
	"context"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/vendorvibe/order-core-go/pkg/contracts"
	"github.com/vendorvibe/order-core-go/pkg/kafka"
	"github.com/vendorvibe/order-core-go/pkg/logging"
	"github.com/vendorvibe/order-core-go/pkg/outbox"
)

const publishTimeout = 5 * time.Second

type sinkFunc func(ctx context.Context, ev contracts.OrderEvent) error

// Async decouples event delivery from the request path: Publish enqueues and
// returns immediately, a single worker drains the queue, and when the queue
// is full the event is dropped and logged rather than blocking the caller.
type Async struct {
	service string
	ch      chan contracts.OrderEvent
	sink    sinkFunc
	wg      sync.WaitGroup
	once    sync.Once
}

func newAsync(service string, buffer int, sink sinkFunc) *Async {
	d := &Async{
		service: service,
		ch:      make(chan contracts.OrderEvent, buffer),
		sink:    sink,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Async) Publish(_ context.Context, ev contracts.OrderEvent) {
	select {
	case d.ch <- ev:
	default:
		logging.Log(logging.Fields{
			Service: d.service,
			OrderID: ev.OrderID,
			EventID: ev.EventID,
			Step:    "notify",
			Status:  "dropped",
			Message: "dispatch queue full",
		})
	}
}

// Close stops accepting events and waits for the queue to drain.
func (d *Async) Close() {
	d.once.Do(func() { close(d.ch) })
	d.wg.Wait()
}

func (d *Async) run() {
	defer d.wg.Done()
	for ev := range d.ch {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := d.sink(ctx, ev)
		cancel()
		if err != nil {
			logging.Log(logging.Fields{
				Service: d.service,
				OrderID: ev.OrderID,
				EventID: ev.EventID,
				Step:    "notify",
				Status:  "publish_error",
				Message: err.Error(),
			})
		}
	}
}

// NewKafka publishes events straight to the order events topic, keyed by
// order id.
func NewKafka(writer *kafkago.Writer, service string) *Async {
	return newAsync(service, 256, func(ctx context.Context, ev contracts.OrderEvent) error {
		return kafka.PublishJSON(ctx, writer, ev.OrderID, ev)
	})
}

// NewOutbox stores events in the transactional outbox; a relay publishes
// pending rows to the broker and marks them sent.
func NewOutbox(store *outbox.Store, topic, service string) *Async {
	return newAsync(service, 256, func(ctx context.Context, ev contracts.OrderEvent) error {
		return store.Insert(ctx, ev.EventID, topic, ev.OrderID, ev)
	})
}

var _ Dispatcher = (*Async)(nil)
