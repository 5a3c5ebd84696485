package events

import (
	"context"
	"log"
	"sync"
	"time"

	"comic-auction/internal/observability"
)

const (
	defaultQueueSize   = 256
	defaultMaxAttempts = 3
	defaultBackoff     = 250 * time.Millisecond
	defaultSinkTimeout = 10 * time.Second
)

// Dispatcher fans domain events out to notifier sinks. Sinks register
// per source code; sinks registered under the empty code receive every
// event. Delivery is at-least-once per sink and best-effort ordered:
// a single worker drains the queue in publish order. Publishing never
// blocks the caller, so ingestion transactions are already committed by
// the time a sink runs.
type Dispatcher struct {
	mu    sync.RWMutex
	sinks map[string][]Sink

	queue chan Event
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once

	maxAttempts int
	backoff     time.Duration
	sinkTimeout time.Duration
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		sinks:       make(map[string][]Sink),
		queue:       make(chan Event, defaultQueueSize),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		sinkTimeout: defaultSinkTimeout,
	}
}

// Register binds a sink to a source code. The empty code subscribes the
// sink to all sources.
func (d *Dispatcher) Register(sourceCode string, sink Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks[sourceCode] = append(d.sinks[sourceCode], sink)
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	go d.run()
}

// Stop drains the queue and waits for the worker to finish.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	<-d.done
}

// Publish enqueues events for delivery. If the queue is full the event
// is dropped and logged; the bid it describes is already durable.
func (d *Dispatcher) Publish(events ...Event) {
	for _, ev := range events {
		select {
		case d.queue <- ev:
			observability.RecordEventQueued(string(ev.Kind))
		default:
			log.Printf("[Dispatcher] queue full, dropping %s event", ev.Kind)
			observability.RecordEventDropped(string(ev.Kind))
		}
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev Event) {
	d.mu.RLock()
	targets := make([]Sink, 0, len(d.sinks[""])+len(d.sinks[ev.SourceCode]))
	targets = append(targets, d.sinks[""]...)
	if ev.SourceCode != "" {
		targets = append(targets, d.sinks[ev.SourceCode]...)
	}
	d.mu.RUnlock()

	for _, sink := range targets {
		d.deliverTo(sink, ev)
	}
}

// deliverTo runs one sink with retry on DeliveryRetry. A panicking sink
// is logged and skipped; it must not keep other sinks from running.
func (d *Dispatcher) deliverTo(sink Sink, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Dispatcher] sink %s panicked on %s: %v", sink.Name(), ev.Kind, r)
			observability.RecordEventDelivery(sink.Name(), string(ev.Kind), "panic")
		}
	}()

	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), d.sinkTimeout)
		verdict := d.call(ctx, sink, ev)
		cancel()

		switch verdict {
		case DeliveryAccepted:
			observability.RecordEventDelivery(sink.Name(), string(ev.Kind), "accepted")
			return
		case DeliveryDrop:
			observability.RecordEventDelivery(sink.Name(), string(ev.Kind), "dropped")
			return
		case DeliveryRetry:
			if attempt == d.maxAttempts {
				log.Printf("[Dispatcher] sink %s gave up on %s after %d attempts", sink.Name(), ev.Kind, attempt)
				observability.RecordEventDelivery(sink.Name(), string(ev.Kind), "exhausted")
				return
			}
			time.Sleep(d.backoff * time.Duration(attempt))
		}
	}
}

func (d *Dispatcher) call(ctx context.Context, sink Sink, ev Event) Delivery {
	switch ev.Kind {
	case KindAuctionSetStarted:
		return sink.AuctionSetStarted(ctx, ev.Set)
	case KindAuctionClosed:
		return sink.AuctionClosed(ctx, ev.Auction)
	case KindAuctionWinner:
		return sink.AuctionWinner(ctx, ev.Bid)
	case KindAuctionBuyout:
		return sink.AuctionBuyout(ctx, ev.Bid)
	case KindBidBeaten:
		return sink.BidBeaten(ctx, ev.Bid, ev.Beaten)
	case KindBidSniped:
		return sink.BidSniped(ctx, ev.Bid)
	case KindInvalidBid:
		return sink.InvalidBid(ctx, ev.Attempt)
	case KindInvalidBuyout:
		return sink.InvalidBuyout(ctx, ev.Attempt)
	case KindBidderCreated:
		return sink.BidderCreated(ctx, ev.Bidder, ev.Bid, ev.SourceCode)
	default:
		log.Printf("[Dispatcher] unknown event kind %q", ev.Kind)
		return DeliveryDrop
	}
}
