package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"comic-auction/internal/models"

	"github.com/google/uuid"
)

// stubSink records the kinds it receives and answers with a scripted
// verdict sequence (last verdict repeats).
type stubSink struct {
	mu       sync.Mutex
	name     string
	verdicts []Delivery
	calls    int
	kinds    []Kind
	panics   bool
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) record(kind Kind) Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panics {
		panic("sink blew up")
	}
	s.kinds = append(s.kinds, kind)
	verdict := DeliveryAccepted
	if len(s.verdicts) > 0 {
		if s.calls < len(s.verdicts) {
			verdict = s.verdicts[s.calls]
		} else {
			verdict = s.verdicts[len(s.verdicts)-1]
		}
	}
	s.calls++
	return verdict
}

func (s *stubSink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubSink) received() []Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Kind, len(s.kinds))
	copy(out, s.kinds)
	return out
}

func (s *stubSink) AuctionSetStarted(ctx context.Context, set *models.AuctionSet) Delivery {
	return s.record(KindAuctionSetStarted)
}
func (s *stubSink) AuctionClosed(ctx context.Context, auction *models.Auction) Delivery {
	return s.record(KindAuctionClosed)
}
func (s *stubSink) AuctionWinner(ctx context.Context, tailBid *models.Bid) Delivery {
	return s.record(KindAuctionWinner)
}
func (s *stubSink) AuctionBuyout(ctx context.Context, bid *models.Bid) Delivery {
	return s.record(KindAuctionBuyout)
}
func (s *stubSink) BidBeaten(ctx context.Context, newBid, beaten *models.Bid) Delivery {
	return s.record(KindBidBeaten)
}
func (s *stubSink) BidSniped(ctx context.Context, bid *models.Bid) Delivery {
	return s.record(KindBidSniped)
}
func (s *stubSink) InvalidBid(ctx context.Context, attempt *BidAttempt) Delivery {
	return s.record(KindInvalidBid)
}
func (s *stubSink) InvalidBuyout(ctx context.Context, attempt *BidAttempt) Delivery {
	return s.record(KindInvalidBuyout)
}
func (s *stubSink) BidderCreated(ctx context.Context, bidder *models.Bidder, bid *models.Bid, sourceCode string) Delivery {
	return s.record(KindBidderCreated)
}

func newTestDispatcher() *Dispatcher {
	d := NewDispatcher()
	d.backoff = time.Millisecond
	return d
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	d := newTestDispatcher()
	sink := &stubSink{name: "test"}
	d.Register("", sink)
	d.Start()

	bid := &models.Bid{ID: uuid.New()}
	d.Publish(
		Event{Kind: KindBidderCreated, SourceCode: "facebook", Bid: bid, Bidder: &models.Bidder{}},
		Event{Kind: KindBidBeaten, SourceCode: "facebook", Bid: bid, Beaten: bid},
		Event{Kind: KindAuctionClosed, SourceCode: "facebook", Auction: &models.Auction{}},
	)
	d.Stop()

	got := sink.received()
	want := []Kind{KindBidderCreated, KindBidBeaten, KindAuctionClosed}
	if len(got) != len(want) {
		t.Fatalf("expected %d deliveries, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDispatcherRoutesBySource(t *testing.T) {
	d := newTestDispatcher()
	wildcard := &stubSink{name: "wildcard"}
	facebook := &stubSink{name: "facebook"}
	ebay := &stubSink{name: "ebay"}
	d.Register("", wildcard)
	d.Register("facebook", facebook)
	d.Register("ebay", ebay)
	d.Start()

	d.Publish(Event{Kind: KindBidSniped, SourceCode: "facebook", Bid: &models.Bid{}})
	d.Stop()

	if wildcard.callCount() != 1 {
		t.Error("wildcard sink must receive every event")
	}
	if facebook.callCount() != 1 {
		t.Error("matching source sink must receive the event")
	}
	if ebay.callCount() != 0 {
		t.Error("other source sinks must not receive the event")
	}
}

func TestDispatcherRetriesUntilAccepted(t *testing.T) {
	d := newTestDispatcher()
	sink := &stubSink{name: "flaky", verdicts: []Delivery{DeliveryRetry, DeliveryRetry, DeliveryAccepted}}
	d.Register("", sink)
	d.Start()

	d.Publish(Event{Kind: KindAuctionClosed, Auction: &models.Auction{}})
	d.Stop()

	if got := sink.callCount(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDispatcherGivesUpAfterMaxAttempts(t *testing.T) {
	d := newTestDispatcher()
	sink := &stubSink{name: "down", verdicts: []Delivery{DeliveryRetry}}
	d.Register("", sink)
	d.Start()

	d.Publish(Event{Kind: KindAuctionClosed, Auction: &models.Auction{}})
	d.Stop()

	if got := sink.callCount(); got != d.maxAttempts {
		t.Fatalf("expected %d attempts, got %d", d.maxAttempts, got)
	}
}

func TestDispatcherDropVerdictSkipsRetry(t *testing.T) {
	d := newTestDispatcher()
	sink := &stubSink{name: "drop", verdicts: []Delivery{DeliveryDrop}}
	d.Register("", sink)
	d.Start()

	d.Publish(Event{Kind: KindAuctionClosed, Auction: &models.Auction{}})
	d.Stop()

	if got := sink.callCount(); got != 1 {
		t.Fatalf("drop verdict must not retry, got %d attempts", got)
	}
}

func TestDispatcherPanickingSinkIsIsolated(t *testing.T) {
	d := newTestDispatcher()
	bad := &stubSink{name: "bad", panics: true}
	good := &stubSink{name: "good"}
	d.Register("", bad)
	d.Register("", good)
	d.Start()

	d.Publish(Event{Kind: KindAuctionClosed, Auction: &models.Auction{}})
	d.Stop()

	if good.callCount() != 1 {
		t.Error("a panicking sink must not block the others")
	}
}

func TestDispatcherStopDrainsQueue(t *testing.T) {
	d := newTestDispatcher()
	sink := &stubSink{name: "slow"}
	d.Register("", sink)

	for i := 0; i < 10; i++ {
		d.Publish(Event{Kind: KindAuctionClosed, Auction: &models.Auction{}})
	}
	d.Start()
	d.Stop()

	if got := sink.callCount(); got != 10 {
		t.Fatalf("Stop must drain the queue, delivered %d of 10", got)
	}
}
