package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"comic-auction/internal/models"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes domain events as JSON to per-kind subjects, e.g.
// auction.events.bid_beaten. Downstream notifier workers subscribe and
// turn them into comments, pushes, and emails.
type NATSSink struct {
	nc            *nats.Conn
	subjectPrefix string
}

func NewNATSSink(nc *nats.Conn, subjectPrefix string) *NATSSink {
	if subjectPrefix == "" {
		subjectPrefix = "auction.events"
	}
	return &NATSSink{nc: nc, subjectPrefix: subjectPrefix}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) publish(kind Kind, payload interface{}) Delivery {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[NATSSink] failed to marshal %s event: %v", kind, err)
		return DeliveryDrop
	}

	subject := fmt.Sprintf("%s.%s", s.subjectPrefix, kind)
	if err := s.nc.Publish(subject, data); err != nil {
		log.Printf("[NATSSink] failed to publish to %s: %v", subject, err)
		return DeliveryRetry
	}
	return DeliveryAccepted
}

func (s *NATSSink) AuctionSetStarted(_ context.Context, set *models.AuctionSet) Delivery {
	return s.publish(KindAuctionSetStarted, map[string]interface{}{"set": set})
}

func (s *NATSSink) AuctionClosed(_ context.Context, auction *models.Auction) Delivery {
	return s.publish(KindAuctionClosed, map[string]interface{}{"auction": auction})
}

func (s *NATSSink) AuctionWinner(_ context.Context, tailBid *models.Bid) Delivery {
	return s.publish(KindAuctionWinner, map[string]interface{}{"bid": tailBid})
}

func (s *NATSSink) AuctionBuyout(_ context.Context, bid *models.Bid) Delivery {
	return s.publish(KindAuctionBuyout, map[string]interface{}{"bid": bid})
}

func (s *NATSSink) BidBeaten(_ context.Context, newBid, beaten *models.Bid) Delivery {
	return s.publish(KindBidBeaten, map[string]interface{}{"bid": newBid, "beaten": beaten})
}

func (s *NATSSink) BidSniped(_ context.Context, bid *models.Bid) Delivery {
	return s.publish(KindBidSniped, map[string]interface{}{"bid": bid})
}

func (s *NATSSink) InvalidBid(_ context.Context, attempt *BidAttempt) Delivery {
	return s.publish(KindInvalidBid, map[string]interface{}{"attempt": attempt})
}

func (s *NATSSink) InvalidBuyout(_ context.Context, attempt *BidAttempt) Delivery {
	return s.publish(KindInvalidBuyout, map[string]interface{}{"attempt": attempt})
}

func (s *NATSSink) BidderCreated(_ context.Context, bidder *models.Bidder, bid *models.Bid, sourceCode string) Delivery {
	return s.publish(KindBidderCreated, map[string]interface{}{
		"bidder": bidder,
		"bid":    bid,
		"source": sourceCode,
	})
}
