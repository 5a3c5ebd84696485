package events

import (
	"context"
	"log"

	"comic-auction/internal/models"
)

// LogSink writes every event to the process log. Registered under the
// wildcard source so each delivery leaves a trace even when no external
// notifier is configured.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) AuctionSetStarted(_ context.Context, set *models.AuctionSet) Delivery {
	log.Printf("[Events] set %s started, due %s", set.ID, set.DateDue.UTC().Format("2006-01-02 15:04:05"))
	return DeliveryAccepted
}

func (s *LogSink) AuctionClosed(_ context.Context, auction *models.Auction) Delivery {
	log.Printf("[Events] auction %s closed", auction.ID)
	return DeliveryAccepted
}

func (s *LogSink) AuctionWinner(_ context.Context, tailBid *models.Bid) Delivery {
	log.Printf("[Events] auction %s won by bidder %d at %d", tailBid.AuctionID, tailBid.BidderID, tailBid.Value)
	return DeliveryAccepted
}

func (s *LogSink) AuctionBuyout(_ context.Context, bid *models.Bid) Delivery {
	log.Printf("[Events] auction %s bought out by bidder %d at %d", bid.AuctionID, bid.BidderID, bid.Value)
	return DeliveryAccepted
}

func (s *LogSink) BidBeaten(_ context.Context, newBid, beaten *models.Bid) Delivery {
	log.Printf("[Events] bidder %d beaten on auction %s: %d over %d", beaten.BidderID, newBid.AuctionID, newBid.Value, beaten.Value)
	return DeliveryAccepted
}

func (s *LogSink) BidSniped(_ context.Context, bid *models.Bid) Delivery {
	log.Printf("[Events] sniped bid %d on auction %s, deadline extended", bid.Value, bid.AuctionID)
	return DeliveryAccepted
}

func (s *LogSink) InvalidBid(_ context.Context, attempt *BidAttempt) Delivery {
	log.Printf("[Events] invalid bid %d on auction %s (%s)", attempt.Value, attempt.AuctionID, attempt.Reason)
	return DeliveryAccepted
}

func (s *LogSink) InvalidBuyout(_ context.Context, attempt *BidAttempt) Delivery {
	log.Printf("[Events] invalid buyout on auction %s (%s)", attempt.AuctionID, attempt.Reason)
	return DeliveryAccepted
}

func (s *LogSink) BidderCreated(_ context.Context, bidder *models.Bidder, bid *models.Bid, sourceCode string) Delivery {
	log.Printf("[Events] new bidder %d (%s) from %s on auction %s", bidder.ID, bidder.DisplayName, sourceCode, bid.AuctionID)
	return DeliveryAccepted
}
