package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"comic-auction/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisSink publishes domain events over Redis Pub/Sub so operator
// dashboards can follow the live bid flow without touching the database.
type RedisSink struct {
	rdb           *redis.Client
	channelPrefix string
}

func NewRedisSink(rdb *redis.Client, channelPrefix string) *RedisSink {
	if channelPrefix == "" {
		channelPrefix = "auction:events"
	}
	return &RedisSink{rdb: rdb, channelPrefix: channelPrefix}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) publish(ctx context.Context, kind Kind, payload interface{}) Delivery {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[RedisSink] failed to marshal %s event: %v", kind, err)
		return DeliveryDrop
	}

	channel := fmt.Sprintf("%s:%s", s.channelPrefix, kind)
	if err := s.rdb.Publish(ctx, channel, data).Err(); err != nil {
		log.Printf("[RedisSink] failed to publish to %s: %v", channel, err)
		return DeliveryRetry
	}
	return DeliveryAccepted
}

func (s *RedisSink) AuctionSetStarted(ctx context.Context, set *models.AuctionSet) Delivery {
	return s.publish(ctx, KindAuctionSetStarted, map[string]interface{}{"set": set})
}

func (s *RedisSink) AuctionClosed(ctx context.Context, auction *models.Auction) Delivery {
	return s.publish(ctx, KindAuctionClosed, map[string]interface{}{"auction": auction})
}

func (s *RedisSink) AuctionWinner(ctx context.Context, tailBid *models.Bid) Delivery {
	return s.publish(ctx, KindAuctionWinner, map[string]interface{}{"bid": tailBid})
}

func (s *RedisSink) AuctionBuyout(ctx context.Context, bid *models.Bid) Delivery {
	return s.publish(ctx, KindAuctionBuyout, map[string]interface{}{"bid": bid})
}

func (s *RedisSink) BidBeaten(ctx context.Context, newBid, beaten *models.Bid) Delivery {
	return s.publish(ctx, KindBidBeaten, map[string]interface{}{"bid": newBid, "beaten": beaten})
}

func (s *RedisSink) BidSniped(ctx context.Context, bid *models.Bid) Delivery {
	return s.publish(ctx, KindBidSniped, map[string]interface{}{"bid": bid})
}

func (s *RedisSink) InvalidBid(ctx context.Context, attempt *BidAttempt) Delivery {
	return s.publish(ctx, KindInvalidBid, map[string]interface{}{"attempt": attempt})
}

func (s *RedisSink) InvalidBuyout(ctx context.Context, attempt *BidAttempt) Delivery {
	return s.publish(ctx, KindInvalidBuyout, map[string]interface{}{"attempt": attempt})
}

func (s *RedisSink) BidderCreated(ctx context.Context, bidder *models.Bidder, bid *models.Bid, sourceCode string) Delivery {
	return s.publish(ctx, KindBidderCreated, map[string]interface{}{
		"bidder": bidder,
		"bid":    bid,
		"source": sourceCode,
	})
}
