package events

import (
	"context"

	"comic-auction/internal/models"

	"github.com/google/uuid"
)

// Kind identifies a domain event.
type Kind string

const (
	KindAuctionSetStarted Kind = "auction_set_started"
	KindAuctionClosed     Kind = "auction_closed"
	KindAuctionWinner     Kind = "auction_winner"
	KindAuctionBuyout     Kind = "auction_buyout"
	KindBidBeaten         Kind = "bid_beaten"
	KindBidSniped         Kind = "bid_sniped"
	KindInvalidBid        Kind = "invalid_bid"
	KindInvalidBuyout     Kind = "invalid_buyout"
	KindBidderCreated     Kind = "bidder_created"
)

// BidAttempt describes a rejected bid. No Bid row exists for it.
type BidAttempt struct {
	SourceCode       string    `json:"source"`
	ExternalBidID    string    `json:"external_bid_id"`
	ExternalBidderID string    `json:"external_bidder_id"`
	AuctionID        uuid.UUID `json:"auction_id"`
	Value            int64     `json:"value"`
	IsBuyout         bool      `json:"is_buyout"`
	Reason           string    `json:"reason"`
}

// Event is one domain event bound for the notifier sinks. SourceCode
// selects which per-source sinks receive it; only the fields relevant to
// the kind are set.
type Event struct {
	Kind       Kind
	SourceCode string
	Set        *models.AuctionSet
	Auction    *models.Auction
	Bid        *models.Bid
	Beaten     *models.Bid
	Bidder     *models.Bidder
	Attempt    *BidAttempt
}

// Delivery is a sink's verdict on one event.
type Delivery int

const (
	DeliveryAccepted Delivery = iota
	DeliveryRetry
	DeliveryDrop
)

// Sink is a notifier bound to one external source. Sinks are stateless
// with respect to the core: a failed delivery never touches auction
// state.
type Sink interface {
	Name() string
	AuctionSetStarted(ctx context.Context, set *models.AuctionSet) Delivery
	AuctionClosed(ctx context.Context, auction *models.Auction) Delivery
	AuctionWinner(ctx context.Context, tailBid *models.Bid) Delivery
	AuctionBuyout(ctx context.Context, bid *models.Bid) Delivery
	BidBeaten(ctx context.Context, newBid, beaten *models.Bid) Delivery
	BidSniped(ctx context.Context, bid *models.Bid) Delivery
	InvalidBid(ctx context.Context, attempt *BidAttempt) Delivery
	InvalidBuyout(ctx context.Context, attempt *BidAttempt) Delivery
	BidderCreated(ctx context.Context, bidder *models.Bidder, bid *models.Bid, sourceCode string) Delivery
}

// Publisher is what the services see: fire-and-forget, post-commit.
type Publisher interface {
	Publish(events ...Event)
}
