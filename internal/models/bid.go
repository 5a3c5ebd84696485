package models

import (
	"time"

	"github.com/google/uuid"
)

// Bidder is a participant resolved from an external identity. The same
// human shows up as two bidders across two targets on purpose.
type Bidder struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	AvatarURL   *string   `gorm:"size:500" json:"avatar_url"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Bidder) TableName() string {
	return "bidders"
}

// Bid is one link of an auction's chain. Bids are append-only while the
// auction is active; only NextBidID is ever rewritten, when a successor
// lands. The bid with NextBidID == nil is the tail and the current winner.
type Bid struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AuctionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"auction_id"`
	BidderID  uint       `gorm:"not null;index" json:"bidder_id"`
	Value     int64      `gorm:"not null" json:"value"`
	IsBuyout  bool       `gorm:"not null;default:false" json:"is_buyout"`
	IsSniped  bool       `gorm:"not null;default:false" json:"is_sniped"`
	NextBidID *uuid.UUID `gorm:"type:uuid;index" json:"next_bid_id"`
	CreatedAt time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Bid) TableName() string {
	return "bids"
}

// IngestBidRequest is the external bid event accepted by the ingestion
// service. Value is in integer currency units; IsBuyout is the explicit
// buy-now request. Sync marks a historical replay.
type IngestBidRequest struct {
	SourceCode        string     `json:"source" binding:"required"`
	ExternalTargetID  string     `json:"external_target_id" binding:"required"`
	ExternalAuctionID string     `json:"external_auction_id" binding:"required"`
	ExternalBidID     string     `json:"external_bid_id" binding:"required"`
	ExternalBidderID  string     `json:"external_bidder_id" binding:"required"`
	BidderName        string     `json:"bidder_name"`
	Value             int64      `json:"value"`
	IsBuyout          bool       `json:"is_buyout"`
	ArrivalTime       *time.Time `json:"arrival_time"`
	Sync              bool       `json:"sync"`
}

// IngestBidResponse reports what the pipeline did with the event.
type IngestBidResponse struct {
	Classification string     `json:"classification"`
	Accepted       bool       `json:"accepted"`
	Bid            *Bid       `json:"bid,omitempty"`
	IsSniped       bool       `json:"is_sniped"`
	DateDue        *time.Time `json:"date_due,omitempty"`
}
