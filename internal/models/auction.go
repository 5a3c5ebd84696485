package models

import (
	"time"

	"github.com/google/uuid"
)

type AuctionState string

const (
	AuctionStateDraft  AuctionState = "DRAFT"
	AuctionStateActive AuctionState = "ACTIVE"
	AuctionStateEnded  AuctionState = "ENDED"
)

// Auction is a timed sale of a single item inside an auction set. The
// price parameters are resolved from the item's price category once, at
// creation, and live on the row from then on.
type Auction struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	SetID         uuid.UUID    `gorm:"type:uuid;not null;index" json:"set_id"`
	ItemID        uint         `gorm:"not null;index" json:"item_id"`
	DateDue       time.Time    `gorm:"not null" json:"date_due"`
	BidStartPrice int64        `gorm:"not null" json:"bid_start_price"`
	BidMinStep    int64        `gorm:"not null" json:"bid_min_step"`
	BidMultipleOf int64        `gorm:"not null;default:1" json:"bid_multiple_of"`
	BuyNowPrice   *int64       `json:"buy_now_price"`
	BuyNowExpires *int64       `json:"buy_now_expires"`
	State         AuctionState `gorm:"size:20;not null;default:DRAFT;index" json:"state"`
	IsActive      bool         `gorm:"not null;default:false" json:"is_active"`
	StartedAt     *time.Time   `json:"started_at"`
	EndedAt       *time.Time   `json:"ended_at"`
	CreatedAt     time.Time    `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Auction) TableName() string {
	return "auctions"
}

// CreateAuctionRequest creates an auction inside a draft set.
type CreateAuctionRequest struct {
	SetID   string     `json:"set_id" binding:"required"`
	ItemID  uint       `json:"item_id" binding:"required"`
	DateDue *time.Time `json:"date_due"`
}

// AuctionResponse is an auction plus its current chain tail.
type AuctionResponse struct {
	Auction *Auction `json:"auction"`
	TailBid *Bid     `json:"tail_bid"`
	BidCount int64   `json:"bid_count"`
}
