package models

import (
	"time"
)

// Entity kinds an external reference may point at.
const (
	RefAuction    = "auction"
	RefAuctionSet = "auction_set"
	RefBid        = "bid"
	RefBidder     = "bidder"
	RefTarget     = "target"
)

// Source is an external platform comments and bids arrive from.
type Source struct {
	Code      string    `gorm:"primaryKey;size:32" json:"code"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Source) TableName() string {
	return "sources"
}

// Target is the account or channel on a source where auction sets get
// published.
type Target struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SourceCode string    `gorm:"size:32;not null;index:idx_targets_source_ext,unique" json:"source_code"`
	ExternalID string    `gorm:"size:255;not null;index:idx_targets_source_ext,unique" json:"external_id"`
	Name       string    `gorm:"size:255" json:"name"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Target) TableName() string {
	return "targets"
}

// ExternalRef maps a foreign identifier to an internal entity. The pair
// (source_code, entity_id) is unique; RelatesToID is the internal key in
// string form so it can hold both numeric and uuid ids.
type ExternalRef struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SourceCode  string    `gorm:"size:32;not null;index:idx_refs_source_entity,unique" json:"source_code"`
	EntityID    string    `gorm:"size:255;not null;index:idx_refs_source_entity,unique" json:"entity_id"`
	RelatesTo   string    `gorm:"size:32;not null;index" json:"relates_to"`
	RelatesToID string    `gorm:"size:64;not null;index" json:"relates_to_id"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ExternalRef) TableName() string {
	return "external_refs"
}

// ExternalToken is an API credential for a source. RequestLog holds the
// recent request timestamps (unix milliseconds, JSON array) used by the
// leaky-bucket rate limiter; the row lock serializes its mutation.
type ExternalToken struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SourceCode  string    `gorm:"size:32;not null;index:idx_tokens_source_type,unique" json:"source_code"`
	TokenType   string    `gorm:"size:32;not null;index:idx_tokens_source_type,unique" json:"token_type"`
	AccessToken string    `gorm:"size:1024" json:"-"`
	RequestLog  string    `gorm:"type:text;not null;default:'[]'" json:"-"`
	UpdatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ExternalToken) TableName() string {
	return "external_tokens"
}
