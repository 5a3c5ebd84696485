package models

import (
	"time"
)

// PriceCategory defines the bidding rules a group of items shares.
// Values are integer currency units; an auction copies them at creation
// time so later rule edits never rewrite a running auction.
type PriceCategory struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	Name          string  `gorm:"size:255;not null;uniqueIndex" json:"name"`
	BidStartPrice int64   `gorm:"not null" json:"bid_start_price"`
	BidMinStep    int64   `gorm:"not null" json:"bid_min_step"`
	BidMultipleOf int64   `gorm:"not null;default:1" json:"bid_multiple_of"`
	BuyNowPrice   *int64  `json:"buy_now_price"`
	BuyNowExpires *int64  `json:"buy_now_expires"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PriceCategory) TableName() string {
	return "price_categories"
}

// ItemType groups items and carries the fallback price category.
type ItemType struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	PriceCategoryID *uint  `gorm:"index" json:"price_category_id"`
}

func (ItemType) TableName() string {
	return "item_types"
}

// Item is a single collectible put up for auction. At most one active
// auction references an item at a time.
type Item struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"size:500;not null" json:"name"`
	TypeID          *uint     `gorm:"index" json:"type_id"`
	PriceCategoryID *uint     `gorm:"index" json:"price_category_id"`
	Barcode         *string   `gorm:"size:64" json:"barcode"`
	ImageURL        *string   `gorm:"size:500" json:"image_url"`
	CreatedAt       time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Item) TableName() string {
	return "items"
}
