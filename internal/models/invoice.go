package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusSent    InvoiceStatus = "SENT"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

// Invoice bills the winning bidder of an ended auction. One invoice per
// auction; the sweep job creates the missing ones.
type Invoice struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	AuctionID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"auction_id"`
	BidderID  uint            `gorm:"not null;index" json:"bidder_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Fee       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"fee"`
	Total     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total"`
	Status    InvoiceStatus   `gorm:"size:20;not null;default:PENDING;index" json:"status"`
	CreatedAt time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}
