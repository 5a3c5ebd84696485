package models

import (
	"time"

	"github.com/google/uuid"
)

type SetState string

const (
	SetStateDraft   SetState = "DRAFT"
	SetStateRunning SetState = "RUNNING"
	SetStateClosed  SetState = "CLOSED"
)

// AuctionSet is a batch of auctions published to one external target,
// sharing an initial deadline and an anti-sniper window.
type AuctionSet struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TargetID          uint       `gorm:"not null;index" json:"target_id"`
	DateDue           time.Time  `gorm:"not null" json:"date_due"`
	AntiSniperMinutes int        `gorm:"not null;default:0" json:"anti_sniper_minutes"`
	State             SetState   `gorm:"size:20;not null;default:DRAFT;index" json:"state"`
	IsPublished       bool       `gorm:"not null;default:false" json:"is_published"`
	StartedAt         *time.Time `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at"`
	CreatedAt         time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (AuctionSet) TableName() string {
	return "auction_sets"
}

// CreateSetRequest creates a draft auction set.
type CreateSetRequest struct {
	TargetID          uint      `json:"target_id" binding:"required"`
	DateDue           time.Time `json:"date_due" binding:"required"`
	AntiSniperMinutes *int      `json:"anti_sniper_minutes"`
}
