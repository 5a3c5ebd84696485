package services

import (
	"context"
	"log"

	"comic-auction/internal/models"
	"comic-auction/internal/observability"
	"comic-auction/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InvoiceService bills winning bidders. The sweep picks up ended
// auctions that have a winning bid but no invoice yet, so re-running it
// is harmless.
type InvoiceService struct {
	db         *gorm.DB
	repo       *repository.Repository
	feePercent decimal.Decimal
}

func NewInvoiceService(db *gorm.DB, repo *repository.Repository, feePercent float64) *InvoiceService {
	return &InvoiceService{
		db:         db,
		repo:       repo,
		feePercent: decimal.NewFromFloat(feePercent),
	}
}

// Sweep generates invoices for uninvoiced ended auctions and returns
// how many it created.
func (s *InvoiceService) Sweep(ctx context.Context) (int, error) {
	var auctions []*models.Auction
	err := s.db.WithContext(ctx).
		Where("state = ? AND id NOT IN (SELECT auction_id FROM invoices)", models.AuctionStateEnded).
		Find(&auctions).Error
	if err != nil {
		return 0, err
	}

	created := 0
	for _, auction := range auctions {
		tail, err := s.repo.Tail(ctx, auction.ID)
		if err != nil {
			return created, err
		}
		if tail == nil {
			// Ended without bids: nothing to bill.
			continue
		}

		amount := decimal.NewFromInt(tail.Value)
		fee := amount.Mul(s.feePercent).Div(decimal.NewFromInt(100)).Round(2)
		invoice := &models.Invoice{
			ID:        uuid.New(),
			AuctionID: auction.ID,
			BidderID:  tail.BidderID,
			Amount:    amount,
			Fee:       fee,
			Total:     amount.Add(fee),
			Status:    models.InvoiceStatusPending,
		}
		if err := s.db.WithContext(ctx).Create(invoice).Error; err != nil {
			return created, err
		}
		created++
		observability.RecordInvoiceGenerated()
		log.Printf("[Invoices] invoiced bidder %d for auction %s: %s", tail.BidderID, auction.ID, invoice.Total)
	}
	return created, nil
}
