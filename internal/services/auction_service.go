package services

import (
	"context"
	"fmt"
	"time"

	"comic-auction/internal/events"
	"comic-auction/internal/models"
	"comic-auction/internal/observability"
	"comic-auction/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CloseOutcome reports what a close attempt did.
type CloseOutcome string

const (
	CloseOutcomeClosed        CloseOutcome = "CLOSED"
	CloseOutcomeAlreadyClosed CloseOutcome = "ALREADY_CLOSED"
	CloseOutcomeNotStartedYet CloseOutcome = "NOT_STARTED_YET"
	CloseOutcomeNotClosedYet  CloseOutcome = "NOT_CLOSED_YET"
)

// CloseAttempt is the result of one close attempt. RetryAt is set for
// NOT_CLOSED_YET and hints when the next attempt can succeed.
type CloseAttempt struct {
	Outcome CloseOutcome
	RetryAt *time.Time
}

// Done reports whether the auction is ended after this attempt.
func (a *CloseAttempt) Done() bool {
	return a.Outcome == CloseOutcomeClosed || a.Outcome == CloseOutcomeAlreadyClosed
}

// AuctionService owns the per-auction lifecycle: Draft until the set
// starts, Active while bidding, Ended on natural close, buyout, or
// forced close.
type AuctionService struct {
	db           *gorm.DB
	repo         *repository.Repository
	publisher    events.Publisher
	graceSeconds int
	now          func() time.Time
}

func NewAuctionService(db *gorm.DB, repo *repository.Repository, publisher events.Publisher, graceSeconds int) *AuctionService {
	return &AuctionService{
		db:           db,
		repo:         repo,
		publisher:    publisher,
		graceSeconds: graceSeconds,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateAuction creates a draft auction inside a draft set, resolving
// the item's price category (item override first, then type fallback)
// and caching the parameters on the auction row so later category edits
// cannot rewrite a running auction.
func (s *AuctionService) CreateAuction(ctx context.Context, req *models.CreateAuctionRequest) (*models.Auction, error) {
	setID, err := uuid.Parse(req.SetID)
	if err != nil {
		return nil, fmt.Errorf("invalid set id: %w", err)
	}

	set, err := s.repo.GetSetByID(ctx, setID)
	if err != nil {
		return nil, err
	}
	if set.State != models.SetStateDraft {
		return nil, fmt.Errorf("%w: set %s has already started", repository.ErrConflict, set.ID)
	}

	item, err := s.repo.GetItemByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	onSale, err := s.repo.HasActiveAuctionForItem(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if onSale {
		return nil, fmt.Errorf("%w: item %d already has an open auction", repository.ErrConflict, item.ID)
	}

	category, err := s.repo.ResolvePriceCategory(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("item %d has no price category: %w", item.ID, err)
	}

	dateDue := set.DateDue
	if req.DateDue != nil {
		dateDue = *req.DateDue
	}

	auction := &models.Auction{
		ID:            uuid.New(),
		SetID:         set.ID,
		ItemID:        item.ID,
		DateDue:       dateDue.UTC(),
		BidStartPrice: category.BidStartPrice,
		BidMinStep:    category.BidMinStep,
		BidMultipleOf: category.BidMultipleOf,
		BuyNowPrice:   category.BuyNowPrice,
		BuyNowExpires: category.BuyNowExpires,
		State:         models.AuctionStateDraft,
	}

	if err := s.repo.CreateAuction(ctx, auction); err != nil {
		return nil, err
	}
	return auction, nil
}

// GetAuction returns an auction with its current tail and bid count.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID uuid.UUID) (*models.AuctionResponse, error) {
	auction, err := s.repo.GetAuctionByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	tail, err := s.repo.Tail(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return &models.AuctionResponse{Auction: auction, TailBid: tail, BidCount: count}, nil
}

// Close attempts to end an auction. A natural close is allowed once now
// reaches date_due minus the grace window; force skips the deadline
// check (buyout, operator action). The attempt is idempotent: closing an
// ended auction reports ALREADY_CLOSED and changes nothing.
func (s *AuctionService) Close(ctx context.Context, auctionID uuid.UUID, force bool) (*CloseAttempt, error) {
	var (
		attempt CloseAttempt
		pending []events.Event
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		auction, err := txRepo.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}

		switch auction.State {
		case models.AuctionStateEnded:
			attempt = CloseAttempt{Outcome: CloseOutcomeAlreadyClosed}
			return nil
		case models.AuctionStateDraft:
			attempt = CloseAttempt{Outcome: CloseOutcomeNotStartedYet}
			return nil
		}

		if auction.StartedAt == nil {
			attempt = CloseAttempt{Outcome: CloseOutcomeNotStartedYet}
			return nil
		}

		now := s.now()
		grace := time.Duration(s.graceSeconds) * time.Second
		if !force && now.Before(auction.DateDue.Add(-grace)) {
			retryAt := auction.DateDue
			attempt = CloseAttempt{Outcome: CloseOutcomeNotClosedYet, RetryAt: &retryAt}
			return nil
		}

		endedAt := now
		auction.State = models.AuctionStateEnded
		auction.IsActive = false
		auction.EndedAt = &endedAt
		if err := txRepo.SaveAuction(ctx, auction); err != nil {
			return err
		}

		pending = append(pending, events.Event{
			Kind:    events.KindAuctionClosed,
			Auction: auction,
		})

		tail, err := txRepo.Tail(ctx, auctionID)
		if err != nil {
			return err
		}
		if tail != nil {
			winner, err := s.isSetWinner(ctx, txRepo, auction, tail)
			if err != nil {
				return err
			}
			if winner {
				pending = append(pending, events.Event{
					Kind: events.KindAuctionWinner,
					Bid:  tail,
				})
			}
		}

		attempt = CloseAttempt{Outcome: CloseOutcomeClosed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if attempt.Outcome == CloseOutcomeClosed {
		observability.RecordAuctionClosed()
		s.publisher.Publish(pending...)
	}
	return &attempt, nil
}

// isSetWinner reports whether the tail's bidder is done with this set:
// the winner notification goes out only when the bidder is not still the
// leading bidder of another open auction in the same set, so one bidder
// gets a single consolidated win per set close.
func (s *AuctionService) isSetWinner(ctx context.Context, txRepo *repository.Repository, auction *models.Auction, tail *models.Bid) (bool, error) {
	siblings, err := txRepo.GetSetAuctions(ctx, auction.SetID)
	if err != nil {
		return false, err
	}
	for _, sibling := range siblings {
		if sibling.ID == auction.ID || sibling.State == models.AuctionStateEnded {
			continue
		}
		siblingTail, err := txRepo.Tail(ctx, sibling.ID)
		if err != nil {
			return false, err
		}
		if siblingTail != nil && siblingTail.BidderID == tail.BidderID {
			return false, nil
		}
	}
	return true, nil
}
