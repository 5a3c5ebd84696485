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

// SetService owns the auction-set lifecycle: Draft until an explicit
// start, Running while any member auction is open, Closed once every
// member has ended.
type SetService struct {
	db        *gorm.DB
	repo      *repository.Repository
	auctions  *AuctionService
	publisher events.Publisher
	now       func() time.Time
}

func NewSetService(db *gorm.DB, repo *repository.Repository, auctions *AuctionService, publisher events.Publisher) *SetService {
	return &SetService{
		db:        db,
		repo:      repo,
		auctions:  auctions,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateSet creates a draft set for a target.
func (s *SetService) CreateSet(ctx context.Context, req *models.CreateSetRequest, defaultAntiSniper int) (*models.AuctionSet, error) {
	antiSniper := defaultAntiSniper
	if req.AntiSniperMinutes != nil {
		antiSniper = *req.AntiSniperMinutes
	}
	if antiSniper < 0 {
		return nil, fmt.Errorf("anti_sniper_minutes must not be negative")
	}

	set := &models.AuctionSet{
		ID:                uuid.New(),
		TargetID:          req.TargetID,
		DateDue:           req.DateDue.UTC(),
		AntiSniperMinutes: antiSniper,
		State:             models.SetStateDraft,
	}
	if err := s.repo.CreateSet(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// Start transitions a draft set to Running and atomically starts every
// member auction with it.
func (s *SetService) Start(ctx context.Context, setID uuid.UUID) (*models.AuctionSet, error) {
	var started *models.AuctionSet

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		set, err := txRepo.GetSetForUpdate(ctx, setID)
		if err != nil {
			return err
		}
		if set.State != models.SetStateDraft {
			return fmt.Errorf("%w: set %s is %s", repository.ErrConflict, set.ID, set.State)
		}

		now := s.now()
		set.State = models.SetStateRunning
		set.StartedAt = &now
		set.IsPublished = true
		if err := txRepo.SaveSet(ctx, set); err != nil {
			return err
		}

		auctions, err := txRepo.GetSetAuctions(ctx, set.ID)
		if err != nil {
			return err
		}
		for _, auction := range auctions {
			auction.State = models.AuctionStateActive
			auction.IsActive = true
			auction.StartedAt = &now
			if err := txRepo.SaveAuction(ctx, auction); err != nil {
				return err
			}
		}

		started = set
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(events.Event{
		Kind: events.KindAuctionSetStarted,
		Set:  started,
	})
	return started, nil
}

// TryClose attempts to close every member auction and, when all of them
// report CLOSED or ALREADY_CLOSED, closes the set. Safe to re-run: a
// closed set is a no-op, an undue member leaves the set Running.
func (s *SetService) TryClose(ctx context.Context, setID uuid.UUID) (bool, error) {
	set, err := s.repo.GetSetByID(ctx, setID)
	if err != nil {
		return false, err
	}
	switch set.State {
	case models.SetStateClosed:
		return true, nil
	case models.SetStateDraft:
		return false, nil
	}

	auctions, err := s.repo.GetSetAuctions(ctx, setID)
	if err != nil {
		return false, err
	}

	allDone := true
	for _, auction := range auctions {
		attempt, err := s.auctions.Close(ctx, auction.ID, false)
		if err != nil {
			return false, err
		}
		if !attempt.Done() {
			allDone = false
		}
	}
	if !allDone {
		return false, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		locked, err := txRepo.GetSetForUpdate(ctx, setID)
		if err != nil {
			return err
		}
		if locked.State == models.SetStateClosed {
			return nil
		}

		now := s.now()
		locked.State = models.SetStateClosed
		locked.EndedAt = &now
		return txRepo.SaveSet(ctx, locked)
	})
	if err != nil {
		return false, err
	}

	observability.RecordSetClosed()
	return true, nil
}

// Delete removes a set with its member auctions. Refused once any
// member has started or carries bids; a draft set cascades cleanly.
func (s *SetService) Delete(ctx context.Context, setID uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		set, err := txRepo.GetSetForUpdate(ctx, setID)
		if err != nil {
			return err
		}

		auctions, err := txRepo.GetSetAuctions(ctx, setID)
		if err != nil {
			return err
		}
		for _, auction := range auctions {
			if auction.StartedAt != nil {
				return fmt.Errorf("%w: auction %s has started", repository.ErrConflict, auction.ID)
			}
			count, err := txRepo.CountBids(ctx, auction.ID)
			if err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("%w: auction %s has bids", repository.ErrConflict, auction.ID)
			}
		}

		if err := tx.Where("set_id = ?", setID).Delete(&models.Auction{}).Error; err != nil {
			return err
		}
		return tx.Delete(set).Error
	})
}
