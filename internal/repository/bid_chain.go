package repository

import (
	"context"
	"fmt"

	"comic-auction/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bid chain operations. Each auction's bids form a singly linked list in
// arrival order; the bid with next_bid_id IS NULL is the tail and the
// current winner. On Postgres a partial unique index on
// (auction_id) WHERE next_bid_id IS NULL backs the at-most-one-tail
// invariant, so a racing appender surfaces as a constraint violation
// instead of a silent fork.

// Tail returns the current tail bid, or nil when the chain is empty.
func (r *Repository) Tail(ctx context.Context, auctionID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ? AND next_bid_id IS NULL", auctionID).
		First(&bid).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

// PreviousOf returns the unique bid pointing at the given one, or nil for
// the head.
func (r *Repository) PreviousOf(ctx context.Context, bid *models.Bid) (*models.Bid, error) {
	var prev models.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ? AND next_bid_id = ?", bid.AuctionID, bid.ID).
		First(&prev).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &prev, nil
}

// AppendBid makes the given bid the new tail. Callers must hold an open
// transaction with the auction row locked (GetAuctionForUpdate), which
// serializes concurrent appenders on the same auction. Returns the
// previous tail, or nil for a first bid.
func (r *Repository) AppendBid(ctx context.Context, bid *models.Bid) (*models.Bid, error) {
	tail, err := r.Tail(ctx, bid.AuctionID)
	if err != nil {
		return nil, err
	}

	bid.NextBidID = nil
	if err := r.db.WithContext(ctx).Create(bid).Error; err != nil {
		return nil, err
	}

	if tail != nil {
		err := r.db.WithContext(ctx).Model(&models.Bid{}).
			Where("id = ? AND next_bid_id IS NULL", tail.ID).
			Update("next_bid_id", bid.ID)
		if err.Error != nil {
			return nil, err.Error
		}
		if err.RowsAffected != 1 {
			// The tail moved under us despite the row lock.
			return nil, fmt.Errorf("%w: tail of auction %s changed during append", ErrInvariant, bid.AuctionID)
		}
	}

	return tail, nil
}

// InsertBidByValue places the bid at its value-ordered position in the
// chain, linking the greatest bid below it and the least bid above it.
// Used by sync replay, where historical events arrive out of order.
func (r *Repository) InsertBidByValue(ctx context.Context, bid *models.Bid) error {
	db := r.db.WithContext(ctx)

	var dup int64
	err := db.Model(&models.Bid{}).
		Where("auction_id = ? AND value = ?", bid.AuctionID, bid.Value).
		Count(&dup).Error
	if err != nil {
		return err
	}
	if dup > 0 {
		return fmt.Errorf("%w: bid with value %d already in chain", ErrConflict, bid.Value)
	}

	var prev models.Bid
	hasPrev := true
	err = db.Where("auction_id = ? AND value < ?", bid.AuctionID, bid.Value).
		Order("value DESC").
		First(&prev).Error
	if err == gorm.ErrRecordNotFound {
		hasPrev = false
	} else if err != nil {
		return err
	}

	var next models.Bid
	hasNext := true
	err = db.Where("auction_id = ? AND value > ?", bid.AuctionID, bid.Value).
		Order("value ASC").
		First(&next).Error
	if err == gorm.ErrRecordNotFound {
		hasNext = false
	} else if err != nil {
		return err
	}

	if hasNext {
		bid.NextBidID = &next.ID
	} else {
		bid.NextBidID = nil
	}
	if err := db.Create(bid).Error; err != nil {
		return err
	}

	if hasPrev {
		return db.Model(&models.Bid{}).
			Where("id = ?", prev.ID).
			Update("next_bid_id", bid.ID).Error
	}
	return nil
}

// RangeAbove returns the bids strictly greater than value, ascending.
func (r *Repository) RangeAbove(ctx context.Context, auctionID uuid.UUID, value int64) ([]*models.Bid, error) {
	var bids []*models.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ? AND value > ?", auctionID, value).
		Order("value ASC").
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}

// ChainBids returns the full chain in link order, head first. It walks
// the next_bid pointers rather than trusting created_at, so a broken
// chain shows up as an error instead of a plausible-looking list.
func (r *Repository) ChainBids(ctx context.Context, auctionID uuid.UUID) ([]*models.Bid, error) {
	var bids []*models.Bid
	err := r.db.WithContext(ctx).
		Where("auction_id = ?", auctionID).
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, nil
	}

	byID := make(map[uuid.UUID]*models.Bid, len(bids))
	referenced := make(map[uuid.UUID]bool, len(bids))
	for _, b := range bids {
		byID[b.ID] = b
		if b.NextBidID != nil {
			referenced[*b.NextBidID] = true
		}
	}

	var head *models.Bid
	for _, b := range bids {
		if !referenced[b.ID] {
			if head != nil {
				return nil, fmt.Errorf("%w: auction %s has two chain heads", ErrInvariant, auctionID)
			}
			head = b
		}
	}
	if head == nil {
		return nil, fmt.Errorf("%w: auction %s chain is cyclic", ErrInvariant, auctionID)
	}

	chain := make([]*models.Bid, 0, len(bids))
	for cur := head; cur != nil; {
		chain = append(chain, cur)
		if len(chain) > len(bids) {
			return nil, fmt.Errorf("%w: auction %s chain is cyclic", ErrInvariant, auctionID)
		}
		if cur.NextBidID == nil {
			break
		}
		next, ok := byID[*cur.NextBidID]
		if !ok {
			return nil, fmt.Errorf("%w: auction %s chain points at missing bid %s", ErrInvariant, auctionID, *cur.NextBidID)
		}
		cur = next
	}
	if len(chain) != len(bids) {
		return nil, fmt.Errorf("%w: auction %s chain visits %d of %d bids", ErrInvariant, auctionID, len(chain), len(bids))
	}
	return chain, nil
}

// CountBids returns the number of bids on an auction.
func (r *Repository) CountBids(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Bid{}).
		Where("auction_id = ?", auctionID).
		Count(&count).Error
	return count, err
}

// GetBidByID retrieves a bid by ID.
func (r *Repository) GetBidByID(ctx context.Context, bidID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).Where("id = ?", bidID).First(&bid).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bid, nil
}
