package repository

import (
	"context"
	"errors"

	"comic-auction/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Error taxonomy shared by the repository and the services built on it.
var (
	// ErrNotFound marks a missing entity or external mapping.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a mutation rejected by the current state, e.g.
	// closing an already-closed auction or restarting a running set.
	ErrConflict = errors.New("conflict")
	// ErrInvariant marks a broken storage invariant, e.g. two chain tails.
	ErrInvariant = errors.New("invariant violation")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB exposes the underlying handle for transaction scoping.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// lockForUpdate adds a row lock on dialects that support it. SQLite
// serializes writers on its own, so the clause is skipped there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// GetAuctionByID retrieves an auction by ID.
func (r *Repository) GetAuctionByID(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := r.db.WithContext(ctx).Where("id = ?", auctionID).First(&auction).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// GetAuctionForUpdate retrieves an auction under a row lock. Callers must
// hold an open transaction; the lock serializes concurrent appenders and
// closers of the same auction.
func (r *Repository) GetAuctionForUpdate(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error) {
	var auction models.Auction
	err := lockForUpdate(r.db.WithContext(ctx)).Where("id = ?", auctionID).First(&auction).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// SaveAuction persists all fields of an auction.
func (r *Repository) SaveAuction(ctx context.Context, auction *models.Auction) error {
	return r.db.WithContext(ctx).Save(auction).Error
}

// GetSetByID retrieves an auction set by ID.
func (r *Repository) GetSetByID(ctx context.Context, setID uuid.UUID) (*models.AuctionSet, error) {
	var set models.AuctionSet
	err := r.db.WithContext(ctx).Where("id = ?", setID).First(&set).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// GetSetForUpdate retrieves an auction set under a row lock.
func (r *Repository) GetSetForUpdate(ctx context.Context, setID uuid.UUID) (*models.AuctionSet, error) {
	var set models.AuctionSet
	err := lockForUpdate(r.db.WithContext(ctx)).Where("id = ?", setID).First(&set).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// SaveSet persists all fields of an auction set.
func (r *Repository) SaveSet(ctx context.Context, set *models.AuctionSet) error {
	return r.db.WithContext(ctx).Save(set).Error
}

// GetSetAuctions retrieves the member auctions of a set.
func (r *Repository) GetSetAuctions(ctx context.Context, setID uuid.UUID) ([]*models.Auction, error) {
	var auctions []*models.Auction
	err := r.db.WithContext(ctx).
		Where("set_id = ?", setID).
		Order("created_at ASC").
		Find(&auctions).Error
	if err != nil {
		return nil, err
	}
	return auctions, nil
}

// GetRunningSets retrieves sets the close scheduler should look at.
func (r *Repository) GetRunningSets(ctx context.Context, limit int) ([]*models.AuctionSet, error) {
	var sets []*models.AuctionSet
	err := r.db.WithContext(ctx).
		Where("state = ?", models.SetStateRunning).
		Order("date_due ASC").
		Limit(limit).
		Find(&sets).Error
	if err != nil {
		return nil, err
	}
	return sets, nil
}

// GetItemByID retrieves an item by ID.
func (r *Repository) GetItemByID(ctx context.Context, itemID uint) (*models.Item, error) {
	var item models.Item
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ResolvePriceCategory resolves the effective price category of an item:
// the item's own category if set, otherwise its type's category.
func (r *Repository) ResolvePriceCategory(ctx context.Context, item *models.Item) (*models.PriceCategory, error) {
	categoryID := item.PriceCategoryID
	if categoryID == nil && item.TypeID != nil {
		var itemType models.ItemType
		err := r.db.WithContext(ctx).Where("id = ?", *item.TypeID).First(&itemType).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}
		if err == nil {
			categoryID = itemType.PriceCategoryID
		}
	}
	if categoryID == nil {
		return nil, ErrNotFound
	}

	var category models.PriceCategory
	err := r.db.WithContext(ctx).Where("id = ?", *categoryID).First(&category).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// HasActiveAuctionForItem reports whether the item is already on sale.
func (r *Repository) HasActiveAuctionForItem(ctx context.Context, itemID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Auction{}).
		Where("item_id = ? AND state != ?", itemID, models.AuctionStateEnded).
		Count(&count).Error
	return count > 0, err
}

// CreateAuction creates a new auction row.
func (r *Repository) CreateAuction(ctx context.Context, auction *models.Auction) error {
	return r.db.WithContext(ctx).Create(auction).Error
}

// CreateSet creates a new auction set row.
func (r *Repository) CreateSet(ctx context.Context, set *models.AuctionSet) error {
	return r.db.WithContext(ctx).Create(set).Error
}
