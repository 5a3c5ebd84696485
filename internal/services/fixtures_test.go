package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"comic-auction/internal/database"
	"comic-auction/internal/events"
	"comic-auction/internal/models"
	"comic-auction/internal/repository"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A named shared-cache memory DB keeps the schema alive across the
	// connections gorm opens, while staying isolated per test.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

// eventRecorder captures published events in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(evs ...events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evs...)
}

func (r *eventRecorder) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (r *eventRecorder) first(kind events.Kind) *events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].Kind == kind {
			return &r.events[i]
		}
	}
	return nil
}

// fixture wires the services against one test database with a frozen
// clock.
type fixture struct {
	db       *gorm.DB
	repo     *repository.Repository
	rec      *eventRecorder
	auctions *AuctionService
	sets     *SetService
	ingest   *IngestService
	baseTime time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newServiceTestDB(t)
	repo := repository.NewRepository(db)
	rec := &eventRecorder{}

	f := &fixture{
		db:       db,
		repo:     repo,
		rec:      rec,
		baseTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.auctions = NewAuctionService(db, repo, rec, 10)
	f.sets = NewSetService(db, repo, f.auctions, rec)
	f.ingest = NewIngestService(db, repo, f.auctions, rec)
	f.setNow(f.baseTime)
	return f
}

// setNow freezes the clock of every service at the given instant.
func (f *fixture) setNow(tm time.Time) {
	clock := func() time.Time { return tm }
	f.auctions.now = clock
	f.sets.now = clock
	f.ingest.now = clock
}

func standardCategory() models.PriceCategory {
	return models.PriceCategory{
		Name:          "standard",
		BidStartPrice: 100,
		BidMinStep:    10,
		BidMultipleOf: 5,
		BuyNowPrice:   int64Ptr(1000),
		BuyNowExpires: int64Ptr(500),
	}
}

func (f *fixture) createCategory(t *testing.T, cat models.PriceCategory) *models.PriceCategory {
	t.Helper()
	if err := f.db.Create(&cat).Error; err != nil {
		t.Fatalf("failed to create price category: %v", err)
	}
	return &cat
}

// seedSet creates the external source, its target and a set in the given
// state. Running sets come with StartedAt and IsPublished.
func (f *fixture) seedSet(t *testing.T, state models.SetState, window int, dateDue time.Time) *models.AuctionSet {
	t.Helper()

	source := &models.Source{Code: "facebook", Name: "Facebook"}
	if err := f.db.Create(source).Error; err != nil {
		t.Fatalf("failed to create source: %v", err)
	}
	target := &models.Target{SourceCode: "facebook", ExternalID: "board-1", Name: "Comics board"}
	if err := f.db.Create(target).Error; err != nil {
		t.Fatalf("failed to create target: %v", err)
	}

	set := &models.AuctionSet{
		ID:                uuid.New(),
		TargetID:          target.ID,
		DateDue:           dateDue,
		AntiSniperMinutes: window,
		State:             state,
	}
	if state == models.SetStateRunning {
		started := f.baseTime.Add(-time.Hour)
		set.StartedAt = &started
		set.IsPublished = true
	}
	if err := f.db.Create(set).Error; err != nil {
		t.Fatalf("failed to create set: %v", err)
	}
	return set
}

// seedAuction creates an item and an auction in the set, mapped to the
// given external auction id. The auction state follows the set state.
func (f *fixture) seedAuction(t *testing.T, set *models.AuctionSet, cat *models.PriceCategory, extAuctionID string) *models.Auction {
	t.Helper()

	item := &models.Item{Name: "comic " + extAuctionID, PriceCategoryID: &cat.ID}
	if err := f.db.Create(item).Error; err != nil {
		t.Fatalf("failed to create item: %v", err)
	}

	auction := &models.Auction{
		ID:            uuid.New(),
		SetID:         set.ID,
		ItemID:        item.ID,
		DateDue:       set.DateDue,
		BidStartPrice: cat.BidStartPrice,
		BidMinStep:    cat.BidMinStep,
		BidMultipleOf: cat.BidMultipleOf,
		BuyNowPrice:   cat.BuyNowPrice,
		BuyNowExpires: cat.BuyNowExpires,
		State:         models.AuctionStateDraft,
	}
	if set.State == models.SetStateRunning {
		started := f.baseTime.Add(-time.Hour)
		auction.State = models.AuctionStateActive
		auction.IsActive = true
		auction.StartedAt = &started
	}
	if err := f.db.Create(auction).Error; err != nil {
		t.Fatalf("failed to create auction: %v", err)
	}

	ref := &models.ExternalRef{
		SourceCode:  "facebook",
		EntityID:    extAuctionID,
		RelatesTo:   models.RefAuction,
		RelatesToID: auction.ID.String(),
	}
	if err := f.db.Create(ref).Error; err != nil {
		t.Fatalf("failed to create auction ref: %v", err)
	}
	return auction
}

// bidRequest builds an ingest request against the fixture's target.
func bidRequest(extAuctionID, extBidID, extBidderID string, value int64) *models.IngestBidRequest {
	return &models.IngestBidRequest{
		SourceCode:        "facebook",
		ExternalTargetID:  "board-1",
		ExternalAuctionID: extAuctionID,
		ExternalBidID:     extBidID,
		ExternalBidderID:  extBidderID,
		BidderName:        "Bidder " + extBidderID,
		Value:             value,
	}
}
