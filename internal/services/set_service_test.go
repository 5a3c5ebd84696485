package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"comic-auction/internal/events"
	"comic-auction/internal/models"
	"comic-auction/internal/repository"
)

func TestSetStartActivatesAuctions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, standardCategory())
	set := f.seedSet(t, models.SetStateDraft, 5, f.baseTime.Add(time.Hour))
	auction := f.seedAuction(t, set, cat, "lot-1")

	started, err := f.sets.Start(ctx, set.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if started.State != models.SetStateRunning {
		t.Fatalf("expected RUNNING, got %s", started.State)
	}
	if started.StartedAt == nil || !started.IsPublished {
		t.Error("started set must record StartedAt and be published")
	}

	stored, err := f.repo.GetAuctionByID(ctx, auction.ID)
	if err != nil {
		t.Fatalf("GetAuctionByID failed: %v", err)
	}
	if stored.State != models.AuctionStateActive || !stored.IsActive || stored.StartedAt == nil {
		t.Error("starting the set must activate its auctions")
	}

	if f.rec.count(events.KindAuctionSetStarted) != 1 {
		t.Error("start must emit auction_set_started")
	}
}

func TestSetStartTwiceRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	set := f.seedSet(t, models.SetStateDraft, 5, f.baseTime.Add(time.Hour))

	if _, err := f.sets.Start(ctx, set.ID); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	_, err := f.sets.Start(ctx, set.ID)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("restarting a running set must report ErrConflict, got %v", err)
	}
}

func TestSetTryCloseBeforeDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, standardCategory())
	set := f.seedSet(t, models.SetStateRunning, 0, f.baseTime.Add(time.Hour))
	f.seedAuction(t, set, cat, "lot-1")

	closed, err := f.sets.TryClose(ctx, set.ID)
	if err != nil {
		t.Fatalf("TryClose failed: %v", err)
	}
	if closed {
		t.Fatal("set with an undue auction must stay open")
	}

	stored, err := f.repo.GetSetByID(ctx, set.ID)
	if err != nil {
		t.Fatalf("GetSetByID failed: %v", err)
	}
	if stored.State != models.SetStateRunning {
		t.Errorf("set must stay RUNNING, got %s", stored.State)
	}
}

func TestSetTryCloseAfterDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, standardCategory())
	dateDue := f.baseTime.Add(time.Hour)
	set := f.seedSet(t, models.SetStateRunning, 0, dateDue)
	first := f.seedAuction(t, set, cat, "lot-1")
	second := f.seedAuction(t, set, cat, "lot-2")

	f.setNow(dateDue.Add(time.Minute))

	closed, err := f.sets.TryClose(ctx, set.ID)
	if err != nil {
		t.Fatalf("TryClose failed: %v", err)
	}
	if !closed {
		t.Fatal("set with every auction past due must close")
	}

	stored, err := f.repo.GetSetByID(ctx, set.ID)
	if err != nil {
		t.Fatalf("GetSetByID failed: %v", err)
	}
	if stored.State != models.SetStateClosed || stored.EndedAt == nil {
		t.Error("closed set must be CLOSED with EndedAt")
	}

	for _, id := range []string{first.ID.String(), second.ID.String()} {
		var auction models.Auction
		if err := f.db.Where("id = ?", id).First(&auction).Error; err != nil {
			t.Fatalf("auction lookup failed: %v", err)
		}
		if auction.State != models.AuctionStateEnded {
			t.Errorf("auction %s must be ENDED, got %s", id, auction.State)
		}
	}
}

func TestSetTryCloseIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, standardCategory())
	dateDue := f.baseTime.Add(time.Hour)
	set := f.seedSet(t, models.SetStateRunning, 0, dateDue)
	f.seedAuction(t, set, cat, "lot-1")

	f.setNow(dateDue.Add(time.Minute))

	if closed, err := f.sets.TryClose(ctx, set.ID); err != nil || !closed {
		t.Fatalf("first TryClose: closed=%v err=%v", closed, err)
	}
	closed, err := f.sets.TryClose(ctx, set.ID)
	if err != nil {
		t.Fatalf("second TryClose failed: %v", err)
	}
	if !closed {
		t.Error("TryClose on a closed set reports done")
	}
}

func TestSetTryCloseExtendedAuctionStaysOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, standardCategory())
	dateDue := f.baseTime.Add(time.Hour)
	set := f.seedSet(t, models.SetStateRunning, 5, dateDue)
	auction := f.seedAuction(t, set, cat, "lot-1")

	// A sniped bid pushes this auction past the set deadline.
	arrival := dateDue.Add(-1 * time.Minute)
	req := bidRequest("lot-1", "bid-1", "alice", 100)
	req.ArrivalTime = &arrival
	resp, err := f.ingest.IngestExternalBid(ctx, req)
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if !resp.IsSniped {
		t.Fatal("expected a sniped bid")
	}

	// Past the original deadline but before the extension.
	f.setNow(dateDue.Add(time.Minute))

	closed, err := f.sets.TryClose(ctx, set.ID)
	if err != nil {
		t.Fatalf("TryClose failed: %v", err)
	}
	if closed {
		t.Fatal("set must wait for the extended auction")
	}

	stored, err := f.repo.GetAuctionByID(ctx, auction.ID)
	if err != nil {
		t.Fatalf("GetAuctionByID failed: %v", err)
	}
	if stored.State != models.AuctionStateActive {
		t.Error("extended auction must remain active until its new deadline")
	}

	// After the extension the set closes.
	f.setNow(resp.DateDue.Add(time.Minute))
	closed, err = f.sets.TryClose(ctx, set.ID)
	if err != nil {
		t.Fatalf("TryClose failed: %v", err)
	}
	if !closed {
		t.Fatal("set must close once the extension passes")
	}
}

func TestSetCreateUsesDefaultWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	set, err := f.sets.CreateSet(ctx, &models.CreateSetRequest{
		TargetID: 1,
		DateDue:  f.baseTime.Add(time.Hour),
	}, 5)
	if err != nil {
		t.Fatalf("CreateSet failed: %v", err)
	}
	if set.AntiSniperMinutes != 5 {
		t.Errorf("expected default window 5, got %d", set.AntiSniperMinutes)
	}
	if set.State != models.SetStateDraft {
		t.Errorf("new set must be DRAFT, got %s", set.State)
	}

	window := 0
	set, err = f.sets.CreateSet(ctx, &models.CreateSetRequest{
		TargetID:          1,
		DateDue:           f.baseTime.Add(time.Hour),
		AntiSniperMinutes: &window,
	}, 5)
	if err != nil {
		t.Fatalf("CreateSet failed: %v", err)
	}
	if set.AntiSniperMinutes != 0 {
		t.Errorf("explicit window 0 must disable the anti-sniper, got %d", set.AntiSniperMinutes)
	}

	negative := -1
	if _, err := f.sets.CreateSet(ctx, &models.CreateSetRequest{
		TargetID:          1,
		DateDue:           f.baseTime.Add(time.Hour),
		AntiSniperMinutes: &negative,
	}, 5); err == nil {
		t.Error("negative window must be refused")
	}
}

func TestSetDeleteDraftCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, standardCategory())
	set := f.seedSet(t, models.SetStateDraft, 0, f.baseTime.Add(time.Hour))
	f.seedAuction(t, set, cat, "lot-1")

	if err := f.sets.Delete(ctx, set.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := f.repo.GetSetByID(ctx, set.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Error("deleted set must be gone")
	}
	var auctions int64
	if err := f.db.Model(&models.Auction{}).Where("set_id = ?", set.ID).Count(&auctions).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if auctions != 0 {
		t.Error("delete must cascade to member auctions")
	}
}

func TestSetDeleteStartedRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cat := f.createCategory(t, standardCategory())
	set := f.seedSet(t, models.SetStateRunning, 0, f.baseTime.Add(time.Hour))
	f.seedAuction(t, set, cat, "lot-1")

	err := f.sets.Delete(ctx, set.ID)
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("deleting a started set must report ErrConflict, got %v", err)
	}
}
