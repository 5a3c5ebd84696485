package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"comic-auction/internal/events"
	"comic-auction/internal/models"
	"comic-auction/internal/observability"
	"comic-auction/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlreadyIngested is returned for an external bid id the engine has
// already seen; replays are silent no-ops.
const AlreadyIngested = "ALREADY_INGESTED"

// errRejected aborts the ingestion transaction after an in-transaction
// validation failure. Nothing has been written at that point, so the
// rollback only releases the auction lock.
var errRejected = errors.New("bid rejected")

// IngestService turns external bid events into chain appends. One
// transaction covers bidder creation, the append, the external
// reference, and the anti-sniper deadline update; domain events go out
// only after commit.
type IngestService struct {
	db        *gorm.DB
	repo      *repository.Repository
	auctions  *AuctionService
	publisher events.Publisher
	now       func() time.Time
}

func NewIngestService(db *gorm.DB, repo *repository.Repository, auctions *AuctionService, publisher events.Publisher) *IngestService {
	return &IngestService{
		db:        db,
		repo:      repo,
		auctions:  auctions,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// IngestExternalBid runs the full pipeline for one external bid event:
// resolve the mappings, classify against the current tail under the
// auction lock, persist the accepted bid, then emit the domain events.
// Validation failures are reported in the response, not as errors.
//
// In sync mode (historical replay) the bid is inserted at its
// value-ordered chain position, the deadline stays untouched, and no
// beaten/sniped/invalid notifications are emitted. Replaying an event
// already ingested is a no-op keyed on the external bid reference.
func (s *IngestService) IngestExternalBid(ctx context.Context, req *models.IngestBidRequest) (*models.IngestBidResponse, error) {
	arrival := s.now()
	if req.ArrivalTime != nil {
		arrival = req.ArrivalTime.UTC()
	}

	if _, err := s.repo.GetTargetByExternalID(ctx, req.SourceCode, req.ExternalTargetID); err != nil {
		observability.RecordIngestError("unknown_target")
		return nil, fmt.Errorf("target %s/%s: %w", req.SourceCode, req.ExternalTargetID, err)
	}

	auctionRef, err := s.repo.GetRef(ctx, req.SourceCode, req.ExternalAuctionID)
	if err != nil {
		return nil, err
	}
	if auctionRef == nil || auctionRef.RelatesTo != models.RefAuction {
		observability.RecordIngestError("unknown_auction")
		return nil, fmt.Errorf("auction %s/%s: %w", req.SourceCode, req.ExternalAuctionID, repository.ErrNotFound)
	}
	auctionID, err := uuid.Parse(auctionRef.RelatesToID)
	if err != nil {
		return nil, fmt.Errorf("%w: auction ref %s holds bad id %q", repository.ErrInvariant, req.ExternalAuctionID, auctionRef.RelatesToID)
	}

	if seen, err := s.repo.GetRef(ctx, req.SourceCode, req.ExternalBidID); err != nil {
		return nil, err
	} else if seen != nil {
		return &models.IngestBidResponse{Classification: AlreadyIngested}, nil
	}

	var (
		classification BidClassification
		persisted      *models.Bid
		prevTail       *models.Bid
		isSniped       bool
		newDue         time.Time
		createdBidder  *models.Bidder
		auction        *models.Auction
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		auction, err = txRepo.GetAuctionForUpdate(ctx, auctionID)
		if err != nil {
			return err
		}
		if auction.State != models.AuctionStateActive {
			return fmt.Errorf("%w: auction %s is %s", repository.ErrConflict, auction.ID, auction.State)
		}

		tail, err := txRepo.Tail(ctx, auction.ID)
		if err != nil {
			return err
		}

		classification = ClassifyBid(req.Value, req.IsBuyout, auction, tail)
		if classification == InvalidBeating && req.Sync {
			// Historical replay arrives out of order; a beaten value
			// still belongs in the chain at its value position.
			classification = ValidBid
		}
		if !classification.Accepted() {
			return errRejected
		}

		bidder, created, err := s.ensureBidder(ctx, txRepo, req)
		if err != nil {
			return err
		}
		if created {
			createdBidder = bidder
		}

		value := req.Value
		if classification == ValidBuyout {
			value = *auction.BuyNowPrice
		}

		if !req.Sync && classification == ValidBid {
			set, err := txRepo.GetSetByID(ctx, auction.SetID)
			if err != nil {
				return err
			}
			isSniped, newDue = SnipeCheck(arrival, auction.DateDue, set.AntiSniperMinutes)
		}

		bid := &models.Bid{
			ID:        uuid.New(),
			AuctionID: auction.ID,
			BidderID:  bidder.ID,
			Value:     value,
			IsBuyout:  classification == ValidBuyout,
			IsSniped:  isSniped,
			CreatedAt: arrival,
		}

		if req.Sync {
			if err := txRepo.InsertBidByValue(ctx, bid); err != nil {
				return err
			}
		} else {
			prevTail, err = txRepo.AppendBid(ctx, bid)
			if err != nil {
				return err
			}
		}

		if err := txRepo.CreateRef(ctx, &models.ExternalRef{
			SourceCode:  req.SourceCode,
			EntityID:    req.ExternalBidID,
			RelatesTo:   models.RefBid,
			RelatesToID: bid.ID.String(),
		}); err != nil {
			return err
		}

		if isSniped {
			auction.DateDue = newDue
			if err := txRepo.SaveAuction(ctx, auction); err != nil {
				return err
			}
		}

		persisted = bid
		return nil
	})

	if errors.Is(err, errRejected) {
		return s.reject(req, auctionID, classification), nil
	}
	if err != nil {
		observability.RecordIngestError("transaction")
		return nil, err
	}

	s.emitAccepted(req, persisted, prevTail, createdBidder, isSniped)

	if persisted.IsBuyout {
		observability.RecordBuyout()
		if _, err := s.auctions.Close(ctx, auction.ID, true); err != nil {
			// The bid is committed; the scheduler will close the
			// auction on its next pass.
			log.Printf("[Ingest] buyout close of auction %s failed: %v", auction.ID, err)
		}
	}

	observability.RecordBidIngested(req.SourceCode, string(classification))
	dateDue := auction.DateDue
	return &models.IngestBidResponse{
		Classification: string(classification),
		Accepted:       true,
		Bid:            persisted,
		IsSniped:       isSniped,
		DateDue:        &dateDue,
	}, nil
}

// ensureBidder resolves the external bidder id, creating the bidder and
// its reference on first contact.
func (s *IngestService) ensureBidder(ctx context.Context, txRepo *repository.Repository, req *models.IngestBidRequest) (*models.Bidder, bool, error) {
	ref, err := txRepo.GetRef(ctx, req.SourceCode, req.ExternalBidderID)
	if err != nil {
		return nil, false, err
	}
	if ref != nil {
		if ref.RelatesTo != models.RefBidder {
			return nil, false, fmt.Errorf("%w: ref %s/%s relates to %s, not bidder", repository.ErrInvariant, req.SourceCode, req.ExternalBidderID, ref.RelatesTo)
		}
		var bidderID uint
		if _, err := fmt.Sscanf(ref.RelatesToID, "%d", &bidderID); err != nil {
			return nil, false, fmt.Errorf("%w: bidder ref holds bad id %q", repository.ErrInvariant, ref.RelatesToID)
		}
		bidder, err := txRepo.GetBidderByID(ctx, bidderID)
		if err != nil {
			return nil, false, err
		}
		return bidder, false, nil
	}

	name := req.BidderName
	if name == "" {
		name = fmt.Sprintf("%s:%s", req.SourceCode, req.ExternalBidderID)
	}
	bidder := &models.Bidder{DisplayName: name}
	if err := txRepo.CreateBidder(ctx, bidder); err != nil {
		return nil, false, err
	}
	if err := txRepo.CreateRef(ctx, &models.ExternalRef{
		SourceCode:  req.SourceCode,
		EntityID:    req.ExternalBidderID,
		RelatesTo:   models.RefBidder,
		RelatesToID: fmt.Sprintf("%d", bidder.ID),
	}); err != nil {
		return nil, false, err
	}
	return bidder, true, nil
}

// reject builds the response for a validation failure and emits the
// matching Invalid* event. Sync replays stay silent.
func (s *IngestService) reject(req *models.IngestBidRequest, auctionID uuid.UUID, classification BidClassification) *models.IngestBidResponse {
	observability.RecordBidRejected(req.SourceCode, string(classification))

	if !req.Sync {
		attempt := &events.BidAttempt{
			SourceCode:       req.SourceCode,
			ExternalBidID:    req.ExternalBidID,
			ExternalBidderID: req.ExternalBidderID,
			AuctionID:        auctionID,
			Value:            req.Value,
			IsBuyout:         req.IsBuyout,
			Reason:           string(classification),
		}
		kind := events.KindInvalidBid
		if classification == InvalidBuyout {
			kind = events.KindInvalidBuyout
		}
		s.publisher.Publish(events.Event{
			Kind:       kind,
			SourceCode: req.SourceCode,
			Attempt:    attempt,
		})
	}

	return &models.IngestBidResponse{Classification: string(classification)}
}

// emitAccepted publishes the post-commit events for an accepted bid.
func (s *IngestService) emitAccepted(req *models.IngestBidRequest, bid, prevTail *models.Bid, createdBidder *models.Bidder, isSniped bool) {
	var pending []events.Event

	if createdBidder != nil {
		pending = append(pending, events.Event{
			Kind:       events.KindBidderCreated,
			SourceCode: req.SourceCode,
			Bidder:     createdBidder,
			Bid:        bid,
		})
	}

	if bid.IsBuyout {
		pending = append(pending, events.Event{
			Kind:       events.KindAuctionBuyout,
			SourceCode: req.SourceCode,
			Bid:        bid,
		})
	} else if !req.Sync {
		if isSniped {
			observability.RecordSnipedExtension()
			pending = append(pending, events.Event{
				Kind:       events.KindBidSniped,
				SourceCode: req.SourceCode,
				Bid:        bid,
			})
		}
		if prevTail != nil {
			pending = append(pending, events.Event{
				Kind:       events.KindBidBeaten,
				SourceCode: req.SourceCode,
				Bid:        bid,
				Beaten:     prevTail,
			})
		}
	}

	if len(pending) > 0 {
		s.publisher.Publish(pending...)
	}
}
