package services

import (
	"comic-auction/internal/models"
)

// BidClassification is the validator's verdict on a prospective bid.
type BidClassification string

const (
	ValidBid       BidClassification = "VALID_BID"
	ValidBuyout    BidClassification = "VALID_BUYOUT"
	InvalidBid     BidClassification = "INVALID_BID"
	InvalidBeating BidClassification = "INVALID_BEATING"
	InvalidBuyout  BidClassification = "INVALID_BUYOUT"
)

// Accepted reports whether the classification lets a bid into the chain.
func (c BidClassification) Accepted() bool {
	return c == ValidBid || c == ValidBuyout
}

// ClassifyBid classifies a prospective bid against the auction's cached
// price parameters and the current chain tail. Pure and deterministic;
// all arithmetic is on integer currency units.
//
// Rules, in order: a buy-now request is valid while buy-now is
// configured and the tail has not reached buy_now_expires; otherwise the
// value must clear the start price and the multiple-of grid; a raise
// must beat the tail by at least the minimum step.
func ClassifyBid(value int64, isBuyout bool, auction *models.Auction, tail *models.Bid) BidClassification {
	if isBuyout {
		if auction.BuyNowPrice == nil {
			return InvalidBuyout
		}
		if tail != nil && auction.BuyNowExpires != nil && tail.Value >= *auction.BuyNowExpires {
			return InvalidBuyout
		}
		return ValidBuyout
	}

	if value < auction.BidStartPrice {
		return InvalidBid
	}
	if auction.BidMultipleOf > 1 && value%auction.BidMultipleOf != 0 {
		return InvalidBid
	}

	if tail != nil && value < tail.Value+auction.BidMinStep {
		return InvalidBeating
	}

	return ValidBid
}
