package repository

import (
	"context"

	"comic-auction/internal/models"

	"gorm.io/gorm"
)

// GetRef looks up the external reference for (source, entityID), or nil.
func (r *Repository) GetRef(ctx context.Context, sourceCode, entityID string) (*models.ExternalRef, error) {
	var ref models.ExternalRef
	err := r.db.WithContext(ctx).
		Where("source_code = ? AND entity_id = ?", sourceCode, entityID).
		First(&ref).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// CreateRef persists a new external reference.
func (r *Repository) CreateRef(ctx context.Context, ref *models.ExternalRef) error {
	return r.db.WithContext(ctx).Create(ref).Error
}

// GetTargetByExternalID resolves a target from its foreign identifier.
func (r *Repository) GetTargetByExternalID(ctx context.Context, sourceCode, externalID string) (*models.Target, error) {
	var target models.Target
	err := r.db.WithContext(ctx).
		Where("source_code = ? AND external_id = ?", sourceCode, externalID).
		First(&target).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &target, nil
}

// GetBidderByID retrieves a bidder by ID.
func (r *Repository) GetBidderByID(ctx context.Context, bidderID uint) (*models.Bidder, error) {
	var bidder models.Bidder
	err := r.db.WithContext(ctx).Where("id = ?", bidderID).First(&bidder).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bidder, nil
}

// CreateBidder persists a new bidder.
func (r *Repository) CreateBidder(ctx context.Context, bidder *models.Bidder) error {
	return r.db.WithContext(ctx).Create(bidder).Error
}

// GetTokenForUpdate loads (creating if missing) the external token row
// for (source, tokenType) under a row lock. The lock serializes the
// rate-limit history mutation across workers.
func (r *Repository) GetTokenForUpdate(ctx context.Context, sourceCode, tokenType string) (*models.ExternalToken, error) {
	var token models.ExternalToken
	err := lockForUpdate(r.db.WithContext(ctx)).
		Where("source_code = ? AND token_type = ?", sourceCode, tokenType).
		First(&token).Error
	if err == gorm.ErrRecordNotFound {
		token = models.ExternalToken{
			SourceCode: sourceCode,
			TokenType:  tokenType,
			RequestLog: "[]",
		}
		if err := r.db.WithContext(ctx).Create(&token).Error; err != nil {
			return nil, err
		}
		return &token, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// SaveToken persists the token row.
func (r *Repository) SaveToken(ctx context.Context, token *models.ExternalToken) error {
	return r.db.WithContext(ctx).Save(token).Error
}
