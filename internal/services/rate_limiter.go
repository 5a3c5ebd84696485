package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"comic-auction/internal/repository"

	"gorm.io/gorm"
)

var errBucketFull = errors.New("rate bucket full")

// RateLimiter is a leaky bucket keyed by (source, token_type). The
// request history lives on the external token row as a JSON array of
// unix-millisecond timestamps clipped to the last second; the row lock
// serializes mutation across workers, so the durable row is the
// authority and process-local state is never trusted.
type RateLimiter struct {
	db           *gorm.DB
	repo         *repository.Repository
	limits       map[string]int
	defaultLimit int
	now          func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewRateLimiter(db *gorm.DB, repo *repository.Repository, limits map[string]int, defaultLimit int) *RateLimiter {
	if defaultLimit <= 0 {
		defaultLimit = 1
	}
	return &RateLimiter{
		db:           db,
		repo:         repo,
		limits:       limits,
		defaultLimit: defaultLimit,
		now:          func() time.Time { return time.Now().UTC() },
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Limit returns the requests-per-second budget for a token.
func (l *RateLimiter) Limit(sourceCode, tokenType string) int {
	if limit, ok := l.limits[sourceCode+":"+tokenType]; ok && limit > 0 {
		return limit
	}
	return l.defaultLimit
}

// Acquire blocks until the (source, token_type) bucket has capacity,
// then records the request. When the bucket is full the caller sleeps
// until the oldest in-window request falls out of the one-second window.
func (l *RateLimiter) Acquire(ctx context.Context, sourceCode, tokenType string) error {
	limit := l.Limit(sourceCode, tokenType)

	for {
		var wait time.Duration

		err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			txRepo := l.repo.WithTx(tx)

			token, err := txRepo.GetTokenForUpdate(ctx, sourceCode, tokenType)
			if err != nil {
				return err
			}

			var history []int64
			if err := json.Unmarshal([]byte(token.RequestLog), &history); err != nil {
				// A corrupt log is replaced rather than wedging the token.
				history = nil
			}

			now := l.now()
			cutoff := now.Add(-time.Second).UnixMilli()
			window := history[:0]
			for _, ts := range history {
				if ts > cutoff {
					window = append(window, ts)
				}
			}

			if len(window) >= limit {
				oldest := window[0]
				wait = time.UnixMilli(oldest).Add(time.Second).Sub(now)
				if wait <= 0 {
					wait = time.Millisecond
				}
				return errBucketFull
			}

			window = append(window, now.UnixMilli())
			encoded, err := json.Marshal(window)
			if err != nil {
				return fmt.Errorf("failed to encode request log: %w", err)
			}
			token.RequestLog = string(encoded)
			return txRepo.SaveToken(ctx, token)
		})

		if err == nil {
			return nil
		}
		if !errors.Is(err, errBucketFull) {
			return err
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}
