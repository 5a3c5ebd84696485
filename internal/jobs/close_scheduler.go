package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"comic-auction/internal/observability"
	"comic-auction/internal/repository"
	"comic-auction/internal/services"
)

const setBatchSize = 200

// CloseScheduler periodically fires close attempts on running sets.
// Ticks are serialized: if a tick is still running when the next one
// fires, the new tick is skipped, never queued. Each tick is idempotent,
// so a crashed or skipped tick just leaves work for the next one.
type CloseScheduler struct {
	sets     *services.SetService
	repo     *repository.Repository
	interval time.Duration
	stopChan chan struct{}
	running  sync.Mutex
}

// NewCloseScheduler creates a new close scheduler.
func NewCloseScheduler(sets *services.SetService, repo *repository.Repository, interval time.Duration) *CloseScheduler {
	return &CloseScheduler{
		sets:     sets,
		repo:     repo,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the close loop.
func (cs *CloseScheduler) Start() {
	log.Printf("[CloseScheduler] Starting set close job (interval: %v)", cs.interval)

	ticker := time.NewTicker(cs.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !cs.running.TryLock() {
				observability.RecordSchedulerSkip("try_close_sets")
				log.Println("[CloseScheduler] previous tick still running, skipping")
				continue
			}
			cs.tryCloseSets()
			cs.running.Unlock()
		case <-cs.stopChan:
			log.Println("[CloseScheduler] Stopping set close job")
			return
		}
	}
}

// Stop stops the close loop.
func (cs *CloseScheduler) Stop() {
	close(cs.stopChan)
}

// tryCloseSets runs one tick over every running set.
func (cs *CloseScheduler) tryCloseSets() {
	ctx := context.Background()
	observability.RecordSchedulerTick("try_close_sets")

	sets, err := cs.repo.GetRunningSets(ctx, setBatchSize)
	if err != nil {
		log.Printf("[CloseScheduler] Error fetching running sets: %v", err)
		return
	}
	if len(sets) == 0 {
		return
	}

	closed := 0
	for _, set := range sets {
		done, err := cs.sets.TryClose(ctx, set.ID)
		if err != nil {
			log.Printf("[CloseScheduler] Error closing set %s: %v", set.ID, err)
			continue
		}
		if done {
			closed++
			log.Printf("[CloseScheduler] Closed set %s", set.ID)
		}
	}

	if closed > 0 {
		log.Printf("[CloseScheduler] Closed %d of %d sets", closed, len(sets))
	}
}
