package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"comic-auction/internal/observability"
	"comic-auction/internal/services"
)

// InvoiceSweep periodically bills the winners of ended auctions. Same
// tick discipline as the close scheduler: one instance at a time,
// overruns skip.
type InvoiceSweep struct {
	invoices *services.InvoiceService
	interval time.Duration
	stopChan chan struct{}
	running  sync.Mutex
}

// NewInvoiceSweep creates a new invoice sweep job.
func NewInvoiceSweep(invoices *services.InvoiceService, interval time.Duration) *InvoiceSweep {
	return &InvoiceSweep{
		invoices: invoices,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start begins the sweep loop.
func (is *InvoiceSweep) Start() {
	log.Printf("[InvoiceSweep] Starting invoice sweep job (interval: %v)", is.interval)

	ticker := time.NewTicker(is.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !is.running.TryLock() {
				observability.RecordSchedulerSkip("invoice_sweep")
				log.Println("[InvoiceSweep] previous tick still running, skipping")
				continue
			}
			is.sweep()
			is.running.Unlock()
		case <-is.stopChan:
			log.Println("[InvoiceSweep] Stopping invoice sweep job")
			return
		}
	}
}

// Stop stops the sweep loop.
func (is *InvoiceSweep) Stop() {
	close(is.stopChan)
}

func (is *InvoiceSweep) sweep() {
	observability.RecordSchedulerTick("invoice_sweep")

	created, err := is.invoices.Sweep(context.Background())
	if err != nil {
		log.Printf("[InvoiceSweep] Error sweeping invoices: %v", err)
		return
	}
	if created > 0 {
		log.Printf("[InvoiceSweep] Generated %d invoices", created)
	}
}
