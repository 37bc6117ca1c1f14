package services

import (
	"context"
	"errors"
	"log"
	"time"

	"go-hedgevault/internal/hedge"
)

// BatchSchedulerService periodically attempts batch formation. The interval
// gate lives in the state machine; the scheduler only supplies attempts, so
// ticking faster than the batch interval is safe.
type BatchSchedulerService struct {
	hedgeService *HedgeService
	tick         time.Duration
	stopChan     chan struct{}
}

// NewBatchSchedulerService creates a new BatchSchedulerService instance.
func NewBatchSchedulerService(hedgeService *HedgeService, tick time.Duration) *BatchSchedulerService {
	return &BatchSchedulerService{
		hedgeService: hedgeService,
		tick:         tick,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the batching loop.
func (s *BatchSchedulerService) Start() {
	log.Println("🚀 Batch scheduler starting...")
	log.Printf("📅 Batch attempt interval: %v", s.tick)
	go s.run()
	log.Println("✅ Batch scheduler started")
}

// Stop gracefully stops the batching loop.
func (s *BatchSchedulerService) Stop() {
	log.Println("🛑 Stopping batch scheduler...")
	close(s.stopChan)
	log.Println("✅ Batch scheduler stopped")
}

func (s *BatchSchedulerService) run() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.attempt()
		case <-s.stopChan:
			return
		}
	}
}

func (s *BatchSchedulerService) attempt() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	batch, err := s.hedgeService.CreateBatch(ctx)
	switch {
	case errors.Is(err, hedge.ErrBatchNotReady):
		// Interval not elapsed yet; next tick will try again.
	case errors.Is(err, hedge.ErrPaused):
		log.Println("⚠️ Batch attempt skipped: registry paused")
	case err != nil:
		log.Printf("❌ Batch attempt failed: %v", err)
	case batch == nil:
		log.Println("🔍 Batch attempt: no pending commitments")
	}
}
