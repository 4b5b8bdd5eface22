package webhooks

import (
	"context"
	"log"
	"time"
)

// Worker drains the delivery queue on a ticker. Multiple replicas are safe:
// the claim query leases rows, so two workers never attempt the same
// delivery concurrently.
type Worker struct {
	service   *Service
	interval  time.Duration
	batchSize int
	logger    *log.Logger
}

func NewWorker(service *Service, interval time.Duration, batchSize int) *Worker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Worker{
		service:   service,
		interval:  interval,
		batchSize: batchSize,
		logger:    log.New(log.Writer(), "[WEBHOOK-WORKER] ", log.LstdFlags),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Printf("Worker started (interval=%s batch=%d)", w.interval, w.batchSize)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Printf("Worker stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			stats, err := w.service.ProcessDeliveryQueue(ctx, w.batchSize)
			if err != nil {
				w.logger.Printf("❌ Queue pass failed: %v", err)
				continue
			}
			if stats.Processed > 0 {
				w.logger.Printf("Processed=%d delivered=%d retried=%d dead_lettered=%d",
					stats.Processed, stats.Delivered, stats.Retried, stats.DeadLettered)
			}
		}
	}
}
