// Package pipeline groups incoming transactions into batches and fans them
// out to a pool of workers.
package pipeline

import (
	"context"
	"sync"
	"time"

	"erc20-transfer-indexer/internal/domain/entity"
	"erc20-transfer-indexer/internal/infrastructure/config"
	"erc20-transfer-indexer/internal/infrastructure/logger"

	"go.uber.org/zap"
)

// BatchProcessor handles one batch of transactions
type BatchProcessor interface {
	ProcessTransactionBatch(ctx context.Context, transactions []*entity.RawTransaction) error
}

// Batcher flushes a batch when it is full or when the flush interval elapses
type Batcher struct {
	batchSize     int
	workers       int
	flushInterval time.Duration
	logger        *logger.Logger
}

// NewBatcher creates a batcher from the app configuration
func NewBatcher(cfg *config.AppConfig, logger *logger.Logger) *Batcher {
	b := &Batcher{
		batchSize:     cfg.BatchSize,
		workers:       cfg.WorkerPoolSize,
		flushInterval: cfg.BatchTimeout,
		logger:        logger.WithComponent("batcher"),
	}
	if b.batchSize <= 0 {
		b.batchSize = 1
	}
	if b.workers <= 0 {
		b.workers = 1
	}
	if b.flushInterval <= 0 {
		b.flushInterval = 5 * time.Second
	}
	return b
}

// Run consumes in until it is closed or ctx is done. The pending batch is
// flushed and every worker has finished before Run returns.
func (b *Batcher) Run(ctx context.Context, in <-chan *entity.RawTransaction, processor BatchProcessor) {
	jobs := make(chan []*entity.RawTransaction, b.workers)

	// Workers outlive ctx long enough to finish the final flush
	workCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for batch := range jobs {
				if err := processor.ProcessTransactionBatch(workCtx, batch); err != nil {
					b.logger.Error("Failed to process transaction batch",
						zap.Int("worker_id", workerID),
						zap.Int("batch_size", len(batch)),
						zap.Error(err))
				}
			}
		}(i)
	}

	ticker := time.NewTicker(b.flushInterval)
	defer ticker.Stop()

	batch := make([]*entity.RawTransaction, 0, b.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		jobs <- batch
		batch = make([]*entity.RawTransaction, 0, b.batchSize)
	}
	stop := func() {
		flush()
		close(jobs)
		wg.Wait()
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return

		case tx, ok := <-in:
			if !ok {
				stop()
				return
			}
			batch = append(batch, tx)
			if len(batch) >= b.batchSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}
