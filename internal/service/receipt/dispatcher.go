package receipt

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Generator interface {
	Generate(ctx context.Context, receiptID int64) error
}

// LocalDispatcher generates receipts on background goroutines of the
// current process. A receipt already being generated is not dispatched a
// second time.
type LocalDispatcher struct {
	generator Generator
	timeout   time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[int64]struct{}
	wg       sync.WaitGroup
}

func NewLocalDispatcher(generator Generator, timeout time.Duration, logger *zap.Logger) *LocalDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalDispatcher{
		generator: generator,
		timeout:   timeout,
		logger:    logger,
		inflight:  make(map[int64]struct{}),
	}
}

// Dispatch returns immediately. Generation runs with its own timeout and
// outlives the request context.
func (d *LocalDispatcher) Dispatch(_ context.Context, receiptID int64) error {
	d.mu.Lock()
	if _, busy := d.inflight[receiptID]; busy {
		d.mu.Unlock()
		return nil
	}
	d.inflight[receiptID] = struct{}{}
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(receiptID)
	return nil
}

func (d *LocalDispatcher) run(receiptID int64) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		delete(d.inflight, receiptID)
		d.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.generator.Generate(ctx, receiptID); err != nil {
		d.logger.Error("receipt generation failed", zap.Int64("receipt_id", receiptID), zap.Error(err))
	}
}

// Wait blocks until every dispatched generation has finished.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
