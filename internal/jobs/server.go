package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type ReceiptGenerator interface {
	Generate(ctx context.Context, receiptID int64) error
}

func NewServer(redis asynq.RedisClientOpt, concurrency int, logger *zap.Logger) *asynq.Server {
	return asynq.NewServer(redis, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueReceipts: 6,
			"default":     1,
		},
		Logger: logger.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn("task failed",
				zap.String("type", task.Type()),
				zap.Int("retry", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err))
		}),
	})
}

func NewServeMux(receipts ReceiptGenerator, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeGenerateReceipt, handleGenerateReceipt(receipts, logger))
	return mux
}

func handleGenerateReceipt(receipts ReceiptGenerator, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := parseGenerateReceipt(task)
		if err != nil {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		if err := receipts.Generate(ctx, p.ReceiptID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				logger.Warn("dropping generation of unknown receipt", zap.Int64("receipt_id", p.ReceiptID))
				return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
			}
			return err
		}
		return nil
	}
}
