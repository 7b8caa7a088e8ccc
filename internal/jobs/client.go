package jobs

import (
	"context"
	"errors"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/hibiken/asynq"
)

func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.JobsDB,
	}
}

type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher hands receipt generation to the worker process through asynq.
type Dispatcher struct {
	client Enqueuer
}

func NewDispatcher(client Enqueuer) *Dispatcher {
	return &Dispatcher{client: client}
}

// Dispatch enqueues a generation task. A task already queued for the same
// receipt counts as success.
func (d *Dispatcher) Dispatch(ctx context.Context, receiptID int64) error {
	task, opts, err := NewGenerateReceiptTask(receiptID)
	if err != nil {
		return err
	}
	if _, err := d.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) || errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return err
	}
	return nil
}
