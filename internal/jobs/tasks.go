package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypeGenerateReceipt = "receipt:generate"

const (
	QueueReceipts  = "receipts"
	receiptRetries = 5
	receiptTimeout = time.Minute
	// receiptUniqueFor keeps a second dispatch of the same receipt from
	// being enqueued while the first is still pending.
	receiptUniqueFor = 10 * time.Minute
)

type GenerateReceiptPayload struct {
	ReceiptID int64 `json:"receipt_id"`
}

func NewGenerateReceiptTask(receiptID int64) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(GenerateReceiptPayload{ReceiptID: receiptID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeGenerateReceipt, b)
	opts := []asynq.Option{
		asynq.Queue(QueueReceipts),
		asynq.MaxRetry(receiptRetries),
		asynq.Timeout(receiptTimeout),
		asynq.Unique(receiptUniqueFor),
	}
	return task, opts, nil
}

func parseGenerateReceipt(task *asynq.Task) (GenerateReceiptPayload, error) {
	var p GenerateReceiptPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid %s payload: %w", TypeGenerateReceipt, err)
	}
	if p.ReceiptID <= 0 {
		return p, fmt.Errorf("invalid %s payload: missing receipt_id", TypeGenerateReceipt)
	}
	return p, nil
}
