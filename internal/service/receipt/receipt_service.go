package receipt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

// ErrArtifactUnavailable is returned by Download while the PDF has not been
// generated yet or the file has gone missing.
var ErrArtifactUnavailable = fmt.Errorf("receipt PDF not available: %w", domain.ErrNotFound)

type ReceiptUseCase interface {
	GetReceipt(ctx context.Context, bookingID, userID int64) (*domain.ReceiptRecord, error)
	Download(ctx context.Context, bookingID, userID int64) (*Download, error)
}

// Issuer renders a receipt artifact and returns where it was stored.
// Issuing the same receipt number twice must target the same artifact.
type Issuer interface {
	Issue(ctx context.Context, record *domain.ReceiptRecord) (string, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, receiptID int64) error
}

type Download struct {
	Path     string
	FileName string
}

type ReceiptService struct {
	receipts repository.ReceiptRepository
	issuer   Issuer
	logger   *zap.Logger
	exists   func(path string) bool
	now      func() time.Time
}

func NewReceiptService(receipts repository.ReceiptRepository, issuer Issuer, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{
		receipts: receipts,
		issuer:   issuer,
		logger:   logger,
		exists:   fileExists,
		now:      time.Now,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// GetReceipt returns the receipt of a booking owned by userID. The artifact
// path may still be empty.
func (s *ReceiptService) GetReceipt(ctx context.Context, bookingID, userID int64) (*domain.ReceiptRecord, error) {
	record, err := s.receipts.GetForUser(ctx, bookingID, userID)
	if err != nil {
		return nil, domain.Classify(err)
	}
	return record, nil
}

func (s *ReceiptService) Download(ctx context.Context, bookingID, userID int64) (*Download, error) {
	record, err := s.GetReceipt(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}
	if record.ArtifactPath == "" || !s.exists(record.ArtifactPath) {
		return nil, ErrArtifactUnavailable
	}
	return &Download{Path: record.ArtifactPath, FileName: domain.ReceiptFileName(record.ReceiptNumber)}, nil
}

// Generate issues the artifact of a receipt and records its path. A receipt
// whose artifact already exists on disk is left alone.
func (s *ReceiptService) Generate(ctx context.Context, receiptID int64) error {
	record, err := s.receipts.GetByID(ctx, receiptID)
	if err != nil {
		return err
	}
	if record.ArtifactPath != "" && s.exists(record.ArtifactPath) {
		return nil
	}

	path, err := s.issuer.Issue(ctx, record)
	if err != nil {
		metrics.ReceiptsGenerated.WithLabelValues("failed").Inc()
		return fmt.Errorf("issue receipt %s: %w", record.ReceiptNumber, err)
	}
	if err := s.receipts.AttachArtifact(ctx, receiptID, path); err != nil {
		metrics.ReceiptsGenerated.WithLabelValues("failed").Inc()
		return fmt.Errorf("attach artifact to receipt %s: %w", record.ReceiptNumber, err)
	}

	metrics.ReceiptsGenerated.WithLabelValues("ok").Inc()
	s.logger.Info("receipt generated",
		zap.String("receipt_number", record.ReceiptNumber),
		zap.String("path", path))
	return nil
}

// Backfill re-dispatches receipts issued more than olderThan ago that still
// have no artifact. It returns how many were dispatched.
func (s *ReceiptService) Backfill(ctx context.Context, dispatcher Dispatcher, olderThan time.Duration, limit int) (int, error) {
	ids, err := s.receipts.ListMissingArtifacts(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	var errs []error
	for _, id := range ids {
		if err := dispatcher.Dispatch(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("receipt %d: %w", id, err))
			continue
		}
		dispatched++
	}
	if dispatched > 0 {
		s.logger.Info("receipt backfill dispatched", zap.Int("count", dispatched))
	}
	return dispatched, errors.Join(errs...)
}

var _ ReceiptUseCase = (*ReceiptService)(nil)
