package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/email"
	"github.com/Domenick1991/flightbooking/internal/jobs"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/Domenick1991/flightbooking/internal/pdf"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/receipt"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const backfillBatch = 100

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.IsProduction())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	receiptService := receipt.NewReceiptService(
		repository.NewReceiptRepository(pool),
		pdf.NewIssuer(cfg.Receipts.Dir),
		lg,
	)

	redisOpt := jobs.RedisOpt(cfg.Redis)
	client := asynq.NewClient(redisOpt)
	defer client.Close()
	dispatcher := jobs.NewDispatcher(client)

	server := jobs.NewServer(redisOpt, cfg.Worker.Concurrency, lg)
	if err := server.Start(jobs.NewServeMux(receiptService, lg)); err != nil {
		lg.Fatal("start asynq server", zap.Error(err))
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, lg)
	defer consumer.Close()
	sender := email.NewSender(lg)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Consume(ctx, kafka.BookingEventHandler(lg, sender.Send))
	})

	g.Go(func() error {
		sweep(ctx, receiptService, dispatcher, cfg.Worker, lg)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		lg.Info("shutting down worker")
		server.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		lg.Error("worker stopped", zap.Error(err))
	}
}

// sweep re-dispatches receipts whose artifact never appeared.
func sweep(ctx context.Context, receipts *receipt.ReceiptService, dispatcher receipt.Dispatcher, cfg config.WorkerConfig, lg *zap.Logger) {
	ticker := time.NewTicker(time.Duration(cfg.ReceiptSweepMinutes) * time.Minute)
	defer ticker.Stop()

	olderThan := time.Duration(cfg.ReceiptBackfillAfterMins) * time.Minute
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := receipts.Backfill(ctx, dispatcher, olderThan, backfillBatch); err != nil {
				lg.Warn("receipt backfill", zap.Error(err))
			}
		}
	}
}
