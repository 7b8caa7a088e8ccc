package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/flightbooking/api"
	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/bootstrap"
	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/jobs"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/logger"
	"github.com/Domenick1991/flightbooking/internal/pdf"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/service/auth"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/contact"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/Domenick1991/flightbooking/internal/service/payment"
	"github.com/Domenick1991/flightbooking/internal/service/receipt"
	"github.com/Domenick1991/flightbooking/internal/token"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

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

	if cfg.Database.Migrate {
		if err := repository.Migrate(ctx, pool); err != nil {
			lg.Fatal("migrate schema", zap.Error(err))
		}
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CacheTTL())
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		lg.Warn("redis unavailable, flights are served uncached", zap.Error(err))
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, lg)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		lg.Warn("kafka unavailable, booking events will be dropped", zap.Error(err))
	}
	events := kafka.NewEventPublisher(producer, cfg.Kafka.BookingEventsTopic, cfg.Kafka.NotificationsTopic)

	txManager := repository.NewTxManager(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	receiptRepo := repository.NewReceiptRepository(pool)
	tokens := token.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL())

	receiptService := receipt.NewReceiptService(receiptRepo, pdf.NewIssuer(cfg.Receipts.Dir), lg)

	var dispatcher payment.ReceiptDispatcher
	switch cfg.Receipts.Dispatch {
	case config.DispatchAsynq:
		client := asynq.NewClient(jobs.RedisOpt(cfg.Redis))
		defer client.Close()
		dispatcher = jobs.NewDispatcher(client)
	default:
		local := receipt.NewLocalDispatcher(receiptService, cfg.Receipts.GenerateTimeout(), lg)
		defer local.Wait()
		dispatcher = local
	}

	flightService := flights.NewFlightService(repository.NewFlightRepository(pool), redisCache, lg)
	bookingService := booking.NewBookingService(
		txManager,
		bookingRepo,
		booking.WithCache(redisCache),
		booking.WithEvents(events),
		booking.WithLogger(lg),
	)
	paymentService := payment.NewPaymentService(
		txManager,
		dispatcher,
		payment.WithEvents(events),
		payment.WithLogger(lg),
	)
	authService := auth.NewAuthService(repository.NewUserRepository(pool), tokens, lg)
	contactService := contact.NewContactService(repository.NewContactRepository(pool))

	router := api.NewRouter(api.RouterConfig{
		Logger:            lg,
		Tokens:            tokens,
		RequestsPerMinute: cfg.HTTP.RequestsPerMinute,
		SwaggerDir:        cfg.HTTP.SwaggerDir,
		Health:            pool.Ping,
	}, api.Handlers{
		Flights:  api.NewFlightHandler(flightService),
		Bookings: api.NewBookingHandler(bookingService),
		Receipts: api.NewReceiptHandler(receiptService),
		Payments: api.NewPaymentHandler(paymentService),
		Auth:     api.NewAuthHandler(authService),
		Contact:  api.NewContactHandler(contactService),
	})

	if err := bootstrap.Run(ctx, cfg, router, pool.Ping, lg); err != nil {
		lg.Error("server error", zap.Error(err))
	}
}
