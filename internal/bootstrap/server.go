package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	shutdownTimeout = 5 * time.Second
	healthInterval  = 10 * time.Second
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "flightbooking.v1.Booking"

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
}

// Run serves the HTTP API and the gRPC health service until ctx is
// cancelled or one of them fails. check drives the reported health status.
func Run(ctx context.Context, cfg *config.Config, handler http.Handler, check func(context.Context) error, logger *zap.Logger) error {
	s := newServers(cfg, handler)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("grpc health server listening", zap.String("address", cfg.GRPC.Address))
		return s.grpcServer.Serve(lis)
	})

	g.Go(func() error {
		logger.Info("http server listening", zap.String("address", cfg.HTTP.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		s.watchHealth(ctx, check, logger)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down servers")
		s.health.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.grpcServer.GracefulStop()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newServers(cfg *config.Config, handler http.Handler) *Servers {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		httpServer: httpSrv,
	}
}

// watchHealth mirrors check onto the gRPC health status until ctx ends.
func (s *Servers) watchHealth(ctx context.Context, check func(context.Context) error, logger *zap.Logger) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()

	for {
		s.updateHealth(ctx, check, logger)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Servers) updateHealth(ctx context.Context, check func(context.Context) error, logger *zap.Logger) {
	status := healthpb.HealthCheckResponse_SERVING
	if check != nil {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(checkCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("health check failed", zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}
