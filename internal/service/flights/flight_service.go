package flights

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/cache"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Origins(ctx context.Context) ([]string, error)
	Destinations(ctx context.Context) ([]string, error)
}

// FlightCache holds the unfiltered listing and the location lists. A miss
// is reported as nil, nil.
type FlightCache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	GetLocations(ctx context.Context, kind string) ([]string, error)
	SetLocations(ctx context.Context, kind string, values []string) error
}

type FlightService struct {
	repo   repository.FlightRepository
	cache  FlightCache
	logger *zap.Logger
}

func NewFlightService(repo repository.FlightRepository, cache FlightCache, logger *zap.Logger) *FlightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlightService{repo: repo, cache: cache, logger: logger}
}

// List returns bookable flights matching filter. Only the unfiltered
// listing is cached; the booking service drops it after every reservation.
func (s *FlightService) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	if filter.Passengers < 0 {
		return nil, fmt.Errorf("passengers must not be negative: %w", domain.ErrInvalidInput)
	}
	cacheable := s.cache != nil && filter == (domain.FlightFilter{})

	if cacheable {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.logger.Warn("flights cache read failed", zap.Error(err))
		}
	}

	flights, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, domain.Classify(err)
	}
	if flights == nil {
		flights = []domain.Flight{}
	}
	if cacheable {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.logger.Warn("flights cache write failed", zap.Error(err))
		}
	}
	return flights, nil
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	flight, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Classify(err)
	}
	return flight, nil
}

func (s *FlightService) Origins(ctx context.Context) ([]string, error) {
	return s.locations(ctx, cache.LocationOrigins, s.repo.Origins)
}

func (s *FlightService) Destinations(ctx context.Context) ([]string, error) {
	return s.locations(ctx, cache.LocationDestinations, s.repo.Destinations)
}

func (s *FlightService) locations(ctx context.Context, kind string, load func(context.Context) ([]string, error)) ([]string, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetLocations(ctx, kind); err == nil && cached != nil {
			return cached, nil
		}
	}

	values, err := load(ctx)
	if err != nil {
		return nil, domain.Classify(err)
	}
	if values == nil {
		values = []string{}
	}
	if s.cache != nil {
		if err := s.cache.SetLocations(ctx, kind, values); err != nil {
			s.logger.Warn("locations cache write failed", zap.String("kind", kind), zap.Error(err))
		}
	}
	return values, nil
}

var _ FlightUseCase = (*FlightService)(nil)
