package weather

import (
	"context"
	"time"

	"github.com/stwalsh4118/farmboard/internal/geo"
	"github.com/stwalsh4118/farmboard/internal/logger"
	"github.com/stwalsh4118/farmboard/internal/metrics"
)

// DefaultCacheTTL is how long a provider answer is reused.
const DefaultCacheTTL = 10 * time.Minute

// Provider produces live reports.
type Provider interface {
	Fetch(ctx context.Context, at geo.Coordinate) (*Report, error)
}

// Service answers weather requests. It never fails for a valid coordinate: provider
// errors degrade to the sample dataset and cache errors are only logged.
type Service struct {
	provider Provider
	cache    Cache
	log      *logger.Logger
	now      func() time.Time
	ttl      time.Duration
}

// NewService creates a weather service. cache may be nil.
func NewService(provider Provider, cache Cache, ttl time.Duration, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		provider: provider,
		cache:    cache,
		log:      log.Component(serviceName),
		now:      time.Now,
		ttl:      ttl,
	}
}

// Report returns the weather at a coordinate.
func (s *Service) Report(ctx context.Context, at geo.Coordinate) (*Report, error) {
	if err := at.Validate(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, at)
		switch {
		case err != nil:
			s.log.Warn("Weather cache read failed", map[string]interface{}{"error": err.Error()})
		case ok:
			metrics.CacheHits.WithLabelValues(serviceName).Inc()
			return cached, nil
		default:
			metrics.CacheMisses.WithLabelValues(serviceName).Inc()
		}
	}

	report, err := s.provider.Fetch(ctx, at)
	if err != nil {
		metrics.WeatherFallbacks.Inc()
		s.log.Warn("Weather provider failed, using sample data", map[string]interface{}{
			"lat":   at.Lat,
			"lng":   at.Lng,
			"error": err.Error(),
		})
		return Sample(at, s.now()), nil
	}
	report.FetchedAt = s.now()

	if s.cache != nil {
		if err := s.cache.Set(ctx, at, report, s.ttl); err != nil {
			s.log.Warn("Weather cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}

	return report, nil
}
