package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/cache"
	"github.com/Additional-Code/salesboard/internal/config"
	"github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/pkg/errorbank"
)

var (
	serviceTracer = otel.Tracer("github.com/Additional-Code/salesboard/service/analysis")
	serviceMeter  = otel.Meter("github.com/Additional-Code/salesboard/service/analysis")
)

// Report pages, also used as cache namespaces.
const (
	PageFilters            = "filters"
	PageOverview           = "overview"
	PageCatalog            = "catalog"
	PageExploratory        = "exploratory"
	PageMeanInterval       = "mean-interval"
	PageProportionInterval = "proportion-interval"
	PageCategoryComparison = "category-comparison"
	PageTTest              = "t-test"
	PageChiSquare          = "chi-square"
)

// TableLoader yields the current dataset snapshot.
type TableLoader interface {
	Load(ctx context.Context) (*dataset.Table, error)
}

// Service computes the dashboard reports over a filtered snapshot.
type Service struct {
	loader         TableLoader
	cache          cache.Store
	cacheTTL       time.Duration
	cfg            config.Analysis
	cancelledLabel string
	logger         *zap.Logger
	newRand        func() *rand.Rand
	requests       metric.Int64Counter
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Loader *dataset.Loader
	Cache  cache.Store
	Config config.Config
	Logger *zap.Logger
}

// NewService wires a Service from the Fx graph.
func NewService(p Params) *Service {
	return New(p.Loader, p.Cache, p.Config, p.Logger)
}

// New builds a Service. A nil store disables caching.
func New(loader TableLoader, store cache.Store, cfg config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		loader:         loader,
		cache:          store,
		cacheTTL:       cfg.Cache.DefaultTTL,
		cfg:            cfg.Analysis,
		cancelledLabel: cfg.Dataset.CancelledLabel,
		logger:         logger,
		newRand:        func() *rand.Rand { return rand.New(rand.NewSource(time.Now().UnixNano())) },
	}
	s.requests, _ = serviceMeter.Int64Counter("analysis.requests", metric.WithDescription("Report computations by page"))
	return s
}

// Config exposes the statistical settings in use.
func (s *Service) Config() config.Analysis {
	return s.cfg
}

// ResolveLevel applies the default confidence level and validates the range.
func (s *Service) ResolveLevel(level float64) (float64, error) {
	if level == 0 {
		return s.cfg.DefaultLevel, nil
	}
	if math.IsNaN(level) || level < s.cfg.MinLevel || level > s.cfg.MaxLevel {
		return 0, errorbank.BadRequest(
			fmt.Sprintf("confidence level must be between %.2f and %.2f", s.cfg.MinLevel, s.cfg.MaxLevel),
			errorbank.WithDetail("level", level),
		)
	}
	return level, nil
}

func (s *Service) isCancelled(status string) bool {
	return status == s.cancelledLabel
}

// snapshot loads and filters the dataset inside a span.
func (s *Service) snapshot(ctx context.Context, page string, f dataset.Filter) (context.Context, trace.Span, *dataset.Table, error) {
	ctx, span := serviceTracer.Start(ctx, "AnalysisService."+page, trace.WithAttributes(attribute.String("analysis.page", page)))
	s.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("page", page)))

	if err := f.Validate(); err != nil {
		span.SetStatus(codes.Error, "invalid filter")
		return ctx, span, nil, errorbank.BadRequest(err.Error(), errorbank.WithCause(err))
	}
	full, err := s.loader.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dataset unavailable")
		return ctx, span, nil, errorbank.Unavailable("dataset unavailable", errorbank.WithCause(err))
	}
	filtered := f.Apply(full)
	span.SetAttributes(
		attribute.String("dataset.version", full.Version()),
		attribute.Int("dataset.rows", full.Len()),
		attribute.Int("dataset.filtered_rows", filtered.Len()),
	)
	return ctx, span, filtered, nil
}

func newBase(t *dataset.Table) Base {
	return Base{DatasetVersion: t.Version(), Rows: t.Len()}
}

// cached returns the stored report for key or computes and stores it.
// Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, s *Service, page, version, key string, compute func() (T, error)) (T, error) {
	if s.cache == nil {
		return compute()
	}
	cacheKey := cache.Key(page, version, key)
	if raw, err := s.cache.Get(ctx, cacheKey); err == nil {
		var out T
		if err := json.Unmarshal(raw, &out); err == nil {
			return out, nil
		}
		s.logger.Warn("analysis cache entry unreadable", zap.String("key", cacheKey))
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("analysis cache read failed", zap.String("key", cacheKey), zap.Error(err))
	}

	out, err := compute()
	if err != nil {
		return out, err
	}
	raw, err := json.Marshal(out)
	if err != nil {
		s.logger.Warn("analysis cache encode failed", zap.String("page", page), zap.Error(err))
		return out, nil
	}
	if err := s.cache.Set(ctx, cacheKey, raw, s.cacheTTL); err != nil {
		s.logger.Warn("analysis cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return out, nil
}

// Module provides the analysis service to Fx.
var Module = fx.Provide(NewService)
