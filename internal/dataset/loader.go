package dataset

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	loaderTracer = otel.Tracer("github.com/Additional-Code/salesboard/dataset")
	loaderMeter  = otel.Meter("github.com/Additional-Code/salesboard/dataset")
)

// ErrNotLoaded is returned when no snapshot could be produced.
var ErrNotLoaded = errors.New("dataset not loaded")

// ReloadHook runs after a new snapshot replaced the previous one.
type ReloadHook func(ctx context.Context, previous, current *Table)

// Loader memoizes the dataset and re-reads it only when the source fingerprint changes.
type Loader struct {
	source        Source
	logger        *zap.Logger
	checkInterval time.Duration
	now           func() time.Time

	mu        sync.Mutex
	table     *Table
	checkedAt time.Time
	hooks     []ReloadHook

	reloads  metric.Int64Counter
	failures metric.Int64Counter
}

// NewLoader builds a loader. A non-positive checkInterval checks the fingerprint on every call.
func NewLoader(source Source, checkInterval time.Duration, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		source:        source,
		logger:        logger,
		checkInterval: checkInterval,
		now:           time.Now,
	}
	l.reloads, _ = loaderMeter.Int64Counter("dataset.reloads", metric.WithDescription("Dataset snapshots loaded"))
	l.failures, _ = loaderMeter.Int64Counter("dataset.load_failures", metric.WithDescription("Failed dataset loads"))
	return l
}

// OnReload registers a hook invoked after each successful reload.
func (l *Loader) OnReload(hook ReloadHook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// Current returns the memoized snapshot without touching the source.
func (l *Loader) Current() *Table {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.table
}

// Load returns the current snapshot, re-reading the source when its
// fingerprint changed. When a refresh fails the previous snapshot is served.
// Reload hooks run after the lock is released.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	table, previous, hooks, err := l.refresh(ctx)
	if err != nil {
		return nil, err
	}
	for _, hook := range hooks {
		hook(ctx, previous, table)
	}
	return table, nil
}

// refresh returns the hooks to notify only when a new table replaced the
// previous one.
func (l *Loader) refresh(ctx context.Context) (table, previous *Table, hooks []ReloadHook, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.table != nil && l.checkInterval > 0 && now.Sub(l.checkedAt) < l.checkInterval {
		return l.table, nil, nil, nil
	}

	ctx, span := loaderTracer.Start(ctx, "Loader.Load")
	defer span.End()
	span.SetAttributes(attribute.String("dataset.source", l.source.Name()))

	fingerprint, err := l.source.Fingerprint(ctx)
	if err != nil {
		table, err = l.fail(ctx, span, "fingerprint", err)
		return table, nil, nil, err
	}
	l.checkedAt = now
	if l.table != nil && l.table.Version() == fingerprint {
		return l.table, nil, nil, nil
	}

	records, err := l.source.Fetch(ctx)
	if err != nil {
		table, err = l.fail(ctx, span, "fetch", err)
		return table, nil, nil, err
	}

	previous = l.table
	l.table = NewTable(records, fingerprint, l.source.Name(), now)
	l.reloads.Add(ctx, 1, metric.WithAttributes(attribute.String("source", l.source.Name())))
	span.SetAttributes(attribute.Int("dataset.rows", len(records)), attribute.String("dataset.version", fingerprint))
	l.logger.Info("dataset loaded",
		zap.String("source", l.source.Name()),
		zap.String("version", fingerprint),
		zap.Int("rows", len(records)),
	)

	return l.table, previous, append([]ReloadHook(nil), l.hooks...), nil
}

func (l *Loader) fail(ctx context.Context, span trace.Span, stage string, err error) (*Table, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	l.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))

	if l.table != nil {
		l.logger.Warn("dataset refresh failed; serving previous snapshot",
			zap.String("stage", stage),
			zap.String("version", l.table.Version()),
			zap.Error(err),
		)
		return l.table, nil
	}
	l.logger.Error("dataset load failed", zap.String("stage", stage), zap.Error(err))
	return nil, errors.Join(ErrNotLoaded, err)
}
