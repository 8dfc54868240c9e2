package dataset

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/salesboard/internal/config"
	datasetpkg "github.com/Additional-Code/salesboard/internal/dataset"
	"github.com/Additional-Code/salesboard/internal/messaging"
	"github.com/Additional-Code/salesboard/internal/service/analysis"
	"github.com/Additional-Code/salesboard/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/salesboard/worker/dataset")

// Module registers dataset worker handlers.
var Module = fx.Module("worker_dataset",
	fx.Provide(
		func(svc *analysis.Service) Warmer { return svc },
		fx.Annotate(
			NewReloadedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// Warmer precomputes the default reports.
type Warmer interface {
	Warm(ctx context.Context) error
}

// NewReloadedHandler warms the shared report cache whenever a new dataset
// snapshot is announced.
func NewReloadedHandler(warmer Warmer, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.dataset.reloaded", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		event, err := datasetpkg.DecodeReloadedEvent(msg.Value)
		if err != nil {
			logger.Error("failed to decode dataset event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		span.SetAttributes(attribute.String("dataset.version", event.Version))

		if err := warmer.Warm(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "warmup failed")
			return err
		}
		logger.Info("dataset reload processed",
			zap.String("source", event.Source),
			zap.String("version", event.Version),
			zap.String("previous_version", event.PreviousVersion),
			zap.Int("rows", event.Rows),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
